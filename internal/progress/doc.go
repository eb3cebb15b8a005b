// Package progress turns registry notifications into events and fans them out
// to pluggable sinks. The Hub registers as a statusinfo.Listener, copies each
// notification into an Event, and batches events on a background goroutine so
// registry callers never wait on Prometheus, logging, or tracing.
package progress
