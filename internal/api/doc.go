// Package api hosts the HTTP server, middleware, and read-only handlers for
// operator access. Notable routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/snapshot for the full registry state.
//   - GET /v1/threads/{thread_id} for one thread's open operations.
package api
