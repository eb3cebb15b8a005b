// Package cmd defines the CLI commands for the statusinfo executable.
//
// Architecture overview:
//   - Registry: pkg/statusinfo tracks nested operations per thread. Workers
//     start, update and end operations; listeners and snapshots observe them.
//   - Progress pipeline: internal/progress.Hub is registered as a registry
//     listener, batches change events without blocking the caller, and fans
//     them out to the log, Prometheus and trace sinks enabled in config.
//   - HTTP: internal/api.Server exposes /healthz, /metrics and the read-only
//     /v1/snapshot and /v1/threads/{thread_id} views.
//   - Workload: internal/worker runs synthetic jobs from a bounded in-memory
//     queue through internal/dispatcher, so the registry has something to
//     report in serve and demo modes.
//
// Configuration is loaded by Viper from an optional file plus STATUSINFO_*
// environment overrides. SIGINT and SIGTERM cancel the command context, which
// drains workers, flushes the hub and shuts down tracing.
//
// Quick checklist:
//   - Run locally: go run . serve --workload -1 (or demo --output table).
//   - Inspect: curl localhost:8080/v1/snapshot
package cmd
