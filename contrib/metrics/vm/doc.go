// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "tandem":
//
//	collector := vm.New()
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_negotiation_total{label="A"}
//   - myapp_resume_duration_seconds
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Negotiation:
//   - {prefix}_negotiation_total{label} - Counter of session-scoped negotiated calls
//   - {prefix}_negotiation_retry_total{label} - Counter of alternate-label retries
//   - {prefix}_wrong_environment_total{label} - Counter of wrong-environment failures
//   - {prefix}_hint_captured_total{label} - Counter of captured advisory hints
//
// Label transitions:
//   - {prefix}_label_transition_total{from,to} - Counter of applied transitions
//   - {prefix}_pending_label - Gauge (1=transition pending, 0=steady state)
//
// Query lifecycle:
//   - {prefix}_query_registered_total{label} - Counter of registered queries
//   - {prefix}_query_reaped_total{label} - Counter of stale queries force-cancelled
//   - {prefix}_active_queries - Gauge of non-terminal tracked queries
//
// Cluster resume:
//   - {prefix}_resume_total - Counter of resume attempts
//   - {prefix}_resume_success_total - Counter of successful resumes
//   - {prefix}_resume_failure_total - Counter of failed or timed out resumes
//   - {prefix}_resume_duration_seconds - Histogram of resume durations
//
// Session:
//   - {prefix}_session_rebuild_total - Counter of session teardown-and-rebuilds
//   - {prefix}_auth_total{label} - Counter of authentication calls
//
// # Performance Notes
//
// This implementation pre-creates all metrics at initialization time
// using the NewXXX pattern (instead of GetOrCreateXXX) for optimal
// performance in hot paths, as recommended by the VictoriaMetrics documentation.
//
// The metrics are registered with a dedicated Set that is registered
// globally, allowing standard Prometheus scraping.
package vm
