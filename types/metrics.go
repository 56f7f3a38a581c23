package types

// MetricsCollector defines methods for collecting operational metrics.
//
// All label-scoped methods accept a LabelID parameter for labeling.
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/arloliu/tandem/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Negotiation
	// ----------------------

	// IncNegotiationTotal increments the session-scoped negotiated call counter.
	IncNegotiationTotal(label LabelID)

	// IncNegotiationRetry increments the counter when a session-scoped call
	// retries on the alternate label after a wrong-environment failure.
	IncNegotiationRetry(label LabelID)

	// IncWrongEnvironment increments the wrong-environment failure counter.
	IncWrongEnvironment(label LabelID)

	// IncHintCaptured increments the counter when a server-supplied advisory
	// label is captured as the pending label.
	IncHintCaptured(label LabelID)

	// ----------------------
	// Label Transitions
	// ----------------------

	// IncLabelTransition increments the counter when the active label flips.
	IncLabelTransition(from, to LabelID)

	// SetPendingLabel sets the pending-transition gauge.
	// Value: 1 if a transition is pending, 0 otherwise.
	SetPendingLabel(pending bool)

	// ----------------------
	// Query Lifecycle
	// ----------------------

	// IncQueryRegistered increments the counter when a query is registered.
	IncQueryRegistered(label LabelID)

	// SetActiveQueries sets the gauge of non-terminal tracked queries.
	SetActiveQueries(count int)

	// IncQueryReaped increments the counter when a stale query is
	// force-cancelled by the reaper.
	IncQueryReaped(label LabelID)

	// ----------------------
	// Cluster Resume
	// ----------------------

	// IncResumeTotal increments the counter when a resume attempt starts.
	IncResumeTotal()

	// IncResumeSuccess increments the counter when a resume attempt ends
	// with the cluster active.
	IncResumeSuccess()

	// IncResumeFailure increments the counter when a resume attempt fails
	// or times out.
	IncResumeFailure()

	// ObserveResumeDuration records a resume attempt duration in seconds.
	ObserveResumeDuration(seconds float64)

	// ----------------------
	// Session
	// ----------------------

	// IncSessionRebuild increments the counter when the session manager
	// tears down and rebuilds the transport connection.
	IncSessionRebuild()

	// IncAuthTotal increments the authentication counter.
	IncAuthTotal(label LabelID)
}
