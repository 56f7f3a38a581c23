package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/arloliu/tandem/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "tandem"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithLabelNames sets custom display names for deployment labels in metric
// labels.
//
// Default: "A" and "B"
//
// Parameters:
//   - names: The label names to use in metric labels
//
// Returns:
//   - Option: A configuration option
//
// Example:
//
//	collector := vm.New(
//	    vm.WithLabelNames(types.LabelNames{A: "blue", B: "green"}),
//	)
func WithLabelNames(names types.LabelNames) Option {
	return func(c *Collector) {
		c.labelNames = names
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time for optimal performance.
// Thread-safe for concurrent use.
type Collector struct {
	set        *metrics.Set
	prefix     string
	labelNames types.LabelNames

	// Negotiation metrics
	negotiationTotalA *metrics.Counter
	negotiationTotalB *metrics.Counter
	negotiationRetryA *metrics.Counter
	negotiationRetryB *metrics.Counter
	wrongEnvironmentA *metrics.Counter
	wrongEnvironmentB *metrics.Counter
	hintCapturedA     *metrics.Counter
	hintCapturedB     *metrics.Counter

	// Label transition metrics
	transitionAToB *metrics.Counter
	transitionBToA *metrics.Counter
	pendingLabel   atomic.Int64

	// Query lifecycle metrics
	queryRegisteredA *metrics.Counter
	queryRegisteredB *metrics.Counter
	queryReapedA     *metrics.Counter
	queryReapedB     *metrics.Counter
	activeQueries    atomic.Int64

	// Cluster resume metrics
	resumeTotal    *metrics.Counter
	resumeSuccess  *metrics.Counter
	resumeFailure  *metrics.Counter
	resumeDuration *metrics.Histogram

	// Session metrics
	sessionRebuilds *metrics.Counter
	authTotalA      *metrics.Counter
	authTotalB      *metrics.Counter
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// All metrics are pre-created at initialization for optimal performance.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix:     "tandem",
		labelNames: types.DefaultLabelNames(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix
	nA := c.labelNames.A
	nB := c.labelNames.B

	// Negotiation metrics
	c.negotiationTotalA = c.set.NewCounter(fmt.Sprintf(`%s_negotiation_total{label="%s"}`, p, nA))
	c.negotiationTotalB = c.set.NewCounter(fmt.Sprintf(`%s_negotiation_total{label="%s"}`, p, nB))
	c.negotiationRetryA = c.set.NewCounter(fmt.Sprintf(`%s_negotiation_retry_total{label="%s"}`, p, nA))
	c.negotiationRetryB = c.set.NewCounter(fmt.Sprintf(`%s_negotiation_retry_total{label="%s"}`, p, nB))
	c.wrongEnvironmentA = c.set.NewCounter(fmt.Sprintf(`%s_wrong_environment_total{label="%s"}`, p, nA))
	c.wrongEnvironmentB = c.set.NewCounter(fmt.Sprintf(`%s_wrong_environment_total{label="%s"}`, p, nB))
	c.hintCapturedA = c.set.NewCounter(fmt.Sprintf(`%s_hint_captured_total{label="%s"}`, p, nA))
	c.hintCapturedB = c.set.NewCounter(fmt.Sprintf(`%s_hint_captured_total{label="%s"}`, p, nB))

	// Label transition metrics
	c.transitionAToB = c.set.NewCounter(fmt.Sprintf(`%s_label_transition_total{from="%s",to="%s"}`, p, nA, nB))
	c.transitionBToA = c.set.NewCounter(fmt.Sprintf(`%s_label_transition_total{from="%s",to="%s"}`, p, nB, nA))
	c.set.NewGauge(fmt.Sprintf(`%s_pending_label`, p), func() float64 {
		return float64(c.pendingLabel.Load())
	})

	// Query lifecycle metrics
	c.queryRegisteredA = c.set.NewCounter(fmt.Sprintf(`%s_query_registered_total{label="%s"}`, p, nA))
	c.queryRegisteredB = c.set.NewCounter(fmt.Sprintf(`%s_query_registered_total{label="%s"}`, p, nB))
	c.queryReapedA = c.set.NewCounter(fmt.Sprintf(`%s_query_reaped_total{label="%s"}`, p, nA))
	c.queryReapedB = c.set.NewCounter(fmt.Sprintf(`%s_query_reaped_total{label="%s"}`, p, nB))
	c.set.NewGauge(fmt.Sprintf(`%s_active_queries`, p), func() float64 {
		return float64(c.activeQueries.Load())
	})

	// Cluster resume metrics
	c.resumeTotal = c.set.NewCounter(fmt.Sprintf(`%s_resume_total`, p))
	c.resumeSuccess = c.set.NewCounter(fmt.Sprintf(`%s_resume_success_total`, p))
	c.resumeFailure = c.set.NewCounter(fmt.Sprintf(`%s_resume_failure_total`, p))
	c.resumeDuration = c.set.NewHistogram(fmt.Sprintf(`%s_resume_duration_seconds`, p))

	// Session metrics
	c.sessionRebuilds = c.set.NewCounter(fmt.Sprintf(`%s_session_rebuild_total`, p))
	c.authTotalA = c.set.NewCounter(fmt.Sprintf(`%s_auth_total{label="%s"}`, p, nA))
	c.authTotalB = c.set.NewCounter(fmt.Sprintf(`%s_auth_total{label="%s"}`, p, nB))
}

func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Negotiation
// ----------------------

// IncNegotiationTotal increments the session-scoped negotiated call counter.
func (c *Collector) IncNegotiationTotal(label types.LabelID) {
	if label == types.LabelA {
		c.negotiationTotalA.Inc()
	} else {
		c.negotiationTotalB.Inc()
	}
}

// IncNegotiationRetry increments the alternate-label retry counter.
func (c *Collector) IncNegotiationRetry(label types.LabelID) {
	if label == types.LabelA {
		c.negotiationRetryA.Inc()
	} else {
		c.negotiationRetryB.Inc()
	}
}

// IncWrongEnvironment increments the wrong-environment failure counter.
func (c *Collector) IncWrongEnvironment(label types.LabelID) {
	if label == types.LabelA {
		c.wrongEnvironmentA.Inc()
	} else {
		c.wrongEnvironmentB.Inc()
	}
}

// IncHintCaptured increments the advisory hint capture counter.
func (c *Collector) IncHintCaptured(label types.LabelID) {
	if label == types.LabelA {
		c.hintCapturedA.Inc()
	} else {
		c.hintCapturedB.Inc()
	}
}

// ----------------------
// Label Transitions
// ----------------------

// IncLabelTransition increments the counter when the active label flips.
func (c *Collector) IncLabelTransition(from, to types.LabelID) {
	if from == types.LabelA && to == types.LabelB {
		c.transitionAToB.Inc()
	} else if from == types.LabelB && to == types.LabelA {
		c.transitionBToA.Inc()
	}
}

// SetPendingLabel sets the pending-transition gauge.
func (c *Collector) SetPendingLabel(pending bool) {
	val := int64(0)
	if pending {
		val = 1
	}
	c.pendingLabel.Store(val)
}

// ----------------------
// Query Lifecycle
// ----------------------

// IncQueryRegistered increments the query registration counter.
func (c *Collector) IncQueryRegistered(label types.LabelID) {
	if label == types.LabelA {
		c.queryRegisteredA.Inc()
	} else {
		c.queryRegisteredB.Inc()
	}
}

// SetActiveQueries sets the gauge of non-terminal tracked queries.
func (c *Collector) SetActiveQueries(count int) {
	c.activeQueries.Store(int64(count))
}

// IncQueryReaped increments the stale query reap counter.
func (c *Collector) IncQueryReaped(label types.LabelID) {
	if label == types.LabelA {
		c.queryReapedA.Inc()
	} else {
		c.queryReapedB.Inc()
	}
}

// ----------------------
// Cluster Resume
// ----------------------

// IncResumeTotal increments the counter when a resume attempt starts.
func (c *Collector) IncResumeTotal() {
	c.resumeTotal.Inc()
}

// IncResumeSuccess increments the counter when a resume attempt succeeds.
func (c *Collector) IncResumeSuccess() {
	c.resumeSuccess.Inc()
}

// IncResumeFailure increments the counter when a resume attempt fails.
func (c *Collector) IncResumeFailure() {
	c.resumeFailure.Inc()
}

// ObserveResumeDuration records a resume attempt duration in seconds.
func (c *Collector) ObserveResumeDuration(seconds float64) {
	c.resumeDuration.Update(seconds)
}

// ----------------------
// Session
// ----------------------

// IncSessionRebuild increments the session rebuild counter.
func (c *Collector) IncSessionRebuild() {
	c.sessionRebuilds.Inc()
}

// IncAuthTotal increments the authentication counter.
func (c *Collector) IncAuthTotal(label types.LabelID) {
	if label == types.LabelA {
		c.authTotalA.Inc()
	} else {
		c.authTotalB.Inc()
	}
}
