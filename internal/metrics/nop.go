// Package metrics provides internal metrics utilities for Tandem.
package metrics

import "github.com/arloliu/tandem/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Negotiation
// ----------------------

// IncNegotiationTotal discards the metric.
func (m *NopMetrics) IncNegotiationTotal(_ types.LabelID) {}

// IncNegotiationRetry discards the metric.
func (m *NopMetrics) IncNegotiationRetry(_ types.LabelID) {}

// IncWrongEnvironment discards the metric.
func (m *NopMetrics) IncWrongEnvironment(_ types.LabelID) {}

// IncHintCaptured discards the metric.
func (m *NopMetrics) IncHintCaptured(_ types.LabelID) {}

// ----------------------
// Label Transitions
// ----------------------

// IncLabelTransition discards the metric.
func (m *NopMetrics) IncLabelTransition(_, _ types.LabelID) {}

// SetPendingLabel discards the metric.
func (m *NopMetrics) SetPendingLabel(_ bool) {}

// ----------------------
// Query Lifecycle
// ----------------------

// IncQueryRegistered discards the metric.
func (m *NopMetrics) IncQueryRegistered(_ types.LabelID) {}

// SetActiveQueries discards the metric.
func (m *NopMetrics) SetActiveQueries(_ int) {}

// IncQueryReaped discards the metric.
func (m *NopMetrics) IncQueryReaped(_ types.LabelID) {}

// ----------------------
// Cluster Resume
// ----------------------

// IncResumeTotal discards the metric.
func (m *NopMetrics) IncResumeTotal() {}

// IncResumeSuccess discards the metric.
func (m *NopMetrics) IncResumeSuccess() {}

// IncResumeFailure discards the metric.
func (m *NopMetrics) IncResumeFailure() {}

// ObserveResumeDuration discards the metric.
func (m *NopMetrics) ObserveResumeDuration(_ float64) {}

// ----------------------
// Session
// ----------------------

// IncSessionRebuild discards the metric.
func (m *NopMetrics) IncSessionRebuild() {}

// IncAuthTotal discards the metric.
func (m *NopMetrics) IncAuthTotal(_ types.LabelID) {}
