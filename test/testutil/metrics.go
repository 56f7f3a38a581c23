package testutil

import (
	"sync"

	"github.com/arloliu/tandem/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that records collected metrics for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Negotiation
	NegotiationTotal map[types.LabelID]int64
	NegotiationRetry map[types.LabelID]int64
	WrongEnvironment map[types.LabelID]int64
	HintCaptured     map[types.LabelID]int64

	// Label transitions
	LabelTransitions map[string]int64 // key: "from->to"
	PendingLabel     bool

	// Query lifecycle
	QueryRegistered map[types.LabelID]int64
	ActiveQueries   int
	QueryReaped     map[types.LabelID]int64

	// Cluster resume
	ResumeTotal     int64
	ResumeSuccess   int64
	ResumeFailure   int64
	ResumeDurations []float64

	// Session
	SessionRebuilds int64
	AuthTotal       map[types.LabelID]int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		NegotiationTotal: make(map[types.LabelID]int64),
		NegotiationRetry: make(map[types.LabelID]int64),
		WrongEnvironment: make(map[types.LabelID]int64),
		HintCaptured:     make(map[types.LabelID]int64),
		LabelTransitions: make(map[string]int64),
		QueryRegistered:  make(map[types.LabelID]int64),
		QueryReaped:      make(map[types.LabelID]int64),
		AuthTotal:        make(map[types.LabelID]int64),
	}
}

func (m *TestMetricsCollector) IncNegotiationTotal(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NegotiationTotal[label]++
}

func (m *TestMetricsCollector) IncNegotiationRetry(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NegotiationRetry[label]++
}

func (m *TestMetricsCollector) IncWrongEnvironment(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WrongEnvironment[label]++
}

func (m *TestMetricsCollector) IncHintCaptured(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HintCaptured[label]++
}

func (m *TestMetricsCollector) IncLabelTransition(from, to types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LabelTransitions[string(from)+"->"+string(to)]++
}

func (m *TestMetricsCollector) SetPendingLabel(pending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PendingLabel = pending
}

func (m *TestMetricsCollector) IncQueryRegistered(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryRegistered[label]++
}

func (m *TestMetricsCollector) SetActiveQueries(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveQueries = count
}

func (m *TestMetricsCollector) IncQueryReaped(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryReaped[label]++
}

func (m *TestMetricsCollector) IncResumeTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResumeTotal++
}

func (m *TestMetricsCollector) IncResumeSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResumeSuccess++
}

func (m *TestMetricsCollector) IncResumeFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResumeFailure++
}

func (m *TestMetricsCollector) ObserveResumeDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResumeDurations = append(m.ResumeDurations, seconds)
}

func (m *TestMetricsCollector) IncSessionRebuild() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionRebuilds++
}

func (m *TestMetricsCollector) IncAuthTotal(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuthTotal[label]++
}

// ----------------------
// Test Helpers
// ----------------------

// GetNegotiationTotal returns the negotiated call count for a label.
func (m *TestMetricsCollector) GetNegotiationTotal(label types.LabelID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.NegotiationTotal[label]
}

// GetWrongEnvironment returns the wrong-environment failure count for a label.
func (m *TestMetricsCollector) GetWrongEnvironment(label types.LabelID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.WrongEnvironment[label]
}

// GetTransitionCount returns the transition count from one label to another.
func (m *TestMetricsCollector) GetTransitionCount(from, to types.LabelID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LabelTransitions[string(from)+"->"+string(to)]
}

// GetActiveQueries returns the last recorded active query gauge value.
func (m *TestMetricsCollector) GetActiveQueries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ActiveQueries
}

// GetSessionRebuilds returns the session rebuild count.
func (m *TestMetricsCollector) GetSessionRebuilds() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SessionRebuilds
}
