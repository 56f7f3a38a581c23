package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/tandem"
	"github.com/arloliu/tandem/types"
)

// TransportCall records one dispatched control call for assertions.
type TransportCall struct {
	// Op is the operation name ("authenticate", "status", "prepare", ...).
	Op string

	// Label is the deployment label the call carried.
	Label types.LabelID

	// TargetNode is the fleet member the call was pinned to, if any.
	TargetNode string

	// CursorID is the cursor the call belonged to, if any.
	CursorID string
}

// MockTransport is a scriptable in-memory implementation of tandem.Transport.
//
// By default it simulates a healthy engine serving one deployment label:
// calls carrying the serving label succeed, calls carrying the other label
// fail with types.ErrWrongEnvironment. Hooks override individual operations
// for tests that need custom failure sequences.
type MockTransport struct {
	mu sync.Mutex

	servingLabel types.LabelID
	hint         types.LabelID
	status       types.ClusterStatus
	targetNode   string
	sessionSeq   int
	reconnects   int
	closed       bool

	calls []TransportCall

	// Hooks for custom behavior. A nil hook uses the default simulation.
	OnAuthenticate func(opts tandem.CallOptions, creds tandem.Credentials) (*tandem.AuthResponse, error)
	OnStatus       func(opts tandem.CallOptions) (*tandem.StatusResponse, error)
	OnResume       func(opts tandem.CallOptions) (*tandem.ResumeResponse, error)
	OnPrepare      func(opts tandem.CallOptions, sessionID, cursorID, stmt string) (*tandem.PrepareResponse, error)
	OnExecute      func(opts tandem.CallOptions, sessionID, cursorID string) (*tandem.ExecuteResponse, error)
	OnFetchBatch   func(opts tandem.CallOptions, sessionID, cursorID string) (*tandem.FetchBatch, error)
	OnClear        func(opts tandem.CallOptions, sessionID, cursorID string) (*tandem.CallResult, error)
	OnCancel       func(opts tandem.CallOptions, sessionID, cursorID string) (*tandem.CallResult, error)
}

// Compile-time assertion that MockTransport implements tandem.Transport.
var _ tandem.Transport = (*MockTransport)(nil)

// NewMockTransport creates a mock transport serving the given label with an
// active cluster and no advisory hint.
//
// Parameters:
//   - serving: The deployment label the simulated engine serves
//
// Returns:
//   - *MockTransport: The mock
func NewMockTransport(serving types.LabelID) *MockTransport {
	return &MockTransport{
		servingLabel: serving,
		status:       types.ClusterActive,
	}
}

// SetServingLabel switches which label the simulated engine serves.
func (m *MockTransport) SetServingLabel(label types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.servingLabel = label
}

// ServingLabel returns the label the simulated engine currently serves.
func (m *MockTransport) ServingLabel() types.LabelID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.servingLabel
}

// SetHint sets the advisory label hint attached to every successful response.
func (m *MockTransport) SetHint(hint types.LabelID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hint = hint
}

// SetStatus sets the cluster status reported by status probes.
func (m *MockTransport) SetStatus(status types.ClusterStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = status
}

// SetTargetNode sets the fleet member returned by prepare calls.
func (m *MockTransport) SetTargetNode(node string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetNode = node
}

// Calls returns a copy of every recorded call.
func (m *MockTransport) Calls() []TransportCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TransportCall, len(m.calls))
	copy(out, m.calls)

	return out
}

// CallsFor returns the recorded calls for one operation.
func (m *MockTransport) CallsFor(op string) []TransportCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []TransportCall
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}

	return out
}

// ReconnectCount returns how many times Reconnect was called.
func (m *MockTransport) ReconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reconnects
}

// IsClosed returns whether Close was called.
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// record appends a call and checks the label against the serving label.
// Returns the wrong-environment error to surface, if any.
func (m *MockTransport) record(op string, opts tandem.CallOptions, cursorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, TransportCall{
		Op:         op,
		Label:      opts.Label,
		TargetNode: opts.TargetNode,
		CursorID:   cursorID,
	})

	if opts.Label != m.servingLabel {
		return fmt.Errorf("%w: label %q not served", types.ErrWrongEnvironment, opts.Label)
	}

	return nil
}

// advisory builds the Advisory embedded in successful responses.
func (m *MockTransport) advisory() tandem.Advisory {
	m.mu.Lock()
	defer m.mu.Unlock()

	return tandem.Advisory{Hint: m.hint}
}

// Authenticate simulates an authentication call.
func (m *MockTransport) Authenticate(_ context.Context, opts tandem.CallOptions, creds tandem.Credentials) (*tandem.AuthResponse, error) {
	if m.OnAuthenticate != nil {
		_ = m.record("authenticate", opts, "")
		return m.OnAuthenticate(opts, creds)
	}

	if err := m.record("authenticate", opts, ""); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessionSeq++
	sessionID := fmt.Sprintf("session-%d", m.sessionSeq)
	m.mu.Unlock()

	return &tandem.AuthResponse{Advisory: m.advisory(), SessionID: sessionID}, nil
}

// Status simulates a cluster status probe.
func (m *MockTransport) Status(_ context.Context, opts tandem.CallOptions) (*tandem.StatusResponse, error) {
	if m.OnStatus != nil {
		_ = m.record("status", opts, "")
		return m.OnStatus(opts)
	}

	if err := m.record("status", opts, ""); err != nil {
		return nil, err
	}

	m.mu.Lock()
	status := m.status
	m.mu.Unlock()

	return &tandem.StatusResponse{Advisory: m.advisory(), Status: status}, nil
}

// Resume simulates a cluster resume call.
func (m *MockTransport) Resume(_ context.Context, opts tandem.CallOptions) (*tandem.ResumeResponse, error) {
	if m.OnResume != nil {
		_ = m.record("resume", opts, "")
		return m.OnResume(opts)
	}

	if err := m.record("resume", opts, ""); err != nil {
		return nil, err
	}

	return &tandem.ResumeResponse{Advisory: m.advisory(), Accepted: true}, nil
}

// Prepare simulates a prepare call.
func (m *MockTransport) Prepare(_ context.Context, opts tandem.CallOptions, sessionID, cursorID, stmt string) (*tandem.PrepareResponse, error) {
	if m.OnPrepare != nil {
		_ = m.record("prepare", opts, cursorID)
		return m.OnPrepare(opts, sessionID, cursorID, stmt)
	}

	if err := m.record("prepare", opts, cursorID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	node := m.targetNode
	m.mu.Unlock()

	return &tandem.PrepareResponse{Advisory: m.advisory(), TargetNode: node}, nil
}

// Execute simulates an execute call.
func (m *MockTransport) Execute(_ context.Context, opts tandem.CallOptions, sessionID, cursorID string) (*tandem.ExecuteResponse, error) {
	if m.OnExecute != nil {
		_ = m.record("execute", opts, cursorID)
		return m.OnExecute(opts, sessionID, cursorID)
	}

	if err := m.record("execute", opts, cursorID); err != nil {
		return nil, err
	}

	return &tandem.ExecuteResponse{Advisory: m.advisory(), More: true}, nil
}

// FetchBatch simulates a fetch call returning a single final batch.
func (m *MockTransport) FetchBatch(_ context.Context, opts tandem.CallOptions, sessionID, cursorID string) (*tandem.FetchBatch, error) {
	if m.OnFetchBatch != nil {
		_ = m.record("fetch", opts, cursorID)
		return m.OnFetchBatch(opts, sessionID, cursorID)
	}

	if err := m.record("fetch", opts, cursorID); err != nil {
		return nil, err
	}

	return &tandem.FetchBatch{Advisory: m.advisory(), Payload: []byte("batch"), Last: true}, nil
}

// Clear simulates a clear call.
func (m *MockTransport) Clear(_ context.Context, opts tandem.CallOptions, sessionID, cursorID string) (*tandem.CallResult, error) {
	if m.OnClear != nil {
		_ = m.record("clear", opts, cursorID)
		return m.OnClear(opts, sessionID, cursorID)
	}

	if err := m.record("clear", opts, cursorID); err != nil {
		return nil, err
	}

	return &tandem.CallResult{Advisory: m.advisory()}, nil
}

// Cancel simulates a cancel call.
func (m *MockTransport) Cancel(_ context.Context, opts tandem.CallOptions, sessionID, cursorID string) (*tandem.CallResult, error) {
	if m.OnCancel != nil {
		_ = m.record("cancel", opts, cursorID)
		return m.OnCancel(opts, sessionID, cursorID)
	}

	if err := m.record("cancel", opts, cursorID); err != nil {
		return nil, err
	}

	return &tandem.CallResult{Advisory: m.advisory()}, nil
}

// Reconnect counts connection rebuilds.
func (m *MockTransport) Reconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reconnects++

	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
