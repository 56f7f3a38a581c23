package tandem

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/tandem/types"
)

// stubTransport is a minimal in-package Transport fake. It serves one
// deployment label; calls carrying the other label fail with a
// wrong-environment error. Function fields override individual operations.
type stubTransport struct {
	mu      sync.Mutex
	serving types.LabelID
	hint    types.LabelID

	authCalls    int
	reconnects   int
	reconnectErr error

	statusFn func(opts CallOptions) (*StatusResponse, error)
	resumeFn func(opts CallOptions) (*ResumeResponse, error)
	authFn   func(opts CallOptions) (*AuthResponse, error)
}

var _ Transport = (*stubTransport)(nil)

func newStubTransport(serving types.LabelID) *stubTransport {
	return &stubTransport{serving: serving}
}

func (s *stubTransport) setServing(label types.LabelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving = label
}

func (s *stubTransport) check(label types.LabelID) (Advisory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if label != s.serving {
		return Advisory{}, fmt.Errorf("%w: label %q", types.ErrWrongEnvironment, label)
	}

	return Advisory{Hint: s.hint}, nil
}

func (s *stubTransport) Authenticate(_ context.Context, opts CallOptions, _ Credentials) (*AuthResponse, error) {
	s.mu.Lock()
	s.authCalls++
	n := s.authCalls
	s.mu.Unlock()

	if s.authFn != nil {
		return s.authFn(opts)
	}

	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Advisory: adv, SessionID: fmt.Sprintf("token-%d", n)}, nil
}

func (s *stubTransport) Status(_ context.Context, opts CallOptions) (*StatusResponse, error) {
	if s.statusFn != nil {
		return s.statusFn(opts)
	}

	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &StatusResponse{Advisory: adv, Status: types.ClusterActive}, nil
}

func (s *stubTransport) Resume(_ context.Context, opts CallOptions) (*ResumeResponse, error) {
	if s.resumeFn != nil {
		return s.resumeFn(opts)
	}

	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &ResumeResponse{Advisory: adv, Accepted: true}, nil
}

func (s *stubTransport) Prepare(_ context.Context, opts CallOptions, _, _, _ string) (*PrepareResponse, error) {
	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &PrepareResponse{Advisory: adv}, nil
}

func (s *stubTransport) Execute(_ context.Context, opts CallOptions, _, _ string) (*ExecuteResponse, error) {
	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &ExecuteResponse{Advisory: adv}, nil
}

func (s *stubTransport) FetchBatch(_ context.Context, opts CallOptions, _, _ string) (*FetchBatch, error) {
	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &FetchBatch{Advisory: adv, Last: true}, nil
}

func (s *stubTransport) Clear(_ context.Context, opts CallOptions, _, _ string) (*CallResult, error) {
	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &CallResult{Advisory: adv}, nil
}

func (s *stubTransport) Cancel(_ context.Context, opts CallOptions, _, _ string) (*CallResult, error) {
	adv, err := s.check(opts.Label)
	if err != nil {
		return nil, err
	}

	return &CallResult{Advisory: adv}, nil
}

func (s *stubTransport) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconnects++

	return s.reconnectErr
}

func (s *stubTransport) Close() error {
	return nil
}

func (s *stubTransport) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reconnects
}

func (s *stubTransport) authCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authCalls
}
