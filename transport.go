package tandem

import (
	"context"

	"github.com/arloliu/tandem/types"
)

// CallOptions carries the per-call routing headers every outgoing control
// call accepts.
type CallOptions struct {
	// Label is the deployment label header for the call.
	Label types.LabelID

	// TargetNode optionally pins the call to a specific fleet member.
	// Used by fetch calls so a cursor keeps talking to the node that owns it.
	TargetNode string

	// ClusterID optionally identifies the cluster for multi-cluster transports.
	ClusterID string
}

// Advisory is the optional server-supplied label hint carried by control
// call responses. It is embedded in every response type.
//
// A zero Hint means the response carried no hint. The hint signals an
// impending cutover: the negotiation protocol captures it as the pending
// label without disturbing the in-flight caller.
type Advisory struct {
	// Hint is the advisory deployment label, or NoLabel if absent.
	Hint types.LabelID
}

// AdvisoryHint returns the advisory label carried by the response, or
// NoLabel if the response carried none.
func (a Advisory) AdvisoryHint() types.LabelID {
	return a.Hint
}

// Hinted is implemented by every control call response that may carry an
// advisory label hint. The negotiation protocol inspects successful
// responses through this interface.
type Hinted interface {
	AdvisoryHint() types.LabelID
}

// Credentials holds the authentication material for a session.
type Credentials struct {
	// User is the account identity.
	User string

	// Secret is the account token or password.
	Secret string

	// Catalog optionally scopes the session to a catalog.
	Catalog string

	// Database optionally scopes the session to a database.
	Database string
}

// AuthResponse is the result of an authenticate call.
type AuthResponse struct {
	Advisory

	// SessionID is the authenticated session token.
	SessionID string
}

// StatusResponse is the result of a cluster status probe.
type StatusResponse struct {
	Advisory

	// Status is the serving status of the cluster.
	Status types.ClusterStatus
}

// ResumeResponse is the result of a cluster resume call.
type ResumeResponse struct {
	Advisory

	// Accepted reports whether the engine accepted the resume request.
	Accepted bool
}

// PrepareResponse is the result of a prepare call.
type PrepareResponse struct {
	Advisory

	// TargetNode is the fleet member that owns the prepared cursor.
	// Subsequent calls for the cursor should set CallOptions.TargetNode to it.
	TargetNode string
}

// ExecuteResponse is the result of an execute call.
type ExecuteResponse struct {
	Advisory

	// More reports whether result batches are available to fetch.
	More bool
}

// FetchBatch is one batch of raw result payload.
//
// Decoding the columnar payload into rows is the result decoder's job and
// out of scope for this library.
type FetchBatch struct {
	Advisory

	// Payload is the raw result batch bytes.
	Payload []byte

	// Last reports whether this is the final batch for the cursor.
	Last bool
}

// CallResult is the minimal response for calls with no payload (clear, cancel).
type CallResult struct {
	Advisory
}

// Transport is the RPC surface of the distributed SQL engine.
//
// Wire protocol and message encoding are the transport implementation's
// concern. Implementations classify failures by wrapping them so errors.Is
// matches types.ErrWrongEnvironment, types.ErrServiceUnavailable, or
// types.ErrAccessDenied; any other error is opaque to this library and is
// never retried.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type Transport interface {
	// Authenticate performs a fresh authentication and returns a session token.
	Authenticate(ctx context.Context, opts CallOptions, creds Credentials) (*AuthResponse, error)

	// Status probes the serving status of the cluster.
	Status(ctx context.Context, opts CallOptions) (*StatusResponse, error)

	// Resume asks the engine to wake a suspended cluster.
	Resume(ctx context.Context, opts CallOptions) (*ResumeResponse, error)

	// Prepare registers a statement under a client-chosen cursor id.
	Prepare(ctx context.Context, opts CallOptions, sessionID, cursorID, stmt string) (*PrepareResponse, error)

	// Execute runs a previously prepared cursor.
	Execute(ctx context.Context, opts CallOptions, sessionID, cursorID string) (*ExecuteResponse, error)

	// FetchBatch retrieves the next raw result batch for a cursor.
	FetchBatch(ctx context.Context, opts CallOptions, sessionID, cursorID string) (*FetchBatch, error)

	// Clear releases server-side resources held by a cursor.
	Clear(ctx context.Context, opts CallOptions, sessionID, cursorID string) (*CallResult, error)

	// Cancel aborts a running cursor.
	Cancel(ctx context.Context, opts CallOptions, sessionID, cursorID string) (*CallResult, error)

	// Reconnect tears down the underlying connection and rebuilds it.
	// Called by the session manager before re-authenticating.
	Reconnect(ctx context.Context) error

	// Close releases the transport's resources.
	Close() error
}
