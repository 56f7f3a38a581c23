// Package types provides shared types and errors for the Tandem library.
//
// This is a "leaf" package with no imports from other tandem packages,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"errors"
	"regexp"
	"time"
)

// LabelID identifies one of the two parallel deployment environments
// ("labels") the serving fleet can be cut over between without downtime.
type LabelID string

// String returns the string representation of the LabelID.
func (l LabelID) String() string {
	return string(l)
}

const (
	// LabelA represents the first deployment environment.
	LabelA LabelID = "A"
	// LabelB represents the second deployment environment.
	LabelB LabelID = "B"

	// NoLabel is the zero value, meaning no label is known or carried.
	NoLabel LabelID = ""
)

// Valid reports whether the label is one of the two known environments.
func (l LabelID) Valid() bool {
	return l == LabelA || l == LabelB
}

// Other returns the opposite deployment label.
//
// For an invalid label, Other returns LabelA so callers always get a
// usable candidate.
func (l LabelID) Other() LabelID {
	if l == LabelA {
		return LabelB
	}
	return LabelA
}

// labelNameRegex validates label display names for use in metrics labels.
// Must be Prometheus-compatible: [a-zA-Z_][a-zA-Z0-9_]*
var labelNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LabelNames holds custom display names for the two deployment environments.
//
// These names are used in metrics labels and log messages instead of the
// default "A" and "B". Names must be:
//   - 1-32 characters long
//   - Prometheus-compatible: start with letter or underscore, contain only
//     alphanumeric characters and underscores
//   - Different from each other
//
// Example names: "blue", "green", "fleet_east", "fleet_west"
type LabelNames struct {
	// A is the display name for LabelA. Defaults to "A".
	A string

	// B is the display name for LabelB. Defaults to "B".
	B string
}

// DefaultLabelNames returns the default label names ("A" and "B").
func DefaultLabelNames() LabelNames {
	return LabelNames{A: "A", B: "B"}
}

// Validate checks that the label names are valid for use in metrics.
//
// Returns:
//   - error: Validation error, or nil if valid
func (n LabelNames) Validate() error {
	if err := validateLabelName(n.A, "A"); err != nil {
		return err
	}
	if err := validateLabelName(n.B, "B"); err != nil {
		return err
	}
	if n.A == n.B {
		return errors.New("tandem: label names must be different")
	}

	return nil
}

// Name returns the display name for the given deployment label.
func (n LabelNames) Name(label LabelID) string {
	if label == LabelA {
		return n.A
	}
	return n.B
}

// validateLabelName validates a single label display name.
func validateLabelName(name, which string) error {
	if len(name) == 0 {
		return errors.New("tandem: label " + which + " name cannot be empty")
	}
	if len(name) > 32 {
		return errors.New("tandem: label " + which + " name cannot exceed 32 characters")
	}
	if !labelNameRegex.MatchString(name) {
		return errors.New("tandem: label " + which + " name must be alphanumeric with underscores, starting with letter or underscore")
	}

	return nil
}

// LabelNamer is an optional interface for components that can use custom
// label display names.
//
// Components implementing this interface will have their label names set by
// the client after construction, propagating names configured via
// WithLabelNames to metrics collectors, loggers, and controllers.
type LabelNamer interface {
	// SetLabelNames sets the display names for the deployment labels.
	//
	// Parameters:
	//   - names: The label names to use for metrics and logging
	SetLabelNames(names LabelNames)
}

// LabelSnapshot is a point-in-time view of the deployment label state.
//
// Invariant: Pending is never equal to Active when both are set.
type LabelSnapshot struct {
	// Active is the label currently authoritative for new work,
	// or NoLabel if not yet known.
	Active LabelID

	// Pending is the label an impending cutover will move to,
	// or NoLabel if no transition is pending.
	Pending LabelID

	// LastTransition is when the active label last flipped.
	LastTransition time.Time

	// Invalidated reports that a transition applied and the cached session
	// must be rebuilt before the next call.
	Invalidated bool
}

// QueryState represents the lifecycle state of a tracked query.
type QueryState int

// Query lifecycle states. A query moves Preparing -> Executing -> Fetching
// -> Completed on the happy path; Failed and Cancelled can be entered from
// any non-terminal state.
const (
	QueryPreparing QueryState = iota
	QueryExecuting
	QueryFetching
	QueryCompleted
	QueryFailed
	QueryCancelled
)

// String returns the human-readable name of the state.
func (s QueryState) String() string {
	switch s {
	case QueryPreparing:
		return "preparing"
	case QueryExecuting:
		return "executing"
	case QueryFetching:
		return "fetching"
	case QueryCompleted:
		return "completed"
	case QueryFailed:
		return "failed"
	case QueryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a terminal lifecycle state.
//
// A query in a terminal state no longer counts toward the active-query
// count that gates label transitions.
func (s QueryState) Terminal() bool {
	return s == QueryCompleted || s == QueryFailed || s == QueryCancelled
}

// ClusterStatus is the serving status reported by the engine's status call.
type ClusterStatus string

// Cluster statuses relevant to the resume state machine. Any status other
// than these is treated as not resumable.
const (
	ClusterActive    ClusterStatus = "active"
	ClusterSuspended ClusterStatus = "suspended"
	ClusterResuming  ClusterStatus = "resuming"
	ClusterFailed    ClusterStatus = "failed"
)

// Sentinel errors for transport failure classification.
//
// Transport implementations wrap their errors so that errors.Is matches
// these sentinels. Any failure not matching one of them is opaque and is
// never retried by this library.
var (
	// ErrWrongEnvironment indicates a request reached a fleet member that
	// is not currently authoritative for the label it was sent with.
	ErrWrongEnvironment = errors.New("tandem: wrong deployment environment")

	// ErrServiceUnavailable indicates the target cluster is suspended or
	// otherwise not serving. Triggers auto-resume when enabled.
	ErrServiceUnavailable = errors.New("tandem: service unavailable")

	// ErrAccessDenied indicates the session token was rejected.
	// Triggers one re-authentication.
	ErrAccessDenied = errors.New("tandem: access denied")
)

// Sentinel errors for library-level failure scenarios.
var (
	// ErrSessionClosed indicates an operation was attempted on a closed client.
	ErrSessionClosed = errors.New("tandem: session is closed")

	// ErrUnknownQuery indicates an operation referenced a query id that is
	// not registered or has already reached a terminal state.
	ErrUnknownQuery = errors.New("tandem: unknown query id")

	// ErrLabelsExhausted indicates both deployment labels were tried and failed.
	ErrLabelsExhausted = errors.New("tandem: both deployment labels failed")

	// ErrResumeLockBusy indicates another caller holds the cluster resume
	// lock and it could not be acquired within the configured wait budget.
	ErrResumeLockBusy = errors.New("tandem: cluster resume lock is busy")

	// ErrNotResumable indicates the cluster reported a status that the
	// resume state machine cannot recover from.
	ErrNotResumable = errors.New("tandem: cluster is not resumable")

	// ErrResumeTimeout indicates resume polling exceeded its deadline
	// before the cluster became active.
	ErrResumeTimeout = errors.New("tandem: cluster resume timed out")

	// ErrNilTransport indicates that a nil transport was provided.
	ErrNilTransport = errors.New("tandem: transport cannot be nil")
)

// LabelError wraps an error from a call made with a specific deployment label.
type LabelError struct {
	// Label is the deployment label the failing call was sent with.
	Label LabelID

	// Operation describes what operation failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LabelError) Error() string {
	return "tandem: label " + string(e.Label) + " " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *LabelError) Unwrap() error {
	return e.Cause
}

// ExhaustedError represents a session-scoped call that failed on both
// deployment labels.
//
// First is the error from the originally attempted label. The message leads
// with it, preserving the original failure for diagnostics. Last is the
// error from the alternate-label retry.
type ExhaustedError struct {
	// First is the error from the first label attempted.
	First error

	// Last is the error from the last label attempted.
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return "tandem: both labels failed - first: " + e.First.Error() + ", retry: " + e.Last.Error()
}

// Unwrap returns the wrapped errors for errors.Is/As compatibility.
// This allows checking for specific error classes in either attempt's error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrLabelsExhausted, e.First, e.Last}
}
