package tandem

import (
	"context"
	"errors"

	"github.com/arloliu/tandem/types"
)

// SessionCall is one control call dispatched with a deployment label.
//
// The negotiator invokes it with the label to send, and inspects the
// returned response for an advisory label hint on success.
type SessionCall func(ctx context.Context, label types.LabelID) (Hinted, error)

// Negotiator wraps control calls with deployment-label injection, bounded
// wrong-environment retry, and advisory hint capture.
//
// Steady-state cost is one call. A missed cutover notification self-heals
// within at most two calls: the wrong-environment failure on the stale
// label is absorbed by one retry on the alternate label, which also
// corrects the shared store.
//
// All methods are safe for concurrent use.
type Negotiator struct {
	store        LabelStore
	defaultLabel types.LabelID
	labelNames   types.LabelNames
	logger       types.Logger
	metrics      types.MetricsCollector
}

// NewNegotiator creates a negotiator over the given label store.
//
// Parameters:
//   - store: The shared label store
//   - defaultLabel: The first label tried on cold start
//   - logger: Structured logger
//   - collector: Metrics collector
//
// Returns:
//   - *Negotiator: A new negotiator
func NewNegotiator(store LabelStore, defaultLabel types.LabelID, logger types.Logger, collector types.MetricsCollector) *Negotiator {
	if !defaultLabel.Valid() {
		defaultLabel = types.LabelA
	}

	return &Negotiator{
		store:        store,
		defaultLabel: defaultLabel,
		labelNames:   types.DefaultLabelNames(),
		logger:       logger,
		metrics:      collector,
	}
}

// SessionCall performs a session-scoped control call (authenticate, status
// probe, resume) under label negotiation.
//
// With an established active label and no pending transition, the call is
// dispatched once with the active label; a wrong-environment failure earns
// exactly one retry on the alternate label, and a retry success overwrites
// the stored active label. If both labels fail with wrong-environment, the
// returned ExhaustedError leads with the original failure for diagnostics.
//
// With no established label, or while a transition is pending, candidate
// labels are tried in the order [pending-or-default, other]; the first
// success establishes the active label. If every candidate fails with
// wrong-environment, the last attempt's error is returned.
//
// Any failure that is not a wrong-environment error is returned
// immediately, without retry.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - op: Short operation name for logging
//   - call: The control call to dispatch
//
// Returns:
//   - error: nil on success, or the error per the rules above
func (n *Negotiator) SessionCall(ctx context.Context, op string, call SessionCall) error {
	active, haveActive := n.store.Active()
	_, havePending := n.store.Pending()

	if haveActive && !havePending {
		return n.establishedCall(ctx, op, call, active)
	}

	return n.coldStartCall(ctx, op, call)
}

// establishedCall dispatches with the known active label, retrying at most
// once on the alternate label after a wrong-environment failure.
func (n *Negotiator) establishedCall(ctx context.Context, op string, call SessionCall, active types.LabelID) error {
	n.metrics.IncNegotiationTotal(active)

	resp, err := call(ctx, active)
	if err == nil {
		n.captureHint(resp, active)
		return nil
	}
	if !errors.Is(err, types.ErrWrongEnvironment) {
		return err
	}

	n.metrics.IncWrongEnvironment(active)

	other := active.Other()
	n.metrics.IncNegotiationRetry(other)
	n.logger.Warn("wrong environment on established label, retrying alternate",
		"op", op,
		"label", n.labelNames.Name(active),
		"retry_label", n.labelNames.Name(other),
	)

	resp, retryErr := call(ctx, other)
	if retryErr == nil {
		n.store.SetActive(other)
		n.captureHint(resp, other)
		n.logger.Info("active label corrected after missed cutover",
			"op", op,
			"label", n.labelNames.Name(other),
		)

		return nil
	}

	// Preserve the original failure for diagnostics.
	return &types.ExhaustedError{First: err, Last: retryErr}
}

// coldStartCall tries candidate labels in order until one succeeds.
func (n *Negotiator) coldStartCall(ctx context.Context, op string, call SessionCall) error {
	first := n.defaultLabel
	if pending, ok := n.store.Pending(); ok {
		first = pending
	}

	var lastErr error
	for _, label := range [2]types.LabelID{first, first.Other()} {
		n.metrics.IncNegotiationTotal(label)

		resp, err := call(ctx, label)
		if err == nil {
			n.store.SetActive(label)
			n.captureHint(resp, label)

			return nil
		}
		if !errors.Is(err, types.ErrWrongEnvironment) {
			return err
		}

		n.metrics.IncWrongEnvironment(label)
		n.logger.Warn("wrong environment during label discovery",
			"op", op,
			"label", n.labelNames.Name(label),
		)
		lastErr = err
	}

	return lastErr
}

// QueryCall performs a query-scoped control call using the query's
// immutable assigned label, exactly once.
//
// A wrong-environment failure here is abnormal: the assignment should still
// be valid for the query's lifetime, and reassigning would violate
// query-label isolation. The failure is escalated as a hard failure and the
// cached active label is invalidated so the next session-scoped call
// reconfirms it. All other failures propagate unmodified.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - rec: The query record whose assigned label the call must carry
//   - op: Short operation name for logging
//   - call: The control call to dispatch
//
// Returns:
//   - error: nil on success, the transport error otherwise
func (n *Negotiator) QueryCall(ctx context.Context, rec QueryRecord, op string, call SessionCall) error {
	resp, err := call(ctx, rec.AssignedLabel)
	if err == nil {
		n.captureHint(resp, rec.AssignedLabel)
		return nil
	}

	if errors.Is(err, types.ErrWrongEnvironment) {
		n.metrics.IncWrongEnvironment(rec.AssignedLabel)
		n.store.InvalidateActive()
		n.logger.Error("query-scoped call rejected by assigned environment",
			"op", op,
			"query_id", rec.QueryID,
			"label", n.labelNames.Name(rec.AssignedLabel),
		)

		return &types.LabelError{Label: rec.AssignedLabel, Operation: op, Cause: err}
	}

	return err
}

// captureHint records a server-supplied advisory label as the pending
// transition when it differs from the label just used.
func (n *Negotiator) captureHint(resp Hinted, used types.LabelID) {
	if resp == nil {
		return
	}

	hint := resp.AdvisoryHint()
	if hint == types.NoLabel || hint == used {
		return
	}

	n.store.SetPending(hint)
	n.metrics.IncHintCaptured(hint)
	n.metrics.SetPendingLabel(true)
	n.logger.Info("advisory label hint captured",
		"hint", n.labelNames.Name(hint),
		"used", n.labelNames.Name(used),
	)
}

// SetLabelNames sets custom display names for labels in log messages.
//
// Parameters:
//   - names: The label names to use in log messages
func (n *Negotiator) SetLabelNames(names types.LabelNames) {
	n.labelNames = names
}
