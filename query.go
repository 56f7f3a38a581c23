package tandem

import (
	"context"

	"github.com/arloliu/tandem/types"
)

// Query is the handle for one prepared query's lifecycle.
//
// Every call made through the handle carries the query's immutable assigned
// label, pinned to the fleet member that owns the cursor. The handle is
// safe for use from a single goroutine at a time; concurrent queries use
// separate handles.
type Query struct {
	client   *Client
	queryID  string
	cursorID string
}

// ID returns the tracker-allocated query id.
func (q *Query) ID() string {
	return q.queryID
}

// CursorID returns the cursor id the query runs under.
func (q *Query) CursorID() string {
	return q.cursorID
}

// Label returns the query's assigned deployment label.
//
// Returns NoLabel once the query has reached a terminal state and its
// record was removed from the active set.
func (q *Query) Label() types.LabelID {
	rec, ok := q.client.tracker.Lookup(q.queryID)
	if !ok {
		return types.NoLabel
	}

	return rec.AssignedLabel
}

// Execute runs the prepared cursor.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: nil on success; the transport error otherwise, with the query
//     moved to Failed
func (q *Query) Execute(ctx context.Context) error {
	rec, err := q.record()
	if err != nil {
		return err
	}

	if err := q.client.tracker.Transition(q.queryID, types.QueryExecuting); err != nil {
		return err
	}

	err = q.call(ctx, rec, "execute", func(ctx context.Context, opts CallOptions, token string) (Hinted, error) {
		return q.client.transport.Execute(ctx, opts, token, q.cursorID)
	})
	if err != nil {
		_ = q.client.tracker.Transition(q.queryID, types.QueryFailed)
		return err
	}

	q.client.tracker.RecordActivity(q.queryID, "execute")

	return nil
}

// FetchBatch retrieves the next raw result batch.
//
// The caller loops until the returned batch reports Last, then calls Clear
// to release the cursor and complete the query.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - *FetchBatch: The next raw result batch
//   - error: the transport error, with the query moved to Failed
func (q *Query) FetchBatch(ctx context.Context) (*FetchBatch, error) {
	rec, err := q.record()
	if err != nil {
		return nil, err
	}

	if err := q.client.tracker.Transition(q.queryID, types.QueryFetching); err != nil {
		return nil, err
	}

	var batch *FetchBatch
	err = q.call(ctx, rec, "fetch", func(ctx context.Context, opts CallOptions, token string) (Hinted, error) {
		b, err := q.client.transport.FetchBatch(ctx, opts, token, q.cursorID)
		if err != nil {
			return nil, err
		}
		batch = b

		return b, nil
	})
	if err != nil {
		_ = q.client.tracker.Transition(q.queryID, types.QueryFailed)
		return nil, err
	}

	q.client.tracker.RecordActivity(q.queryID, "fetch")

	return batch, nil
}

// Clear releases the server-side cursor and completes the query.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: nil on success; the transport error otherwise, with the query
//     moved to Failed either way so it cannot block a label transition
func (q *Query) Clear(ctx context.Context) error {
	rec, err := q.record()
	if err != nil {
		return err
	}

	err = q.call(ctx, rec, "clear", func(ctx context.Context, opts CallOptions, token string) (Hinted, error) {
		return q.client.transport.Clear(ctx, opts, token, q.cursorID)
	})
	if err != nil {
		_ = q.client.tracker.Transition(q.queryID, types.QueryFailed)
		return err
	}

	return q.client.tracker.Transition(q.queryID, types.QueryCompleted)
}

// Cancel aborts the running cursor.
//
// The query is moved to Cancelled locally even when the cancel call fails,
// so a dead cursor cannot block a pending label transition.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: the transport error from the cancel call, if any
func (q *Query) Cancel(ctx context.Context) error {
	rec, err := q.record()
	if err != nil {
		return err
	}

	callErr := q.call(ctx, rec, "cancel", func(ctx context.Context, opts CallOptions, token string) (Hinted, error) {
		return q.client.transport.Cancel(ctx, opts, token, q.cursorID)
	})

	_ = q.client.tracker.Transition(q.queryID, types.QueryCancelled)

	return callErr
}

// record fetches a fresh copy of the tracked record, failing for handles
// whose query already reached a terminal state.
func (q *Query) record() (QueryRecord, error) {
	rec, ok := q.client.tracker.Lookup(q.queryID)
	if !ok {
		return QueryRecord{}, types.ErrUnknownQuery
	}

	return rec, nil
}

// call dispatches one query-scoped control call through the negotiator,
// under the client's bounded recovery guard.
func (q *Query) call(ctx context.Context, rec QueryRecord, op string, fn func(ctx context.Context, opts CallOptions, token string) (Hinted, error)) error {
	return q.client.guard(ctx, func(ctx context.Context) error {
		token, err := q.client.session.Token(ctx)
		if err != nil {
			return err
		}

		return q.client.negotiator.QueryCall(ctx, rec, op, func(ctx context.Context, label types.LabelID) (Hinted, error) {
			return fn(ctx, q.client.callOpts(label, rec.TargetNode), token)
		})
	})
}
