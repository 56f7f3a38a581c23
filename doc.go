// Package tandem provides a client library for a distributed SQL engine
// whose serving fleet can be redeployed live across two parallel
// environments ("labels") without client-visible downtime.
//
// Tandem negotiates the active deployment label with the engine, isolates
// every query to the label it was assigned at registration, and wakes a
// suspended cluster transparently.
//
// # Key Features
//
//   - Label Negotiation: session-scoped calls self-heal from a missed
//     cutover within at most two calls, at a steady-state cost of one call
//   - Query-Label Isolation: every call belonging to a query carries the
//     identical label from registration to its terminal state, even across
//     a live cutover
//   - Hint Capture: server-supplied advisory labels are recorded as the
//     pending label without disrupting in-flight work
//   - Gated Transitions: a pending label applies only once the in-flight
//     query count reaches zero, then the session is rebuilt proactively
//   - Cluster Resume: a suspended cluster is woken and polled until active,
//     under a bounded cross-process lock
//   - Shared Label State: NATS JetStream KV coordination across sibling
//     worker processes, degrading to a process-local store with an explicit
//     warning when unavailable
//
// # Basic Usage
//
//	// Wire a transport implementation for the engine's RPC surface.
//	client, err := tandem.NewClient(transport,
//	    tandem.Credentials{User: "analyst", Secret: token},
//	    tandem.WithAutoResume(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	query, err := client.Prepare(ctx, "SELECT * FROM events")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := query.Execute(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    batch, err := query.FetchBatch(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // decode batch.Payload with the result decoder of your choice
//	    if batch.Last {
//	        break
//	    }
//	}
//	if err := query.Clear(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Tandem uses standard Go errors with clear semantics for dual-environment
// operations. Transport implementations classify failures by wrapping them
// so errors.Is matches the sentinels in the types package:
//
//   - types.ErrWrongEnvironment: absorbed by one alternate-label retry on
//     session-scoped calls; a hard failure on query-scoped calls
//   - types.ErrServiceUnavailable: triggers auto-resume when enabled
//   - types.ErrAccessDenied: triggers one re-authentication
//
// A session-scoped call that fails on both labels returns a
// types.ExhaustedError preserving the original failure:
//
//	var exhausted *types.ExhaustedError
//	if errors.As(err, &exhausted) {
//	    log.Printf("first: %v", exhausted.First)
//	    log.Printf("retry: %v", exhausted.Last)
//	}
//
// All retries are local and bounded: at most one alternate-label retry per
// session-scoped call, one resume per guarded call, one re-authentication
// per guarded call, and a hard deadline on resume polling.
package tandem
