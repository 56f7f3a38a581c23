// Package labelstore provides deployment label store and resume lock
// implementations.
//
// Two store backends are available:
//
//   - Local: an in-memory, process-local store. Every goroutine in the
//     process shares one view of the active/pending labels; sibling worker
//     processes each negotiate independently.
//   - NATS: a NATS JetStream KV backed store. Label state is mirrored into
//     a KV key and watched, so sibling worker processes converge on one
//     view. When the KV store is unreachable the NATS store degrades to
//     process-local operation and logs the capability loss; the degradation
//     is never hidden from operators.
//
// Matching resume lock implementations guard cluster resume:
//
//   - LocalLock: in-process bounded mutual exclusion.
//   - NATSLock: a KV-entry lease, bounding mutual exclusion across sibling
//     worker processes.
//
// # NATS Usage
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "tandem"})
//
//	store, _ := labelstore.NewNATS(ctx, kv, logger,
//	    labelstore.WithKey("prod.labels.state"),
//	)
//	lock := labelstore.NewNATSLock(kv)
//
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithLabelStore(store),
//	    tandem.WithResumeLock(lock),
//	)
//
// Cross-process sharing is best-effort: a stale read of the active label is
// harmless because every query's label is pinned at registration, and the
// negotiation protocol self-heals from a missed cutover within two calls.
package labelstore
