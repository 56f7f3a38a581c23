package labelstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/tandem"
	"github.com/arloliu/tandem/internal/labelstate"
	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/types"
)

// NATS is a label store backed by a NATS JetStream KeyValue bucket.
//
// Local mutations are mirrored to the configured KV key so sibling worker
// processes converge on the same label view, and remote writes are applied
// locally through a KV watch with a polling fallback. Sharing is
// best-effort: when the KV store is unreachable the store keeps operating
// on its process-local state and logs an explicit warning.
//
// Publishing never happens while the state lock is held. Mutations enqueue
// a snapshot into a coalescing channel drained by a background goroutine,
// so a slow KV write can never stall a negotiation.
type NATS struct {
	*labelstate.State

	kv     jetstream.KeyValue
	config StoreConfig
	logger types.Logger

	// lastRevision filters out stale watch entries and the echo of this
	// process's own writes.
	revMu        sync.Mutex
	lastRevision uint64
	degraded     bool

	publish   chan types.LabelSnapshot
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ tandem.LabelStore = (*NATS)(nil)

// NewNATS creates a NATS KV backed label store.
//
// The constructor performs an initial fetch of the shared state (bounded by
// the configured initial fetch timeout) and then starts the watch and
// publish goroutines. A missing key is not an error; the store starts empty
// and publishes once the first negotiation resolves a label.
//
// Parameters:
//   - ctx: Context bounding the initial fetch and the watch lifetime
//   - kv: A NATS JetStream KeyValue store
//   - logger: Logger for degradation warnings
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: The label store
//   - error: Error if kv is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "tandem-state")
//
//	store, _ := labelstore.NewNATS(ctx, kv, logger,
//	    labelstore.WithKey("prod.labels.state"),
//	)
func NewNATS(ctx context.Context, kv jetstream.KeyValue, logger types.Logger, opts ...StoreOption) (*NATS, error) {
	if kv == nil {
		return nil, errors.New("tandem/labelstore: KeyValue store is nil")
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	config := DefaultStoreConfig()
	for _, opt := range opts {
		opt(&config)
	}

	n := &NATS{
		State:   labelstate.New(logger),
		kv:      kv,
		config:  config,
		logger:  logger,
		publish: make(chan types.LabelSnapshot, 1),
		done:    make(chan struct{}),
	}
	n.State.SetOnChange(n.enqueue)

	n.initialFetch(ctx)

	n.wg.Add(2)
	go n.watchLoop(ctx)
	go n.publishLoop()

	return n, nil
}

// Config returns the store configuration.
//
// This method is primarily useful for testing to verify configuration options.
//
// Returns:
//   - StoreConfig: The current store configuration
func (n *NATS) Config() StoreConfig {
	return n.config
}

// Degraded reports whether the store is currently operating process-local
// because the KV store is unreachable.
//
// Returns:
//   - bool: true if the last KV operation failed
func (n *NATS) Degraded() bool {
	n.revMu.Lock()
	defer n.revMu.Unlock()

	return n.degraded
}

// Close stops the watch and publish goroutines and waits for them to exit.
//
// This method is safe to call multiple times.
func (n *NATS) Close() error {
	n.closeOnce.Do(func() { close(n.done) })
	n.wg.Wait()

	return n.State.Close()
}

// initialFetch loads the shared state if a sibling process already
// published one.
func (n *NATS) initialFetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.InitialFetchTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return
		}
		n.setDegraded(true, err)

		return
	}

	n.processEntry(entry)
}

// enqueue hands a snapshot to the publish goroutine, coalescing with any
// snapshot still waiting. Only the newest view matters.
func (n *NATS) enqueue(snap types.LabelSnapshot) {
	for {
		select {
		case n.publish <- snap:
			return
		default:
		}
		select {
		case <-n.publish:
		default:
		}
	}
}

// publishLoop drains the coalescing channel and mirrors snapshots to KV.
func (n *NATS) publishLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return
		case snap := <-n.publish:
			n.publishSnapshot(snap)
		}
	}
}

// publishSnapshot writes one snapshot to the KV key.
func (n *NATS) publishSnapshot(snap types.LabelSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), n.config.PublishTimeout)
	defer cancel()

	rev, err := n.kv.Put(ctx, n.config.Key, encodeState(snap))
	if err != nil {
		n.setDegraded(true, err)

		return
	}

	n.revMu.Lock()
	if rev > n.lastRevision {
		n.lastRevision = rev
	}
	n.revMu.Unlock()

	n.setDegraded(false, nil)
}

// watchLoop monitors the KV key for writes from sibling processes, falling
// back to polling when the watch cannot be established.
func (n *NATS) watchLoop(ctx context.Context) {
	defer n.wg.Done()

	watcher, err := n.kv.Watch(ctx, n.config.Key)
	if err != nil {
		n.setDegraded(true, err)
		n.pollLoop(ctx)

		return
	}
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				// Watcher channel closed, fall back to polling.
				n.pollLoop(ctx)
				return
			}
			if entry == nil {
				// End of initial replay marker, skip.
				continue
			}
			n.processEntry(entry)
		}
	}
}

// pollLoop is the fallback when the watch fails.
func (n *NATS) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			n.fetch(ctx)
		}
	}
}

// fetch reads the current KV value once.
func (n *NATS) fetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.PublishTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return
		}
		n.setDegraded(true, err)

		return
	}

	n.processEntry(entry)
}

// processEntry applies one KV entry to the local state.
//
// Entries at or below the last seen revision are skipped; that covers both
// replays and the echo of this process's own writes.
func (n *NATS) processEntry(entry jetstream.KeyValueEntry) {
	if entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge {
		return
	}

	n.revMu.Lock()
	if entry.Revision() <= n.lastRevision {
		n.revMu.Unlock()
		return
	}
	n.lastRevision = entry.Revision()
	n.degraded = false
	n.revMu.Unlock()

	snap, err := decodeState(entry.Value())
	if err != nil {
		n.logger.Warn("skipping undecodable label state entry",
			"key", n.config.Key,
			"revision", entry.Revision(),
			"error", err,
		)

		return
	}

	n.State.ApplyRemote(snap)
}

// setDegraded flips the degraded flag, warning on the transition into
// degraded operation.
func (n *NATS) setDegraded(degraded bool, cause error) {
	n.revMu.Lock()
	changed := n.degraded != degraded
	n.degraded = degraded
	n.revMu.Unlock()

	if changed && degraded {
		n.logger.Warn("label state sharing degraded to process-local operation",
			"key", n.config.Key,
			"error", cause,
		)
	}
}

// NATSLock is a cross-process resume lock leased through a NATS JetStream
// KeyValue key.
//
// Acquisition creates the key; since KV create fails when the key already
// exists, exactly one process holds the lease at a time. Release deletes
// the key guarded by the creation revision, so a holder can never delete a
// lease it no longer owns.
type NATSLock struct {
	kv     jetstream.KeyValue
	config LockConfig
	logger types.Logger
}

var _ tandem.ResumeLock = (*NATSLock)(nil)

// NewNATSLock creates a NATS KV backed resume lock.
//
// Parameters:
//   - kv: A NATS JetStream KeyValue store
//   - logger: Logger for release failures
//   - opts: Optional configuration options
//
// Returns:
//   - *NATSLock: The lock
//   - error: Error if kv is nil
func NewNATSLock(kv jetstream.KeyValue, logger types.Logger, opts ...LockOption) (*NATSLock, error) {
	if kv == nil {
		return nil, errors.New("tandem/labelstore: KeyValue store is nil")
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	config := DefaultLockConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATSLock{kv: kv, config: config, logger: logger}, nil
}

// Acquire takes the lease, retrying while it is held elsewhere and waiting
// at most until the context deadline.
//
// Parameters:
//   - ctx: Context bounding the wait
//
// Returns:
//   - func(): Release function, to be called exactly once
//   - error: types.ErrResumeLockBusy if the wait budget expires while the
//     lease is held, or the KV error if creation fails outright
func (l *NATSLock) Acquire(ctx context.Context) (func(), error) {
	holder := []byte(uuid.NewString())

	for {
		rev, err := l.kv.Create(ctx, l.config.Key, holder)
		if err == nil {
			return func() { l.release(rev) }, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			if ctx.Err() != nil {
				return nil, types.ErrResumeLockBusy
			}

			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, types.ErrResumeLockBusy
		case <-time.After(l.config.RetryInterval):
		}
	}
}

// release deletes the lease guarded by its creation revision. Uses a fresh
// context so a cancelled acquirer still releases what it holds.
func (l *NATSLock) release(rev uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.kv.Delete(ctx, l.config.Key, jetstream.LastRevision(rev)); err != nil {
		l.logger.Warn("failed to release resume lock lease",
			"key", l.config.Key,
			"revision", rev,
			"error", err,
		)
	}
}
