package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tandem"
	"github.com/arloliu/tandem/labelstore"
	"github.com/arloliu/tandem/test/testutil"
	"github.com/arloliu/tandem/types"
)

const convergeTimeout = 5 * time.Second

// newSharedStore builds a NATS-backed label store over the given KV bucket.
func newSharedStore(t *testing.T, kv jetstream.KeyValue) *labelstore.NATS {
	t.Helper()

	store, err := labelstore.NewNATS(context.Background(), kv, nil,
		labelstore.WithPollInterval(50*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newSharedKV(t *testing.T) jetstream.KeyValue {
	t.Helper()

	js := testutil.StartEmbeddedNATS(t)

	return testutil.CreateLabelBucket(t, js, "tandem-test")
}

func TestCutoverPropagatesAcrossClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	kv := newSharedKV(t)
	ctx := context.Background()

	// Two independent clients, each with its own engine connection, sharing
	// label state through the same KV bucket.
	engine1 := testutil.NewMockTransport(types.LabelA)
	client1, err := tandem.NewClient(engine1, tandem.Credentials{User: "one"},
		tandem.WithLabelStore(newSharedStore(t, kv)),
	)
	require.NoError(t, err)
	defer client1.Close()

	engine2 := testutil.NewMockTransport(types.LabelA)
	client2, err := tandem.NewClient(engine2, tandem.Credentials{User: "two"},
		tandem.WithLabelStore(newSharedStore(t, kv)),
	)
	require.NoError(t, err)
	defer client2.Close()

	q1, err := client1.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)

	// Client 1 learns of the upcoming cutover through an advisory hint on
	// its in-flight query's next response.
	engine1.SetHint(types.LabelB)
	require.NoError(t, q1.Execute(ctx))
	require.Equal(t, types.LabelB, client1.Labels().Pending)

	// The pending label replicates to client 2 without it making any call.
	require.Eventually(t, func() bool {
		return client2.Labels().Pending == types.LabelB
	}, convergeTimeout, 20*time.Millisecond, "pending label did not replicate")

	// Client 1 drains its last query; the transition applies and replicates.
	engine1.SetHint(types.NoLabel)
	require.NoError(t, q1.Clear(ctx))
	require.Equal(t, types.LabelB, client1.Labels().Active)

	require.Eventually(t, func() bool {
		snap := client2.Labels()
		return snap.Active == types.LabelB && snap.Pending == types.NoLabel
	}, convergeTimeout, 20*time.Millisecond, "active label did not replicate")

	// Both engines now serve B; client 2's next query lands there directly.
	engine1.SetServingLabel(types.LabelB)
	engine2.SetServingLabel(types.LabelB)

	q2, err := client2.Prepare(ctx, "SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, types.LabelB, q2.Label())
	require.NoError(t, q2.Cancel(ctx))
}

func TestInvalidationPropagatesAcrossClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	kv := newSharedKV(t)
	ctx := context.Background()

	engine1 := testutil.NewMockTransport(types.LabelA)
	client1, err := tandem.NewClient(engine1, tandem.Credentials{User: "one"},
		tandem.WithLabelStore(newSharedStore(t, kv)),
	)
	require.NoError(t, err)
	defer client1.Close()

	engine2 := testutil.NewMockTransport(types.LabelA)
	client2, err := tandem.NewClient(engine2, tandem.Credentials{User: "two"},
		tandem.WithLabelStore(newSharedStore(t, kv)),
	)
	require.NoError(t, err)
	defer client2.Close()

	// Client 1 establishes a session and label A; the label replicates.
	q0, err := client1.Prepare(ctx, "SELECT 0")
	require.NoError(t, err)
	require.NoError(t, q0.Cancel(ctx))

	require.Eventually(t, func() bool {
		return client2.Labels().Active == types.LabelA
	}, convergeTimeout, 20*time.Millisecond)

	// Client 1 hits a silent cutover with a still-valid session; the
	// query-scoped failure invalidates the shared state, so client 2 also
	// stops trusting the dead label.
	engine1.SetServingLabel(types.LabelB)
	engine2.SetServingLabel(types.LabelB)

	_, err = client1.Prepare(ctx, "SELECT 1")
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return client2.Labels().Active == types.NoLabel
	}, convergeTimeout, 20*time.Millisecond, "invalidation did not replicate")

	// Both clients rediscover B independently.
	status, err := client1.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, types.ClusterActive, status)

	_, err = client2.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.LabelB, client2.Labels().Active)
}

func TestResumeLockSingleWinnerAcrossClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	kv := newSharedKV(t)

	lock1, err := labelstore.NewNATSLock(kv, nil)
	require.NoError(t, err)
	lock2, err := labelstore.NewNATSLock(kv, nil)
	require.NoError(t, err)

	ctx := context.Background()

	release, err := lock1.Acquire(ctx)
	require.NoError(t, err)

	// The second holder cannot acquire while the lease is held.
	busyCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	_, err = lock2.Acquire(busyCtx)
	require.ErrorIs(t, err, types.ErrResumeLockBusy)

	// Once released, the other process takes over promptly.
	release()

	waitCtx, cancelWait := context.WithTimeout(ctx, convergeTimeout)
	defer cancelWait()

	release2, err := lock2.Acquire(waitCtx)
	require.NoError(t, err)
	release2()
}
