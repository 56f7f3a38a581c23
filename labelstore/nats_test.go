package labelstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/labelstore"
	"github.com/arloliu/tandem/test/testutil"
	"github.com/arloliu/tandem/types"
)

// createTestKV creates a test KV bucket.
func createTestKV(t *testing.T, bucket string) jetstream.KeyValue {
	t.Helper()

	js := testutil.StartEmbeddedNATS(t)

	return testutil.CreateLabelBucket(t, js, bucket)
}

func TestNewNATSNilKV(t *testing.T) {
	_, err := labelstore.NewNATS(context.Background(), nil, logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeyValue store is nil")
}

func TestNewNATSDefaults(t *testing.T) {
	kv := createTestKV(t, "test-defaults")

	store, err := labelstore.NewNATS(context.Background(), kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "tandem.labels.state", store.Config().Key)
	assert.Equal(t, 5*time.Second, store.Config().PollInterval)
	assert.Equal(t, 5*time.Second, store.Config().PublishTimeout)
	assert.Equal(t, 10*time.Second, store.Config().InitialFetchTimeout)
}

func TestNewNATSOptions(t *testing.T) {
	kv := createTestKV(t, "test-options")

	store, err := labelstore.NewNATS(context.Background(), kv, logging.NewNopLogger(),
		labelstore.WithKey("custom.labels"),
		labelstore.WithPollInterval(10*time.Second),
		labelstore.WithPublishTimeout(2*time.Second),
		labelstore.WithInitialFetchTimeout(30*time.Second),
	)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "custom.labels", store.Config().Key)
	assert.Equal(t, 10*time.Second, store.Config().PollInterval)
	assert.Equal(t, 2*time.Second, store.Config().PublishTimeout)
	assert.Equal(t, 30*time.Second, store.Config().InitialFetchTimeout)
}

func TestNATS_MutationsConverge(t *testing.T) {
	kv := createTestKV(t, "test-converge")
	ctx := context.Background()

	// Two stores over the same bucket simulate sibling worker processes.
	store1, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store1.Close()

	store2, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store2.Close()

	store1.SetActive(types.LabelA)

	require.Eventually(t, func() bool {
		active, ok := store2.Active()
		return ok && active == types.LabelA
	}, 5*time.Second, 20*time.Millisecond, "sibling store did not observe the active label")

	store2.SetPending(types.LabelB)

	require.Eventually(t, func() bool {
		pending, ok := store1.Pending()
		return ok && pending == types.LabelB
	}, 5*time.Second, 20*time.Millisecond, "sibling store did not observe the pending label")
}

func TestNATS_TransitionConverges(t *testing.T) {
	kv := createTestKV(t, "test-transition")
	ctx := context.Background()

	store1, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store1.Close()

	store2, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store2.Close()

	store1.SetActive(types.LabelA)
	store1.SetPending(types.LabelB)
	require.True(t, store1.TryApplyPending(0))

	require.Eventually(t, func() bool {
		snap := store2.Snapshot()
		return snap.Active == types.LabelB && snap.Pending == types.NoLabel && snap.Invalidated
	}, 5*time.Second, 20*time.Millisecond, "sibling store did not observe the applied transition")
}

func TestNATS_InitialFetch(t *testing.T) {
	kv := createTestKV(t, "test-initial")
	ctx := context.Background()

	seed, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	seed.SetActive(types.LabelB)

	// Wait for the publish to land before starting the late joiner.
	require.Eventually(t, func() bool {
		_, err := kv.Get(ctx, "tandem.labels.state")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, seed.Close())

	late, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer late.Close()

	active, ok := late.Active()
	require.True(t, ok, "late joiner should pick up the shared state on startup")
	assert.Equal(t, types.LabelB, active)
}

func TestNATS_UndecodableEntryIgnored(t *testing.T) {
	kv := createTestKV(t, "test-garbage")
	ctx := context.Background()

	store, err := labelstore.NewNATS(ctx, kv, logging.NewNopLogger())
	require.NoError(t, err)
	defer store.Close()

	store.SetActive(types.LabelA)

	_, err = kv.Put(ctx, "tandem.labels.state", []byte("not msgpack"))
	require.NoError(t, err)

	// The garbage write must not corrupt the local view.
	time.Sleep(200 * time.Millisecond)
	active, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelA, active)
}

func TestNATSLock_NilKV(t *testing.T) {
	_, err := labelstore.NewNATSLock(nil, logging.NewNopLogger())
	require.Error(t, err)
}

func TestNATSLock_MutualExclusion(t *testing.T) {
	kv := createTestKV(t, "test-lock")

	lock1, err := labelstore.NewNATSLock(kv, logging.NewNopLogger(),
		labelstore.WithLockRetryInterval(20*time.Millisecond),
	)
	require.NoError(t, err)

	lock2, err := labelstore.NewNATSLock(kv, logging.NewNopLogger(),
		labelstore.WithLockRetryInterval(20*time.Millisecond),
	)
	require.NoError(t, err)

	release, err := lock1.Acquire(context.Background())
	require.NoError(t, err)

	// A second holder fails fast within its wait budget.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err = lock2.Acquire(ctx)
	cancel()
	assert.ErrorIs(t, err, types.ErrResumeLockBusy)

	release()

	// The lease frees for the next caller.
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	release2, err := lock2.Acquire(ctx)
	require.NoError(t, err)
	release2()
}

func TestNATSLock_CustomKey(t *testing.T) {
	kv := createTestKV(t, "test-lock-key")

	lock, err := labelstore.NewNATSLock(kv, logging.NewNopLogger(),
		labelstore.WithLockKey("custom.lock"),
	)
	require.NoError(t, err)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = kv.Get(context.Background(), "custom.lock")
	assert.NoError(t, err, "lease key should exist while held")
}
