package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// serverReadyTimeout bounds the wait for the embedded server to start
// accepting connections.
const serverReadyTimeout = 5 * time.Second

// StartEmbeddedNATS runs an in-process JetStream-enabled NATS server for
// the duration of one test, so label-store tests never depend on external
// infrastructure. Storage lives in the test's temp dir and the listener
// binds an ephemeral loopback port, so parallel tests cannot collide.
// Teardown is registered on t.Cleanup.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - jetstream.JetStream: A JetStream context on the embedded server
func StartEmbeddedNATS(t *testing.T) jetstream.JetStream {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err, "embedded NATS server setup failed")

	srv.Start()
	if !srv.ReadyForConnections(serverReadyTimeout) {
		srv.Shutdown()
		t.Fatal("embedded NATS server did not become ready")
	}

	conn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err, "connect to embedded NATS server")

	t.Cleanup(func() {
		conn.Close()
		srv.Shutdown()
	})

	js, err := jetstream.New(conn)
	require.NoError(t, err, "JetStream context")

	return js
}

// CreateLabelBucket provisions a KV bucket of the shape labelstore.NATS
// expects in production: plain bucket, single-revision history.
//
// Parameters:
//   - t: The testing context
//   - js: JetStream context, typically from StartEmbeddedNATS
//   - bucket: Bucket name; stores sharing a bucket share label state
//
// Returns:
//   - jetstream.KeyValue: The created bucket
func CreateLabelBucket(t *testing.T, js jetstream.JetStream, bucket string) jetstream.KeyValue {
	t.Helper()

	kv, err := js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	require.NoError(t, err, "create KV bucket %q", bucket)

	return kv
}
