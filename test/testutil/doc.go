// Package testutil provides shared test helpers: an embedded NATS server
// with JetStream for label store and lock tests, a scriptable mock engine
// transport, and a metrics collector that records calls for assertions.
//
// This package is intended for tests only and must not be imported by
// production code.
package testutil
