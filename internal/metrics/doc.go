// Package metrics provides build and dev-server observability hooks.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default so callers never nil-check; the Prometheus implementation is
// activated by the serve command, which exposes it on /__metrics.
package metrics
