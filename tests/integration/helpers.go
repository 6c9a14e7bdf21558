//go:build integration

// Package integration contains integration tests that depend on wall-clock
// time or an external OpenTelemetry collector. These tests are excluded from
// normal `go test ./...` runs and require:
//
//	go test -tags=integration ./tests/integration/... -v -count=1
package integration

import (
	"os"
	"testing"
	"time"

	"github.com/petal-labs/petalstream/core"
)

// isCI returns true when running inside a CI environment.
func isCI() bool {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "CIRCLECI", "TRAVIS"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// skipOrFailOnMissingEnv fatals in CI (the collector should always be
// configured there) and skips locally.
func skipOrFailOnMissingEnv(t *testing.T, keyName string) {
	t.Helper()
	if isCI() {
		t.Fatalf("required setting %s is not set in CI", keyName)
	}
	t.Skipf("%s not set, skipping integration test", keyName)
}

// otlpEndpoint returns the collector URL from PETALSTREAM_OTLP_ENDPOINT,
// e.g. http://localhost:4318.
func otlpEndpoint(t *testing.T) string {
	t.Helper()
	endpoint := os.Getenv("PETALSTREAM_OTLP_ENDPOINT")
	if endpoint == "" {
		skipOrFailOnMissingEnv(t, "PETALSTREAM_OTLP_ENDPOINT")
	}
	return endpoint
}

// waitCompletion waits for a completion on ch or fails the test after d.
func waitCompletion(t *testing.T, ch <-chan core.Completion, d time.Duration) core.Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(d):
		t.Fatalf("no completion within %s", d)
		return core.Completion{}
	}
}
