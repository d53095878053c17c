// Package testutil holds helpers for opt-in tests against live providers.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/areknoster/hypert"
)

// SkipUnlessEvals skips the test unless GOEVALS environment variable is set.
// Use at the start of live provider tests to make them opt-in.
func SkipUnlessEvals(tb testing.TB) {
	tb.Helper()
	if os.Getenv("GOEVALS") == "" {
		tb.Skip("GOEVALS not set")
	}
}

// ShouldUpdate reports whether recorded HTTP exchanges should be refreshed.
// Set UPDATE_TESTS=true to record against the live API.
func ShouldUpdate() bool {
	return os.Getenv("UPDATE_TESTS") == "true"
}

// NewHypertClient returns an HTTP client that replays exchanges recorded
// under testdata/<subDir>, or records them when ShouldUpdate is true.
func NewHypertClient(t *testing.T, subDir string) *http.Client {
	t.Helper()

	namingScheme, err := hypert.NewContentHashNamingScheme(filepath.Join("testdata", subDir))
	if err != nil {
		t.Fatalf("failed to create naming scheme: %v", err)
	}

	return hypert.TestClient(t, ShouldUpdate(),
		hypert.WithNamingScheme(namingScheme),
		hypert.WithRequestValidator(hypert.ComposedRequestValidator(
			hypert.PathValidator(),
			hypert.QueryParamsValidator(),
			hypert.MethodValidator(),
		)),
	)
}

// APIKey returns the key in env when recording, and placeholder when
// replaying so recorded exchanges never depend on a real secret.
func APIKey(t *testing.T, env, placeholder string) string {
	t.Helper()
	if !ShouldUpdate() {
		return placeholder
	}
	key := os.Getenv(env)
	if key == "" {
		t.Skipf("%s not set", env)
	}
	return key
}
