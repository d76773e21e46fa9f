// Package testutil provides shared helpers for end-to-end tests that drive
// the built binary: module discovery, environment isolation and fake
// Google endpoints.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// overrideVars are cleared so a developer's own settings never leak into a
// test run.
var overrideVars = []string{
	"SHORTS_GO_CONFIG",
	"SHORTS_GO_CLIENT_ID",
	"SHORTS_GO_CLIENT_SECRET",
	"SHORTS_GO_DATA_DIR",
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// Isolate points HOME and the XDG directories at a fresh temp directory and
// clears the SHORTS_GO_* overrides. Returns the temp root.
func Isolate(tb testing.TB) string {
	tb.Helper()

	root := tb.TempDir()

	tb.Setenv("HOME", root)
	tb.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	tb.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))

	for _, name := range overrideVars {
		tb.Setenv(name, "")
	}

	return root
}
