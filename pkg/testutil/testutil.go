// Package testutil provides testing utilities for mrmr
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteFile writes content to name inside a per-test directory
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// CSV joins a header and rows into newline terminated text
func CSV(header string, rows ...string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String()
}

// GeneratedCSV builds a table of rows x features where cell (r, c) is
// "v" followed by (r+c) mod cardinality
func GeneratedCSV(rows, features, cardinality int) string {
	header := make([]string, features)
	for c := range header {
		header[c] = "f" + strconv.Itoa(c)
	}

	lines := make([]string, rows)
	cells := make([]string, features)
	for r := range lines {
		for c := range cells {
			cells[c] = "v" + strconv.Itoa((r+c)%cardinality)
		}
		lines[r] = strings.Join(cells, ",")
	}
	return CSV(strings.Join(header, ","), lines...)
}
