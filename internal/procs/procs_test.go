package procs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/procs"
)

func TestIsInstance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want bool
	}{
		{name: "plain run", argv: []string{"keepwarm", "run"}, want: true},
		{name: "absolute path with flags", argv: []string{"/usr/local/bin/keepwarm", "--verbose", "run", "--url", "https://x"}, want: true},
		{name: "valued flag before run", argv: []string{"keepwarm", "--store", "sqlite", "run"}, want: true},
		{name: "short bool flag before run", argv: []string{"keepwarm", "-v", "--session-dir", "/tmp/s", "run"}, want: true},
		{name: "inline flag value", argv: []string{"keepwarm", "--store=redis", "run"}, want: true},
		{name: "run as value of a flag", argv: []string{"keepwarm", "--log-file", "run", "ps"}},
		{name: "stop is not an instance", argv: []string{"keepwarm", "stop"}},
		{name: "ps is not an instance", argv: []string{"keepwarm", "ps"}},
		{name: "run as flag value", argv: []string{"keepwarm", "ping", "run"}},
		{name: "other binary", argv: []string{"/bin/sleep", "run"}},
		{name: "no args", argv: []string{"keepwarm"}},
		{name: "empty", argv: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, procs.IsInstance("keepwarm", tt.argv))
		})
	}
}

func TestListFindsNothingForUnknownBinary(t *testing.T) {
	t.Parallel()

	insts, err := procs.List(context.Background(), "keepwarm-test-does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestStartBackgroundWritesLog(t *testing.T) {
	t.Parallel()

	exe, err := os.Executable()
	require.NoError(t, err)
	logPath := filepath.Join(t.TempDir(), "bg.log")

	// The test binary lists its tests and exits straight away.
	pid, err := procs.StartBackground(exe, []string{"-test.list", "^$"}, logPath)
	require.NoError(t, err)
	assert.Positive(t, pid)

	_, err = os.Stat(logPath)
	assert.NoError(t, err)
}
