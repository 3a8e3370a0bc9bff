package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
)

func TestTriggerCoalesces(t *testing.T) {
	s := &Service{
		cfg:     config.Backup{Enabled: true},
		trigger: make(chan struct{}, 1),
	}

	s.Trigger()
	s.Trigger()
	s.Trigger()

	assert.Len(t, s.trigger, 1, "pending triggers collapse into one")
}

func TestTriggerNoopWhenDisabled(t *testing.T) {
	s := &Service{
		cfg:     config.Backup{Enabled: false},
		trigger: make(chan struct{}, 1),
	}

	s.Trigger()

	assert.Empty(t, s.trigger)
}

func TestPruneKeepsNewestSnapshots(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"orders-20240101-000000.json",
		"orders-20240102-000000.json",
		"orders-20240103-000000.json",
		"orders-20240104-000000.json",
		"orders-20240105-000000.json",
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "orders-nested"), 0o755))

	s := &Service{
		cfg:    config.Backup{Dir: dir, Keep: 2},
		logger: zap.NewNop(),
	}
	require.NoError(t, s.prune())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var remaining []string
	for _, entry := range entries {
		remaining = append(remaining, entry.Name())
	}
	assert.ElementsMatch(t, []string{
		"orders-20240104-000000.json",
		"orders-20240105-000000.json",
		"notes.txt",
		"orders-nested",
	}, remaining)
}

func TestPruneBelowRetention(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders-20240101-000000.json"), []byte("{}"), 0o644))

	s := &Service{
		cfg:    config.Backup{Dir: dir, Keep: 5},
		logger: zap.NewNop(),
	}
	require.NoError(t, s.prune())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
