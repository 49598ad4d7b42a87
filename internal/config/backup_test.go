package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile_MissingIsNoop(t *testing.T) {
	got, err := BackupFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBackupFile_KeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0644))

	var made []string
	for range MaxBackups + 2 {
		b, err := BackupFile(path)
		require.NoError(t, err)
		made = append(made, b)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, made[len(made)-1], backups[0])

	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "log_level: debug\n", string(data))
}

func TestRestoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))
	backup, err := BackupFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0644))
	require.NoError(t, RestoreBackup(backup, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))

	assert.Error(t, RestoreBackup(filepath.Join(t.TempDir(), "absent"), path))
}
