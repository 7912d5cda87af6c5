package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/queue"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	return out.String()
}

func TestListCommands(t *testing.T) {
	assert.Contains(t, run(t, "kv", "ls"), "memory")
	assert.Contains(t, run(t, "mq", "ls"), "memory")
	assert.Contains(t, run(t, "mq", "topics"), queue.TopicRecognizeRequested)
}

func TestDBMigrateAndStatus(t *testing.T) {
	t.Setenv("IMAGESAAS_DB_TYPE", "sqlite")
	t.Setenv("IMAGESAAS_DB_DATABASE", filepath.Join(t.TempDir(), "cli.db"))

	assert.Contains(t, run(t, "db", "migrate"), "applied")
	assert.Contains(t, run(t, "db", "status"), `"Applied": true`)
	assert.Contains(t, run(t, "db", "migrate"), "applied 0 migration(s)")
}

func TestConfigDebugMasksSecrets(t *testing.T) {
	t.Setenv("IMAGESAAS_S3_SECRET_ACCESS_KEY", "topsecret")

	out := run(t, "config", "debug")
	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "******")
}
