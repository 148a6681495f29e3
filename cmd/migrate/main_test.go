package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

const sampleExport = "../../modules/migrator/sources/wordpress/testdata/export.xml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MIGRATE_CREDENTIALS_FILE", "")
	t.Setenv("MIGRATE_PROFILE", "")
	t.Setenv("MIGRATE_CHECKPOINT_REDIS_URL", "")
	t.Setenv("MIGRATE_LOG_LEVEL", "info")
}

func TestHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "migrate <input-file>")
	assert.Contains(t, out, "--download-media")
	assert.Contains(t, out, "--upload-media")
}

func TestRequiresInput(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)
}

func TestDryRun(t *testing.T) {
	isolateEnv(t)
	out := t.TempDir()

	logs, err := execute(t, sampleExport,
		"--dry-run",
		"-o", out,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	)
	require.NoError(t, err)
	assert.Contains(t, logs, "migration finished")

	data, err := os.ReadFile(filepath.Join(out, "migration-report.json"))
	require.NoError(t, err)
	var report struct {
		DryRun bool `json:"dryRun"`
		Stats  struct {
			Pages int `json:"pages"`
			Posts int `json:"posts"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Stats.Pages)
	assert.Equal(t, 1, report.Stats.Posts)
	assert.FileExists(t, filepath.Join(out, "cleaned-content", "about-us.html"))
}

func TestMissingInput(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.xml"),
		"--dry-run",
		"-o", t.TempDir(),
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}

func TestInvalidProfile(t *testing.T) {
	isolateEnv(t)
	profile := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("pageTypes:\n  home: carousel\n"), 0644))

	_, err := execute(t, sampleExport, "--dry-run", "-o", t.TempDir(), "--profile", profile,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown page type")
}

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := newProgressBar(&out)
	for _, id := range []string{"1", "2"} {
		bar.observe(types.MediaEvent{ID: id, Outcome: types.OutcomeDownloaded, Total: 2})
	}
	bar.finish()

	var none *progressBar
	none.finish()
}
