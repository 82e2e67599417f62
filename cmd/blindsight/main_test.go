package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/result"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDialectsCmd(t *testing.T) {
	out, err := execute(t, "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "postgresql")
	assert.Contains(t, out, "literal")
	assert.Contains(t, out, "sqlite_version()")
}

func TestLabCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "lab",
		"--driver", "sqlite", "--dsn", ":memory:", "--seed", "--verify",
		"--max-rows", "1", "--tables", "users",
		"--output-dir", dir, "--format", "yaml",
		"--log-level", "error", "--no-progress",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "dialect: SQLite")
	assert.Contains(t, out, "users (email, password, username)")
	assert.Contains(t, out, "1 of 3 rows")
	assert.Contains(t, out, "admin@shop.example | x7k2m9q4 | administrator")
	assert.Contains(t, out, "products (not enumerated)")
	assert.Contains(t, out, "verified: result matches the database")

	files, err := filepath.Glob(filepath.Join(dir, "scan-*.yaml"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	doc, err := result.Decode(f, result.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, result.StateDone, doc.State)
	assert.Equal(t, 3, doc.RowCounts["users"])
}

func TestLabCmd_ConfigErrors(t *testing.T) {
	_, err := execute(t, "lab", "--driver", "db2", "--dsn", "x", "--output", "none")
	assert.True(t, errs.IsInvalidInput(err), "got %v", err)

	_, err = execute(t, "lab", "--strategy", "guess", "--output", "none")
	assert.True(t, errs.IsInvalidInput(err), "got %v", err)
}

func TestScanCmd_RequiresURL(t *testing.T) {
	_, err := execute(t, "scan", "--output", "none", "--log-level", "error")
	assert.True(t, errs.IsInvalidInput(err), "got %v", err)
}

func TestServeCmd_NeedsStore(t *testing.T) {
	_, err := execute(t, "serve", "--output", "none")
	assert.True(t, errs.IsInvalidInput(err), "got %v", err)
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	doc := &result.Document{
		ID:                "abc",
		State:             result.StateFailed,
		Error:             "probe delivery failed",
		DatabaseType:      "MySQL",
		Tables:            []string{"users"},
		Columns:           map[string][]string{"users": {"id", "name"}},
		Data:              map[string][]result.Row{"users": {{"id": "1", "name": "admin"}}},
		RowCounts:         map[string]int{"users": 1},
		Warnings:          []result.Warning{{Kind: "character_unresolvable", Message: "position 3"}},
		Probes:            42,
		TransportFailures: 2,
		StartedAt:         time.Now(),
	}
	var buf bytes.Buffer
	printSummary(&buf, doc)
	out := buf.String()

	assert.Contains(t, out, "Scan abc failed")
	assert.Contains(t, out, "error: probe delivery failed")
	assert.Contains(t, out, "probes: 42 (transport failures: 2)")
	assert.Contains(t, out, "1 | admin")
	assert.NotContains(t, out, "of 1 rows")
	assert.Contains(t, out, "warning [character_unresolvable] position 3")
}
