package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotientlab/groundtrace/internal/runstore"
)

func TestRootRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "info"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootListsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"exec", "verify", "demo", "info", "runs"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestDemoPrintsArtifactAndChain(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDemoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "universe: QE")
	assert.Contains(t, out, "witness: 1/6")
	assert.Contains(t, out, "chain_hash:")
}

func TestDemoSaveRecordsRun(t *testing.T) {
	storeRoot := filepath.Join(t.TempDir(), "runs")
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDemoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--save", "--store", storeRoot})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Saved run")

	st, err := runstore.Open(storeRoot)
	require.NoError(t, err)
	defer st.Close()
	recs, err := st.ListRuns(t.Context())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, runstore.VerdictOK, recs[0].Verdict)
}

func TestInfoTextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInfoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "size:          48927")
	assert.Contains(t, out, "max:           200/1")
	assert.Contains(t, out, "classes:       55")
	assert.Contains(t, out, "Signature bits")
	assert.Contains(t, out, "den<=6")
}

func TestInfoJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewInfoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	var resp struct {
		Status string     `json:"status"`
		Data   InfoResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 48927, resp.Data.Size)
	assert.Len(t, resp.Data.Bits, 7)
	assert.Len(t, resp.Data.DomainDigest, 64)
}

func TestRunsEmptyStore(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", filepath.Join(t.TempDir(), "runs")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No runs recorded")
}

func TestRunsListsRecordedRuns(t *testing.T) {
	storeRoot, runID := execDemo(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", storeRoot})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), runID)
	assert.Contains(t, buf.String(), runstore.VerdictOK)
}
