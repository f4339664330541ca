package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotientlab/groundtrace/internal/runstore"
	"github.com/quotientlab/groundtrace/internal/trace"
)

// writeDemoTrace writes the demo trace document to a temp file.
func writeDemoTrace(t *testing.T) string {
	t.Helper()
	data, err := trace.Demo().Encode()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// execDemo runs the exec command on the demo trace and returns the
// store root and the recorded run ID.
func execDemo(t *testing.T) (string, string) {
	t.Helper()
	storeRoot := filepath.Join(t.TempDir(), "runs")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewExecCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", storeRoot, writeDemoTrace(t)})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   ExecResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	return storeRoot, resp.Data.RunID
}

func TestExecRecordsRun(t *testing.T) {
	storeRoot, runID := execDemo(t)

	runDir := filepath.Join(storeRoot, runID)
	for _, name := range []string{
		runstore.LogFile, runstore.DigestsFile, runstore.ArtifactFile, runstore.ResultFile,
	} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, "missing %s", name)
	}

	data, err := os.ReadFile(filepath.Join(runDir, runstore.ResultFile))
	require.NoError(t, err)
	var rec runstore.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, runstore.VerdictOK, rec.Verdict)
	assert.Len(t, rec.ChainHash, 64)

	log, err := os.ReadFile(filepath.Join(runDir, runstore.LogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(log)), "\n")
	assert.Len(t, lines, 3)
}

func TestExecTextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExecCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", filepath.Join(t.TempDir(), "runs"), writeDemoTrace(t)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "OK")
	assert.Contains(t, buf.String(), "chain_hash:")
}

func TestExecRejectedTrace(t *testing.T) {
	doc := `{"version":"1","universe":"QE","bits":7,"ops":[{"op":"LOAD","elem":"1/201"}]}`
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	storeRoot := filepath.Join(t.TempDir(), "runs")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExecCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", storeRoot, path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "ELEM_NOT_FOUND")

	// The rejected run is still recorded with an ERROR verdict.
	entries, err := os.ReadDir(storeRoot)
	require.NoError(t, err)
	var runDir string
	for _, e := range entries {
		if e.IsDir() {
			runDir = filepath.Join(storeRoot, e.Name())
		}
	}
	require.NotEmpty(t, runDir)
	data, err := os.ReadFile(filepath.Join(runDir, runstore.ResultFile))
	require.NoError(t, err)
	var rec runstore.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, runstore.VerdictError, rec.Verdict)
	assert.Empty(t, rec.ChainHash)
}

func TestExecMalformedTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1}`), 0o644))

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExecCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", filepath.Join(t.TempDir(), "runs"), path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExecMissingTraceFile(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExecCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", filepath.Join(t.TempDir(), "runs"), filepath.Join(t.TempDir(), "missing.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
