package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file shape of a scenario execution. It carries
// only content derived deterministically from the scenario, so golden
// comparisons are stable across machines.
type Snapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Verdict      string      `json:"verdict"`
	ErrorCode    string      `json:"error_code,omitempty"`
	Steps        []StepEvent `json:"steps"`
	Count        int         `json:"count"`
	Focus        string      `json:"focus,omitempty"`
	Witness      string      `json:"witness,omitempty"`
	Working      []string    `json:"working"`
}

// RunWithGolden executes sc and compares the snapshot against
// testdata/golden/{name}.golden. Regenerate with go test -update.
func (rn *Runner) RunWithGolden(t *testing.T, sc *Scenario) *Result {
	t.Helper()

	res, err := rn.Run(sc)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", sc.Name, err)
	}

	snap := Snapshot{
		ScenarioName: sc.Name,
		Verdict:      res.Verdict,
		ErrorCode:    res.ErrorCode,
		Steps:        res.Steps,
		Count:        res.Count,
		Focus:        res.Focus,
		Witness:      res.Witness,
		Working:      res.Working,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("scenario %s snapshot: %v", sc.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return res
}
