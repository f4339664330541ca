package exec

import (
	"fmt"
	"strings"

	"github.com/quotientlab/groundtrace/internal/universe"
)

// artifactSampleLimit caps the number of working-set elements listed in
// the artifact.
const artifactSampleLimit = 20

// Artifact renders the deterministic human-readable text derived from the
// final execution state. The text is a pure function of the result and
// the universe configuration: no timestamps, no run identifiers.
func Artifact(u *universe.Universe, res Result) string {
	var b strings.Builder
	cfg := u.Config()

	fmt.Fprintf(&b, "universe: %s den=[%d,%d] num=[%d,%d] size=%d max=%s sig_version=%d\n",
		"QE", cfg.MinDen, cfg.MaxDen, cfg.MinNum, cfg.MaxNum, u.Len(), u.Max(), cfg.SigVersion)
	fmt.Fprintf(&b, "steps: %d\n", len(res.Steps))
	fmt.Fprintf(&b, "final_count: %d\n", res.Count)
	if res.Focus != nil {
		fmt.Fprintf(&b, "focus: %s\n", res.Focus)
	}
	if res.Witness != nil {
		fmt.Fprintf(&b, "witness: %s\n", res.Witness)
	}

	n := min(len(res.Working), artifactSampleLimit)
	fmt.Fprintf(&b, "working_set: showing %d of %d\n", n, len(res.Working))
	for _, r := range res.Working[:n] {
		fmt.Fprintf(&b, "  %s\n", r)
	}
	return b.String()
}
