package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotientlab/groundtrace/internal/chain"
	"github.com/quotientlab/groundtrace/internal/digest"
	"github.com/quotientlab/groundtrace/internal/sig"
)

// InfoBit describes one signature predicate in info output.
type InfoBit struct {
	Bit  int    `json:"bit"`
	Name string `json:"name"`
}

// InfoResult is the info command output payload.
type InfoResult struct {
	Universe     string    `json:"universe"`
	DenRange     [2]int64  `json:"den_range"`
	NumRange     [2]int64  `json:"num_range"`
	Size         int       `json:"size"`
	Max          string    `json:"max"`
	Classes      int       `json:"classes"`
	SigVersion   int       `json:"sig_version"`
	Bits         []InfoBit `json:"bits"`
	DomainDigest string    `json:"domain_digest"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the certified universe and the signature bit legend",
		Long: `Build the universe, re-check its certified constants, and print the
bounds, the certified size, maximum, class count, the signature bit
legend, and the domain digest a verifier will bind runs to.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, cmd *cobra.Command) error {
	u, err := buildUniverse(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build universe", err)
	}
	cfg := u.Config()

	domain, err := chain.DomainDigest(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute domain digest", err)
	}

	out := InfoResult{
		Universe:     "QE",
		DenRange:     [2]int64{cfg.MinDen, cfg.MaxDen},
		NumRange:     [2]int64{cfg.MinNum, cfg.MaxNum},
		Size:         u.Len(),
		Max:          u.Max().String(),
		Classes:      cfg.Certified.Classes,
		SigVersion:   cfg.SigVersion,
		DomainDigest: digest.Hex(domain),
	}
	for i, name := range sig.Legend() {
		out.Bits = append(out.Bits, InfoBit{Bit: i, Name: name})
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.JSON(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Universe %s\n", out.Universe)
	fmt.Fprintf(w, "  den:           [%d, %d]\n", out.DenRange[0], out.DenRange[1])
	fmt.Fprintf(w, "  num:           [%d, %d]\n", out.NumRange[0], out.NumRange[1])
	fmt.Fprintf(w, "  size:          %d\n", out.Size)
	fmt.Fprintf(w, "  max:           %s\n", out.Max)
	fmt.Fprintf(w, "  classes:       %d\n", out.Classes)
	fmt.Fprintf(w, "  sig_version:   %d\n", out.SigVersion)
	fmt.Fprintf(w, "  domain_digest: %s\n", out.DomainDigest)
	fmt.Fprintln(w, "Signature bits")
	for _, b := range out.Bits {
		fmt.Fprintf(w, "  %d: %s\n", b.Bit, b.Name)
	}
	return nil
}
