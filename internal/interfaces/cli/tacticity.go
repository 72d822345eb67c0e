package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

func newTacticityCmd() *cobra.Command {
	req := &stereotypes.TacticityRequest{}
	var seed int64
	cmd := &cobra.Command{
		Use:   "tacticity",
		Short: "Generate R/S sequences with a given meso diad fraction",
		Example: `  m2pcalc tacticity --n 5 --pm 0.8 --dp 20
  m2pcalc tacticity --n 1 --pm 1 --dp 10 --seed 42 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			resp, err := cliCtx.Service.GenerateTacticity(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resp, func(w io.Writer) error {
				for i, seq := range resp.Sequences {
					if cliCtx.Verbose {
						fmt.Fprintf(w, "%s\tpm=%.3f\n", seq, resp.MesoFractions[i])
					} else {
						fmt.Fprintln(w, seq)
					}
				}
				if cliCtx.Verbose {
					fmt.Fprintf(w, "seed %d\n", resp.Seed)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&req.N, "n", 1, "number of sequences")
	f.Float64Var(&req.Pm, "pm", 0.5, "meso diad fraction in [0,1]")
	f.IntVar(&req.DP, "dp", 10, "degree of polymerization (sequence length)")
	f.Int64Var(&seed, "seed", 0, "random seed (default from config or time)")
	return cmd
}
