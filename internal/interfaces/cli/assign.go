package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/pkg/errors"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

type assignOptions struct {
	smiles    string
	targets   []string
	head      string
	tail      string
	vinyl     bool
	maxPasses int
	restrict  bool
}

func newAssignCmd() *cobra.Command {
	opts := &assignOptions{}
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Set backbone chirality so CIP labels match a target sequence",
		Example: `  m2pcalc assign --smiles '[Xe]CC(C)CC(C)CC(C)[Pb]' --targets RSR
  m2pcalc assign --smiles 'NC(C)C(=O)O' --targets R --head N --tail '[CH3]'
  m2pcalc assign --vinyl --smiles '[Xe]CC(c1ccccc1)CC(c1ccccc1)[Pb]' --targets R,S -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.smiles, "smiles", "", "polymer SMILES (required)")
	f.StringSliceVar(&opts.targets, "targets", nil, "target descriptors, e.g. RSR or R,S,R")
	f.StringVar(&opts.head, "head", "", "SMARTS for the backbone head (default from config)")
	f.StringVar(&opts.tail, "tail", "", "SMARTS for the backbone tail (default from config)")
	f.BoolVar(&opts.vinyl, "vinyl", false, "remove [Xe]/[Pb] caps before assigning")
	f.IntVar(&opts.maxPasses, "max-passes", 0, "correction passes (default from config)")
	f.BoolVar(&opts.restrict, "restrict", false, "never flip centers without a target")
	_ = cmd.MarkFlagRequired("smiles")
	return cmd
}

func runAssign(cmd *cobra.Command, opts *assignOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	req := &stereotypes.AssignRequest{
		SMILES:      opts.smiles,
		Targets:     opts.targets,
		HeadPattern: opts.head,
		TailPattern: opts.tail,
	}
	if cmd.Flags().Changed("max-passes") {
		req.MaxPasses = &opts.maxPasses
	}
	if cmd.Flags().Changed("restrict") {
		req.RestrictToTargets = &opts.restrict
	}

	var resp *stereotypes.AssignResponse
	if opts.vinyl {
		if opts.head != "" || opts.tail != "" {
			return errors.InvalidParam("--head and --tail cannot be combined with --vinyl")
		}
		resp, err = cliCtx.Service.AssignVinyl(cmd.Context(), req)
	} else {
		resp, err = cliCtx.Service.Assign(cmd.Context(), req)
	}
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("assign finished", logging.String("run_id", resp.RunID))

	return PrintResult(cmd, resp, func(w io.Writer) error {
		return writeAssignText(w, resp, cliCtx.Verbose)
	})
}

func writeAssignText(w io.Writer, resp *stereotypes.AssignResponse, verbose bool) error {
	fmt.Fprintln(w, resp.SMILES)
	if verbose {
		fmt.Fprintf(w, "run %s  variant %s  backbone %d atoms  passes %d\n",
			resp.RunID, resp.Variant, len(resp.Backbone), resp.Passes)
	}

	labels := make(map[int]string, len(resp.Labels))
	for _, c := range resp.Labels {
		labels[c.Atom] = c.Label
	}
	flipped := make(map[int]bool)
	for _, pass := range resp.Flipped {
		for _, a := range pass {
			flipped[a] = true
		}
	}
	residual := make(map[int]bool, len(resp.Residual))
	for _, a := range resp.Residual {
		residual[a] = true
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Atom", "Target", "Label", "Status"})
	for _, atom := range resp.Centers {
		target := resp.Specified[atom]
		if target == "" {
			target = "-"
		}
		label := labels[atom]
		if label == "" {
			label = "?"
		}
		table.Append([]string{strconv.Itoa(atom), target, label, centerStatus(target, flipped[atom], residual[atom])})
	}
	table.Render()

	summary := fmt.Sprintf("%d centers, %d flipped, %d residual", len(resp.Centers), len(flipped), len(resp.Residual))
	if resp.Converged {
		fmt.Fprintln(w, color.GreenString("converged: ")+summary)
	} else {
		fmt.Fprintln(w, color.YellowString("not converged: ")+summary)
	}
	if resp.IgnoredTargets > 0 {
		fmt.Fprintf(w, "%d surplus targets ignored\n", resp.IgnoredTargets)
	}
	if resp.LostCenters > 0 {
		fmt.Fprintf(w, "%d centers removed by termination\n", resp.LostCenters)
	}
	return nil
}

func centerStatus(target string, flipped, residual bool) string {
	switch {
	case residual && target != "-":
		return color.RedString("MISMATCH")
	case residual:
		return color.YellowString("UNTARGETED")
	case flipped:
		return color.CyanString("FLIPPED")
	case target == "-":
		return "UNTARGETED"
	default:
		return color.GreenString("OK")
	}
}
