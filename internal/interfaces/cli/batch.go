package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	appstereo "github.com/polymerlab/m2pcalc/internal/application/stereo"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

func newBatchCmd() *cobra.Command {
	var (
		file    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the assignments of a YAML or JSON job file",
		Long: "Run every item of a batch job concurrently.  Items that fail are reported\n" +
			"individually; the command exits non-zero only when the job file is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			job, err := appstereo.LoadBatchJob(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				job.Workers = workers
			}
			cliCtx.Logger.Info("running batch", logging.String("file", file), logging.Int("items", len(job.Items)))

			res, err := cliCtx.Service.RunBatch(cmd.Context(), job)
			if err != nil {
				return err
			}
			return PrintResult(cmd, res, func(w io.Writer) error {
				return writeBatchText(w, res)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "job file (required)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent items (default from job or config)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeBatchText(w io.Writer, res *stereotypes.BatchResult) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "Status", "Result"})
	table.SetAutoWrapText(false)
	for _, it := range res.Items {
		status, result := color.GreenString("OK"), ""
		switch {
		case it.Error != nil:
			status, result = color.RedString(it.Error.Code), it.Error.Message
		case !it.Response.Converged:
			status, result = color.YellowString("RESIDUAL"), it.Response.SMILES
		default:
			result = it.Response.SMILES
		}
		table.Append([]string{strconv.Itoa(it.Index), it.Name, status, result})
	}
	table.Render()
	fmt.Fprintf(w, "job %s: %d succeeded, %d failed in %dms\n", res.JobID, res.Succeeded, res.Failed, res.DurationMS)
	return nil
}
