package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewExportCmd writes the detailed results report.
func NewExportCmd(configPath *string) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results as a detailed CSV or XLSX report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *configPath, format, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to a dated file name, - for stdout)")
	return cmd
}

func runExport(ctx context.Context, configPath, format, out string, stdout io.Writer) error {
	write, err := exportWriter(format)
	if err != nil {
		return err
	}

	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	store, err := d.resultStore(ctx)
	if err != nil {
		return err
	}
	results, err := store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}

	if out == "-" {
		return write(stdout, results)
	}
	if out == "" {
		out = export.Filename(time.Now(), format)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("results exported", zap.String("file", out), zap.Int("participants", len(results)))
	return nil
}

func exportWriter(format string) (func(io.Writer, []domain.Result) error, error) {
	switch format {
	case "csv":
		return export.WriteCSV, nil
	case "xlsx":
		return export.WriteXLSX, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
