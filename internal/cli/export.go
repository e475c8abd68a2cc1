package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-miniapp/internal/config"
	"quiz-miniapp/internal/infra/export"
	"quiz-miniapp/internal/logging"
)

// NewExportCmd dumps every quiz and result from the configured storage.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quizzes and results as JSON or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *configPath, format, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func runExport(ctx context.Context, configPath, format, out string, stdout io.Writer) error {
	if format != "json" && format != "xlsx" {
		return fmt.Errorf("unknown export format %q", format)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	dump, err := b.service.Export(ctx)
	if err != nil {
		return err
	}

	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "xlsx":
		data, err := export.Workbook(dump)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	default:
		if err := export.WriteJSON(w, dump); err != nil {
			return err
		}
	}
	logger.Info("export written",
		zap.String("format", format),
		zap.Int("quizzes", len(dump.Quizzes)),
		zap.Int("results", len(dump.Results)))
	return nil
}
