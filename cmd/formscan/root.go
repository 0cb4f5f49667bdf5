package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"formscan/internal/app"
	"formscan/internal/domain"
	"formscan/internal/export"
	"formscan/internal/service"
)

// opener builds the wired application for a command invocation.
type opener func(ctx context.Context) (*app.App, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "formscan",
		Short: "Extract structured data from photographed military supply forms",
		Long: `formscan classifies a photographed supply form (DA 2062 hand receipt,
DA 3161 request for issue or turn-in, equipment record, or anything else),
extracts its fields with a vision model, and reports normalized data with
validation issues and confidence scores.

Examples:
  formscan scan receipt.jpg
  formscan scan receipt.jpg --form-type HAND_RECEIPT --save
  formscan export --format xlsx --out scans.xlsx
  formscan migrate-legacy --from old_scans.json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScanCmd(open), newExportCmd(open), newMigrateLegacyCmd(open))
	return root
}

func newScanCmd(open opener) *cobra.Command {
	var (
		formType string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Scan one form image and print the extraction result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			input := service.ScanInput{Image: data, FileName: filepath.Base(args[0])}
			if formType != "" {
				input.FormType = domain.FormType(strings.ToUpper(formType))
				if !input.FormType.Valid() {
					return fmt.Errorf("%w: %q", domain.ErrUnknownFormType, formType)
				}
			}

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var out any
			if save {
				rec, err := a.Scans.Scan(cmd.Context(), input)
				if err != nil {
					return err
				}
				out = rec
			} else {
				out = a.Scans.Process(cmd.Context(), input)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&formType, "form-type", "", "skip classification and extract as this form type")
	cmd.Flags().BoolVar(&save, "save", false, "upload the image and save the record to the configured storage")
	return cmd
}

func newExportCmd(open opener) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all saved scans as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.BuildFilename("formscan_scans", f, time.Now())
			}

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := a.RecordsSvc.Export(cmd.Context(), f, file); err != nil {
				_ = file.Close()
				_ = os.Remove(out)
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(domain.ExportFormatCSV), "export format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default formscan_scans_<date>.<format>)")
	return cmd
}

func newMigrateLegacyCmd(open opener) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Import flat scans saved by the previous app version",
		Long: `Import flat scans saved by the previous app version.

Without --from, rows in the legacy_scans table of the local SQLite database
are converted, backed up to legacy_scans_backup and cleared. The migration
runs once; later runs report zero. With --from, a JSON array of legacy scans
is imported into whichever storage is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var src io.Reader
			if from != "" {
				f, err := os.Open(from)
				if err != nil {
					return fmt.Errorf("opening %s: %w", from, err)
				}
				defer f.Close()
				src = f
			}

			n, err := a.MigrateLegacy(cmd.Context(), src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d legacy scans\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "JSON file with legacy scans")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
