package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/limitwatch/internal/domain"
)

func newExportCmd(app *app) *cobra.Command {
	flags := &historyFlags{}
	var format string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history records as CSV or Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "markdown" {
				return fmt.Errorf("%w: unknown export format %q (want csv or markdown)", domain.ErrInvalidInput, format)
			}

			filter, err := historyFilter(flags, app.now())
			if err != nil {
				return err
			}

			store, err := app.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.ErrOrStderr(), "No matching history records to export")
				return err
			}

			if outputPath == "" {
				return writeExport(cmd.OutOrStdout(), format, records, flags, app.now())
			}

			if err := exportToFile(outputPath, format, records, flags, app.now()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), outputPath)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or markdown")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&flags.last, "last", "", "Only records from the last window (e.g. 24h, 7d)")
	cmd.Flags().StringVar(&flags.since, "since", "", "Only records at or after this time")
	cmd.Flags().StringVar(&flags.until, "until", "", "Only records at or before this time")
	cmd.Flags().StringVarP(&flags.account, "account", "a", "", "Only this account ID")
	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "", "Only this provider")
	cmd.Flags().StringVarP(&flags.quota, "quota", "q", "", "Only this quota name")

	return cmd
}

func exportToFile(path, format string, records []domain.HistoryRecord, flags *historyFlags, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := writeExport(file, format, records, flags, now); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func writeExport(w io.Writer, format string, records []domain.HistoryRecord, flags *historyFlags, now time.Time) error {
	if format == "markdown" {
		return writeMarkdownExport(w, records, flags, now)
	}

	return writeCSVExport(w, records)
}

func writeCSVExport(w io.Writer, records []domain.HistoryRecord) error {
	writer := csv.NewWriter(w)

	header := []string{
		"timestamp", "account", "provider", "quota_name", "display_name",
		"remaining_pct", "used", "limit", "reset_at",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.Timestamp.UTC().Format(time.RFC3339),
			string(record.Account),
			string(record.Provider),
			record.QuotaName,
			record.DisplayName,
			csvFloat(record.RemainingPct),
			csvFloat(record.Used),
			csvFloat(record.Limit),
			csvTime(record.ResetAt),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func csvTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func writeMarkdownExport(w io.Writer, records []domain.HistoryRecord, flags *historyFlags, now time.Time) error {
	var b strings.Builder

	b.WriteString("# Quota History Export\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))

	if filterLines := exportFilterLines(flags); len(filterLines) > 0 {
		b.WriteString("## Filters\n\n")
		for _, line := range filterLines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Data\n\n")
	b.WriteString("| Timestamp | Account | Provider | Quota | Remaining % | Used | Limit |\n")
	b.WriteString("|-----------|---------|----------|-------|-------------|------|-------|\n")

	for _, record := range records {
		name := record.DisplayName
		if name == "" {
			name = record.QuotaName
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			record.Timestamp.UTC().Format("2006-01-02 15:04"),
			accountLocalPart(string(record.Account)),
			record.Provider,
			name,
			markdownPercent(record.RemainingPct),
			markdownCount(record.Used),
			markdownCount(record.Limit),
		)
	}

	fmt.Fprintf(&b, "\n*Total records: %d*\n", len(records))

	_, err := io.WriteString(w, b.String())
	return err
}

func exportFilterLines(flags *historyFlags) []string {
	var lines []string
	if flags.last != "" {
		lines = append(lines, "- Window: "+flags.last)
	}
	if flags.since != "" {
		lines = append(lines, "- Since: "+flags.since)
	}
	if flags.until != "" {
		lines = append(lines, "- Until: "+flags.until)
	}
	if flags.account != "" {
		lines = append(lines, "- Account: "+flags.account)
	}
	if flags.provider != "" {
		lines = append(lines, "- Provider: "+flags.provider)
	}
	if flags.quota != "" {
		lines = append(lines, "- Quota: "+flags.quota)
	}

	return lines
}

// accountLocalPart shortens email-shaped account IDs for the narrow table;
// key fingerprints and other opaque IDs pass through whole.
func accountLocalPart(account string) string {
	if local, _, found := strings.Cut(account, "@"); found && local != "" {
		return local
	}
	return account
}

func markdownPercent(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *value)
}

func markdownCount(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", *value)
}
