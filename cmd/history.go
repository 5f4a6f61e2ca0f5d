package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bnema/limitwatch/internal/adapters/history"
	"github.com/bnema/limitwatch/internal/domain"
)

type historyFlags struct {
	last      string
	since     string
	until     string
	account   string
	provider  string
	quota     string
	aggregate bool
	info      bool
}

func newHistoryCmd(app *app) *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded quota history",
		Long: "Show quota observations recorded by earlier fetches.\n\n" +
			"Time windows accept relative forms (24h, 7d, 30d), plain dates\n" +
			"(2026-01-31), and RFC 3339 timestamps.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.last, "last", "", "Only records from the last window (e.g. 24h, 7d)")
	cmd.Flags().StringVar(&flags.since, "since", "", "Only records at or after this time")
	cmd.Flags().StringVar(&flags.until, "until", "", "Only records at or before this time")
	cmd.Flags().StringVarP(&flags.account, "account", "a", "", "Only this account ID")
	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "", "Only this provider")
	cmd.Flags().StringVarP(&flags.quota, "quota", "q", "", "Only this quota name")
	cmd.Flags().BoolVar(&flags.aggregate, "aggregate", false, "Summarize min/avg/max per quota instead of listing rows")
	cmd.Flags().BoolVar(&flags.info, "info", false, "Show database path, record count, and coverage")

	cmd.AddCommand(newHistoryPurgeCmd(app))

	return cmd
}

func runHistory(cmd *cobra.Command, app *app, flags *historyFlags) error {
	store, err := app.openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if flags.info {
		info, err := store.Info(cmd.Context())
		if err != nil {
			return err
		}
		return writeHistoryInfo(cmd, info)
	}

	filter, err := historyFilter(flags, app.now())
	if err != nil {
		return err
	}

	if flags.aggregate {
		aggregates, err := store.Aggregate(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return writeHistoryAggregates(cmd, aggregates)
	}

	records, err := store.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return writeHistoryRecords(cmd, records)
}

func historyFilter(flags *historyFlags, now time.Time) (domain.HistoryFilter, error) {
	filter := domain.HistoryFilter{
		Account: flags.account,
		Quota:   flags.quota,
	}

	if flags.provider != "" {
		kind, err := domain.ParseProviderKind(flags.provider)
		if err != nil {
			return domain.HistoryFilter{}, err
		}
		filter.Provider = kind
	}

	since := flags.since
	if flags.last != "" {
		if since != "" {
			return domain.HistoryFilter{}, fmt.Errorf("%w: --last and --since are mutually exclusive", domain.ErrInvalidInput)
		}
		since = flags.last
	}
	if since != "" {
		parsed, err := history.ParseSince(since, now)
		if err != nil {
			return domain.HistoryFilter{}, err
		}
		filter.Since = parsed
	}
	if flags.until != "" {
		parsed, err := history.ParseSince(flags.until, now)
		if err != nil {
			return domain.HistoryFilter{}, err
		}
		filter.Until = parsed
	}

	return filter, nil
}

func newHistoryTable(headers ...string) *table.Table {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.ASCIIBorder()).
		StyleFunc(func(_, _ int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func writeHistoryRecords(cmd *cobra.Command, records []domain.HistoryRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No matching history records")
		return err
	}

	t := newHistoryTable("TIME", "PROVIDER", "ACCOUNT", "QUOTA", "READING")
	for _, record := range records {
		t.Row(
			record.Timestamp.UTC().Format("2006-01-02 15:04"),
			string(record.Provider),
			string(record.Account),
			record.QuotaName,
			historyReading(record),
		)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), t)
	return err
}

func historyReading(record domain.HistoryRecord) string {
	if record.RemainingPct != nil {
		return fmt.Sprintf("%.1f%% left", *record.RemainingPct)
	}
	if record.Used != nil && record.Limit != nil {
		return fmt.Sprintf("%.2f of %.2f used", *record.Used, *record.Limit)
	}
	if record.Used != nil {
		return fmt.Sprintf("%.2f used", *record.Used)
	}

	return "-"
}

func writeHistoryAggregates(cmd *cobra.Command, aggregates []domain.HistoryAggregate) error {
	if len(aggregates) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No matching history records")
		return err
	}

	t := newHistoryTable("PROVIDER", "ACCOUNT", "QUOTA", "SAMPLES", "MIN", "AVG", "MAX")
	for _, agg := range aggregates {
		t.Row(
			string(agg.Provider),
			string(agg.Account),
			agg.QuotaName,
			strconv.FormatInt(agg.Samples, 10),
			fmt.Sprintf("%.1f%%", agg.MinRemaining),
			fmt.Sprintf("%.1f%%", agg.AvgRemaining),
			fmt.Sprintf("%.1f%%", agg.MaxRemaining),
		)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), t)
	return err
}

func writeHistoryInfo(cmd *cobra.Command, info domain.HistoryInfo) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "path: %s\n", info.Path)
	fmt.Fprintf(out, "records: %d\n", info.Records)
	if info.Records > 0 {
		fmt.Fprintf(out, "range: %s to %s\n",
			info.Oldest.UTC().Format("2006-01-02 15:04"),
			info.Newest.UTC().Format("2006-01-02 15:04"),
		)
	}
	if len(info.Accounts) > 0 {
		fmt.Fprintf(out, "accounts: %s\n", strings.Join(info.Accounts, ", "))
	}
	if len(info.Providers) > 0 {
		fmt.Fprintf(out, "providers: %s\n", strings.Join(info.Providers, ", "))
	}

	return nil
}

func newHistoryPurgeCmd(app *app) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete history records older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cutoff, err := history.ParseSince(before, app.now())
			if err != nil {
				return err
			}

			store, err := app.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			purged, err := store.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d records older than %s\n",
				purged, cutoff.Format("2006-01-02 15:04"))
			return err
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Cutoff window or time (e.g. 30d, 2026-01-31)")
	_ = cmd.MarkFlagRequired("before")

	return cmd
}
