package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	statusadapter "github.com/bnema/limitwatch/internal/adapters/render/status"
	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/domain"
)

type statusFlags struct {
	account  string
	provider string
	group    string
	output   string
	asJSON   bool
	showAll  bool
}

func addStatusFlags(cmd *cobra.Command) *statusFlags {
	flags := &statusFlags{}

	cmd.Flags().StringVarP(&flags.account, "account", "a", "", "Only this account (ID or alias)")
	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "", "Only accounts of this provider")
	cmd.Flags().StringVarP(&flags.group, "group", "g", "", "Only accounts in this group")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output format: json or yaml")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Shorthand for --output json")
	cmd.Flags().BoolVar(&flags.showAll, "show-all", false, "Include quotas hidden by default")

	return flags
}

func newStatusCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch and display quotas for all accounts",
		Args:  cobra.NoArgs,
	}

	flags := addStatusFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runStatus(cmd, app, flags)
	}

	return cmd
}

func runStatus(cmd *cobra.Command, app *app, flags *statusFlags) error {
	format, err := outputFormat(flags)
	if err != nil {
		return err
	}

	accounts, err := selectAccounts(cmd.Context(), app, application.Filter{
		Account:  flags.account,
		Provider: flags.provider,
		Group:    flags.group,
	})
	if err != nil {
		return err
	}

	var result *application.Result
	fetch := func(ctx context.Context) error {
		result, err = app.fetchAndRecord(ctx, cmd.ErrOrStderr(), accounts, flags.showAll)
		return err
	}

	if format != "" {
		if err := fetch(cmd.Context()); err != nil {
			return err
		}
	} else {
		if err := runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), fetch); err != nil {
			return err
		}
	}

	return writeResult(cmd, app, result, format)
}

func outputFormat(flags *statusFlags) (string, error) {
	if flags.asJSON {
		return "json", nil
	}

	switch flags.output {
	case "", "json", "yaml":
		return flags.output, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want json or yaml)", domain.ErrInvalidInput, flags.output)
	}
}

// selectAccounts narrows the configured accounts to the requested subset. An
// empty store and an over-narrow filter get distinct messages since only the
// former is fixed by logging in.
func selectAccounts(ctx context.Context, app *app, filter application.Filter) ([]domain.Account, error) {
	accounts, err := app.service.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w, run `lw login <provider>` first", domain.ErrNoAccounts)
	}

	selected, err := application.FilterAccounts(accounts, filter)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w match the given filters", domain.ErrNoAccounts)
	}

	return selected, nil
}

// fetchAndRecord runs one orchestrated fetch and appends the outcome to the
// history database. A history write failure downgrades to a warning; the
// fetched data is still worth showing.
func (a *app) fetchAndRecord(ctx context.Context, warn io.Writer, accounts []domain.Account, showAll bool) (*application.Result, error) {
	result, err := a.orchestrator.FetchQuotas(ctx, accounts, application.FetchOptions{
		ShowAll:     showAll,
		Timeout:     a.cfg.Fetch.Timeout,
		Concurrency: a.cfg.Fetch.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	if a.cfg.History.Enabled {
		if err := a.recordRun(ctx, result); err != nil {
			fmt.Fprintf(warn, "warning: history not recorded: %v\n", err)
		}
	}

	return result, nil
}

func (a *app) recordRun(ctx context.Context, result *application.Result) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.Record(ctx, historyRecords(result))
}

func historyRecords(result *application.Result) []domain.HistoryRecord {
	records := make([]domain.HistoryRecord, 0, len(result.Items))
	for _, item := range result.Items {
		records = append(records, domain.HistoryRecord{
			RunID:        result.RunID.String(),
			Account:      item.Account.ID,
			Provider:     item.Account.Kind,
			QuotaName:    quotaKey(item),
			DisplayName:  item.Label,
			RemainingPct: item.RemainingPercent(),
			Used:         item.Used,
			Limit:        item.Total,
			ResetAt:      item.ResetAt,
			Timestamp:    result.FetchedAt,
		})
	}

	return records
}

// quotaKey is the stable per-account quota name used for history dedup and
// filtering. Labels repeat across sources (one Google account reports the
// same model family from two surfaces), so the source qualifies the key.
func quotaKey(item domain.QuotaItem) string {
	if item.Source == "" || item.Source == string(item.Account.Kind) {
		return item.Label
	}

	return item.Source + "/" + item.Label
}

func writeResult(cmd *cobra.Command, app *app, result *application.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(application.BuildReport(result))
	case "yaml":
		data, err := yaml.Marshal(application.BuildReport(result))
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	rendered, err := app.statusRenderer(result, statusadapter.RenderOptions{
		Now:            app.now(),
		AlertThreshold: app.cfg.UI.AlertThreshold,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
