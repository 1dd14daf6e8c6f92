package main

import (
	"fmt"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/ledger"
	"github.com/Shlokpalrecha/Finguru/internal/storage"
	"github.com/spf13/cobra"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the GST ledger",
	}

	cmd.AddCommand(ledgerListCmd())
	cmd.AddCommand(ledgerShowCmd())
	cmd.AddCommand(ledgerDeleteCmd())
	cmd.AddCommand(ledgerSummaryCmd())
	cmd.AddCommand(ledgerInsightsCmd())

	return cmd
}

func ledgerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, _ := cmd.Flags().GetString("date")
			limit, _ := cmd.Flags().GetInt("limit")
			if _, err := parseDate("date", date); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.ledger.Query(cmd.Context(), date, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No ledger entries."))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.EntryTable(entries))
			return err
		},
	}

	cmd.Flags().String("date", "", "only entries for this date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", storage.DefaultListLimit, fmt.Sprintf("maximum entries to show (at most %d)", storage.MaxListLimit))

	return cmd
}

func ledgerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			entry, err := a.ledger.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entry == nil {
				return notFound("ledger entry", args[0])
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.Entry(*entry))
			return err
		},
	}
}

func ledgerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ledger.Delete(cmd.Context(), args[0]); err != nil {
				if isNotFound(err) {
					return notFound("ledger entry", args[0])
				}
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+args[0]))
			return err
		},
	}
}

func ledgerSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending and GST for a day or a date range",
		Long: `Summarize spending and GST by category.

With --date (default today) the summary covers one day. With --from and
--to it covers the inclusive range and also breaks spending down by source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, _ := cmd.Flags().GetString("date")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			for flag, value := range map[string]string{"date": date, "from": from, "to": to} {
				if _, err := parseDate(flag, value); err != nil {
					return err
				}
			}
			ranged := from != "" || to != ""
			if ranged && date != "" {
				return common.NewUserError("Use either --date or --from/--to, not both.", common.ErrInvalidInput)
			}
			if ranged && (from == "" || to == "") {
				return common.NewUserError("--from and --to must be given together.", common.ErrInvalidInput)
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			if ranged {
				s, err := a.ledger.SummaryRange(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), s)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.RangeSummary(s))
				return err
			}

			s, err := a.ledger.Summary(cmd.Context(), date)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.Summary(s))
			return err
		},
	}

	cmd.Flags().String("date", "", "day to summarize (YYYY-MM-DD), default today")
	cmd.Flags().String("from", "", "range start (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "range end (YYYY-MM-DD)")

	return cmd
}

func ledgerInsightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show spending patterns and GST tips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, _ := cmd.Flags().GetInt("window")

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			in, err := a.ledger.Insights(cmd.Context(), window)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), in)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.Insight(in))
			return err
		},
	}

	cmd.Flags().Int("window", ledger.DefaultInsightWindow, "number of recent entries to analyze")

	return cmd
}
