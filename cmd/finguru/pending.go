package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/tui"
	"github.com/spf13/cobra"
)

func pendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Work with entries awaiting confirmation",
	}

	cmd.AddCommand(pendingListCmd())
	cmd.AddCommand(pendingShowCmd())
	cmd.AddCommand(pendingDiscardCmd())
	cmd.AddCommand(pendingReviewCmd())

	return cmd
}

func pendingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entries awaiting confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.pending.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing is awaiting confirmation."))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderPendingList(a.formatter, list, time.Now()))
			return err
		},
	}
}

func pendingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one entry awaiting confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.pending.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), d)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.formatter.Pending(*d))
			return err
		},
	}
}

func pendingDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard ID",
		Short: "Discard an entry awaiting confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.resolver.Reject(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Discarded "+args[0]))
			return err
		},
	}
}

func pendingReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review entries awaiting confirmation one by one",
		Long: `Walk through every entry awaiting confirmation. Each can be accepted,
corrected (category or amount), discarded, or skipped for later.

The interactive screen is used by default; --plain uses line prompts.`,
		Args: cobra.NoArgs,
		RunE: runPendingReview,
	}

	cmd.Flags().Bool("plain", false, "use line prompts instead of the interactive screen")

	return cmd
}

func runPendingReview(cmd *cobra.Command, _ []string) error {
	plain, _ := cmd.Flags().GetBool("plain")

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.pending.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing is awaiting confirmation."))
		return err
	}

	cats := a.specs.Current().Categories()
	if !plain && stdinIsTerminal() {
		stats, err := tui.Run(cmd.Context(), tui.Config{
			Resolver:   a.resolver,
			Logger:     a.logger,
			Pending:    list,
			Categories: cats,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		_, werr := fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
		return werr
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Entries confirmed so far are kept.")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), cats)
	err = reviewPlain(ctx, cmd.OutOrStdout(), a, prompter, list)
	prompter.ShowCompletion()
	if handler.WasInterrupted() || errors.Is(err, cli.ErrInputTerminated) {
		return nil
	}
	return err
}

func reviewPlain(ctx context.Context, w io.Writer, a *app, p *cli.Prompter, list []model.PendingDecision) error {
	for _, d := range list {
		res, err := p.Review(ctx, d)
		if err != nil {
			return err
		}

		switch res.Action {
		case cli.ActionConfirm:
			entry, err := a.resolver.Confirm(ctx, res.Request)
			if err != nil {
				fmt.Fprintln(w, cli.FormatError(common.UserMessage(err)))
				continue
			}
			fmt.Fprintln(w, a.formatter.Entry(*entry))
		case cli.ActionDiscard:
			if err := a.resolver.Reject(ctx, d.TransactionID); err != nil {
				fmt.Fprintln(w, cli.FormatError(common.UserMessage(err)))
			}
		case cli.ActionSkip:
		}
	}
	return nil
}

func renderPendingList(f *cli.Formatter, list []model.PendingDecision, now time.Time) string {
	title := cli.FormatTitle(fmt.Sprintf("%d awaiting confirmation", len(list)))
	return title + "\n" + f.PendingTable(list, now)
}

func renderStats(stats cli.ReviewStats) string {
	summary := fmt.Sprintf("  • Reviewed: %d\n", stats.Reviewed) +
		fmt.Sprintf("  • Confirmed: %d (%d corrected)\n", stats.Confirmed, stats.Corrected) +
		fmt.Sprintf("  • Discarded: %d\n", stats.Discarded) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s", stats.Duration.Round(time.Second))
	return cli.RenderBox("Review Complete", summary)
}

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm ID",
		Short: "Confirm an entry awaiting confirmation",
		Long: `Confirm a held entry and record it in the ledger, optionally correcting
the category or the amount. GST is recalculated from the final values.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfirm,
	}

	cmd.Flags().Float64("amount", 0, "corrected amount in rupees")
	cmd.Flags().String("category", "", "corrected category key")

	return cmd
}

func runConfirm(cmd *cobra.Command, args []string) error {
	req := confirm.Request{TransactionID: args[0]}
	if cmd.Flags().Changed("amount") {
		amount, _ := cmd.Flags().GetFloat64("amount")
		req.ConfirmedAmount = &amount
	}
	if cmd.Flags().Changed("category") {
		category, _ := cmd.Flags().GetString("category")
		category = strings.TrimSpace(category)
		req.ConfirmedCategory = &category
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.resolver.Confirm(cmd.Context(), req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), entry)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", cli.FormatSuccess("Confirmed"), a.formatter.Entry(*entry))
	return err
}

// stdinIsTerminal reports whether stdin looks interactive.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
