package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/engine"
	"github.com/Shlokpalrecha/Finguru/internal/gate"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Record an expense from receipt text",
		Long: `Record an expense from the OCR text of a receipt.

The text is read from --text, from --file, or from stdin with --file -.
Values your scanner already picked out can be passed as hints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, model.SourceReceipt)
		},
	}

	addSignalFlags(cmd)
	cmd.Flags().String("vendor", "", "vendor name printed on the receipt")
	cmd.Flags().String("gstin", "", "vendor GSTIN")
	cmd.Flags().Float64("amount-hint", 0, "total amount read by the scanner")
	cmd.Flags().Float64("ocr-confidence", 0, "scanner confidence between 0 and 1")

	return cmd
}

func voiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Record an expense from a voice note transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, model.SourceVoice)
		},
	}

	addSignalFlags(cmd)
	cmd.Flags().Float64("stt-confidence", 0, "transcription confidence between 0 and 1")

	return cmd
}

func addSignalFlags(cmd *cobra.Command) {
	cmd.Flags().String("text", "", "raw text of the expense")
	cmd.Flags().String("file", "", "file containing the raw text, - for stdin")
	cmd.Flags().String("date", "", "expense date (YYYY-MM-DD), default today")
}

func runRecord(cmd *cobra.Command, source model.Source) error {
	sig, err := signalFromFlags(cmd, source)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	outcome, err := a.engine.Process(cmd.Context(), sig)
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), a.formatter, outcome)
}

func signalFromFlags(cmd *cobra.Command, source model.Source) (model.Signal, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	date, _ := cmd.Flags().GetString("date")

	raw, err := readText(cmd.InOrStdin(), text, file)
	if err != nil {
		return model.Signal{}, err
	}
	if _, err := parseDate("date", date); err != nil {
		return model.Signal{}, err
	}

	var sig model.Signal
	switch source {
	case model.SourceReceipt:
		r := service.ReceiptExtraction{RawText: raw, Date: date}
		r.VendorName, _ = cmd.Flags().GetString("vendor")
		r.VendorGSTIN, _ = cmd.Flags().GetString("gstin")
		r.Total, _ = cmd.Flags().GetFloat64("amount-hint")
		r.Confidence, _ = cmd.Flags().GetFloat64("ocr-confidence")
		sig = r.Signal()
	case model.SourceVoice:
		tr := service.Transcription{Text: raw}
		tr.Confidence, _ = cmd.Flags().GetFloat64("stt-confidence")
		sig = tr.Signal()
		sig.Date = date
	default:
		sig = model.Signal{Source: source, RawText: raw, Date: date}
	}

	if sig.SourceConfidence < 0 || sig.SourceConfidence > 1 {
		return model.Signal{}, common.NewUserError("Confidence must be between 0 and 1.",
			fmt.Errorf("%w: source confidence %v", common.ErrInvalidInput, sig.SourceConfidence))
	}
	if sig.AmountHint < 0 {
		return model.Signal{}, common.NewUserError("The amount hint cannot be negative.",
			fmt.Errorf("%w: amount hint %v", common.ErrInvalidInput, sig.AmountHint))
	}
	return sig, nil
}

func readText(stdin io.Reader, text, file string) (string, error) {
	switch {
	case text != "" && file != "":
		return "", common.NewUserError("Use either --text or --file, not both.", common.ErrInvalidInput)
	case text != "":
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	case file != "":
		data, err := os.ReadFile(file) // #nosec G304
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.NewUserError("Nothing to record. Pass --text or --file.", common.ErrInvalidInput)
	}
	return text, nil
}

func printOutcome(w io.Writer, f *cli.Formatter, outcome *gate.Outcome) error {
	if jsonOutput {
		return printJSON(w, outcome)
	}

	var err error
	switch {
	case outcome.Entry != nil && outcome.Created:
		_, err = fmt.Fprintf(w, "%s\n%s\n", cli.FormatSuccess("Recorded"), f.Entry(*outcome.Entry))
	case outcome.Entry != nil:
		_, err = fmt.Fprintf(w, "%s\n%s\n", cli.FormatInfo("Already recorded"), f.Entry(*outcome.Entry))
	case outcome.Pending != nil:
		_, err = fmt.Fprintf(w, "%s\n%s\n%s\n",
			cli.FormatWarning("Held for confirmation: "+outcome.Decision.Reason),
			f.Pending(*outcome.Pending),
			cli.FormatInfo(fmt.Sprintf("Run 'finguru confirm %s' or 'finguru pending review'.", outcome.Pending.TransactionID)))
	}
	return err
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest DIR",
		Short: "Record every *.txt file in a directory",
		Long: `Record a batch of expenses, one per *.txt file in DIR.

Files are processed concurrently (ingest.workers). A failed file does not
stop the batch; failures are listed at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("source", string(model.SourceReceipt), "signal source (receipt, voice)")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	sourceFlag, _ := cmd.Flags().GetString("source")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	source, err := model.ParseSource(sourceFlag)
	if err != nil {
		return common.NewUserError("--source must be receipt or voice.", err)
	}

	files, err := filepath.Glob(filepath.Join(args[0], "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", args[0], err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return common.NewUserError(fmt.Sprintf("No .txt files found in %s.", args[0]), common.ErrInvalidInput)
	}

	signals := make([]model.Signal, 0, len(files))
	names := make([]string, 0, len(files))
	for _, file := range files {
		raw, err := readText(nil, "", file)
		if err != nil {
			msg := fmt.Sprintf("Skipping %s: %s", filepath.Base(file), common.UserMessage(err))
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(msg))
			continue
		}
		signals = append(signals, model.Signal{Source: source, RawText: raw})
		names = append(names, filepath.Base(file))
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Entries recorded so far are kept.")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	var bar *progressbar.ProgressBar
	if !noProgress && !jsonOutput {
		bar = progressbar.NewOptions(len(signals),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription(cli.ReceiptIcon+" Ingesting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := a.engine.ProcessBatch(ctx, signals, func(engine.BatchResult) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), ingestReport(names, results))
	}
	return printIngest(cmd.OutOrStdout(), names, results)
}

type ingestItem struct {
	Outcome *gate.Outcome `json:"outcome,omitempty"`
	File    string        `json:"file"`
	Error   string        `json:"error,omitempty"`
}

func ingestReport(names []string, results []engine.BatchResult) []ingestItem {
	items := make([]ingestItem, len(results))
	for i, r := range results {
		items[i] = ingestItem{File: names[r.Index], Outcome: r.Outcome}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	return items
}

func printIngest(w io.Writer, names []string, results []engine.BatchResult) error {
	var committed, held, failed int
	var failures strings.Builder
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(&failures, "  • %s: %s\n", names[r.Index], common.UserMessage(r.Err))
		case r.Outcome.Pending != nil:
			held++
		default:
			committed++
		}
	}

	summary := fmt.Sprintf("  • Recorded: %d\n", committed) +
		fmt.Sprintf("  • Awaiting confirmation: %d\n", held) +
		fmt.Sprintf("  • Failed: %d", failed)
	if _, err := fmt.Fprintln(w, cli.RenderBox("Ingest Complete", summary)); err != nil {
		return err
	}
	if failed > 0 {
		if _, err := fmt.Fprintf(w, "%s\n%s", cli.FormatError("Failed files:"), failures.String()); err != nil {
			return err
		}
	}
	if held > 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("Run 'finguru pending review' to confirm held entries."))
		return err
	}
	return nil
}
