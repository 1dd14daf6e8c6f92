package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// ErrInputTerminated is returned when input ends mid-review.
var ErrInputTerminated = errors.New("input terminated")

// ErrInvalidAmount is returned by ParseAmount for non-positive or malformed input.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a user-entered rupee amount such as "₹1,250.50".
func ParseAmount(input string) (float64, error) {
	input = strings.NewReplacer("₹", "", ",", "").Replace(input)
	amount, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || !(amount > 0) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return amount, nil
}

// Action is what the reviewer decided for one pending decision.
type Action string

// Review actions.
const (
	ActionConfirm Action = "confirm"
	ActionDiscard Action = "discard"
	ActionSkip    Action = "skip"
)

// Resolution is the outcome of reviewing one pending decision. Request is
// set for ActionConfirm.
type Resolution struct {
	Request confirm.Request
	Action  Action
}

// ReviewStats counts a review session's decisions.
type ReviewStats struct {
	Duration  time.Duration
	Reviewed  int
	Confirmed int
	Corrected int
	Discarded int
	Skipped   int
}

// Prompter walks a reviewer through pending decisions on a line terminal.
type Prompter struct {
	startTime  time.Time
	writer     io.Writer
	reader     *LineReader
	formatter  *Formatter
	categories []model.ExpenseCategory
	stats      ReviewStats
	mu         sync.Mutex
}

// NewPrompter creates a prompter offering cats as corrections.
func NewPrompter(reader io.Reader, writer io.Writer, cats []model.ExpenseCategory) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader:     NewLineReader(reader),
		writer:     writer,
		formatter:  NewFormatter(cats),
		categories: cats,
		startTime:  time.Now(),
	}
}

// Review shows d and asks what to do with it. Category and amount corrections
// can be combined before accepting.
func (p *Prompter) Review(ctx context.Context, d model.PendingDecision) (Resolution, error) {
	if _, err := fmt.Fprintln(p.writer, p.formatter.Pending(d)); err != nil {
		return Resolution{}, fmt.Errorf("failed to write pending decision: %w", err)
	}

	var (
		category = d.Record.Category
		amount   = d.Record.Amount
		req      = confirm.Request{TransactionID: d.TransactionID}
	)

	for {
		p.printf("  [A] Accept as %s at %s\n", SuccessStyle.Render(p.formatter.Label(category)), FormatAmount(amount))
		p.printf("  [C] Change category\n")
		p.printf("  [M] Change amount\n")
		p.printf("  [D] Discard\n")
		p.printf("  [S] Skip for now\n\n")

		choice, err := p.promptChoice(ctx, "Choice", []string{"a", "c", "m", "d", "s"})
		if err != nil {
			return Resolution{}, err
		}

		switch choice {
		case "a":
			p.record(func(s *ReviewStats) {
				s.Confirmed++
				if req.ConfirmedAmount != nil || req.ConfirmedCategory != nil {
					s.Corrected++
				}
			})
			return Resolution{Action: ActionConfirm, Request: req}, nil
		case "c":
			key, err := p.promptCategory(ctx)
			if err != nil {
				return Resolution{}, err
			}
			category = key
			req.ConfirmedCategory = &key
		case "m":
			value, err := p.promptAmount(ctx)
			if err != nil {
				return Resolution{}, err
			}
			amount = value
			req.ConfirmedAmount = &value
		case "d":
			p.record(func(s *ReviewStats) { s.Discarded++ })
			return Resolution{Action: ActionDiscard}, nil
		case "s":
			p.record(func(s *ReviewStats) { s.Skipped++ })
			return Resolution{Action: ActionSkip}, nil
		}
	}
}

// Stats returns the session's counts so far.
func (p *Prompter) Stats() ReviewStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

// ShowCompletion prints the session summary.
func (p *Prompter) ShowCompletion() {
	stats := p.Stats()
	summary := fmt.Sprintf("  • Reviewed: %d\n", stats.Reviewed) +
		fmt.Sprintf("  • Confirmed: %d (%d corrected)\n", stats.Confirmed, stats.Corrected) +
		fmt.Sprintf("  • Discarded: %d\n", stats.Discarded) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Review Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (p *Prompter) record(fn func(*ReviewStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Reviewed++
	fn(&p.stats)
}

func (p *Prompter) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(p.writer, format, args...); err != nil {
		slog.Warn("Failed to write prompt", "error", err)
	}
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputTerminated
	}
	return line, err
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		p.printf("%s", FormatPrompt(prompt))

		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}
		p.printf("%s\n", FormatError("Invalid choice. Please try again."))
	}
}

// promptCategory accepts a list number or a category key.
func (p *Prompter) promptCategory(ctx context.Context) (string, error) {
	p.printf("\n")
	for i, c := range p.categories {
		p.printf("  %2d. %s %s\n", i+1, c.DisplayName, SubtleStyle.Render(fmt.Sprintf("(%s, %g%% GST)", c.Key, c.GSTRate)))
	}
	p.printf("\n")

	for {
		p.printf("%s", FormatPrompt("Category"))
		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(p.categories) {
			return p.categories[n-1].Key, nil
		}
		key := strings.ToLower(input)
		for _, c := range p.categories {
			if c.Key == key {
				return key, nil
			}
		}
		p.printf("%s\n", FormatError("Unknown category. Enter a number or key from the list."))
	}
}

func (p *Prompter) promptAmount(ctx context.Context) (float64, error) {
	for {
		p.printf("%s", FormatPrompt("Amount (₹)"))
		input, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}

		if amount, err := ParseAmount(input); err == nil {
			return amount, nil
		}
		p.printf("%s\n", FormatError("Enter a positive amount, e.g. 450 or 1,250.50."))
	}
}
