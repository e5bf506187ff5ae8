package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/app"
	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/meta"
	"github.com/newthinker/edgeval/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type validateFlags struct {
	symbols  []string
	from     string
	to       string
	holdDays int
	seed     uint64
	source   string
	output   string
	save     bool
	review   bool
	notify   bool
	timeout  time.Duration
}

var vf validateFlags

var validateCmd = &cobra.Command{
	Use:   "validate [strategy]",
	Short: "Validate a strategy's edge against random entry timing",
	Long: `Run a strategy over historical data for the given symbols and test whether
its trades beat random entries. Prints a summary by default; --output json
writes the full report to stdout and any other value is taken as a file path.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringSliceVar(&vf.symbols, "symbols", nil, "Comma-separated symbols (required)")
	f.StringVar(&vf.from, "from", "", "Start date YYYY-MM-DD (required)")
	f.StringVar(&vf.to, "to", "", "End date YYYY-MM-DD (required)")
	f.IntVar(&vf.holdDays, "hold-days", 0, "Trading days to hold each position (default from config)")
	f.Uint64Var(&vf.seed, "seed", 0, "Random seed for reproducible runs")
	f.StringVar(&vf.source, "source", "", "Price source (yahoo or csv; default from config)")
	f.StringVarP(&vf.output, "output", "o", "text", "text, json, or a file path for the JSON report")
	f.BoolVar(&vf.save, "save", false, "Archive the report to configured storage")
	f.BoolVar(&vf.review, "review", false, "Ask the configured LLM to review the report")
	f.BoolVar(&vf.notify, "notify", false, "Send the verdict to the configured notifiers")
	f.DurationVar(&vf.timeout, "timeout", 10*time.Minute, "Overall time limit")

	validateCmd.MarkFlagRequired("symbols")
	validateCmd.MarkFlagRequired("from")
	validateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(validateCmd)
}

// buildRequest turns command-line input into an app.Request
func buildRequest(strategy string, f validateFlags, seedSet bool) (app.Request, error) {
	// Parse from date
	start, err := time.Parse(dateLayout, f.from)
	if err != nil {
		return app.Request{}, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}

	// Parse to date
	end, err := time.Parse(dateLayout, f.to)
	if err != nil {
		return app.Request{}, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}

	// Validate date range
	if !end.After(start) {
		return app.Request{}, fmt.Errorf("end date must be after start date")
	}
	if f.holdDays < 0 {
		return app.Request{}, fmt.Errorf("hold-days must not be negative")
	}

	var symbols []string
	for _, s := range f.symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	if len(symbols) == 0 {
		return app.Request{}, fmt.Errorf("at least one symbol is required")
	}

	req := app.Request{
		Strategy: strategy,
		Symbols:  symbols,
		Start:    start,
		End:      end,
		Source:   f.source,
		HoldDays: f.holdDays,
	}
	if seedSet {
		seed := f.seed
		req.Seed = &seed
	}
	return req, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], vf, cmd.Flags().Changed("seed"))
	if err != nil {
		return err
	}

	a, log, err := newApp()
	defer log.Sync()
	if err != nil {
		return err
	}
	if vf.review && !a.CanReview() {
		return fmt.Errorf("--review needs llm.provider set in the config")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), vf.timeout)
	defer cancel()

	rpt, err := a.Validate(ctx, req)
	if errors.Is(err, core.ErrInsufficientSignals) {
		fmt.Fprintf(cmd.ErrOrStderr(), "INSUFFICIENT DATA: %v\n", err)
		return err
	}
	if err != nil {
		return err
	}

	var rv *meta.Review
	if vf.review {
		if rv, err = a.Review(ctx, rpt); err != nil {
			log.Warn("review failed", zap.Error(err))
		}
	}

	if err := writeOutput(cmd.OutOrStdout(), vf.output, rpt, rv); err != nil {
		return err
	}

	var key string
	if vf.save {
		if key, err = a.SaveReport(ctx, rpt); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report saved: %s\n", key)
	}
	if vf.notify {
		if a.Notifiers().Len() == 0 {
			log.Warn("--notify given but no notifiers are enabled")
		}
		a.Notify(ctx, rpt, key)
	}
	return nil
}

// writeOutput renders the report as a summary, as JSON on out, or as JSON in a file
func writeOutput(out io.Writer, output string, rpt *backtest.Report, rv *meta.Review) error {
	switch output {
	case "", "text":
		if err := report.WriteSummary(out, rpt); err != nil {
			return err
		}
		if rv != nil {
			fmt.Fprintf(out, "\nReview (%s): %s\n", rv.Recommendation, rv.Summary)
			for _, c := range rv.Concerns {
				fmt.Fprintf(out, "  - %s\n", c)
			}
		}
		return nil
	case "json":
		return encodeJSON(out, rpt, rv)
	default:
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		if err := encodeJSON(f, rpt, rv); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return report.WriteSummary(out, rpt)
	}
}

func encodeJSON(w io.Writer, rpt *backtest.Report, rv *meta.Review) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if rv == nil {
		return enc.Encode(rpt)
	}
	return enc.Encode(struct {
		*backtest.Report
		Review *meta.Review `json:"review"`
	}{rpt, rv})
}
