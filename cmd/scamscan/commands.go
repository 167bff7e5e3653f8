package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/honeypot/internal/detect"
	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/patterns"
)

type options struct {
	patternsFile string
	history      []string
	pretty       bool
}

// scoreOutput extends the score with tactic labels.
type scoreOutput struct {
	domain.ScoreResult
	Tactics []string `json:"tactics"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "scamscan",
		Short:         "Score and extract scam indicators from text",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.patternsFile, "patterns", "", "YAML file overriding the built-in keyword tables")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	score := &cobra.Command{
		Use:   "score [text]",
		Short: "Score a message for fraud likelihood (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, text, err := prepare(cmd, opts, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), opts.pretty, scoreOutput{
				ScoreResult: engine.Score(text, opts.history),
				Tactics:     nonNil(engine.Tactics(text)),
			})
		},
	}
	score.Flags().StringArrayVar(&opts.history, "history", nil, "prior message text; repeat for each message")

	extract := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract accounts, UPI IDs, links, phone numbers and keywords (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, text, err := prepare(cmd, opts, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), opts.pretty, engine.Extract(text))
		},
	}

	root.AddCommand(score, extract)
	return root
}

func prepare(cmd *cobra.Command, opts *options, args []string) (*detect.Engine, string, error) {
	lib, err := patterns.Load(opts.patternsFile)
	if err != nil {
		return nil, "", err
	}
	text, err := inputText(cmd.InOrStdin(), args)
	if err != nil {
		return nil, "", err
	}
	return detect.NewEngine(lib), text, nil
}

// inputText joins args, or reads all of in when there are none.
func inputText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no text given: pass it as arguments or on stdin")
	}
	return text, nil
}

func writeJSON(w io.Writer, pretty bool, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
