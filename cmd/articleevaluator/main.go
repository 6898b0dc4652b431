package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ArticlesEvaluator/internal/app"
	"ArticlesEvaluator/internal/config"
	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/logging"
	"ArticlesEvaluator/internal/table"
	"ArticlesEvaluator/internal/verdict"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)
	defer application.Close()

	if err := newRootCommand(application).ExecuteContext(context.Background()); err != nil {
		logger.Error("application stopped", "error", err)
		_ = application.Close()
		os.Exit(1)
	}
}

func newRootCommand(application *app.Application) *cobra.Command {
	root := &cobra.Command{
		Use:           "articleevaluator",
		Short:         "Evaluate AP articles against a fixed rubric with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newEvaluateCommand(application),
		newEvaluateArticleCommand(application),
		newServeCommand(application),
		newValidateCommand(application),
	)
	return root
}

func newEvaluateCommand(application *app.Application) *cobra.Command {
	var opts app.EvaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a range of rows and write the result table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pause := make(chan struct{}, 1)
			opts.Pause = pause
			stopSignals := watchInterrupts(cancel, pause)
			defer stopSignals()

			status, err := application.Evaluate(ctx, opts)
			if status.RunID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d processed, %d failed, progress %.0f%%\n",
				status.RunID, status.State, status.Processed, status.Failed, status.Progress*100)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input table (.csv or .html)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", table.DefaultExportName, "output CSV path")
	cmd.Flags().StringVar(&opts.Course, "course", "", "AP course name (defaults to config)")
	cmd.Flags().StringVar(&opts.Credential, "api-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY)")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "first row index")
	cmd.Flags().IntVar(&opts.End, "end", -1, "last row index, inclusive (-1 for the last row)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newEvaluateArticleCommand(application *app.Application) *cobra.Command {
	var (
		fields             [6]string
		course, credential string
	)
	names := [6]string{"topic", "themes", "objectives", "key-concepts", "article", "questions"}

	cmd := &cobra.Command{
		Use:   "evaluate-article",
		Short: "Evaluate one article and print every decoded verdict",
		Long:  "Evaluate one article. Any field may be given as @path to read it from a file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var values [6]string
			for i, raw := range fields {
				value, err := fieldValue(raw)
				if err != nil {
					return fmt.Errorf("--%s: %w", names[i], err)
				}
				values[i] = value
			}
			record := domain.ArticleRecord{
				Topic:       values[0],
				Themes:      values[1],
				Objectives:  values[2],
				KeyConcepts: values[3],
				Article:     values[4],
				Questions:   values[5],
			}

			results, err := application.EvaluateArticle(cmd.Context(), record, course, credential)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"topic": record.Topic,
				"slots": verdict.ParseResults(results),
			})
		},
	}

	for i, name := range names {
		cmd.Flags().StringVar(&fields[i], name, "", name+" text, or @path")
		_ = cmd.MarkFlagRequired(name)
	}
	cmd.Flags().StringVar(&course, "course", "", "AP course name (defaults to config)")
	cmd.Flags().StringVar(&credential, "api-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY)")
	return cmd
}

// fieldValue reads "@path" arguments from disk and returns anything else verbatim.
func fieldValue(raw string) (string, error) {
	path, ok := strings.CutPrefix(raw, "@")
	if !ok {
		return raw, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newServeCommand(application *app.Application) *cobra.Command {
	var input, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run control API for an input table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Serve(ctx, input, addr)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input table (.csv or .html)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newValidateCommand(application *app.Application) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that an input table has every required column",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := application.Validate(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows ready for evaluation\n", input, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input table (.csv or .html)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// watchInterrupts turns the first interrupt into a pause and the second into an abort.
func watchInterrupts(abort context.CancelFunc, pause chan<- struct{}) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		paused := false
		for {
			select {
			case <-signals:
				if paused {
					abort()
					return
				}
				paused = true
				select {
				case pause <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}
