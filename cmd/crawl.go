package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type crawlOptions struct {
	max    int
	output string
	format string
}

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl and
// exports the records to a file or database.
func newCrawlCmd() *cobra.Command {
	opts := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the tender catalogue and saves the records",
		Long: `Fetches listing pages in concurrent batches until --max records are
collected or the catalogue runs out, then writes them to --output.
A .db or .json output extension decides the format; otherwise --format
is used, defaulting to json. postgres is only used when asked for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.max, "max", 100, "maximum number of tenders to collect")
	cmd.Flags().StringVar(&opts.output, "output", "tenders.json", "output file path")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: json, sqlite or postgres")
	return cmd
}

func runCrawl(ctx context.Context, opts *crawlOptions) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	// Open the sink first so a bad target fails before any page is fetched.
	sink, err := appInstance.OpenSink(ctx, opts.format, opts.output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("Failed to close output", zap.Error(cerr))
		}
	}()

	logger.Info("Starting crawl", zap.Int("max", opts.max), zap.String("output", opts.output))
	start := time.Now()
	out, err := appInstance.Crawl(ctx, opts.max)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	logger.Info("Crawl finished",
		zap.Int("records", len(out.Records)),
		zap.String("termination", string(out.Termination)),
		zap.String("end_signal", string(out.EndSignal)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := sink.Save(ctx, out.Records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	logger.Info("Records saved", zap.Int("count", len(out.Records)), zap.String("output", opts.output))
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
