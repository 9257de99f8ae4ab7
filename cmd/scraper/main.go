package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/cache"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/category"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/collector"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/config"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/exclusion"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/export"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/httpfetch"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/logging"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/orchestrator"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/qc"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// usageError marks a failure that means invalid arguments (exit code 2)
// rather than a run failure (exit code 1).
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func run(args []string) int {
	v := viper.New()
	var cfg config.Config

	cmd := &cobra.Command{
		Use:           "scrape",
		Short:         "Scrape a furniture catalog into a normalized, deduplicated export",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg = config.Load(v)
			return execute(cmd.Context(), cfg)
		},
	}
	cmd.SetArgs(args)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	if err := config.BindFlags(cmd, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ue usageError
		if ok := asUsageError(err, &ue); ok {
			return 2
		}
		return 1
	}
	return 0
}

func asUsageError(err error, target *usageError) bool {
	for err != nil {
		if ue, ok := err.(usageError); ok {
			*target = ue
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func execute(ctx context.Context, cfg config.Config) error {
	if cfg.BaseURL == "" {
		return usageError{fmt.Errorf("--base-url is required")}
	}

	logger, flush, err := logging.New(logging.Options{JSON: cfg.LogJSON, Level: cfg.LogLevel, Prefix: "scrape"})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer flush()

	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	excl := exclusion.New(cfg.ExcludePrefix)

	fetcher := httpfetch.New(httpfetch.Config{
		Timeout:      30 * time.Second,
		MaxRetries:   cfg.Retries,
		BaseThrottle: cfg.Throttle,
		Logger:       logger,
	})

	var pageCache *cache.Cache
	if cfg.Cache {
		pageCache = cache.New(cfg.CachePath, logger)
	}

	walker := category.NewWalker(cfg.BaseURL, fetcher, excl)
	tree, err := walker.Walk(ctx)
	if err != nil {
		return fmt.Errorf("walking category tree: %w", err)
	}
	logger.Infow("category tree built", "top_level_nodes", len(tree))

	coll := collector.New(fetcher, excl)
	extractor := product.New(fetcher, pageCache, excl, logger)

	writer, ext := exportWriter(cfg.Output)
	outputPath := cfg.DefaultOutputPath(time.Now(), ext)
	partialPath := outputPath + ".partial"

	orch := orchestrator.New(orchestrator.Config{
		MaxWorkers: cfg.MaxWorkers,
		Logger:     logger,
		OnProgress: func(stage string, done, total int) {
			logger.Infow("progress", "stage", stage, "done", done, "total", total)
		},
		IncrementalSink: func(records []*product.Record) error {
			_, err := writer.WriteRecords(records, partialPath)
			return err
		},
	}, coll, extractor)

	records, err := orch.Run(ctx, tree)
	if err != nil {
		return fmt.Errorf("running scrape pipeline: %w", err)
	}
	logger.Infow("extraction complete", "records", len(records))

	gate := qc.New(qc.Config{})
	valid, errorsByKey := gate.Run(records)
	logger.Infow("qc gate complete", "valid", len(valid), "flagged", len(errorsByKey))

	writtenPath, err := writer.WriteRecords(valid, outputPath)
	if err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	_ = os.Remove(partialPath)
	logger.Infow("export written", "path", writtenPath)

	if cfg.ReviewExport {
		errPath := errorsExportPath(outputPath, ext)
		if _, err := writer.WriteErrors(errorsByKey, errPath); err != nil {
			return fmt.Errorf("writing errors export: %w", err)
		}
		logger.Infow("errors export written", "path", errPath)
	}

	return deliver(ctx, cfg, writtenPath)
}

func exportWriter(output string) (export.Writer, string) {
	if hasSuffix(output, ".xlsx") {
		return export.XLSXWriter{}, "xlsx"
	}
	return export.CSVWriter{}, "csv"
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func errorsExportPath(outputPath, ext string) string {
	trimmed := outputPath[:len(outputPath)-len(ext)-1]
	return trimmed + "_errors." + ext
}

// deliver relays the written export to any upload sinks the run was
// configured with. Neither sink is required; both may run.
func deliver(ctx context.Context, cfg config.Config, path string) error {
	if cfg.UploadS3Bucket != "" {
		client, err := export.NewS3Client(ctx, cfg.UploadS3Region, cfg.UploadS3AccessKeyID, cfg.UploadS3SecretAccessKey)
		if err != nil {
			return err
		}
		sink := export.S3UploadSink{Client: client, Bucket: cfg.UploadS3Bucket}
		if err := sink.Upload(ctx, path); err != nil {
			return fmt.Errorf("uploading to s3: %w", err)
		}
	}

	if cfg.UploadEmailTo != "" {
		sink := export.SMTPEmailSink{
			Host: os.Getenv("SCRAPER_SMTP_HOST"),
			Port: os.Getenv("SCRAPER_SMTP_PORT"),
			From: os.Getenv("SCRAPER_SMTP_FROM"),
			To:   cfg.UploadEmailTo,
		}
		if err := sink.Upload(ctx, path); err != nil {
			return fmt.Errorf("emailing export: %w", err)
		}
	}

	return nil
}
