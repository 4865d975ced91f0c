package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"digikala/crawler/internal/container"
)

func newCrawlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl categories from the configured seeds and download product images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, map[string]string{
				"crawler.seeds":           "seed",
				"crawler.max_pages":       "max-pages",
				"crawler.max_concurrency": "concurrency",
				"crawler.mode":            "mode",
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("Starting catalog crawler...")

			// Initialize container with all dependencies
			app, err := container.New(ctx, cfg)
			if err != nil {
				log.Fatalf("Failed to initialize container: %v", err)
			}
			defer app.Close()

			summary, err := app.Run(ctx)
			if err != nil {
				if summary != nil && ctx.Err() != nil {
					log.Warnf("🛑 Crawl stopped early: %v", err)
					return nil
				}
				return err
			}

			log.Info("Application finished successfully")
			return nil
		},
	}

	cmd.Flags().StringSlice("seed", nil, "seed category slug (repeatable)")
	cmd.Flags().Int("max-pages", 0, "listing pages per category")
	cmd.Flags().Int("concurrency", 0, "maximum in-flight network operations")
	cmd.Flags().String("mode", "", "crawl mode: fanout or pipeline")

	return cmd
}
