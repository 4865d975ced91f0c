package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"digikala/crawler/internal/config"
)

// cfgFile holds the path given with --config.
var cfgFile string

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crawler",
		Short:         "Catalog image crawler",
		Long:          "Crawls a catalog category tree, records product image URLs and downloads the images.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newCrawlCommand())
	rootCmd.AddCommand(newURLsCommand())

	return rootCmd
}

// loadConfig binds the command's flags over the configuration file and
// applies the log level.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	bindings["log.level"] = "log-level"
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	log.Info("Configuration loaded successfully")
	return cfg, nil
}
