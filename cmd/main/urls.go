package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digikala/crawler/internal/container"
)

func newURLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "Print every image URL recorded in the image store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, map[string]string{})
			if err != nil {
				return err
			}

			repo, err := container.OpenRepository(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer repo.Close()

			urls, err := repo.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, url := range urls {
				fmt.Fprintln(out, url)
			}
			return nil
		},
	}
}
