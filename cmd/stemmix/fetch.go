package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stemmix/stemmix/internal/fetch"
	"github.com/stemmix/stemmix/internal/separate"
)

var extractOnly bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a song, split it into stems and start the mixer.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if !fetch.IsURL(url) {
			return fmt.Errorf("%q does not look like a source URL", url)
		}

		dl, err := fetch.NewYTDLP(cfg.YtdlpBin, cfg.FetchFormat)
		if err != nil {
			return err
		}
		sep, err := separate.NewDemucs(cfg.DemucsBin, cfg.DemucsModel)
		if err != nil {
			return err
		}

		pipeline := fetch.NewPipeline(dl, sep, cfg.SongsDir)
		pipeline.OnProgress(func(st fetch.Stage, detail string) {
			switch st {
			case fetch.StageDownload:
				fmt.Printf("Downloading %s\n", detail)
			case fetch.StageSeparate:
				fmt.Println("Separating stems (this can take a few minutes)...")
			case fetch.StageAssemble:
				fmt.Printf("Assembling %s\n", detail)
			}
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := pipeline.Run(ctx, url)
		if err != nil {
			return err
		}
		fmt.Printf("Ready: %s\n", s.Dir)

		if extractOnly {
			return nil
		}
		return runMixer(s)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&extractOnly, "extract-only", false,
		"download and separate without starting the mixer")
	rootCmd.AddCommand(fetchCmd)
}
