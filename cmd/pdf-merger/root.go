package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/config"
)

const defaultConfigPath = "./config/config.yml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pdf-merger",
		Short:         "Merge images and PDF documents into a single PDF",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}

		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			zlog.Logger.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		return cfg, nil
	}

	root.AddCommand(newMergeCmd(load), newServeCmd(load))

	return root
}
