package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koustreak/blindsight/internal/config"
	"github.com/koustreak/blindsight/internal/logger"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	log        *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "blindsight",
		Short:         "Blind SQL injection extraction through a boolean oracle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bindFlags(cmd.Flags()); err != nil {
				return err
			}
			return a.load()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "config file (yaml, toml or json)")
	f.String("log-level", "info", "trace (every probe), debug, info, warn or error")
	f.String("log-format", "console", "console or json")
	f.String("output", config.StoreDir, "result store: dir, minio or none")
	f.String("output-dir", "results", "directory for the dir store")
	f.String("format", "json", "result encoding: json, yaml or toml")

	root.AddCommand(newScanCmd(a), newLabCmd(a), newServeCmd(a), newDialectsCmd())
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	cfg.Log.Output = os.Stderr
	a.cfg = cfg
	a.log = logger.New(&cfg.Log)
	logger.SetGlobal(a.log)
	return nil
}
