package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/internal/config"
	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/internal/logging"
	"github.com/rivetq/rivetsum/internal/metrics"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// VERSION go build -ldflags "-X main.VERSION=x.x.x"
var VERSION = "not specified"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "rivetsum",
		Short:        "Adler-32 and CRC-32 checksums with runtime implementation selection",
		Version:      VERSION,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")

	root.AddCommand(
		newSumCmd(a),
		newCPUCmd(a),
		newCompressCmd(a),
		newDecompressCmd(a),
		newIndexCmd(a),
		newVerifyCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = cfg

	if err := logging.Setup(cfg.Logging); err != nil {
		return err
	}

	err := checksum.Configure(
		checksum.WithDisabled(cfg.Dispatch.Disable...),
		checksum.WithObserver(func(kind checksum.Kind, implementation string) {
			metrics.ObserveImplementation(kind.String(), implementation)
		}),
	)
	if errors.Is(err, checksum.ErrAlreadyResolved) {
		log.Warn().Msg("Checksum engine already in use, dispatch settings ignored")
		return nil
	}
	return err
}

// prober is the host probe with configured capabilities masked
func (a *app) prober() cpufeat.Prober {
	return cpufeat.Without(cpufeat.Host(), a.cfg.Dispatch.Disable...)
}
