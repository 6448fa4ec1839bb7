// Package cmd wires the command-line interface: flag parsing, config
// layering, and assembly of the capture pipeline.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/config"
	"github.com/rfnet/nfctap/internal/executor"
	"github.com/rfnet/nfctap/internal/logging"
	"github.com/rfnet/nfctap/internal/sim"
	"github.com/rfnet/nfctap/internal/supervisor"
)

var rootCmd = &cobra.Command{
	Use:   "nfctap",
	Short: "Headless NFC capture and decode pipeline",
	Long: `Nfctap drives an SDR receiver and protocol decoder through a
reconciliation loop: every tick it compares the devices' reported
configuration against the desired one and issues the commands needed to
converge, then streams decoded frames to stdout.`,
	RunE: runCapture,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.CountP("verbose", "v", "increase log verbosity (repeatable)")
	flags.BoolP("debug", "d", false, "store debug signal trace (impacts performance)")
	flags.StringP("protocols", "p", "", "comma-separated protocols to decode (nfca, nfcb, nfcf, nfcv; glob patterns allowed)")
	flags.IntP("time", "t", 0, "stop capture after the given seconds")

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./nfctap.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	_ = viper.BindPFlag("decoder.debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("loop.time_limit_sec", flags.Lookup("time"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nfctap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/nfctap")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NFCTAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

func runCapture(cmd *cobra.Command, args []string) error {
	// The -p flag overrides the config file's protocol list only when given.
	if protocols, _ := cmd.Flags().GetString("protocols"); protocols != "" {
		viper.Set("decoder.protocols", splitProtocols(protocols))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	log := logging.New(logging.VerbosityLevel(verbosity))

	decoderParams, err := cfg.DecoderParams()
	if err != nil {
		return err
	}

	reg := bus.NewRegistry(log)
	exec := executor.New(cfg.Executor.CoreWorkers, cfg.Executor.MaxWorkers, log)

	sup, err := supervisor.New(log, reg, exec,
		supervisor.WithTick(cfg.Tick()),
		supervisor.WithTimeLimit(cfg.TimeLimit()),
		supervisor.WithDecoderParams(decoderParams),
	)
	if err != nil {
		return fmt.Errorf("assemble supervisor: %w", err)
	}
	if overrides := cfg.ReceiverOverrides(); overrides != nil {
		sup.UpdateDesired(decoderParams, overrides)
	}

	radio, err := sim.NewRadio(log, reg, cfg.Sim.Device, cfg.StatusInterval())
	if err != nil {
		return fmt.Errorf("assemble receiver: %w", err)
	}
	decoder, err := sim.NewDecoder(log, reg, cfg.StatusInterval())
	if err != nil {
		return fmt.Errorf("assemble decoder: %w", err)
	}

	if err := sup.Start(radio, decoder); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("terminate signal received", "signal", sig.String())
			sup.Shutdown("signal " + sig.String())
		case <-ctx.Done():
		}
	}()

	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		err := config.Watch(ctx, log, cfgFile, func(next *config.Config) {
			params, err := next.DecoderParams()
			if err != nil {
				log.Warn("reloaded config rejected", "error", err.Error())
				return
			}
			sup.UpdateDesired(params, next.ReceiverOverrides())
		})
		if err != nil {
			log.Warn("config watch unavailable", "error", err.Error())
		}
	}

	sup.Run()
	log.Info("capture finished", "reason", sup.Reason())
	return nil
}

func splitProtocols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
