package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"turbo/config"
	"turbo/observability/logging"
	"turbo/services/simulator"
)

type rootOptions struct {
	configPath string
	logLevel   string
	redact     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "turbo-sim",
		Short:        "Replay Turbo Safe scenarios against an in-memory engine.",
		Long:         "turbo-sim builds a lending pool, vaults, booster, accountant and master\nfrom a TOML config and replays YAML scenarios of boosts, lesses and slurps.",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the TOML engine config (defaults when empty or missing)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.redact, "redact", false, "mask user identities in log output")

	cmd.AddCommand(newRunCmd(opts), newValidateCmd(), newConfigCmd(opts))
	return cmd
}

func (o *rootOptions) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logOpts := logging.Options{Service: cfg.Service, Env: cfg.Env, Level: level, Output: stderr}
	if o.redact {
		logOpts.RedactKeys = logging.SensitiveKeys
	}
	return cfg, logging.New(logOpts), nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var showMetrics, showEvents bool
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios, each against a fresh engine",
		Long: `Run loads each scenario, builds a fresh engine from the config and replays
the steps in order. A scenario stops at the first step whose outcome does not
match its expectations. The command fails when any scenario fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				sc, err := simulator.LoadScenario(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				world, err := simulator.NewWorld(cfg, logger)
				if err != nil {
					return err
				}
				logger.Info("engine ready", slog.String("scenario", sc.Name), logging.MaskField("admin", cfg.Admin))
				report, err := simulator.Run(cmd.Context(), world, sc)
				if err != nil {
					return err
				}
				printReport(out, report)
				if !report.Passed {
					failed++
				}
				if showEvents {
					printEvents(out, world)
				}
			}
			if showMetrics {
				if err := writeMetrics(out); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario(s) failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print engine metrics in Prometheus text format after the run")
	cmd.Flags().BoolVar(&showEvents, "events", false, "print the events emitted by each scenario")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sc, err := simulator.LoadScenario(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps)\n", sc.Name, len(sc.Steps))
			}
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or generate engine configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Write(args[0], config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.redact {
				cfg.Admin = logging.MaskValue(cfg.Admin)
				cfg.Gibber = logging.MaskValue(cfg.Gibber)
			}
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	})
	return cmd
}

func printReport(out io.Writer, report simulator.Report) {
	if report.Passed {
		fmt.Fprintf(out, "PASS %s (%d steps)\n", report.Scenario, len(report.Steps))
		return
	}
	failed, _ := report.Failed()
	fmt.Fprintf(out, "FAIL %s: step %d (%s): %s\n", report.Scenario, failed.Index, failed.Action, failed.Failure)
}

func printEvents(out io.Writer, world *simulator.World) {
	for _, evt := range world.Recorder().Flatten() {
		attrs := make([]string, 0, len(evt.Attributes))
		for _, key := range evt.Keys() {
			attrs = append(attrs, key+"="+evt.Attributes[key])
		}
		fmt.Fprintf(out, "  %s %s\n", evt.Type, strings.Join(attrs, " "))
	}
}

func writeMetrics(out io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "turbo_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
