package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/harness"
	"github.com/hoanghonghuy/commitlab/internal/metrics"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
	"github.com/hoanghonghuy/commitlab/internal/runlog"
)

type experimentOptions struct {
	log          string
	metricsAddr  string
	maxDiffLines int
	noBackoff    bool
}

func newExperimentCommand(root *RootOptions) *cobra.Command {
	opts := &experimentOptions{}
	cmd := &cobra.Command{
		Use:   "experiment <file>",
		Short: "Run every configuration of an experiment over its corpus",
		Long: `Run an experiment file: every configuration in the matrix and the
explicit configuration list is run over every diff in the corpus. Each
invocation is appended to the run log and the ranked report is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.log, "log", "", "run log path (overrides the experiment file)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().IntVar(&opts.maxDiffLines, "max-diff-lines", 0, "clip diffs in prompts to this many lines (0 keeps them whole)")
	cmd.Flags().BoolVar(&opts.noBackoff, "no-backoff", false, "retry provider errors immediately")
	return cmd
}

func runExperiment(cmd *cobra.Command, root *RootOptions, opts *experimentOptions, path string) error {
	ctx := cmd.Context()

	exp, err := harness.LoadExperiment(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load experiment", err)
	}
	if opts.log != "" {
		exp.Log = opts.log
	}
	if err := exp.Validate(root.Registry.Names(), prompt.Names()); err != nil {
		return WrapExitError(ExitCommandError, "invalid experiment", err)
	}

	file, err := config.Load(root.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	w, err := runlog.Open(exp.Log)
	if err != nil {
		return err
	}
	defer w.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		stop := serveMetrics(ctx, root, reg, opts.metricsAddr)
		defer stop()
	}

	h := &harness.Harness{
		Registry:     root.Registry,
		Credentials:  config.CredentialsFromEnv().Merge(file.Credentials),
		Log:          w,
		Observer:     collector,
		Logger:       root.log,
		MaxDiffLines: opts.maxDiffLines,
	}
	if !opts.noBackoff {
		h.Backoff = newBackOff
	}

	rep, err := h.Run(ctx, exp)
	if errors.Is(err, config.ErrInvalidConfiguration) {
		return WrapExitError(ExitCommandError, "invalid experiment", err)
	}
	if err != nil {
		return err
	}

	root.log.Info().
		Str("experiment", rep.ExperimentID).
		Int("records", len(rep.Records)).
		Str("log", w.Path()).
		Msg("experiment finished")

	return writeReport(cmd.OutOrStdout(), root.Format, rep.ExperimentID, rep.Summaries)
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(ctx context.Context, root *RootOptions, reg *prometheus.Registry, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		root.log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			root.log.Error().Err(err).Msg("metrics server")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			root.log.Warn().Err(fmt.Errorf("shutdown metrics server: %w", err)).Send()
		}
	}
}
