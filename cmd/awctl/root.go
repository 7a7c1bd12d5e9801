package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/client"
	"github.com/BaSui01/anythingworld/config"
	"github.com/BaSui01/anythingworld/internal/metrics"
	"github.com/BaSui01/anythingworld/internal/server"
	"github.com/BaSui01/anythingworld/internal/telemetry"
	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/types"
)

// app holds the persistent flags shared by every command.
type app struct {
	cfgFile     string
	output      string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "awctl",
		Short: "Command line client for the Anything World API",
		Long: `awctl submits 3D models, text prompts and images to Anything World,
and waits until the resulting animation or generation jobs are done.

Configuration comes from a YAML file (--config) and AW_* environment
variables; AW_API_KEY is required for every command that calls the API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validOutput(a.output)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputJSON, "output format: json or yaml")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address while the command runs, e.g. 127.0.0.1:9464")

	root.AddCommand(
		newAnimateCmd(a),
		newGenerateCmd(a),
		newStatusCmd(a),
		newWaitCmd(a),
		newFindCmd(a),
		newJobsCmd(a),
		newStagesCmd(a),
		newVersionCmd(),
	)
	return root
}

// =============================================================================
// 🔌 运行时装配
// =============================================================================

// session is everything a command needs to talk to the service.
type session struct {
	cfg       *config.Config
	logger    *zap.Logger
	client    *client.Client
	store     jobstore.Store
	providers *telemetry.Providers
	metrics   *server.MetricsServer
}

func (a *app) loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if a.cfgFile != "" {
		loader = loader.WithConfigPath(a.cfgFile)
	}
	cfg, err := loader.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "invalid configuration").WithCause(err)
	}
	return cfg, nil
}

// setup loads the config and wires logging, telemetry, metrics, the job store
// and the API client. The caller must Close the session.
func (a *app) setup(ctx context.Context) (rt *session, err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	rt = &session{cfg: cfg, logger: initLogger(cfg.Log)}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	rt.providers, err = telemetry.Init(ctx, cfg.Telemetry, rt.logger)
	if err != nil {
		rt.logger.Warn("failed to initialize telemetry", zap.Error(err))
		err = nil
	}

	var opts []client.Option
	var storeOpts []jobstore.Option
	if cfg.Metrics.Enabled || a.metricsAddr != "" {
		collector := metrics.NewCollector(cfg.Metrics.Namespace, rt.logger)
		opts = append(opts, client.WithMetrics(collector))
		storeOpts = append(storeOpts, jobstore.WithOpRecorder(collector))
	}
	if a.metricsAddr != "" {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = a.metricsAddr
		rt.metrics = server.NewMetricsServer(prometheus.DefaultGatherer, srvCfg, rt.logger)
		if err = rt.metrics.Start(); err != nil {
			return rt, err
		}
	}

	rt.store, err = jobstore.Open(ctx, cfg, rt.logger, storeOpts...)
	if err != nil {
		return rt, err
	}
	if rt.store != nil {
		opts = append(opts, client.WithStore(rt.store))
	}

	rt.client, err = client.New(cfg, rt.logger, opts...)
	return rt, err
}

// Close releases everything setup acquired. Safe on a partial session.
func (rt *session) Close() {
	if rt == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if rt.metrics != nil {
		errs = append(errs, rt.metrics.Shutdown(ctx))
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	errs = append(errs, rt.providers.Shutdown(ctx))
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("shutdown incomplete", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

// withRuntime runs fn with a fully wired session.
func (a *app) withRuntime(cmd *cobra.Command, fn func(rt *session) error) error {
	rt, err := a.setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func (a *app) print(cmd *cobra.Command, v any) error {
	return printResult(cmd.OutOrStdout(), a.output, v)
}
