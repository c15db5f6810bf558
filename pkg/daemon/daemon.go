package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
	"github.com/agentfleet/agent-autoscaler/pkg/controller"
	"github.com/agentfleet/agent-autoscaler/pkg/costs"
	"github.com/agentfleet/agent-autoscaler/pkg/forecast"
	"github.com/agentfleet/agent-autoscaler/pkg/gpu"
	"github.com/agentfleet/agent-autoscaler/pkg/rules"
)

// Daemon is the continuous autoscaler: two control loops and a telemetry
// loop sharing one controller, plus cron-scheduled model training.
type Daemon struct {
	config        Config
	runner        CycleRunner
	ctrl          *controller.Controller
	forecaster    *forecast.Forecaster
	ledger        *costs.Ledger
	httpServer    HTTPServerInterface
	signalHandler SignalHandler
	trainCron     *cron.Cron

	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewDaemon wires the scaling components into a daemon. The telemetry
// source and transition executor are the two external boundaries and are
// injected by the caller.
func NewDaemon(cfg *config.Config, daemonCfg *DaemonConfig, source collector.Source, executor controller.Executor) (*Daemon, error) {
	if err := validateConfig(cfg, daemonCfg); err != nil {
		return nil, err
	}

	catalog := config.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return nil, NewDaemonError("validate_catalog", "startup", err)
	}
	start, err := catalog.Get(config.DefaultStartProfile)
	if err != nil {
		return nil, NewDaemonError("resolve_start_profile", "startup", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var metricsReporter MetricsReporter
	if daemonCfg.EnableMetrics {
		metricsReporter = NewPrometheusMetricsReporter()
	} else {
		metricsReporter = NewSimpleMetricsReporter()
	}

	engine := rules.NewEngine(catalog, cfg)
	forecaster := forecast.New(forecast.Options{
		HistoryWindowHours:  cfg.HistoryWindowHours,
		SamplesPerHour:      cfg.SamplesPerHour,
		MinTrainingRows:     cfg.MinTrainingRows,
		RequestsPerInstance: cfg.RequestsPerInstance,
	})
	gpus := gpu.NewManager(cfg.GPUTargetUtilization, cfg.GPUHistorySize)
	ledger := costs.NewLedger()
	ctrl := controller.New(cfg, catalog, engine, executor, forecaster, start)

	runner := NewScalingRunner(source, ctrl, forecaster, gpus, ledger, metricsReporter)

	d := &Daemon{
		config:        NewDaemonConfig(cfg, daemonCfg),
		runner:        runner,
		ctrl:          ctrl,
		forecaster:    forecaster,
		ledger:        ledger,
		signalHandler: NewOSSignalHandler(),
		trainCron:     cron.New(),
		ctx:           ctx,
		cancel:        cancel,
	}
	d.httpServer = NewHTTPServer(daemonCfg.HTTPPort, d)
	return d, nil
}

// Start begins daemon operation and blocks until shutdown completes.
func (d *Daemon) Start() error {
	d.startTime = time.Now()
	log.Info().
		Str("deployment", d.config.GetDeployment()).
		Dur("fast_interval", d.config.GetFastInterval()).
		Dur("slow_interval", d.config.GetSlowInterval()).
		Bool("dry_run", d.config.IsDryRun()).
		Msg("Starting agent-autoscaler daemon")

	if d.config.GetHTTPPort() > 0 {
		d.wg.Add(1)
		go d.startHTTPServer()
	}

	if _, err := d.trainCron.AddFunc(d.config.GetTrainSchedule(), d.trainModel); err != nil {
		return NewDaemonError("schedule_training", "startup", err)
	}
	d.trainCron.Start()

	d.wg.Add(3)
	go d.loop("fast", d.config.GetFastInterval(), d.runner.RunFastCycle)
	go d.loop("slow", d.config.GetSlowInterval(), d.runner.RunSlowCycle)
	go d.loop("telemetry", d.config.GetTelemetryInterval(), d.runner.RunTelemetryCycle)

	<-d.signalHandler.WaitForShutdown()

	d.Stop()
	d.wg.Wait()

	log.Info().Msg("Daemon stopped gracefully")
	return nil
}

// Stop gracefully stops the daemon.
func (d *Daemon) Stop() {
	log.Info().Msg("Initiating graceful shutdown")
	d.trainCron.Stop()
	d.cancel()
}

// loop runs one cycle function on a fixed ticker, with an immediate first
// run so the daemon is useful before the first interval elapses.
func (d *Daemon) loop(name string, interval time.Duration, cycle func(context.Context) error) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.runCycle(name, cycle)

	for {
		select {
		case <-ticker.C:
			d.runCycle(name, cycle)
		case <-d.ctx.Done():
			log.Debug().Str("loop", name).Msg("Control loop stopped")
			return
		}
	}
}

// runCycle executes a single cycle, logging but never propagating errors;
// the next tick re-evaluates from known-good state.
func (d *Daemon) runCycle(name string, cycle func(context.Context) error) {
	if err := cycle(d.ctx); err != nil {
		log.Error().Err(err).Str("loop", name).Msg("Control cycle failed")
		if !IsRecoverable(err) {
			log.Warn().Str("loop", name).Msg("Non-recoverable error detected, continuing anyway")
		}
	}
}

// trainModel refits the forecaster. Runs on the cron schedule so training
// cost never blocks the control loops.
func (d *Daemon) trainModel() {
	start := time.Now()
	if d.forecaster.Train() {
		log.Info().Dur("took", time.Since(start)).Int("rows", d.forecaster.HistoryLen()).
			Msg("Forecast model retrained")
	} else {
		log.Debug().Int("rows", d.forecaster.HistoryLen()).
			Msg("Forecast training skipped, insufficient history")
	}
}

// startHTTPServer starts the HTTP server for health checks and metrics.
func (d *Daemon) startHTTPServer() {
	defer d.wg.Done()

	go func() {
		if err := d.httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-d.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
}

// DaemonStatus represents the current status of the daemon.
type DaemonStatus struct {
	Deployment        string           `json:"deployment"`
	FastInterval      time.Duration    `json:"fast_interval"`
	SlowInterval      time.Duration    `json:"slow_interval"`
	DryRun            bool             `json:"dry_run"`
	HTTPPort          int              `json:"http_port"`
	Running           bool             `json:"running"`
	StartTime         time.Time        `json:"start_time"`
	Scaling           controller.State `json:"scaling"`
	ForecasterTrained bool             `json:"forecaster_trained"`
	HistoryRows       int              `json:"history_rows"`
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() *DaemonStatus {
	return &DaemonStatus{
		Deployment:        d.config.GetDeployment(),
		FastInterval:      d.config.GetFastInterval(),
		SlowInterval:      d.config.GetSlowInterval(),
		DryRun:            d.config.IsDryRun(),
		HTTPPort:          d.config.GetHTTPPort(),
		Running:           true,
		StartTime:         d.startTime,
		Scaling:           d.ctrl.State(),
		ForecasterTrained: d.forecaster.Trained(),
		HistoryRows:       d.forecaster.HistoryLen(),
	}
}

// CostReport exports the ledger report for the trailing window.
func (d *Daemon) CostReport(hours int) *costs.Report {
	return d.ledger.GenerateReport(hours, d.ctrl.CurrentProfile().MaxConcurrent)
}
