package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/spf13/cobra"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
	"github.com/agentfleet/agent-autoscaler/pkg/controller"
	"github.com/agentfleet/agent-autoscaler/pkg/daemon"
	"github.com/agentfleet/agent-autoscaler/pkg/gpu"
	"github.com/agentfleet/agent-autoscaler/pkg/logger"
	"github.com/agentfleet/agent-autoscaler/pkg/rules"
)

var (
	cfgFile    string
	projectID  string
	deployment string
	dryRun     bool
	output     string
	httpPort   int
	metrics    bool
)

var rootCmd = &cobra.Command{
	Use:   "agent-autoscaler",
	Short: "Adaptive resource-scaling controller for agent serving fleets",
	Long: `agent-autoscaler observes load and utilization telemetry for an agent
serving deployment, forecasts near-term demand, and selects cost-efficient
resource profiles across mixed CPU/GPU capacity.

The root command runs a single analysis pass and reports the recommended
profile. Use the daemon subcommand for continuous operation.`,
	RunE: runAnalyze,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the continuous scaling control loops",
	RunE:  runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", "", "GCP project ID (uses metadata default if not specified)")
	rootCmd.PersistentFlags().StringVar(&deployment, "deployment", "", "Deployment (fleet) name to control")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", true, "Show what would be done without making changes")
	rootCmd.Flags().StringVar(&output, "output", "table", "Output format (table, json)")
	daemonCmd.Flags().IntVar(&httpPort, "http-port", 8080, "Port for health checks and metrics (0 disables)")
	daemonCmd.Flags().BoolVar(&metrics, "metrics", true, "Enable Prometheus metrics")
	rootCmd.AddCommand(daemonCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges flags over the config file.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if projectID != "" {
		cfg.ProjectID = projectID
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID, err = getDefaultProjectID(ctx)
		if err != nil {
			return nil, fmt.Errorf("project not specified and could not determine default: %w", err)
		}
	}
	if deployment != "" {
		cfg.Deployment = deployment
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("deployment not specified (use --deployment or config file)")
	}
	cfg.DryRun = dryRun

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func getDefaultProjectID(ctx context.Context) (string, error) {
	if metadata.OnGCE() {
		if project, err := metadata.ProjectIDWithContext(ctx); err == nil {
			return project, nil
		}
	}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		return project, nil
	}
	return "", fmt.Errorf("unable to determine project ID")
}

func buildExecutor(cfg *config.Config) controller.Executor {
	if cfg.DryRun || cfg.ExecutorURL == "" {
		return controller.NewLogExecutor()
	}
	return controller.NewWebhookExecutor(cfg.ExecutorURL)
}

// AnalysisOutput is the JSON shape of a one-shot analysis.
type AnalysisOutput struct {
	Deployment         string                `json:"deployment"`
	ActiveUsers        int                   `json:"active_users"`
	RequestsPerMinute  float64               `json:"requests_per_minute"`
	AvgResponseTimeSec float64               `json:"avg_response_time_sec"`
	CPUUtilization     float64               `json:"cpu_utilization"`
	MemoryUtilization  float64               `json:"memory_utilization"`
	GPUUtilization     float64               `json:"gpu_utilization,omitempty"`
	RequiredCapacity   float64               `json:"required_capacity"`
	Recommended        string                `json:"recommended_profile"`
	EmergencyAction    string                `json:"emergency_action"`
	GPUPressure        bool                  `json:"gpu_pressure"`
	GPUs               []collector.GPUSample `json:"gpus,omitempty"`
	DryRun             bool                  `json:"dry_run"`
	Timestamp          time.Time             `json:"timestamp"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("invalid output format: %s (must be 'table' or 'json')", output)
	}

	source, err := collector.NewMonitoringSource(ctx, cfg.ProjectID, cfg.Deployment, cfg.MetricsInterval)
	if err != nil {
		return fmt.Errorf("failed to create telemetry source: %w", err)
	}
	defer source.Close()

	snap, err := source.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect snapshot: %w", err)
	}

	catalog := config.DefaultCatalog()
	engine := rules.NewEngine(catalog, cfg)
	recommended := engine.SelectProfile(snap)

	result := AnalysisOutput{
		Deployment:         cfg.Deployment,
		ActiveUsers:        snap.ActiveUsers,
		RequestsPerMinute:  snap.RequestsPerMinute,
		AvgResponseTimeSec: snap.AvgResponseTimeSec,
		CPUUtilization:     snap.CPUUtilization,
		MemoryUtilization:  snap.MemoryUtilization,
		RequiredCapacity:   engine.RequiredCapacity(snap),
		Recommended:        recommended.Name,
		EmergencyAction:    engine.EvaluateQueue(snap.QueueDepth, snap.AvgResponseTimeSec).String(),
		DryRun:             cfg.DryRun,
		Timestamp:          time.Now(),
	}
	if snap.HasGPU {
		result.GPUUtilization = snap.GPUUtilization
		if gpus, err := source.CollectGPU(ctx); err == nil {
			result.GPUs = gpus
			mgr := gpu.NewManager(cfg.GPUTargetUtilization, cfg.GPUHistorySize)
			mgr.Observe(gpus)
			result.GPUPressure = mgr.ShouldScaleUp()
		}
	}

	if output == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printAnalysisTable(&result)
	return nil
}

func printAnalysisTable(r *AnalysisOutput) {
	headers := []string{"Deployment", "Users", "Req/min", "Resp(s)", "CPU", "Mem", "Recommended", "Emergency"}
	row := []string{
		r.Deployment,
		fmt.Sprintf("%d", r.ActiveUsers),
		fmt.Sprintf("%.1f", r.RequestsPerMinute),
		fmt.Sprintf("%.2f", r.AvgResponseTimeSec),
		fmt.Sprintf("%.0f%%", r.CPUUtilization*100),
		fmt.Sprintf("%.0f%%", r.MemoryUtilization*100),
		r.Recommended,
		r.EmergencyAction,
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
		if len(row[i]) > widths[i] {
			widths[i] = len(row[i])
		}
	}

	printRow(headers, widths)
	printSeparator(widths)
	printRow(row, widths)

	if len(r.GPUs) > 0 {
		fmt.Println()
		gpuHeaders := []string{"GPU", "Util", "Mem Used", "Mem Total", "Temp", "Power"}
		gpuWidths := make([]int, len(gpuHeaders))
		gpuRows := make([][]string, 0, len(r.GPUs))
		for i, h := range gpuHeaders {
			gpuWidths[i] = len(h)
		}
		for _, g := range r.GPUs {
			row := []string{
				fmt.Sprintf("%d", g.ID),
				fmt.Sprintf("%.0f%%", g.Utilization*100),
				fmt.Sprintf("%.1f GB", g.MemoryUsedGB),
				fmt.Sprintf("%.1f GB", g.MemoryTotalGB),
				fmt.Sprintf("%.0fC", g.TemperatureC),
				fmt.Sprintf("%.0fW", g.PowerDrawW),
			}
			for i, cell := range row {
				if len(cell) > gpuWidths[i] {
					gpuWidths[i] = len(cell)
				}
			}
			gpuRows = append(gpuRows, row)
		}
		printRow(gpuHeaders, gpuWidths)
		printSeparator(gpuWidths)
		for _, row := range gpuRows {
			printRow(row, gpuWidths)
		}
		if r.GPUPressure {
			fmt.Println("\nSustained GPU pressure detected - additional GPU capacity recommended")
		}
	}
}

func printRow(data []string, widths []int) {
	row := "| "
	for i, cell := range data {
		if i < len(widths) {
			row += fmt.Sprintf("%-*s | ", widths[i], cell)
		}
	}
	fmt.Println(row)
}

func printSeparator(widths []int) {
	row := "|-"
	for _, width := range widths {
		row += strings.Repeat("-", width) + "-|-"
	}
	fmt.Println(row)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	source, err := collector.NewMonitoringSource(ctx, cfg.ProjectID, cfg.Deployment, cfg.MetricsInterval)
	if err != nil {
		return fmt.Errorf("failed to create telemetry source: %w", err)
	}
	defer source.Close()

	if metrics {
		daemon.InitMetrics()
	}

	d, err := daemon.NewDaemon(cfg, &daemon.DaemonConfig{
		HTTPPort:      httpPort,
		EnableMetrics: metrics,
	}, source, buildExecutor(cfg))
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return d.Start()
}
