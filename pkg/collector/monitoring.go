package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Metric types exported by the serving fleet.
const (
	metricActiveUsers    = "custom.googleapis.com/agent/active_sessions"
	metricRequestRate    = "custom.googleapis.com/agent/requests_per_minute"
	metricResponseTime   = "custom.googleapis.com/agent/response_time_seconds"
	metricQueueDepth     = "custom.googleapis.com/agent/queue_depth"
	metricCPUUtilization = "custom.googleapis.com/agent/cpu_utilization"
	metricMemUtilization = "custom.googleapis.com/agent/memory_utilization"
	metricGPUUtilization = "custom.googleapis.com/agent/gpu_utilization"
	metricGPUMemoryUsed  = "custom.googleapis.com/agent/gpu_memory_used_gb"
	metricGPUMemoryTotal = "custom.googleapis.com/agent/gpu_memory_total_gb"
	metricGPUTemperature = "custom.googleapis.com/agent/gpu_temperature_celsius"
	metricGPUPowerDraw   = "custom.googleapis.com/agent/gpu_power_draw_watts"
)

// MonitoringSource reads fleet telemetry from Cloud Monitoring and folds it
// into snapshots. Queries are pure reads, so transient failures are retried
// with exponential backoff.
type MonitoringSource struct {
	client     *monitoring.MetricClient
	projectID  string
	deployment string
	interval   time.Duration
	maxRetry   time.Duration
}

// NewMonitoringSource creates a Cloud Monitoring backed snapshot source.
func NewMonitoringSource(ctx context.Context, projectID, deployment string, interval time.Duration) (*MonitoringSource, error) {
	client, err := monitoring.NewMetricClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitoring client: %w", err)
	}

	return &MonitoringSource{
		client:     client,
		projectID:  projectID,
		deployment: deployment,
		interval:   interval,
		maxRetry:   30 * time.Second,
	}, nil
}

// Close closes the underlying monitoring client.
func (m *MonitoringSource) Close() error {
	return m.client.Close()
}

// Collect fetches the latest aligned value of each fleet metric and builds
// an immutable snapshot.
func (m *MonitoringSource) Collect(ctx context.Context) (*Snapshot, error) {
	now := time.Now()

	users, err := m.latestValue(ctx, metricActiveUsers, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active sessions: %w", err)
	}
	requests, err := m.latestValue(ctx, metricRequestRate, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request rate: %w", err)
	}
	responseTime, err := m.latestValue(ctx, metricResponseTime, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch response time: %w", err)
	}
	cpu, err := m.latestValue(ctx, metricCPUUtilization, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CPU utilization: %w", err)
	}
	mem, err := m.latestValue(ctx, metricMemUtilization, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memory utilization: %w", err)
	}

	// Queue depth and GPU telemetry are optional; some fleets do not
	// export them.
	queue, err := m.latestValue(ctx, metricQueueDepth, now)
	if err != nil {
		log.Debug().Err(err).Msg("Queue depth metric unavailable")
		queue = 0
	}
	gpu, gpuErr := m.latestValue(ctx, metricGPUUtilization, now)

	snap := &Snapshot{
		Timestamp:          now,
		ActiveUsers:        int(math.Round(users)),
		RequestsPerMinute:  requests,
		AvgResponseTimeSec: responseTime,
		QueueDepth:         int(math.Round(queue)),
		CPUUtilization:     cpu,
		MemoryUtilization:  mem,
	}
	if gpuErr == nil {
		snap.GPUUtilization = gpu
		snap.HasGPU = true
	}
	return snap, nil
}

// CollectGPU fetches per-GPU telemetry keyed by the gpu_id metric label.
func (m *MonitoringSource) CollectGPU(ctx context.Context) ([]GPUSample, error) {
	now := time.Now()

	util, err := m.latestByGPU(ctx, metricGPUUtilization, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GPU utilization: %w", err)
	}
	used, err := m.latestByGPU(ctx, metricGPUMemoryUsed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GPU memory used: %w", err)
	}
	total, err := m.latestByGPU(ctx, metricGPUMemoryTotal, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GPU memory total: %w", err)
	}
	temp, err := m.latestByGPU(ctx, metricGPUTemperature, now)
	if err != nil {
		temp = map[int]float64{}
	}
	power, err := m.latestByGPU(ctx, metricGPUPowerDraw, now)
	if err != nil {
		power = map[int]float64{}
	}

	samples := make([]GPUSample, 0, len(util))
	for id, u := range util {
		samples = append(samples, GPUSample{
			ID:            id,
			Utilization:   u,
			MemoryUsedGB:  used[id],
			MemoryTotalGB: total[id],
			TemperatureC:  temp[id],
			PowerDrawW:    power[id],
		})
	}
	return samples, nil
}

// latestValue returns the most recent aligned value of a metric, reduced
// across the deployment's instances.
func (m *MonitoringSource) latestValue(ctx context.Context, metricType string, end time.Time) (float64, error) {
	var result float64
	found := false

	operation := func() error {
		data, err := m.fetchMetric(ctx, metricType, end.Add(-2*m.interval), end)
		if err != nil {
			return err
		}
		var latest time.Time
		for ts, v := range data {
			if ts.After(latest) {
				latest = ts
				result = v
				found = true
			}
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = m.maxRetry
	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("no recent data for %s", metricType)
	}
	return result, nil
}

// latestByGPU returns the most recent value of a metric for each gpu_id label.
func (m *MonitoringSource) latestByGPU(ctx context.Context, metricType string, end time.Time) (map[int]float64, error) {
	req := &monitoringpb.ListTimeSeriesRequest{
		Name: fmt.Sprintf("projects/%s", m.projectID),
		Filter: fmt.Sprintf(`resource.type="generic_task" AND resource.labels.job="%s" AND metric.type="%s"`,
			m.deployment, metricType),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(end.Add(-2 * m.interval)),
			EndTime:   timestamppb.New(end),
		},
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:  durationpb.New(m.interval),
			PerSeriesAligner: monitoringpb.Aggregation_ALIGN_MEAN,
		},
	}

	values := make(map[int]float64)
	stamps := make(map[int]time.Time)
	it := m.client.ListTimeSeries(ctx, req)
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating time series: %w", err)
		}

		var id int
		if _, err := fmt.Sscanf(resp.Metric.Labels["gpu_id"], "%d", &id); err != nil {
			continue
		}
		for _, point := range resp.Points {
			ts := point.Interval.EndTime.AsTime()
			if ts.After(stamps[id]) {
				stamps[id] = ts
				values[id] = extractValue(point.Value)
			}
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no recent data for %s", metricType)
	}
	return values, nil
}

// fetchMetric retrieves a metric time series reduced across the deployment.
func (m *MonitoringSource) fetchMetric(ctx context.Context, metricType string, startTime, endTime time.Time) (map[time.Time]float64, error) {
	req := &monitoringpb.ListTimeSeriesRequest{
		Name: fmt.Sprintf("projects/%s", m.projectID),
		Filter: fmt.Sprintf(`resource.type="generic_task" AND resource.labels.job="%s" AND metric.type="%s"`,
			m.deployment, metricType),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(startTime),
			EndTime:   timestamppb.New(endTime),
		},
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:    durationpb.New(m.interval),
			PerSeriesAligner:   monitoringpb.Aggregation_ALIGN_MEAN,
			CrossSeriesReducer: monitoringpb.Aggregation_REDUCE_MEAN,
		},
	}

	data := make(map[time.Time]float64)
	it := m.client.ListTimeSeries(ctx, req)

	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating time series: %w", err)
		}

		for _, point := range resp.Points {
			data[point.Interval.EndTime.AsTime()] = extractValue(point.Value)
		}
	}

	return data, nil
}

// extractValue extracts the numeric value from a metric point.
func extractValue(v *monitoringpb.TypedValue) float64 {
	switch v.Value.(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return v.GetDoubleValue()
	case *monitoringpb.TypedValue_Int64Value:
		return float64(v.GetInt64Value())
	default:
		return 0
	}
}
