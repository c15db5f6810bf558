package forecast

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
)

// minUsableRows is the minimum number of complete feature rows (after lag
// alignment) required to fit the regressor.
const minUsableRows = 24

// Options configures a Forecaster.
type Options struct {
	HistoryWindowHours  int // Rolling retention bound
	SamplesPerHour      int // Snapshot cadence; 4 means 15-minute samples
	MinTrainingRows     int // Raw rows required before fitting
	RequestsPerInstance int // Hourly request capacity of one instance
}

// Forecaster maintains a rolling window of engineered feature rows and a
// fitted linear regressor predicting request volume one hour ahead.
type Forecaster struct {
	opts Options

	mu      sync.RWMutex
	history []featureRow

	// The fitted model is swapped atomically so predictions see either
	// the old model or the new one, never a partial update.
	model atomic.Pointer[model]
}

// featureRow is one engineered observation.
type featureRow struct {
	timestamp    time.Time
	hourOfDay    float64
	dayOfWeek    float64
	requests     float64
	responseTime float64
	cpuUsage     float64
	memUsage     float64
	gpuUsage     float64
}

// model is an immutable fitted regressor: standardization parameters frozen
// at training time plus least-squares weights (leading term is the
// intercept).
type model struct {
	means   []float64
	stds    []float64
	weights []float64
}

// New creates a Forecaster.
func New(opts Options) *Forecaster {
	if opts.SamplesPerHour <= 0 {
		opts.SamplesPerHour = 4
	}
	if opts.HistoryWindowHours <= 0 {
		opts.HistoryWindowHours = 168
	}
	if opts.MinTrainingRows <= 0 {
		opts.MinTrainingRows = 48
	}
	if opts.RequestsPerInstance <= 0 {
		opts.RequestsPerInstance = 100
	}
	return &Forecaster{opts: opts}
}

// Collect appends a feature row built from the snapshot and evicts rows
// that have fallen out of the retention window.
func (f *Forecaster) Collect(snap *collector.Snapshot) {
	row := featureRow{
		timestamp:    snap.Timestamp,
		hourOfDay:    float64(snap.Timestamp.Hour()),
		dayOfWeek:    float64(snap.Timestamp.Weekday()),
		requests:     snap.RequestsPerMinute,
		responseTime: snap.AvgResponseTimeSec,
		cpuUsage:     snap.CPUUtilization,
		memUsage:     snap.MemoryUtilization,
		gpuUsage:     snap.GPUUtilization,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.history = append(f.history, row)

	cutoff := row.timestamp.Add(-time.Duration(f.opts.HistoryWindowHours) * time.Hour)
	evict := 0
	for evict < len(f.history) && f.history[evict].timestamp.Before(cutoff) {
		evict++
	}
	if maxRows := f.opts.HistoryWindowHours * f.opts.SamplesPerHour; len(f.history)-evict > maxRows {
		evict = len(f.history) - maxRows
	}
	if evict > 0 {
		f.history = append(f.history[:0], f.history[evict:]...)
	}
}

// Trained reports whether a fitted model is available.
func (f *Forecaster) Trained() bool {
	return f.model.Load() != nil
}

// HistoryLen returns the number of retained feature rows.
func (f *Forecaster) HistoryLen() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.history)
}

// Train refits the regressor on the current window. It returns false, and
// leaves any previously fitted model untouched, when too little data
// remains after lag alignment. That outcome is a deterministic no-op, not
// an error.
func (f *Forecaster) Train() bool {
	f.mu.RLock()
	history := make([]featureRow, len(f.history))
	copy(history, f.history)
	f.mu.RUnlock()

	if len(history) < f.opts.MinTrainingRows {
		return false
	}

	lag1 := f.opts.SamplesPerHour
	lag24 := 24 * f.opts.SamplesPerHour
	horizon := f.opts.SamplesPerHour // Predict one hour ahead

	// Rows before lag24 lack a 24h lag and rows near the end lack a
	// target; both are dropped before fitting.
	var rows [][]float64
	var targets []float64
	for i := lag24; i+horizon < len(history); i++ {
		rows = append(rows, featureVector(history, i, lag1, lag24))
		targets = append(targets, history[i+horizon].requests)
	}
	if len(rows) < minUsableRows {
		return false
	}

	means, stds := fitScaler(rows)
	nFeatures := len(rows[0])

	// Design matrix with an intercept column, features standardized with
	// the scaler that will be reused at prediction time.
	x := mat.NewDense(len(rows), nFeatures+1, nil)
	y := mat.NewVecDense(len(rows), targets)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, (v-means[j])/stds[j])
		}
	}

	weights := mat.NewVecDense(nFeatures+1, nil)
	if err := weights.SolveVec(x, y); err != nil {
		log.Warn().Err(err).Int("rows", len(rows)).Msg("Least-squares fit failed, keeping previous model")
		return false
	}

	f.model.Store(&model{
		means:   means,
		stds:    stds,
		weights: weights.RawVector().Data,
	})

	log.Debug().Int("rows", len(rows)).Msg("Forecast model trained")
	return true
}

// PredictInstances converts the predicted request volume for the next hour
// into an instance count. Untrained forecasters return the current count
// unchanged; no speculative scaling without a model.
func (f *Forecaster) PredictInstances(currentInstances int) int {
	m := f.model.Load()
	if m == nil {
		return currentInstances
	}

	f.mu.RLock()
	history := make([]featureRow, len(f.history))
	copy(history, f.history)
	f.mu.RUnlock()

	if len(history) == 0 {
		return currentInstances
	}

	lag1 := f.opts.SamplesPerHour
	lag24 := 24 * f.opts.SamplesPerHour

	now := time.Now()
	latest := history[len(history)-1]
	features := []float64{
		float64(now.Hour()),
		float64(now.Weekday()),
		latest.requests,
		latest.responseTime,
		latest.cpuUsage,
		latest.memUsage,
		latest.gpuUsage,
	}
	if len(history) > lag24 {
		r1 := history[len(history)-1-lag1]
		r24 := history[len(history)-1-lag24]
		features = append(features,
			r1.requests, r1.responseTime, r1.cpuUsage,
			r24.requests, r24.responseTime, r24.cpuUsage)
	} else {
		// History shorter than a day: zero-fill the lag features.
		features = append(features, 0, 0, 0, 0, 0, 0)
	}

	predicted := m.weights[0]
	for j, v := range features {
		predicted += m.weights[j+1] * (v - m.means[j]) / m.stds[j]
	}

	required := int(math.Ceil(predicted / float64(f.opts.RequestsPerInstance)))
	if required < 1 {
		required = 1
	}
	return required
}

// featureVector builds the feature row at index i with 1h and 24h lags for
// request count, response time, and CPU usage.
func featureVector(history []featureRow, i, lag1, lag24 int) []float64 {
	r := history[i]
	r1 := history[i-lag1]
	r24 := history[i-lag24]
	return []float64{
		r.hourOfDay,
		r.dayOfWeek,
		r.requests,
		r.responseTime,
		r.cpuUsage,
		r.memUsage,
		r.gpuUsage,
		r1.requests, r1.responseTime, r1.cpuUsage,
		r24.requests, r24.responseTime, r24.cpuUsage,
	}
}

// fitScaler computes per-feature means and standard deviations. Constant
// features get a unit deviation so standardization stays defined.
func fitScaler(rows [][]float64) (means, stds []float64) {
	n := float64(len(rows))
	p := len(rows[0])
	means = make([]float64, p)
	stds = make([]float64, p)

	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}
