package costs

import (
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

// Bucket accumulates cost and usage for one wall-clock hour.
type Bucket struct {
	Hour      int64   `json:"hour"` // Unix time / 3600
	Cost      float64 `json:"cost"`
	Requests  float64 `json:"requests"`
	PeakUsers int     `json:"peak_users"`
	Profile   string  `json:"profile"` // Last profile seen in the hour
}

// Report summarizes ledger activity over a trailing window.
type Report struct {
	PeriodHours     int      `json:"period_hours"`
	TotalCost       float64  `json:"total_cost"`
	TotalRequests   float64  `json:"total_requests"`
	CostPerRequest  float64  `json:"cost_per_request"` // NaN when no requests were served
	Buckets         []Bucket `json:"buckets"`
	Recommendations []string `json:"recommendations"`
}

// MarshalJSON renders an undefined cost per request as null; JSON has no
// NaN literal.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	out := struct {
		*alias
		CostPerRequest interface{} `json:"cost_per_request"`
	}{alias: (*alias)(r), CostPerRequest: r.CostPerRequest}
	if math.IsNaN(r.CostPerRequest) {
		out.CostPerRequest = nil
	}
	return json.Marshal(out)
}

// Ledger tracks per-hour cost accrual for the serving fleet. Accrual
// assumes the configured 5-minute tick: one twelfth of the profile's
// hourly cost per update.
type Ledger struct {
	mu      sync.Mutex
	buckets map[int64]*Bucket
}

// NewLedger creates an empty cost ledger.
func NewLedger() *Ledger {
	return &Ledger{buckets: make(map[int64]*Bucket)}
}

// Update accrues one tick of cost for the active profile and folds the
// snapshot's request volume and peak users into the current hour bucket.
func (l *Ledger) Update(snap *collector.Snapshot, profile config.ResourceProfile) {
	hour := snap.Timestamp.Unix() / 3600

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[hour]
	if !ok {
		b = &Bucket{Hour: hour}
		l.buckets[hour] = b
	}

	b.Cost += profile.HourlyCost / 12 // 5-minute tick
	b.Requests += snap.RequestsPerMinute * 5
	if snap.ActiveUsers > b.PeakUsers {
		b.PeakUsers = snap.ActiveUsers
	}
	b.Profile = profile.Name
}

// GenerateReport sums the last N hour buckets. Cost per request is NaN
// when the window served no requests; zero requests is not an error.
func (l *Ledger) GenerateReport(hours int, capacity int) *Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]int64, 0, len(l.buckets))
	for h := range l.buckets {
		keys = append(keys, h)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if len(keys) > hours {
		keys = keys[len(keys)-hours:]
	}

	report := &Report{PeriodHours: hours}
	for _, h := range keys {
		b := l.buckets[h]
		report.Buckets = append(report.Buckets, *b)
		report.TotalCost += b.Cost
		report.TotalRequests += b.Requests
	}

	if report.TotalRequests > 0 {
		report.CostPerRequest = report.TotalCost / report.TotalRequests
	} else {
		report.CostPerRequest = math.NaN()
	}

	report.Recommendations = recommendations(report.Buckets, capacity)
	return report
}

// minRecommendationHours is the observation floor below which the ledger
// declines to recommend anything.
const minRecommendationHours = 12

// recommendations derives informational policy hints from the trailing
// buckets. No side effects.
func recommendations(buckets []Bucket, capacity int) []string {
	if len(buckets) < minRecommendationHours {
		return []string{"Need more data for recommendations"}
	}

	var recs []string
	var costSum, usageSum float64
	minCost, maxCost := math.Inf(1), math.Inf(-1)
	for _, b := range buckets {
		costSum += b.Cost
		usageSum += float64(b.PeakUsers)
		if b.Cost < minCost {
			minCost = b.Cost
		}
		if b.Cost > maxCost {
			maxCost = b.Cost
		}
	}
	avgCost := costSum / float64(len(buckets))
	avgUsage := usageSum / float64(len(buckets))

	if capacity > 0 {
		utilization := avgUsage / float64(capacity)
		if utilization < 0.3 {
			recs = append(recs, "Consider scaling down - average utilization is below 30%")
		} else if utilization > 0.9 {
			recs = append(recs, "Consider scaling up - average utilization is above 90%")
		}
	}

	if maxCost-minCost > avgCost*0.5 {
		recs = append(recs, "High cost variance detected - consider auto-scaling policies")
	}

	var peakHours []int
	for i, b := range buckets {
		if float64(b.PeakUsers) > avgUsage*1.5 {
			peakHours = append(peakHours, i)
		}
	}
	if len(peakHours) > 0 {
		recs = append(recs, peakWindowHint(buckets, peakHours))
	}

	return recs
}

// peakWindowHint names the wall-clock hours with outlier usage as candidate
// scheduled-scaling windows.
func peakWindowHint(buckets []Bucket, peakIdx []int) string {
	hours := make([]string, 0, len(peakIdx))
	for _, i := range peakIdx {
		t := time.Unix(buckets[i].Hour*3600, 0).UTC()
		hours = append(hours, t.Format("15:00"))
	}
	return "Peak usage detected at " + joinHours(hours) + " - consider scheduled scaling"
}

func joinHours(hours []string) string {
	out := ""
	for i, h := range hours {
		if i > 0 {
			out += ", "
		}
		out += h
	}
	return out
}
