package rules

// RequestSample describes one recently served request, used to classify the
// workload into a profile tier.
type RequestSample struct {
	ProcessingTimeSec float64
	RequiresGPU       bool
	LargeContext      bool
}

// Workload tiers, lightest first.
const (
	TierLight        = "light"
	TierMedium       = "medium"
	TierHeavy        = "heavy"
	TierGPUIntensive = "gpu_intensive"
)

// ClassifyWorkload inspects recent request samples and names the resource
// tier that fits them. An empty sample set classifies as light.
func ClassifyWorkload(samples []RequestSample) string {
	if len(samples) == 0 {
		return TierLight
	}

	var totalTime float64
	needsGPU := false
	memoryIntensive := false
	for _, s := range samples {
		totalTime += s.ProcessingTimeSec
		if s.RequiresGPU {
			needsGPU = true
		}
		if s.LargeContext {
			memoryIntensive = true
		}
	}
	avgTime := totalTime / float64(len(samples))

	switch {
	case needsGPU && (avgTime > 10 || memoryIntensive):
		return TierGPUIntensive
	case needsGPU || avgTime > 5:
		return TierHeavy
	case avgTime > 2 || memoryIntensive:
		return TierMedium
	default:
		return TierLight
	}
}
