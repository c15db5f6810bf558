package rules

import "testing"

func TestClassifyWorkload(t *testing.T) {
	tests := []struct {
		name    string
		samples []RequestSample
		want    string
	}{
		{
			name:    "no samples is light",
			samples: nil,
			want:    TierLight,
		},
		{
			name:    "quick requests are light",
			samples: []RequestSample{{ProcessingTimeSec: 0.5}, {ProcessingTimeSec: 1.2}},
			want:    TierLight,
		},
		{
			name:    "moderate latency is medium",
			samples: []RequestSample{{ProcessingTimeSec: 3}, {ProcessingTimeSec: 2.5}},
			want:    TierMedium,
		},
		{
			name:    "large context promotes to medium",
			samples: []RequestSample{{ProcessingTimeSec: 1, LargeContext: true}},
			want:    TierMedium,
		},
		{
			name:    "slow requests are heavy",
			samples: []RequestSample{{ProcessingTimeSec: 8}, {ProcessingTimeSec: 6}},
			want:    TierHeavy,
		},
		{
			name:    "fast GPU work is heavy",
			samples: []RequestSample{{ProcessingTimeSec: 1, RequiresGPU: true}},
			want:    TierHeavy,
		},
		{
			name:    "slow GPU work is gpu intensive",
			samples: []RequestSample{{ProcessingTimeSec: 12, RequiresGPU: true}},
			want:    TierGPUIntensive,
		},
		{
			name:    "GPU with large context is gpu intensive",
			samples: []RequestSample{{ProcessingTimeSec: 2, RequiresGPU: true, LargeContext: true}},
			want:    TierGPUIntensive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyWorkload(tt.samples); got != tt.want {
				t.Errorf("ClassifyWorkload() = %s, want %s", got, tt.want)
			}
		})
	}
}
