package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/swgfv/internal/auth"
)

func TestTimingDelay_WaitFrom(t *testing.T) {
	tests := []struct {
		name     string
		config   auth.TimingConfig
		spent    time.Duration
		success  bool
		minTotal time.Duration
		maxTotal time.Duration
	}{
		{
			name:     "failure pads up to base delay",
			config:   auth.TimingConfig{BaseDelayMs: 80},
			minTotal: 80 * time.Millisecond,
			maxTotal: 140 * time.Millisecond,
		},
		{
			name:     "elapsed work counts toward the target",
			config:   auth.TimingConfig{BaseDelayMs: 80},
			spent:    50 * time.Millisecond,
			minTotal: 80 * time.Millisecond,
			maxTotal: 140 * time.Millisecond,
		},
		{
			name:     "slow failure is not padded further",
			config:   auth.TimingConfig{BaseDelayMs: 30},
			spent:    60 * time.Millisecond,
			minTotal: 60 * time.Millisecond,
			maxTotal: 110 * time.Millisecond,
		},
		{
			name:     "jitter stays below the random range",
			config:   auth.TimingConfig{BaseDelayMs: 40, RandomDelayMs: 40},
			minTotal: 40 * time.Millisecond,
			maxTotal: 140 * time.Millisecond,
		},
		{
			name:     "success returns at once",
			config:   auth.TimingConfig{BaseDelayMs: 200},
			success:  true,
			maxTotal: 30 * time.Millisecond,
		},
		{
			name:     "success is padded when configured",
			config:   auth.TimingConfig{BaseDelayMs: 60, DelayOnSuccess: true},
			success:  true,
			minTotal: 60 * time.Millisecond,
			maxTotal: 120 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing := auth.NewTimingDelay(tt.config)
			start := time.Now()
			time.Sleep(tt.spent)

			timing.WaitFrom(start, tt.success)

			elapsed := time.Since(start)
			assert.GreaterOrEqual(t, elapsed, tt.minTotal)
			assert.Less(t, elapsed, tt.maxTotal)
		})
	}
}
