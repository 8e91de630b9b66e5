package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig sets the minimum answer time of a rejected login: BaseDelayMs
// plus a uniform jitter below RandomDelayMs.
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads failed logins so that an unknown account, a wrong password
// and a wrong captcha answer take about the same time to answer.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a uniformly distributed number in [0, max) from crypto/rand.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	var buf [8]byte
	limit := ^uint64(0) - (^uint64(0) % uint64(max))
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % uint64(max)), nil
		}
	}
}

func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if v, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(v) * time.Millisecond
		}
	}
	return delay
}

// WaitFrom sleeps until the target delay has elapsed since startTime. Work
// already done counts toward it, so slow bcrypt paths are not padded twice.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	if remaining := td.target() - time.Since(startTime); remaining > 0 {
		time.Sleep(remaining)
	}
}
