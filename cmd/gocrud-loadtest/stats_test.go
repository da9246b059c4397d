package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}

	assert.Equal(t, time.Millisecond, percentile(samples, 0))
	assert.Equal(t, 50*time.Millisecond, percentile(samples, 50))
	assert.Equal(t, 99*time.Millisecond, percentile(samples, 99))
	assert.Equal(t, 100*time.Millisecond, percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestComputeStatsSorts(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{3, 1, 2}, 1)
	assert.Equal(t, 3, s.ops)
	assert.EqualValues(t, 1, s.failures)
	assert.Equal(t, time.Duration(2), s.p50)
	assert.InDelta(t, 3.0, s.opsPerS, 1e-9)

	assert.Zero(t, computeStats(time.Second, nil, 0).ops)
}
