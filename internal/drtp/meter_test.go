package drtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThroughputUnits(t *testing.T) {
	tests := []struct {
		name       string
		totalBytes int64
		elapsed    time.Duration
		want       string
	}{
		{"bps", 1, time.Second, "8.00 bps"},
		{"kbps", 125, time.Second, "1.00 Kbps"},
		{"mbps", 125000, time.Second, "1.00 Mbps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Throughput(tt.totalBytes, tt.elapsed))
		})
	}
}
