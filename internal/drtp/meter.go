package drtp

import (
	"fmt"
	"time"
)

// Throughput formats 8*totalBytes/elapsed as a human-readable bps,
// Kbps or Mbps figure, switching units at the 10^3 and 10^6 thresholds.
func Throughput(totalBytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	bitsPerSecond := 8 * float64(totalBytes) / elapsed.Seconds()

	switch {
	case bitsPerSecond >= 1e6:
		return fmt.Sprintf("%.2f Mbps", bitsPerSecond/1e6)
	case bitsPerSecond >= 1e3:
		return fmt.Sprintf("%.2f Kbps", bitsPerSecond/1e3)
	default:
		return fmt.Sprintf("%.2f bps", bitsPerSecond)
	}
}
