package dispatch

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// latencySummary renders the mean and spread of the counted response
// latencies. It returns an empty string when nothing arrived.
func latencySummary(st *State) string {
	lat := st.Latencies()
	if len(lat) == 0 {
		return ""
	}
	mean := stat.Mean(lat, nil)
	sigma := 0.0
	if len(lat) > 1 {
		sigma = stat.StdDev(lat, nil)
	}
	return fmt.Sprintf("%d responses, mean latency %.0f ms (stddev %.0f ms)",
		len(lat), mean*1000, sigma*1000)
}
