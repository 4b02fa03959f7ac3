package benchmark

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/storage/memory"
)

// IdentityCounts defines the number of distinct client identities.
var IdentityCounts = []int{100, 1000, 10000, 100000}

// SmallIdentityCounts for quick benchmarks.
var SmallIdentityCounts = []int{100, 1000}

// identities returns count distinct IPv4 identities.
func identities(count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
	}
	return ids
}

// newPipeline builds a pipeline whose limit is never reached.
func newPipeline(store *memory.DefenseStore) *defense.Pipeline {
	return defense.NewPipeline(store, defense.Config{
		Window:      time.Minute,
		MaxRequests: 1 << 30,
	})
}

// browserRequest returns a GET request that passes the header checks.
func browserRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) BenchmarkTest/1.0")
	return r
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithIdentityCounts runs a benchmark function with various identity counts.
func runWithIdentityCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("identities_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
