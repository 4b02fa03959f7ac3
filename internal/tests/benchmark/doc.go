// Package benchmark provides performance benchmarks for TradeGate's
// security hot paths: the defense pipeline, the credential vault and
// token validation.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run with specific identity counts:
//
//	go test -bench=BenchmarkPipeline -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
