// Package benchmark provides performance benchmarks of the session store
// over each grid engine.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare codecs or engines:
//
//	go test -bench='Store/engine=badger' -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
