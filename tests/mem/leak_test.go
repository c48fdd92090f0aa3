//go:build test

package mem

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/dictionary"
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/storage"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var sentences = []string{
	"merhaba nasılsın bugün",
	"bugün hava çok güzel",
	"yarın sabah erken geleceğim",
	"akşam yemeğinde görüşürüz",
	"iyi günler dilerim",
	"toplantı saat üçte başlayacak",
}

var typingPatterns = [][]string{
	{"m", "me", "mer", "merh", "merha", "merhab", "merhaba"},
	{"b", "bu", "bug", "bugü", "bugün"},
	{"g", "gü", "güz", "güze", "güzel"},
	{"t", "to", "top", "topl", "topla", "toplan", "toplant", "toplantı"},
	{""},
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	var words []string
	for _, s := range sentences {
		words = append(words, strings.Fields(s)...)
	}
	e, err := engine.New(context.Background(), engine.Options{
		KV:         storage.NewMemoryKV(),
		Dictionary: dictionary.FromWords(tokenize.NewFolder("tr"), words),
		Logger:     logger.Discard("engine"),
	})
	if err != nil {
		t.Fatalf("engine initialization failed: %v", err)
	}
	return e
}

// typeSentence commits a sentence word by word, predicting at every keystroke.
func typeSentence(e *engine.Engine, sentence string) int {
	ops := 0
	for _, w := range strings.Fields(sentence) {
		for i := range w {
			e.Predict(w[:i])
			ops++
		}
		e.CommitWord(w)
		ops++
	}
	e.CommitSentence(sentence)
	return ops + 1
}

func memDelta(baseline, final runtime.MemStats) int64 {
	return int64(final.Alloc) - int64(baseline.Alloc)
}

func TestMemoryLeakBasic(t *testing.T) {
	iterations := []int{100, 500, 1000, 2500}

	for _, iterCount := range iterations {
		t.Run(fmt.Sprintf("iterations_%d", iterCount), func(t *testing.T) {
			runBasicMemoryTest(t, iterCount)
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	configs := []struct {
		workers             int
		iterationsPerWorker int
	}{
		{workers: 1, iterationsPerWorker: 1000},
		{workers: 2, iterationsPerWorker: 500},
		{workers: 4, iterationsPerWorker: 250},
		{workers: 8, iterationsPerWorker: 125},
	}

	for _, config := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", config.workers, config.iterationsPerWorker), func(t *testing.T) {
			runConcurrentMemoryTest(t, config.workers, config.iterationsPerWorker)
		})
	}
}

func TestMemoryStabilityLongRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long-running memory stability test in short mode")
	}
	runLongRunMemoryTest(t, 50, 200)
}

func runBasicMemoryTest(t *testing.T, iterations int) {
	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	e := newEngine(t)
	totalOps := 0
	for i := 0; i < iterations; i++ {
		totalOps += typeSentence(e, sentences[i%len(sentences)])
	}
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
	delta := memDelta(baseline, final)
	memPerOp := float64(delta) / float64(totalOps)

	t.Logf("iterations=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		iterations, totalOps, delta, memPerOp, goroutineDelta)

	if memPerOp > 1000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}
	if goroutineDelta > 0 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runConcurrentMemoryTest(t *testing.T, workers, iterationsPerWorker int) {
	memFile, err := os.Create("concurrent_memory.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer func() {
		memFile.Close()
		os.Remove("concurrent_memory.prof")
	}()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	e := newEngine(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	totalOps := 0

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			ops := 0
			for iter := 0; iter < iterationsPerWorker; iter++ {
				if (worker+iter)%4 == 0 {
					ops += typeSentence(e, sentences[iter%len(sentences)])
					continue
				}
				for _, prefix := range typingPatterns[iter%len(typingPatterns)] {
					e.Predict(prefix)
					ops++
				}
			}
			mu.Lock()
			totalOps += ops
			mu.Unlock()
		}(worker)
	}
	wg.Wait()
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
	delta := memDelta(baseline, final)
	memPerOp := float64(delta) / float64(totalOps)

	t.Logf("workers=%d iter_per_worker=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		workers, iterationsPerWorker, totalOps, delta, memPerOp, goroutineDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}
	if memPerOp > 1000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}
	if goroutineDelta > 0 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runLongRunMemoryTest(t *testing.T, cycles, opsPerCycle int) {
	memFile, err := os.Create("longrun_stability.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer func() {
		memFile.Close()
		os.Remove("longrun_stability.prof")
	}()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	e := newEngine(t)
	totalOps := 0
	maxMemDelta := int64(0)

	for cycle := 0; cycle < cycles; cycle++ {
		for op := 0; op < opsPerCycle; op++ {
			pattern := typingPatterns[op%len(typingPatterns)]
			e.Predict(pattern[op%len(pattern)])
			totalOps++
		}
		totalOps += typeSentence(e, sentences[cycle%len(sentences)])

		if cycle%10 == 0 {
			var m runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&m)

			delta := memDelta(baseline, m)
			if delta > maxMemDelta {
				maxMemDelta = delta
			}
			t.Logf("cycle=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				cycle, totalOps, delta, float64(delta)/float64(totalOps), runtime.NumGoroutine()-baselineGoroutines)
		}

		if cycle%20 == 0 && cycle > 0 {
			e.RunMaintenance(0)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutineDelta := runtime.NumGoroutine() - baselineGoroutines
	finalMemDelta := memDelta(baseline, final)
	finalMemPerOp := float64(finalMemDelta) / float64(totalOps)

	t.Logf("final_summary: cycles=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d max_mem_delta=%d",
		cycles, totalOps, finalMemDelta, finalMemPerOp, finalGoroutineDelta, maxMemDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}
	if finalMemPerOp > 500 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", finalMemPerOp)
	}
	if finalGoroutineDelta > 0 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", finalGoroutineDelta)
	}
	if maxMemDelta > 10*1024*1024 {
		t.Errorf("excessive peak memory usage: %d bytes", maxMemDelta)
	}
}
