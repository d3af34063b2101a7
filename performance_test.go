package flowgrid

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStepOverheadUnder1ms verifies the non-functional requirement that the
// executor's overhead per step (excluding runtime backend work) is < 1ms.
//
// We build a workflow with many sequential key presses against NopRuntime to
// amortize timer granularity and incidental overhead, then measure average
// duration per step.
func TestStepOverheadUnder1ms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	const N = 1000 // enough steps to get a stable average without taking long

	b := NewBuilder().Node("s0000", "key_press", map[string]any{"key": "enter"})
	for i := 1; i < N; i++ {
		b.Then(NodeID(fmt.Sprintf("s%04d", i)), "key_press", map[string]any{"key": "enter"})
	}
	g, err := b.Build()
	require.NoError(t, err)

	// Warm-up run to avoid measuring one-time costs (e.g., allocations, caches).
	_, err = Run(ctx, g, NopRuntime{})
	require.NoError(t, err)

	start := time.Now()
	run, err := Run(ctx, g, NopRuntime{})
	require.NoError(t, err)
	total := time.Since(start)

	require.Equal(t, N, run.Steps())

	avgPerStep := total / N
	if avgPerStep >= time.Millisecond {
		t.Fatalf("average executor overhead per step too high: %v (total %v for %d steps)", avgPerStep, total, N)
	}
}

// TestMinimalMemoryFootprintUnder5MB verifies that an in-memory Library stays
// under ~5MB of heap usage.
//
// We force a GC, capture HeapAlloc, create the library, force another GC and
// compare HeapAlloc again. This provides a conservative estimate of retained
// heap usage attributable to initialization.
func TestMinimalMemoryFootprintUnder5MB(t *testing.T) {
	t.Parallel()

	// Help the GC by minimizing noise from other goroutines.
	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	lib := NewLibrary()
	// Keep lib alive until after measurement.
	runtime.KeepAlive(lib)

	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	const fiveMB = 5 * 1024 * 1024
	used := int64(after.HeapAlloc) - int64(before.HeapAlloc)
	if used < 0 {
		used = 0 // be robust to minor fluctuations
	}

	if used >= fiveMB {
		t.Fatalf("minimal memory footprint too high: %d bytes (>= %d)", used, fiveMB)
	}
}
