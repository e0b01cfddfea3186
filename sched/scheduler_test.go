package sched

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/homier/lfmemo"
)

type runFunc func(s *Scheduler, ctx context.Context, key uint64, budget int, task TaskFunc) (uint64, error)

func policies() map[string]runFunc {
	return map[string]runFunc{
		"barrier": (*Scheduler).RunBarrier,
		"race":    (*Scheduler).RunRace,
		"serial": func(s *Scheduler, ctx context.Context, key uint64, _ int, task TaskFunc) (uint64, error) {
			return s.RunSerial(ctx, key, task)
		},
	}
}

func concurrentEngines() map[string]func() *lfmemo.Engine {
	return map[string]func() *lfmemo.Engine{
		"open-address": func() *lfmemo.Engine { return lfmemo.New(1 << 14) },
		"chain":        func() *lfmemo.Engine { return lfmemo.NewEngine(lfmemo.NewChainMap(1<<10, 1<<14)) },
	}
}

func TestScheduler_Binomial_AllPolicies(t *testing.T) {
	// C(40, 20)
	const want = 137846528820

	key := lfmemo.PackKey2(40, 20)

	for engineName, newEngine := range concurrentEngines() {
		for policy, run := range policies() {
			for _, budget := range []int{1, 2, 4, 8} {
				t.Run(fmt.Sprintf("%s/%s/budget=%d", engineName, policy, budget), func(t *testing.T) {
					e := newEngine()
					s := New(e, WithSeed(7))

					v, err := run(s, context.Background(), key, budget, binomial)
					require.NoError(t, err)
					require.Equal(t, uint64(want), v)
					require.NoError(t, e.Validate())
				})
			}
		}
	}
}

func TestScheduler_Serial_SerialMap(t *testing.T) {
	e := lfmemo.NewEngine(lfmemo.NewSerialMap(1 << 12))
	s := New(e)

	v, err := s.RunSerial(context.Background(), lfmemo.PackKey2(30, 15), binomial)
	require.NoError(t, err)
	require.Equal(t, uint64(155117520), v)

	stats := s.Stats()
	// Every (n, k) with k <= 15 and n-k <= 15 is computed exactly once.
	require.Equal(t, uint64(e.Len()), stats.Computed)
	require.Greater(t, stats.MemoHits, uint64(0))
	require.Equal(t, 1, stats.PeakActive)

	// Only memo checks count against the engine; reading prerequisites
	// back before combining does not.
	engineStats := e.Stats()
	require.Equal(t, stats.MemoHits, engineStats.Hits)
	require.Equal(t, stats.Evaluations-stats.MemoHits, engineStats.Misses)
}

func TestScheduler_Serial_RandomOrder(t *testing.T) {
	s := New(lfmemo.New(1<<12), WithRandomOrder(), WithSeed(1))

	v, err := s.RunSerial(context.Background(), lfmemo.PackKey2(20, 10), binomial)
	require.NoError(t, err)
	require.Equal(t, uint64(184756), v)
}

func TestScheduler_InvalidRequests(t *testing.T) {
	s := New(lfmemo.New(16))

	_, err := s.RunBarrier(context.Background(), 1, 0, binomial)
	require.ErrorIs(t, err, ErrInvalidBudget)

	_, err = s.RunRace(context.Background(), 1, -1, binomial)
	require.ErrorIs(t, err, ErrInvalidBudget)

	_, err = s.RunBarrier(context.Background(), lfmemo.EmptyKey, 2, binomial)
	require.ErrorIs(t, err, lfmemo.ErrReservedKey)

	_, err = s.RunRace(context.Background(), lfmemo.EmptyKey, 2, binomial)
	require.ErrorIs(t, err, lfmemo.ErrReservedKey)

	_, err = s.RunSerial(context.Background(), lfmemo.EmptyKey, binomial)
	require.ErrorIs(t, err, lfmemo.ErrReservedKey)
}

func TestScheduler_TerminalRoot(t *testing.T) {
	for policy, run := range policies() {
		t.Run(policy, func(t *testing.T) {
			s := New(lfmemo.New(16))

			v, err := run(s, context.Background(), lfmemo.PackKey2(5, 5), 3, binomial)
			require.NoError(t, err)
			require.Equal(t, uint64(1), v)
		})
	}
}

func TestScheduler_EmptyFanOut(t *testing.T) {
	task := func(key uint64, _ LookupFunc) Eval {
		return NeedsSubtasks(nil, func(v []uint64) uint64 { return uint64(len(v)) + 40 })
	}

	for policy, run := range policies() {
		t.Run(policy, func(t *testing.T) {
			s := New(lfmemo.New(16))

			v, err := run(s, context.Background(), 3, 2, task)
			require.NoError(t, err)
			require.Equal(t, uint64(40), v)
		})
	}
}

func TestScheduler_ZeroValues(t *testing.T) {
	// Every value in this graph is zero, which the engine must store as is.
	task := func(key uint64, _ LookupFunc) Eval {
		n, _ := lfmemo.UnpackKey2(key)
		if n == 0 {
			return Terminal(0)
		}

		return NeedsSubtasks([]uint64{lfmemo.PackKey2(n-1, 0)}, func(v []uint64) uint64 { return v[0] * 2 })
	}

	for policy, run := range policies() {
		t.Run(policy, func(t *testing.T) {
			e := lfmemo.New(64)
			s := New(e)

			v, err := run(s, context.Background(), lfmemo.PackKey2(10, 0), 2, task)
			require.NoError(t, err)
			require.Zero(t, v)

			_, ok := e.Lookup(lfmemo.PackKey2(5, 0))
			require.True(t, ok)
		})
	}
}

func TestScheduler_CapacityExhausted(t *testing.T) {
	engines := map[string]func() *lfmemo.Engine{
		"open-address": func() *lfmemo.Engine { return lfmemo.New(32) },
		"chain":        func() *lfmemo.Engine { return lfmemo.NewEngine(lfmemo.NewChainMap(8, 32)) },
	}

	for engineName, newEngine := range engines {
		for policy, run := range policies() {
			t.Run(engineName+"/"+policy, func(t *testing.T) {
				core, logs := observer.New(zapcore.ErrorLevel)
				s := New(newEngine(), WithLogger(zap.New(core)))

				// C(30, 15) needs 255 entries.
				_, err := run(s, context.Background(), lfmemo.PackKey2(30, 15), 4, binomial)
				require.ErrorIs(t, err, lfmemo.ErrCapacityExhausted)

				require.NotEmpty(t, logs.FilterMessage("memoized run failed").All())
			})
		}
	}
}

func TestScheduler_ContextCancelled(t *testing.T) {
	for policy, run := range policies() {
		t.Run(policy, func(t *testing.T) {
			p := &probe{delay: time.Millisecond}
			s := New(lfmemo.New(1 << 16))

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			// 2^12 leaves at a millisecond each is far longer than the timeout.
			_, err := run(s, ctx, treeRoot(), 2, p.wrap(tree(12)))
			require.ErrorIs(t, err, context.DeadlineExceeded)
			require.Zero(t, p.inflight.Load(), "run returned with workers still inside the task")
		})
	}
}

func TestScheduler_ResetStats(t *testing.T) {
	s := New(lfmemo.New(1 << 10))

	_, err := s.RunSerial(context.Background(), lfmemo.PackKey2(10, 5), binomial)
	require.NoError(t, err)
	require.NotZero(t, s.Stats().Evaluations)

	s.ResetStats()

	stats := s.Stats()
	assert.Zero(t, stats.Evaluations)
	assert.Zero(t, stats.PeakActive)
	assert.Equal(t, -1, stats.Winner)
}
