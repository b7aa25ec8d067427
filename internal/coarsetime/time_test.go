package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow(t *testing.T) {
	before := time.Now()
	require.WithinDuration(t, before, Now(), 2*Resolution)

	require.Eventually(t, func() bool {
		return Now().After(before)
	}, time.Second, Resolution)
}

func TestSince(t *testing.T) {
	start := Now()
	require.GreaterOrEqual(t, Since(start), time.Duration(0))
	require.Greater(t, Since(start.Add(-time.Minute)), 59*time.Second)
}

func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
