package netio

import (
	"testing"
	"time"

	"github.com/yhs0602/terrablade/internal/config"
)

func backoffConfig(limit int, base, ceiling time.Duration) config.NetworkConfig {
	return config.NetworkConfig{
		ReconnectLimit:   limit,
		ReconnectBackoff: config.Duration(base),
		BackoffCeiling:   config.Duration(ceiling),
	}
}

func TestBackoffDoublesUpToCeiling(t *testing.T) {
	b := NewBackoff(backoffConfig(0, 500*time.Millisecond, 5*time.Second))
	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second, // clamped
		5 * time.Second,
	}
	for i, w := range want {
		d, ok := b.Next()
		if !ok {
			t.Fatalf("attempt %d: exhausted with no limit", i)
		}
		if d != w {
			t.Fatalf("attempt %d: delay %v, want %v", i, d, w)
		}
	}
}

func TestBackoffLimitExhaustion(t *testing.T) {
	b := NewBackoff(backoffConfig(3, time.Second, 30*time.Second))
	for i := 0; i < 3; i++ {
		if _, ok := b.Next(); !ok {
			t.Fatalf("attempt %d: exhausted early", i)
		}
	}
	if _, ok := b.Next(); ok {
		t.Fatal("limit of 3 allowed a fourth attempt")
	}
	if b.Attempts() != 3 {
		t.Fatalf("Attempts = %d, want 3", b.Attempts())
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(backoffConfig(2, time.Second, 30*time.Second))
	b.Next()
	b.Next()
	if _, ok := b.Next(); ok {
		t.Fatal("expected exhaustion before Reset")
	}
	b.Reset()
	d, ok := b.Next()
	if !ok || d != time.Second {
		t.Fatalf("after Reset: d=%v ok=%v", d, ok)
	}
}

func TestBackoffOverflowClampsToCeiling(t *testing.T) {
	b := NewBackoff(backoffConfig(0, time.Hour, 2*time.Hour))
	for i := 0; i < 70; i++ {
		d, ok := b.Next()
		if !ok {
			t.Fatalf("attempt %d: exhausted", i)
		}
		if d > 2*time.Hour || d <= 0 {
			t.Fatalf("attempt %d: delay %v outside (0, ceiling]", i, d)
		}
	}
}
