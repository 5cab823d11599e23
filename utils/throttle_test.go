package utils

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestThrottleEnforcesInterval(t *testing.T) {
	intervalMs := 50
	th := NewThrottle(intervalMs)

	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		timestamps = append(timestamps, time.Now())
		if err := th.Pause(context.Background()); err != nil {
			t.Fatalf("Pause: %v", err)
		}
	}
	timestamps = append(timestamps, time.Now())

	min := time.Duration(intervalMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between step %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
	if th.Pauses() != 3 {
		t.Errorf("pauses: got %d, want 3", th.Pauses())
	}
}

func TestThrottleZeroIntervalDoesNotSleep(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		_ = th.Pause(context.Background())
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero-interval throttle slept for %v", elapsed)
	}
}

func TestThrottleNegativeIntervalClamped(t *testing.T) {
	if got := NewThrottle(-10).Interval(); got != 0 {
		t.Errorf("interval: got %v, want 0", got)
	}
}

func TestThrottleHonoursCancellation(t *testing.T) {
	th := NewThrottle(10_000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := th.Pause(ctx); err == nil {
		t.Fatal("expected context error from cancelled pause")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled pause still waited for the full interval")
	}
}

func TestLoggerSuppressesDebugWhenQuiet(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, false)

	l.Debug("[test] hidden %d", 1)
	l.Info("[test] shown %d", 2)
	l.Error("[test] failed %s", "x")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug line written while verbose is off")
	}
	if !strings.Contains(out.String(), "[test] shown 2") {
		t.Errorf("info line missing, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[test] failed x") {
		t.Errorf("error line missing, got %q", errOut.String())
	}
}
