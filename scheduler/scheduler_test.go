package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cinereads/config"
)

type fakeMaintainer struct {
	sweeps   int32
	compacts int32
	sweepErr error
}

func (f *fakeMaintainer) Sweep(context.Context) (int, error) {
	atomic.AddInt32(&f.sweeps, 1)
	return 3, f.sweepErr
}

func (f *fakeMaintainer) Compact(context.Context) error {
	atomic.AddInt32(&f.compacts, 1)
	return nil
}

func TestGetNextTimePoint(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "later today", now: time.Date(2024, 5, 1, 2, 0, 0, 0, loc), want: time.Date(2024, 5, 1, 4, 30, 0, 0, loc)},
		{name: "already passed", now: time.Date(2024, 5, 1, 5, 0, 0, 0, loc), want: time.Date(2024, 5, 2, 4, 30, 0, 0, loc)},
		{name: "exactly now", now: time.Date(2024, 5, 1, 4, 30, 0, 0, loc), want: time.Date(2024, 5, 1, 4, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getNextTimePoint(tt.now, 4, 30); !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateHourMinute(t *testing.T) {
	if h, m := validateHourMinute(25, 61); h != 4 || m != 0 {
		t.Fatalf("invalid values must fall back to 04:00, got %02d:%02d", h, m)
	}
	if h, m := validateHourMinute(23, 59); h != 23 || m != 59 {
		t.Fatalf("valid values must be kept, got %02d:%02d", h, m)
	}
}

func TestSweepRunsWhenDue(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.SweepIntervalSec = 600
	cfg.Scheduler.CompactHour = 4
	cfg.Scheduler.CompactMinute = 0

	m := &fakeMaintainer{}
	s := NewScheduler(cfg, m)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	s.initTasks(now)

	s.checkTasks(now.Add(5 * time.Minute))
	s.wg.Wait()
	if m.sweeps != 0 {
		t.Fatalf("sweep ran before it was due")
	}

	due := now.Add(10 * time.Minute)
	s.checkTasks(due)
	s.wg.Wait()
	if m.sweeps != 1 || m.compacts != 0 {
		t.Fatalf("sweeps=%d compacts=%d, want 1 and 0", m.sweeps, m.compacts)
	}
	if next := s.tasks[TaskSweep].NextRun; !next.Equal(due.Add(10 * time.Minute)) {
		t.Fatalf("next sweep at %v", next)
	}
}

func TestSweepFailureKeepsSchedule(t *testing.T) {
	cfg := config.Default()
	m := &fakeMaintainer{sweepErr: errors.New("disk full")}
	s := NewScheduler(cfg, m)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	s.initTasks(now)

	due := now.Add(time.Duration(cfg.Cache.SweepIntervalSec) * time.Second)
	s.checkTasks(due)
	s.wg.Wait()
	if status := s.tasks[TaskSweep]; status.IsRunning || !status.NextRun.After(due) {
		t.Fatalf("failed sweep must be rescheduled, got %+v", status)
	}
}

func TestDebugModeSweepsEveryMinute(t *testing.T) {
	cfg := config.Default()
	cfg.Debug.Enabled = true
	s := NewScheduler(cfg, &fakeMaintainer{})
	if got := s.sweepInterval(); got != time.Minute {
		t.Fatalf("debug sweep interval = %v", got)
	}
}

func TestCompactRunsDaily(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.CompactHour = 4
	cfg.Scheduler.CompactMinute = 0

	m := &fakeMaintainer{}
	s := NewScheduler(cfg, m)
	now := time.Date(2024, 5, 1, 3, 59, 0, 0, time.Local)
	s.initTasks(now)

	at := time.Date(2024, 5, 1, 4, 0, 30, 0, time.Local)
	s.checkTasks(at)
	s.wg.Wait()
	if m.compacts != 1 {
		t.Fatalf("compacts = %d, want 1", m.compacts)
	}
	want := time.Date(2024, 5, 2, 4, 0, 0, 0, time.Local)
	if next := s.tasks[TaskCompact].NextRun; !next.Equal(want) {
		t.Fatalf("next compaction at %v, want %v", next, want)
	}
}

func TestStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.CheckIntervalSec = 1

	s := Start(cfg, &fakeMaintainer{})
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
