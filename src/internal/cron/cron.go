package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs named periodic jobs. Specs take a leading seconds field.
type Scheduler struct {
	c    *cron.Cron
	jobs map[string]cron.EntryID
	mu   sync.RWMutex
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		c:    cron.New(cron.WithSeconds()),
		jobs: make(map[string]cron.EntryID),
	}
}

// Add schedules fn under name, replacing any job already registered with
// that name.
func (s *Scheduler) Add(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.c.Remove(entryID)
		delete(s.jobs, name)
	}

	entryID, err := s.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("cron job panicked", "job", name, "panic", r)
			}
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	s.jobs[name] = entryID
	slog.Debug("scheduled job", "job", name, "spec", spec)
	return nil
}

// Every schedules fn at a fixed interval.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) error {
	return s.Add(name, "@every "+d.String(), fn)
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.c.Remove(entryID)
		delete(s.jobs, name)
	}
}

// Names lists the scheduled jobs.
func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Next reports the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	entryID, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.c.Entry(entryID).Next, true
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.c.Stop()
}
