package scheduler

import (
	"BunOfTheDayBot/internal/config"
	"BunOfTheDayBot/internal/utils/logger/sl"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Broadcaster is the delivery side of the scheduled jobs.
type Broadcaster interface {
	BroadcastDailyBuns(ctx context.Context)
	BroadcastEveningHumor(ctx context.Context)
}

// Service runs the two recurring broadcasts: the fixed morning draw
// and the evening message at a random time inside a configured window.
// The evening job re-registers itself with a fresh random time after
// every run.
type Service struct {
	scheduler gocron.Scheduler
	loc       *time.Location
	cfg       config.ScheduleConfig
	br        Broadcaster
	log       *slog.Logger

	mu         sync.Mutex
	eveningJob gocron.Job

	intn func(n int) int
}

// New creates the scheduler. The configured timezone must resolve.
func New(logger *slog.Logger, cfg config.ScheduleConfig, br Broadcaster) (*Service, error) {
	op := "scheduler.New"

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: load timezone %q: %w", op, cfg.Timezone, err)
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		scheduler: sched,
		loc:       loc,
		cfg:       cfg,
		br:        br,
		log:       logger.With(slog.String("component", "scheduler")),
		intn:      rand.IntN,
	}, nil
}

// Start registers the morning job, schedules the first evening job and
// starts the scheduler.
func (s *Service) Start() error {
	op := "scheduler.Start"
	log := s.log.With(slog.String("op", op))

	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(s.cfg.MorningHour), uint(s.cfg.MorningMinute), 0),
		)),
		gocron.NewTask(s.runMorning),
	)
	if err != nil {
		return fmt.Errorf("%s: morning job: %w", op, err)
	}

	s.scheduler.Start()

	at, err := s.RescheduleEvening()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("scheduler started",
		slog.String("morning", fmt.Sprintf("%02d:%02d", s.cfg.MorningHour, s.cfg.MorningMinute)),
		slog.Time("evening", at))
	return nil
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Service) Shutdown(ctx context.Context) error {
	op := "scheduler.Shutdown"
	done := make(chan error, 1)
	go func() {
		done <- s.scheduler.Shutdown()
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

// RescheduleEvening cancels the pending evening job, if any, and
// registers a new one-shot job at a fresh random time in the window.
// Cancel and register happen under one lock so no gap or double
// registration is observable. Returns the new fire time.
func (s *Service) RescheduleEvening() (time.Time, error) {
	op := "scheduler.RescheduleEvening"
	log := s.log.With(slog.String("op", op))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eveningJob != nil {
		if err := s.scheduler.RemoveJob(s.eveningJob.ID()); err != nil {
			log.Warn("removing old evening job", sl.Err(err))
		}
		s.eveningJob = nil
	}

	at := s.nextEveningTime(time.Now().In(s.loc))
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(s.runEvening),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	s.eveningJob = job

	log.Info("evening broadcast scheduled", slog.Time("at", at))
	return at, nil
}

// NextEveningFire returns the pending evening fire time, if any.
func (s *Service) NextEveningFire() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eveningJob == nil {
		return time.Time{}, false
	}
	at, err := s.eveningJob.NextRun()
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func (s *Service) runMorning() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	s.br.BroadcastDailyBuns(ctx)
}

func (s *Service) runEvening() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	s.br.BroadcastEveningHumor(ctx)

	if _, err := s.RescheduleEvening(); err != nil {
		s.log.Error("rescheduling evening broadcast", sl.Err(err))
	}
}

// nextEveningTime picks a random minute inside today's window, or
// tomorrow's window when today's slot is already in the past.
func (s *Service) nextEveningTime(now time.Time) time.Time {
	windowMinutes := (s.cfg.EveningEndHour - s.cfg.EveningStartHour) * 60
	if windowMinutes <= 0 {
		windowMinutes = 1
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for {
		offset := time.Duration(s.intn(windowMinutes)) * time.Minute
		at := day.Add(time.Duration(s.cfg.EveningStartHour)*time.Hour + offset)
		if at.After(now) {
			return at
		}
		day = day.AddDate(0, 0, 1)
	}
}
