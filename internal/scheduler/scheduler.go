package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type messagePruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper deletes chat messages older than the configured retention
// window once a night. A retention of 0 days disables the sweep entirely.
type RetentionSweeper struct {
	cron          *cron.Cron
	messages      messagePruner
	retentionDays int
}

func NewRetentionSweeper(messages messagePruner, retentionDays int) *RetentionSweeper {
	return &RetentionSweeper{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		messages:      messages,
		retentionDays: retentionDays,
	}
}

func (s *RetentionSweeper) Start() error {
	if s.retentionDays <= 0 {
		log.Println("Message retention disabled, sweeper not scheduled")
		return nil
	}

	// Nightly, off the busy hours
	if _, err := s.cron.AddFunc("10 3 * * *", s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Retention sweeper scheduled (keep %d days)", s.retentionDays)
	return nil
}

func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *RetentionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	pruned, err := s.messages.PruneBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Retention sweep failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Retention sweep removed %d messages older than %s", pruned, cutoff.Format(time.RFC3339))
	}
}
