// Package summarizer refreshes per-user conversation summaries on a schedule,
// keeping summary generation off the reply hot path.
package summarizer

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Refresher regenerates the stored summary for one user.
type Refresher interface {
	RefreshSummary(ctx context.Context, userID string) error
}

// UserLister enumerates users with stored conversation state.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Service runs summary refreshes on a cron spec. Per-user failures are
// logged and skipped; one broken user must not starve the rest.
type Service struct {
	refresher Refresher
	users     UserLister
	cron      *cron.Cron
}

func New(refresher Refresher, users UserLister) *Service {
	return &Service{
		refresher: refresher,
		users:     users,
		cron:      cron.New(),
	}
}

// Start registers the refresh job under spec and launches the scheduler.
func (s *Service) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule summary refresh: %w", err)
	}
	s.cron.Start()
	return nil
}

// RunOnce refreshes summaries for every known user and reports how many
// succeeded.
func (s *Service) RunOnce(ctx context.Context) int {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		log.Printf("summary refresh: list users: %v", err)
		return 0
	}

	refreshed := 0
	for _, id := range ids {
		if err := s.refresher.RefreshSummary(ctx, id); err != nil {
			log.Printf("summary refresh for %s: %v", id, err)
			continue
		}
		refreshed++
	}
	return refreshed
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}
