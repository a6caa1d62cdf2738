package collector

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs collection rounds on a cron schedule. Overlapping rounds
// are skipped rather than queued, so a slow upstream cannot pile up runs.
type Scheduler struct {
	runner  *cron.Cron
	manager *Manager
}

func NewScheduler(m *Manager) *Scheduler {
	return &Scheduler{
		manager: m,
		runner: cron.New(
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
	}
}

// Schedule registers a periodic run of all sources. The spec accepts the
// standard five-field cron syntax as well as descriptors like "@daily" and
// "@every 6h". Sources that failed a round are simply retried on the next
// one.
func (s *Scheduler) Schedule(spec string, opts CollectOptions) error {
	_, err := s.runner.AddFunc(spec, func() {
		log.Printf("Scheduled collection round starting")
		results := s.manager.CollectFromAllSources(opts)
		log.Printf("Scheduled collection round finished, %d of %d sources succeeded",
			len(results), len(s.manager.order))
	})
	return err
}

// Start launches the cron runner. It returns immediately.
func (s *Scheduler) Start() {
	s.runner.Start()
}

// Stop shuts the runner down and waits for an in-flight round to finish.
func (s *Scheduler) Stop() {
	ctx := s.runner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(15 * time.Second):
		log.Println("Scheduler shutdown timed out")
	}
}
