// Package jobs управляет фоновыми задачами (cron).
// scheduler.go периодически чистит память: истёкшие виды лидерборда,
// устаревшие записи кулдауна и окна rate-limiter'а.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultSweepSpec — расписание очистки по умолчанию.
const DefaultSweepSpec = "@every 1m"

// Sweeper — компонент, который умеет удалять устаревшие записи.
// Sweep возвращает, сколько записей удалено.
type Sweeper interface {
	Sweep() int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	sweepers map[string]Sweeper
}

// NewScheduler создаёт планировщик. spec — расписание в формате cron
// ("" — DefaultSweepSpec).
func NewScheduler(spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return &Scheduler{
		cron:     cron.New(),
		spec:     spec,
		sweepers: make(map[string]Sweeper),
	}
}

// Register добавляет компонент в очистку под именем name.
func (s *Scheduler) Register(name string, sw Sweeper) {
	s.sweepers[name] = sw
}

// RunOnce проходит все компоненты один раз, возвращает удалённое по именам.
func (s *Scheduler) RunOnce() map[string]int {
	out := make(map[string]int, len(s.sweepers))
	for name, sw := range s.sweepers {
		out[name] = sw.Sweep()
	}
	return out
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		removed := s.RunOnce()
		fields := log.Fields{}
		total := 0
		for name, n := range removed {
			fields[name] = n
			total += n
		}
		if total > 0 {
			log.WithFields(fields).Debug("[CRON] Очистка устаревших записей")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.WithField("spec", s.spec).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
