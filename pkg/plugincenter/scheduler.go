package plugincenter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/types"
	"github.com/robfig/cron/v3"
)

// scheduler wraps a robfig/cron instance that enqueues each scheduled
// plugin's refresh at its configured interval. It owns no persistent
// state of its own — refresh functions are responsible for persisting
// whatever they produce.
type scheduler struct {
	center *Center

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func newScheduler(c *Center) *scheduler {
	return &scheduler{center: c}
}

func (s *scheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.cron = cron.New()
	for _, name := range s.center.ListPlugins() {
		d, ok := s.center.descriptor(name)
		if !ok || d.Kind != types.PluginSchedule {
			continue
		}
		spec := intervalSpec(d.ScheduleConfig)
		descriptor := d
		_, err := s.cron.AddFunc(spec, func() {
			s.center.runRefresh(context.Background(), descriptor)
		})
		if err != nil {
			s.center.log.Error("failed to schedule plugin refresh", "plugin", d.Name, "error", err)
		}
	}
	s.cron.Start()
	s.running = true
}

// stop is idempotent: stopping an already-stopped or never-started
// scheduler is a no-op.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// intervalSpec converts a fractional-hour interval into a robfig/cron
// "@every" spec.
func intervalSpec(cfg types.ScheduleConfig) string {
	d := time.Duration(cfg.IntervalHours * float64(time.Hour))
	if d <= 0 {
		d = time.Hour
	}
	return fmt.Sprintf("@every %s", d)
}
