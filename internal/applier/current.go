package applier

import (
	"sync"

	"github.com/julianstephens/dayplan/internal/models"
)

// CurrentSchedule holds the applied schedule. Apply is its only writer;
// readers get deep copies.
type CurrentSchedule struct {
	mu      sync.RWMutex
	payload *models.SchedulePayload
}

func (c *CurrentSchedule) Get() (models.SchedulePayload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil {
		return models.SchedulePayload{}, false
	}
	return c.payload.Clone(), true
}

func (c *CurrentSchedule) FindTask(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil {
		return models.Task{}, false
	}
	t, ok := c.payload.FindTask(id)
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// swap installs p and returns the schedule it replaced.
func (c *CurrentSchedule) swap(p models.SchedulePayload) *models.SchedulePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.payload
	c.payload = &p
	return old
}

// Restore installs a schedule loaded from storage at startup.
func (c *CurrentSchedule) Restore(p models.SchedulePayload) {
	c.swap(p.Clone())
}
