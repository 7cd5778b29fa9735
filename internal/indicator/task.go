package indicator

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

const taskInterval = 200 * time.Millisecond

// Task drives a Renderer at 200 ms.
type Task struct {
	world    *world.World
	renderer *Renderer
}

// NewTask wires an indicator task over its collaborators.
func NewTask(w *world.World, renderer *Renderer) *Task {
	return &Task{world: w, renderer: renderer}
}

// Run drives the task until stop fires or world.Running goes false.
func (t *Task) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(taskInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return t.renderer.transport.Clear()
		case <-ticker.C:
			if !t.world.Running.Load() {
				return t.renderer.transport.Clear()
			}
			_ = t.renderer.Render(t.world.Snapshot())
		}
	}
}
