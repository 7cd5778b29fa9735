package display

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

const taskInterval = 100 * time.Millisecond

// Task drives a Renderer at 100 ms.
type Task struct {
	world    *world.World
	renderer *Renderer
}

// NewTask wires a display task over its collaborators.
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
			return t.shutdown()
		case <-ticker.C:
			if !t.world.Running.Load() {
				return t.shutdown()
			}
			_ = t.renderer.Render(t.world.Snapshot())
		}
	}
}

// shutdown clears both displays and turns the backlight off.
func (t *Task) shutdown() error {
	_ = t.renderer.display1.Clear()
	_ = t.renderer.display1.Backlight(false)
	_ = t.renderer.display2.Clear()
	_ = t.renderer.display2.Backlight(false)
	return nil
}
