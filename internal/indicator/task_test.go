package indicator

import (
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

func TestTaskRunClearsOnStop(t *testing.T) {
	w := world.New(time.Now())
	tr := NewFakeTransport()
	task := NewTask(w, NewRenderer(tr))

	stop := make(chan struct{})
	close(stop)
	if err := task.Run(stop); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tr.Cleared == 0 {
		t.Error("expected transport cleared on stop")
	}
}
