package progress

import (
	"context"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type barKey struct{}

type barVal struct {
	w io.Writer
}

// Open enables progress reporting for everything below ctx, writing
// to w. Without it, tasks are no-ops, which keeps CI logs clean.
func Open(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, barKey{}, barVal{w})
}

// Task is one counted activity. The zero value is inert.
type Task struct {
	bar *pb.ProgressBar
}

// Count starts a task of total steps described by desc.
func Count(ctx context.Context, total int64, desc string) *Task {
	h := ctx.Value(barKey{})
	if h == nil {
		return &Task{}
	}

	bar := pb.NewOptions64(
		total,
		pb.OptionSetDescription(desc),
		pb.OptionSetWriter(h.(barVal).w),
		pb.OptionSetWidth(20),
		pb.OptionThrottle(65*time.Millisecond),
		pb.OptionShowCount(),
		pb.OptionOnCompletion(func() {
			io.WriteString(h.(barVal).w, "\n")
		}),
	)

	return &Task{bar: bar}
}

// On updates the description to reflect the current step.
func (t *Task) On(step string) {
	if t.bar == nil {
		return
	}

	t.bar.Describe(step)
}

func (t *Task) Tick() {
	if t.bar == nil {
		return
	}

	t.bar.Add(1)
}

func (t *Task) Close() {
	if t.bar == nil {
		return
	}

	t.bar.Close()
}
