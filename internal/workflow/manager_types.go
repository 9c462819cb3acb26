package workflow

import (
	"time"

	"tunefetch/internal/queue"
	"tunefetch/internal/stage"
)

// Pipeline lists the stage handlers run for each source kind, in order.
type Pipeline struct {
	Remote []stage.Handler
	Local  []stage.Handler
}

// Stages returns the handlers for kind.
func (p Pipeline) Stages(kind queue.SourceKind) []stage.Handler {
	switch kind {
	case queue.SourceRemote:
		return p.Remote
	case queue.SourceLocal:
		return p.Local
	default:
		return nil
	}
}

func (p Pipeline) all() []stage.Handler {
	seen := make(map[stage.Handler]struct{})
	out := make([]stage.Handler, 0, len(p.Remote)+len(p.Local))
	for _, list := range [][]stage.Handler{p.Remote, p.Local} {
		for _, h := range list {
			if h == nil {
				continue
			}
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// entry pairs a queued item with the handlers chosen for it at submission.
type entry struct {
	item     *queue.Item
	handlers []stage.Handler
}

// QueueSnapshot is a point-in-time copy of the queue.
type QueueSnapshot struct {
	Items    []queue.Snapshot
	Total    int
	Finished int
	Pending  int
	ActiveID string
	Progress float64
	TakenAt  time.Time
}

// DrainSummary describes the queue when the worker runs out of items.
type DrainSummary struct {
	Total     int
	Completed int
	Failed    int
	Elapsed   time.Duration
}
