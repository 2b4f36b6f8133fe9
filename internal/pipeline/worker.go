package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Worker renders the documents of a job one after another.
type Worker struct {
	renderer Renderer
	stats    *RenderStats
	log      *slog.Logger
}

func NewWorker(renderer Renderer, stats *RenderStats, log *slog.Logger) *Worker {
	return &Worker{
		renderer: renderer,
		stats:    stats,
		log:      log,
	}
}

// Process renders every path of job. A fatal error on one document is
// recorded and the remaining documents are still rendered.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	job.SetStatus(StatusRendering, "rendering")

	failed := 0
	for i, p := range job.Paths {
		if err := ctx.Err(); err != nil {
			log.Warn("job canceled", "rendered", i, "total", len(job.Paths))
			job.AddError(fmt.Sprintf("canceled: %s", err))
			job.SetStatus(StatusCanceled, fmt.Sprintf("document %d of %d", i+1, len(job.Paths)))
			return
		}
		job.SetStatus(StatusRendering, fmt.Sprintf("document %d of %d", i+1, len(job.Paths)))

		start := time.Now()
		res, err := w.renderer.Render(p)
		elapsed := time.Since(start).Milliseconds()
		w.stats.Record(elapsed, err != nil)

		dr := DocumentResult{Path: p, DurationMs: elapsed}
		if res != nil {
			dr.Path = res.Path
			dr.Title = res.Title
			dr.HTML = res.HTML
			dr.Diagnostics = res.Diagnostics
		}
		if err != nil {
			failed++
			log.Error("render failed", "path", p, "error", err)
			dr.Error = err.Error()
			job.AddError(fmt.Sprintf("%s: %s", p, err))
		} else {
			dr.ContentHash = ContentHashHex([]byte(dr.HTML))
			log.Info("document rendered", "path", dr.Path, "diagnostics", len(dr.Diagnostics), "duration_ms", elapsed)
		}
		job.AddResult(dr)
	}

	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted, "done")
	case failed < len(job.Paths):
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "rendering")
	}
}
