package main

import (
	"context"
	"io"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/engine"
	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

// progressObserver drives a progress bar from engine events.
type progressObserver struct {
	ctx    context.Context
	w      io.Writer
	logger *logging.Logger
	bar    *progressbar.ProgressBar
}

var _ engine.Observer = (*progressObserver)(nil)

func newProgressObserver(ctx context.Context, w io.Writer, logger *logging.Logger) *progressObserver {
	return &progressObserver{ctx: ctx, w: w, logger: logger}
}

func (p *progressObserver) OnStart(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Progress"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) OnProgress(added int) {
	if p.bar != nil && added > 0 {
		_ = p.bar.Add(added)
	}
}

func (p *progressObserver) OnStepError(step, attempt int, err error) {
	p.logger.Warn(p.ctx, "step attempt failed",
		zap.Int("step", step),
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
}

func (p *progressObserver) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// nodeLogger reports tree expansion at debug level.
type nodeLogger struct {
	ctx    context.Context
	logger *logging.Logger
}

var _ topictree.Observer = nodeLogger{}

func (n nodeLogger) OnNode(path, subtopics []string, fallback bool) {
	n.logger.Debug(logging.WithTopicPath(n.ctx, path), "node expanded",
		zap.Strings("subtopics", subtopics),
		zap.Bool("fallback", fallback),
	)
}
