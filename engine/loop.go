package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/types"
)

// Input is one chat line delivered by a transport. When Apply is set it runs
// on the loop goroutine instead of routing Text, which lets a transport read
// or change engine state without racing the loop.
type Input struct {
	Channel string
	Player  types.PlayerID
	Text    string
	Apply   func(*Engine)
}

// Run is the host loop. Every iteration first ticks the scheduler with the
// wall clock and then handles whatever input arrived. It returns nil when
// inputs is closed and ctx.Err() when ctx is done.
func (e *Engine) Run(ctx context.Context, inputs <-chan Input) error {
	return e.run(ctx, inputs, time.Now)
}

func (e *Engine) run(ctx context.Context, inputs <-chan Input, clock func() time.Time) error {
	interval := e.opts.TickInterval
	if interval <= 0 {
		interval = DefaultOptions().TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("host loop started", zap.Duration("tick", interval), zap.Strings("channels", e.Channels()))
	defer e.logger.Info("host loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.OnTick(clock())
		case in, ok := <-inputs:
			if !ok {
				return nil
			}
			e.OnTick(clock())
			if in.Apply != nil {
				in.Apply(e)
				continue
			}
			e.OnCommand(in.Channel, in.Player, in.Text)
		}
	}
}
