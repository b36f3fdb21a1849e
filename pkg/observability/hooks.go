package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tally/pkg/domain"
)

// LoggingHooks logs every command and evaluation at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			logger.DebugContext(ctx, "command",
				"session_id", e.SessionID,
				"kind", e.Command.Kind,
				"token", e.Command.Token,
				"expression", e.Expression,
			)
		},
		OnEvaluate: func(ctx context.Context, e *domain.EvaluateEvent) {
			if e.Outcome.Err != nil {
				logger.DebugContext(ctx, "evaluate",
					"session_id", e.SessionID,
					"expression", e.Expression,
					"error", e.Outcome.Err,
					"duration", e.Duration,
				)
				return
			}
			logger.DebugContext(ctx, "evaluate",
				"session_id", e.SessionID,
				"expression", e.Expression,
				"result", e.Outcome.Text,
				"duration", e.Duration,
			)
		},
	}
}

// Combine fans each event out to every non-nil hook in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var onCommand []func(context.Context, *domain.CommandEvent)
	var onEvaluate []func(context.Context, *domain.EvaluateEvent)
	for _, h := range hooks {
		if h.OnCommand != nil {
			onCommand = append(onCommand, h.OnCommand)
		}
		if h.OnEvaluate != nil {
			onEvaluate = append(onEvaluate, h.OnEvaluate)
		}
	}

	var combined domain.LifecycleHooks
	if len(onCommand) > 0 {
		combined.OnCommand = func(ctx context.Context, e *domain.CommandEvent) {
			for _, fn := range onCommand {
				fn(ctx, e)
			}
		}
	}
	if len(onEvaluate) > 0 {
		combined.OnEvaluate = func(ctx context.Context, e *domain.EvaluateEvent) {
			for _, fn := range onEvaluate {
				fn(ctx, e)
			}
		}
	}
	return combined
}
