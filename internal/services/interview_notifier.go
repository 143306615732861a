package services

import (
	"context"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/realtime"
	"github.com/yungbote/avatar-interview-backend/internal/realtime/bus"
)

// =========================
// Interview notifier
// =========================

type interviewNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewInterviewNotifier(log *logger.Logger, b bus.Bus) interview.Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	if b == nil {
		b = bus.NewNoopBus()
	}
	return &interviewNotifier{log: log.With("service", "InterviewNotifier"), bus: b}
}

func (n *interviewNotifier) TurnProcessed(ctx context.Context, s *domain.Session, skill string, stage int) {
	if n == nil || s == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(realtime.EventTurnProcessed, s.ID, map[string]any{
		"skill":     skill,
		"stage":     stage,
		"turn":      s.TurnCount,
		"completed": s.Completed,
	}))
}

func (n *interviewNotifier) Completed(ctx context.Context, rep domain.Report) {
	if n == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(realtime.EventCompleted, rep.SessionID, map[string]any{
		"total_score": rep.TotalScore,
		"max_score":   rep.MaxScore,
		"percentage":  rep.Percentage,
	}))
}

func (n *interviewNotifier) publish(ctx context.Context, ev realtime.Event) {
	if err := n.bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
		n.log.Warn("Event publish failed", "event", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}
