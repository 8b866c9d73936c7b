package authz

import (
	"context"
	"log/slog"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
)

// RolePolicy grants transitions by role. Admins and managers may move any
// record and reopen closed deals. Salespeople may only move records assigned
// to them and may not reopen.
type RolePolicy struct {
	logger *slog.Logger
}

var _ ports.Authorizer = (*RolePolicy)(nil)

func NewRolePolicy(logger *slog.Logger) *RolePolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolePolicy{logger: logger}
}

func (p *RolePolicy) CanTransition(_ context.Context, actor domain.Actor, record domain.CustomerRecord, to domain.Stage) bool {
	allowed, reason := p.decide(actor, record, to)
	if !allowed {
		p.logger.Debug("transition denied",
			slog.String("actor", string(actor.ID)),
			slog.String("role", string(actor.Role)),
			slog.String("record", string(record.ID)),
			slog.String("to", string(to)),
			slog.String("reason", reason),
		)
	}
	return allowed
}

func (p *RolePolicy) decide(actor domain.Actor, record domain.CustomerRecord, to domain.Stage) (bool, string) {
	if actor.ID == "" {
		return false, "anonymous actor"
	}

	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true, ""
	case domain.RoleSalesperson:
		if record.Stage.Terminal() {
			return false, "reopening requires a manager"
		}
		if record.AssignedTo != actor.ID {
			return false, "record is assigned to someone else"
		}
		return true, ""
	default:
		return false, "unknown role"
	}
}
