package sessions

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess         ActivityEventType = "session.login.success"
	ActivityEventLoginFailure         ActivityEventType = "session.login.failure"
	ActivityEventLogout               ActivityEventType = "session.logout"
	ActivityEventRefresh              ActivityEventType = "session.refresh"
	ActivityEventForceLogout          ActivityEventType = "session.force_logout"
	ActivityEventAccountConfirmed     ActivityEventType = "account.confirmed"
	ActivityEventAccountRegistered    ActivityEventType = "account.registered"
	ActivityEventCredentialsUpdated   ActivityEventType = "account.credentials.updated"
	ActivityEventPasswordResetRequest ActivityEventType = "account.password_reset.requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "account.password_reset.success"
)

// ActorRef identifies who triggered an event: the user themselves, an admin,
// or "unknown" before authentication resolved.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}
