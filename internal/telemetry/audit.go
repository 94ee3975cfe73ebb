package telemetry

import (
	"context"
	"log"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes action-level audit events (joins, chat creation,
// blocks) for offline analysis. Emission is best effort.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	Username      string       `json:"username,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Action string `json:"action"`
	ChatID string `json:"chat_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event. A nil emitter is safe to call.
func (e *AuditEmitter) Emit(ctx context.Context, action, username, chatID, detail string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Username:      username,
		Payload: AuditPayload{
			Action: action,
			ChatID: chatID,
			Detail: detail,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
