package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeInvitationEmail = "invitation:email"
	TypeInvitationSweep = "invitation:sweep"
	TypeAuditRecord     = "audit:record"
)

// InvitationEmailPayload identifies the invitation to deliver. The
// worker re-reads the row so a revoke between enqueue and delivery
// wins.
type InvitationEmailPayload struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

func NewInvitationEmailTask(payload InvitationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInvitationEmail, data), nil
}

// AuditRecordPayload carries one append-only audit entry.
type AuditRecordPayload struct {
	ActorID     uuid.UUID         `json:"actor_id"`
	CommunityID *uuid.UUID        `json:"community_id,omitempty"`
	Action      string            `json:"action"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RecordedAt  time.Time         `json:"recorded_at"`
}

func NewAuditRecordTask(payload AuditRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditRecord, data, asynq.Queue("low")), nil
}

// NewInvitationSweepTask marks long-expired invitations. Status stays
// derived at read time; the sweep only keeps the stored column from
// drifting too far.
func NewInvitationSweepTask() *asynq.Task {
	return asynq.NewTask(TypeInvitationSweep, nil, asynq.Queue("low"))
}
