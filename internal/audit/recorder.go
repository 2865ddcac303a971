// Package audit records privileged actions. Recording is
// fire-and-forget: a failure to record never fails the operation that
// triggered it.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/tasks"
	"gorm.io/gorm"
)

type Recorder struct {
	client *asynq.Client
	db     *gorm.DB
	logger *slog.Logger
}

// NewRecorder builds a recorder that enqueues entries for the worker.
// With a nil client (tests, redis-less development) entries are
// written straight to the database.
func NewRecorder(client *asynq.Client, db *gorm.DB, logger *slog.Logger) *Recorder {
	return &Recorder{client: client, db: db, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, actorID uuid.UUID, communityID *uuid.UUID, action string, metadata map[string]string) {
	if r.client != nil {
		task, err := tasks.NewAuditRecordTask(tasks.AuditRecordPayload{
			ActorID:     actorID,
			CommunityID: communityID,
			Action:      action,
			Metadata:    metadata,
			RecordedAt:  time.Now().UTC(),
		})
		if err == nil {
			if _, err = r.client.EnqueueContext(ctx, task); err == nil {
				return
			}
		}
		r.logger.Warn("audit enqueue failed, writing directly", "action", action, "error", err)
	}

	meta := "{}"
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			meta = string(data)
		}
	}

	entry := models.AuditLog{
		ActorID:     actorID,
		CommunityID: communityID,
		Action:      action,
		Metadata:    meta,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Error("audit record failed", "action", action, "error", err)
	}
}
