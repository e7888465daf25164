package mapper

import (
	"encoding/json"
	"time"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JournalMapper struct{}

func NewJournalMapper() *JournalMapper {
	return &JournalMapper{}
}

// Session Mappers

func (m *JournalMapper) SessionToEntity(s *model.JournalSession) *entity.JournalSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.JournalSession{
		Id:                    s.Id,
		UserId:                s.UserId,
		Date:                  s.Date,
		Kind:                  s.Kind,
		Status:                s.Status,
		MaxDurationSeconds:    s.MaxDurationSeconds,
		TotalUserSpeakingTime: s.TotalUserSpeakingTime,
		RecordingAttempt:      s.RecordingAttempt,
		PausedAt:              s.PausedAt,
		CompletedAt:           s.CompletedAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             updatedAt,
		DeletedAt:             deletedAt,
		IsDeleted:             s.DeletedAt.Valid,
	}
}

func (m *JournalMapper) SessionToModel(s *entity.JournalSession) *model.JournalSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.JournalSession{
		Id:                    s.Id,
		UserId:                s.UserId,
		Date:                  s.Date,
		Kind:                  s.Kind,
		Status:                s.Status,
		MaxDurationSeconds:    s.MaxDurationSeconds,
		TotalUserSpeakingTime: s.TotalUserSpeakingTime,
		RecordingAttempt:      s.RecordingAttempt,
		PausedAt:              s.PausedAt,
		CompletedAt:           s.CompletedAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             updatedAt,
		DeletedAt:             deletedAt,
	}
}

// Turn Mappers

func (m *JournalMapper) TurnToEntity(t *model.JournalTurn) *entity.JournalTurn {
	if t == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(t.Metadata) > 0 {
		// Invalid stored JSON degrades to nil metadata rather than failing the read.
		_ = json.Unmarshal(t.Metadata, &metadata)
	}

	return &entity.JournalTurn{
		Id:        t.Id,
		SessionId: t.SessionId,
		Speaker:   t.Speaker,
		Text:      t.Text,
		AudioURL:  t.AudioURL,
		StartTime: t.StartTime,
		Duration:  t.Duration,
		Order:     t.Order,
		Metadata:  metadata,
		CreatedAt: t.CreatedAt,
	}
}

func (m *JournalMapper) TurnToModel(t *entity.JournalTurn) *model.JournalTurn {
	if t == nil {
		return nil
	}

	var metadata datatypes.JSON
	if t.Metadata != nil {
		if raw, err := json.Marshal(t.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.JournalTurn{
		Id:        t.Id,
		SessionId: t.SessionId,
		Speaker:   t.Speaker,
		Text:      t.Text,
		AudioURL:  t.AudioURL,
		StartTime: t.StartTime,
		Duration:  t.Duration,
		Order:     t.Order,
		Metadata:  metadata,
		CreatedAt: t.CreatedAt,
	}
}

// DeletedAttempt Mappers

func (m *JournalMapper) DeletedAttemptToEntity(d *model.DeletedAttempt) *entity.DeletedAttempt {
	if d == nil {
		return nil
	}
	return &entity.DeletedAttempt{
		Id:        d.Id,
		UserId:    d.UserId,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
	}
}

func (m *JournalMapper) DeletedAttemptToModel(d *entity.DeletedAttempt) *model.DeletedAttempt {
	if d == nil {
		return nil
	}
	return &model.DeletedAttempt{
		Id:        d.Id,
		UserId:    d.UserId,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
	}
}
