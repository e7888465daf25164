package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=reflection voice"`
}

type SessionResponse struct {
	Id                    uuid.UUID  `json:"id"`
	Kind                  string     `json:"kind"`
	Status                string     `json:"status"`
	Date                  time.Time  `json:"date"`
	MaxDurationSeconds    int        `json:"max_duration_seconds"`
	TotalUserSpeakingTime float64    `json:"total_user_speaking_time"`
	RecordingAttempt      int        `json:"recording_attempt"`
	PausedAt              *time.Time `json:"paused_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

type SendMessageRequest struct {
	Id              uuid.UUID
	Text            string  `json:"text" validate:"required"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=0"`
}

// ChunkResponse is one synthesized sentence of the assistant reply. Indexes
// can be sparse when a sentence failed synthesis.
type ChunkResponse struct {
	Index           int     `json:"index"`
	Text            string  `json:"text"`
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type SendMessageResponse struct {
	SessionId uuid.UUID    `json:"session_id"`
	UserTurn  TurnResponse `json:"user_turn"`
	AiTurn    TurnResponse `json:"ai_turn"`
	// FirstAudioURL duplicates chunk 0's audio for the latency-critical
	// playback path; nil when the opening sentence failed synthesis.
	FirstAudioURL *string         `json:"first_audio_url"`
	Chunks        []ChunkResponse `json:"chunks"`
}

type TurnResponse struct {
	Id              uuid.UUID `json:"id"`
	Speaker         string    `json:"speaker"`
	Text            string    `json:"text"`
	AudioURL        *string   `json:"audio_url"`
	StartTime       float64   `json:"start_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Order           int       `json:"order"`
	CreatedAt       time.Time `json:"created_at"`
}

type EndSessionRequest struct {
	Id uuid.UUID
	// Caller-supplied final measurement; overwrites the accumulated value
	// (last write wins, not additive).
	FinalSpeakingTimeSeconds *float64 `json:"final_speaking_time_seconds" validate:"omitempty,gte=0"`
}

type UpdateSpeakingTimeRequest struct {
	Id      uuid.UUID
	Seconds float64 `json:"seconds" validate:"required,gt=0"`
}

type UpdateSpeakingTimeResponse struct {
	Id                    uuid.UUID `json:"id"`
	TotalUserSpeakingTime float64   `json:"total_user_speaking_time"`
}
