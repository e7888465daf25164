package dto

import "github.com/google/uuid"

// Archival queue job kinds.
const (
	ArchiveJobArchiveTurn     = "archive_turn"
	ArchiveJobPurgeSession    = "purge_session"
	ArchiveJobFinalizeSession = "finalize_session"
)

// ArchiveJobMessage is the envelope published on the archival topic. Kind
// selects which fields are meaningful.
type ArchiveJobMessage struct {
	Kind      string         `json:"kind"`
	SessionId uuid.UUID      `json:"session_id"`
	UserId    uuid.UUID      `json:"user_id"`
	TurnId    uuid.UUID      `json:"turn_id,omitempty"`
	Chunks    []ArchiveChunk `json:"chunks,omitempty"`
}

type ArchiveChunk struct {
	Index       int    `json:"index"`
	AudioRef    string `json:"audio_ref"`
	ContentType string `json:"content_type"`
}
