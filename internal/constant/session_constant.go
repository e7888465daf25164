package constant

// Journal session lifecycle states.
const (
	SessionStatusActive     = "active"
	SessionStatusPaused     = "paused"
	SessionStatusProcessing = "processing"
	SessionStatusCompleted  = "completed"
)

// Session kinds. Reflection sessions are attempt-limited per day,
// voice check-ins are unconstrained.
const (
	SessionKindReflection = "reflection"
	SessionKindVoice      = "voice"
)

// Turn speakers.
const (
	TurnSpeakerUser = "user"
	TurnSpeakerAI   = "ai"
)

// User roles and plans (owned by the external auth/billing systems, read here).
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"

	UserPlanFree = "free"
	UserPlanPro  = "pro"
)

// SystemPromptV1 frames the journaling companion. Kept deliberately short:
// the assistant mirrors, asks one gentle follow-up, and never lectures.
const SystemPromptV1 = `You are a warm, attentive journaling companion. The user is speaking their thoughts aloud at the end of their day.

Guidelines:
- Reflect back what you heard in one or two sentences.
- Ask at most one open question that invites the user to go deeper.
- Never give unsolicited advice or bullet-point lists; this is a spoken conversation.
- Keep responses under four sentences so they stay comfortable to listen to.`
