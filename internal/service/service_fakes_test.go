package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/repository/contract"
	"voice-journal-be/internal/repository/specification"
	"voice-journal-be/internal/repository/unitofwork"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/events"

	"github.com/google/uuid"
)

// --- logger ---

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- in-memory repositories ---
// Specs are interpreted by type switch; only the specifications the services
// actually use are supported.

type sessionFilter struct {
	id          *uuid.UUID
	userId      *uuid.UUID
	date        *time.Time
	kind        string
	withDeleted bool
	orderField  string
	orderDesc   bool
}

func parseSessionSpecs(specs []specification.Specification) sessionFilter {
	var f sessionFilter
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			id := v.ID
			f.id = &id
		case specification.UserOwnedBy:
			uid := v.UserID
			f.userId = &uid
		case specification.ForDay:
			d := v.Date
			f.date = &d
		case specification.ByKind:
			f.kind = v.Kind
		case specification.WithDeleted:
			f.withDeleted = true
		case specification.OrderBy:
			f.orderField = v.Field
			f.orderDesc = v.Desc
		}
	}
	return f
}

func (f sessionFilter) matches(s *entity.JournalSession) bool {
	if !f.withDeleted && s.IsDeleted {
		return false
	}
	if f.id != nil && s.Id != *f.id {
		return false
	}
	if f.userId != nil && s.UserId != *f.userId {
		return false
	}
	if f.date != nil && !s.Date.Equal(*f.date) {
		return false
	}
	if f.kind != "" && s.Kind != f.kind {
		return false
	}
	return true
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.JournalSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.JournalSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.JournalSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.JournalSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		now := time.Now()
		s.IsDeleted = true
		s.DeletedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) findAll(specs []specification.Specification) []*entity.JournalSession {
	f := parseSessionSpecs(specs)
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.JournalSession
	for _, s := range r.sessions {
		if f.matches(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		less := out[i].CreatedAt.Before(out[j].CreatedAt)
		if f.orderDesc {
			return !less
		}
		return less
	})
	return out
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error) {
	all := r.findAll(specs)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeSessionRepo) FindOneLocked(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error) {
	return r.FindOne(ctx, specs...)
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalSession, error) {
	return r.findAll(specs), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.findAll(specs))), nil
}

func (r *fakeSessionRepo) get(id uuid.UUID) *entity.JournalSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

type fakeTurnRepo struct {
	mu    sync.Mutex
	turns []*entity.JournalTurn
}

func (r *fakeTurnRepo) Create(ctx context.Context, turn *entity.JournalTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *turn
	r.turns = append(r.turns, &cp)
	return nil
}

func (r *fakeTurnRepo) BackfillAudioURL(ctx context.Context, id uuid.UUID, audioURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turns {
		if t.Id == id && t.AudioURL == nil {
			url := audioURL
			t.AudioURL = &url
		}
	}
	return nil
}

func (r *fakeTurnRepo) DeleteAllBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.turns[:0]
	for _, t := range r.turns {
		if t.SessionId != sessionId {
			kept = append(kept, t)
		}
	}
	r.turns = kept
	return nil
}

func (r *fakeTurnRepo) findAll(specs []specification.Specification) []*entity.JournalTurn {
	var sessionId *uuid.UUID
	desc := false
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.BySessionID:
			sid := v.SessionID
			sessionId = &sid
		case specification.OrderBy:
			desc = v.Desc
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.JournalTurn
	for _, t := range r.turns {
		if sessionId == nil || t.SessionId == *sessionId {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Order > out[j].Order
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func (r *fakeTurnRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalTurn, error) {
	all := r.findAll(specs)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeTurnRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalTurn, error) {
	return r.findAll(specs), nil
}

func (r *fakeTurnRepo) MaxOrder(ctx context.Context, sessionId uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := -1
	for _, t := range r.turns {
		if t.SessionId == sessionId && t.Order > max {
			max = t.Order
		}
	}
	return max, nil
}

func (r *fakeTurnRepo) bySession(sessionId uuid.UUID) []*entity.JournalTurn {
	return r.findAll([]specification.Specification{specification.BySessionID{SessionID: sessionId}})
}

type fakeAttemptRepo struct {
	mu      sync.Mutex
	markers []*entity.DeletedAttempt
}

func (r *fakeAttemptRepo) Upsert(ctx context.Context, attempt *entity.DeletedAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.markers {
		if m.UserId == attempt.UserId && m.Date.Equal(attempt.Date) {
			return nil
		}
	}
	cp := *attempt
	r.markers = append(r.markers, &cp)
	return nil
}

func (r *fakeAttemptRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DeletedAttempt, error) {
	var userId *uuid.UUID
	var date *time.Time
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.UserOwnedBy:
			uid := v.UserID
			userId = &uid
		case specification.ForDay:
			d := v.Date
			date = &d
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.markers {
		if userId != nil && m.UserId != *userId {
			continue
		}
		if date != nil && !m.Date.Equal(*date) {
			continue
		}
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.markers)
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, spec := range specs {
		if v, ok := spec.(specification.ByID); ok {
			if u, found := r.users[v.ID]; found {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, nil
}

// --- unit of work ---

type fakeUow struct {
	sessions *fakeSessionRepo
	turns    *fakeTurnRepo
	attempts *fakeAttemptRepo
	users    *fakeUserRepo
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository { return u.users }
func (u *fakeUow) JournalSessionRepository() contract.JournalSessionRepository {
	return u.sessions
}
func (u *fakeUow) JournalTurnRepository() contract.JournalTurnRepository { return u.turns }
func (u *fakeUow) DeletedAttemptRepository() contract.DeletedAttemptRepository {
	return u.attempts
}

type fakeFactory struct {
	uow *fakeUow
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUow{
		sessions: newFakeSessionRepo(),
		turns:    &fakeTurnRepo{},
		attempts: &fakeAttemptRepo{},
		users:    &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)},
	}}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

// --- collaborators ---

type fakeEntitlement struct {
	ent *Entitlement
	err error
}

func (f *fakeEntitlement) Check(ctx context.Context, userId uuid.UUID) (*Entitlement, error) {
	return f.ent, f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeEventBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEventBus) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeHub struct {
	mu     sync.Mutex
	events map[uuid.UUID][]websocket.Event
}

func newFakeHub() *fakeHub {
	return &fakeHub{events: make(map[uuid.UUID][]websocket.Event)}
}

func (f *fakeHub) Send(userID uuid.UUID, event websocket.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[userID] = append(f.events[userID], event)
}

func (f *fakeHub) sent(userID uuid.UUID) []websocket.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]websocket.Event(nil), f.events[userID]...)
}
