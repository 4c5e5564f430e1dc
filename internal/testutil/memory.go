package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryStore is an in-process stand-in for the postgres repositories. One
// mutex guards every table so multi-row writes are atomic, matching the
// transactional behaviour of the real store.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	sessions map[uuid.UUID]*domain.UserSession
	matches  map[uuid.UUID]*domain.Match
	feedback []*domain.Feedback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]*domain.User),
		sessions: make(map[uuid.UUID]*domain.UserSession),
		matches:  make(map[uuid.UUID]*domain.Match),
	}
}

func (m *MemoryStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:     memUsers{m},
		Session:  memSessions{m},
		Match:    memMatches{m},
		Feedback: memFeedback{m},
	}
}

// User returns a copy of the stored user, or nil.
func (m *MemoryStore) User(id uuid.UUID) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

// Match returns a copy of the stored match, or nil.
func (m *MemoryStore) Match(id uuid.UUID) *domain.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[id]; ok {
		return copyMatch(match)
	}
	return nil
}

// SessionCount returns the number of stored sessions.
func (m *MemoryStore) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Feedback returns all stored feedback.
func (m *MemoryStore) Feedback() []*domain.Feedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Feedback, len(m.feedback))
	copy(out, m.feedback)
	return out
}

func copyMatch(src *domain.Match) *domain.Match {
	c := *src
	if src.ScoreDetails != nil {
		c.ScoreDetails = append(datatypes.JSON(nil), src.ScoreDetails...)
	}
	return &c
}

type memUsers struct{ m *MemoryStore }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	c := *user
	r.m.users[user.ID] = &c
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) Top(_ context.Context, limit int) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	users := make([]*domain.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Score != users[j].Score {
			return users[i].Score > users[j].Score
		}
		return users[i].Username < users[j].Username
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.users, id)
	return nil
}

func (r memUsers) DeleteAccount(_ context.Context, id uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return 0, repository.ErrNotFound
	}
	var n int64
	for matchID, match := range r.m.matches {
		if match.IsParticipant(id) {
			delete(r.m.matches, matchID)
			n++
		}
	}
	for sessionID, s := range r.m.sessions {
		if s.UserID == id {
			delete(r.m.sessions, sessionID)
		}
	}
	delete(r.m.users, id)
	return n, nil
}

type memSessions struct{ m *MemoryStore }

func (r memSessions) Create(_ context.Context, session *domain.UserSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *session
	r.m.sessions[session.ID] = &c
	return nil
}

func (r memSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.UserSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r memSessions) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.sessions, id)
	return nil
}

func (r memSessions) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, s := range r.m.sessions {
		if s.UserID == userID {
			delete(r.m.sessions, id)
		}
	}
	return nil
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, s := range r.m.sessions {
		if s.Expired(now) {
			delete(r.m.sessions, id)
			n++
		}
	}
	return n, nil
}

type memMatches struct{ m *MemoryStore }

func (r memMatches) Create(_ context.Context, match *domain.Match) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.Status == "" {
		match.Status = domain.MatchStatusPending
	}
	r.m.matches[match.ID] = copyMatch(match)
	return nil
}

func (r memMatches) GetByID(_ context.Context, id uuid.UUID) (*domain.Match, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	match, ok := r.m.matches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyMatch(match), nil
}

func (r memMatches) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Match, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Match
	for _, match := range r.m.matches {
		if match.IsParticipant(userID) {
			out = append(out, copyMatch(match))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memMatches) Respond(_ context.Context, id uuid.UUID, status domain.MatchStatus, invitedPhoto *string) (*domain.Match, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	match, ok := r.m.matches[id]
	if !ok || match.Status != domain.MatchStatusPending {
		return nil, repository.ErrConflict
	}
	match.Status = status
	if invitedPhoto != nil {
		p := *invitedPhoto
		match.InvitedPhoto = &p
	}
	match.UpdatedAt = time.Now()
	return copyMatch(match), nil
}

func (r memMatches) Complete(_ context.Context, id uuid.UUID, in repository.CompleteInput) (*domain.Match, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	match, ok := r.m.matches[id]
	if !ok || match.Status != domain.MatchStatusReady {
		return nil, repository.ErrConflict
	}

	creatorScore, invitedScore := in.CreatorScore, in.InvitedScore
	match.CreatorScore = &creatorScore
	match.InvitedScore = &invitedScore
	match.ScoreDetails = datatypes.JSON(in.ScoreDetails)
	match.Status = domain.MatchStatusCompleted
	match.UpdatedAt = time.Now()
	match.WinnerID = nil
	if in.WinnerID != nil {
		w := *in.WinnerID
		match.WinnerID = &w
		if u, ok := r.m.users[w]; ok {
			u.Score++
		}
	}
	return copyMatch(match), nil
}

func (r memMatches) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, match := range r.m.matches {
		if match.IsParticipant(userID) {
			delete(r.m.matches, id)
			n++
		}
	}
	return n, nil
}

type memFeedback struct{ m *MemoryStore }

func (r memFeedback) Create(_ context.Context, feedback *domain.Feedback) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *feedback
	r.m.feedback = append(r.m.feedback, &c)
	return nil
}

func (r memFeedback) List(_ context.Context, since time.Time) ([]*domain.Feedback, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Feedback
	for _, f := range r.m.feedback {
		if !f.CreatedAt.Before(since) {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}
