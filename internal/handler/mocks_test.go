package handler

// mocks_test.go holds hand-written in-memory fakes for the handler-facing
// interfaces.  They mirror the production repositories' observable behavior
// closely enough for handler flows without a database.

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ascendedtech/techlab-server/internal/queue"
	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]repository.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{nextID: 1, users: map[uint64]repository.User{}}
}

func (f *fakeUsers) add(u repository.User) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextID
	f.nextID++
	if u.CreatedAt == nil {
		u.CreatedAt = time.Now().UTC()
	}
	f.users[u.ID] = u
	return u.ID
}

func (f *fakeUsers) Create(_ context.Context, u repository.User) (uint64, error) {
	f.mu.Lock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			f.mu.Unlock()
			return 0, repository.ErrEmailExists
		}
		if existing.Name == u.Name {
			f.mu.Unlock()
			return 0, repository.ErrNameExists
		}
	}
	f.mu.Unlock()
	return f.add(u), nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint64) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmailOrName(_ context.Context, ident string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, ident) {
			return u, nil
		}
	}
	for _, u := range f.users {
		if u.Name == ident {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeUsers) FindActiveAdmin(_ context.Context, ident string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Role == "admin" && u.IsActive &&
			(strings.EqualFold(u.Email, ident) || u.Name == ident) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) NameTaken(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) List(_ context.Context, limit int) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Record{}
	for _, u := range f.users {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, store.Record{
			"id":            u.ID,
			"name":          u.Name,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"role":          u.Role,
			"is_active":     u.IsActive,
			"created_at":    u.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeUsers) SetRole(_ context.Context, id uint64, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	f.users[id] = u
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = time.Now().UTC()
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdateFields(_ context.Context, id uint64, patch store.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v, ok := patch["name"].(string); ok {
		u.Name = v
	}
	if v, ok := patch["email"].(string); ok {
		u.Email = v
	}
	if v, ok := patch["role"].(string); ok {
		u.Role = v
	}
	if v, ok := patch["is_active"].(bool); ok {
		u.IsActive = v
	}
	if v, ok := patch["total_score"].(int); ok {
		u.TotalScore = v
	}
	if v, ok := patch["current_streak"].(int); ok {
		u.CurrentStreak = v
	}
	f.users[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type issuedCode struct {
	code      string
	used      bool
	expiresAt time.Time
}

type fakeVerifications struct {
	mu      sync.Mutex
	codes   map[string]*issuedCode
	pending map[string]repository.PendingRegistration
}

func newFakeVerifications() *fakeVerifications {
	return &fakeVerifications{
		codes:   map[string]*issuedCode{},
		pending: map[string]repository.PendingRegistration{},
	}
}

func (f *fakeVerifications) IssueCode(_ context.Context, email, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email] = &issuedCode{code: code, expiresAt: expiresAt}
	return nil
}

func (f *fakeVerifications) ConsumeCode(_ context.Context, email, code string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.codes[email]
	if !ok || rec.used || rec.code != code {
		return repository.ErrCodeInvalid
	}
	// Mark used first so an expired code is still burned.
	rec.used = true
	if now.UTC().After(rec.expiresAt) {
		return repository.ErrCodeExpired
	}
	return nil
}

func (f *fakeVerifications) UpsertPending(_ context.Context, p repository.PendingRegistration, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ExpiresAt = expiresAt
	f.pending[p.Email] = p
	return nil
}

func (f *fakeVerifications) FindPending(_ context.Context, email string) (repository.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[email]
	if !ok {
		return repository.PendingRegistration{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeVerifications) RenewPending(_ context.Context, email, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[email]
	if !ok {
		return repository.ErrNotFound
	}
	p.Code = code
	p.ExpiresAt = expiresAt
	f.pending[email] = p
	return nil
}

func (f *fakeVerifications) DeletePending(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, email)
	return nil
}

// setPendingExpiry backdates a staged registration for expiry tests.
func (f *fakeVerifications) setPendingExpiry(email string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[email]
	p.ExpiresAt = at
	f.pending[email] = p
}

func (f *fakeVerifications) setCodeExpiry(email string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.codes[email]; ok {
		rec.expiresAt = at
	}
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]repository.AdminSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]repository.AdminSession{}}
}

func (f *fakeSessions) Create(_ context.Context, userID uint64, tokenDigest string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenDigest] = repository.AdminSession{
		ID:        uint64(len(f.sessions) + 1),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeSessions) FindActive(_ context.Context, tokenDigest string) (repository.AdminSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenDigest]
	if !ok {
		return repository.AdminSession{}, repository.ErrNotFound
	}
	return s, nil
}

type auditEntry struct {
	adminID      uint64
	actionType   string
	description  string
	targetUserID *uint64
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) Log(_ context.Context, adminID uint64, actionType, description, _ string, targetUserID *uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{adminID, actionType, description, targetUserID})
	return nil
}

type progressRow struct {
	room      string
	pct       int
	completed bool
}

type fakeProgress struct {
	mu   sync.Mutex
	rows map[uint64]map[string]progressRow
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{rows: map[uint64]map[string]progressRow{}}
}

func (f *fakeProgress) ListByUser(_ context.Context, userID uint64) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Record{}
	for room, r := range f.rows[userID] {
		out = append(out, store.Record{
			"user_id":             userID,
			"room_name":           room,
			"progress_percentage": r.pct,
			"completed":           r.completed,
		})
	}
	return out, nil
}

func (f *fakeProgress) Upsert(_ context.Context, userID uint64, room string, percentage int, completed bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = map[string]progressRow{}
	}
	_, existed := f.rows[userID][room]
	f.rows[userID][room] = progressRow{room: room, pct: percentage, completed: completed}
	return !existed, nil
}

func (f *fakeProgress) StatsForUser(_ context.Context, userID uint64) (int, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[userID]
	if len(rows) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range rows {
		sum += r.pct
	}
	return len(rows), float64(sum) / float64(len(rows)), nil
}

type badgeRow struct {
	id        uint64
	name      string
	badgeType string
}

type fakeBadges struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64][]badgeRow
}

func newFakeBadges() *fakeBadges {
	return &fakeBadges{nextID: 1, rows: map[uint64][]badgeRow{}}
}

func (f *fakeBadges) ListByUser(_ context.Context, userID uint64) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Record{}
	for _, b := range f.rows[userID] {
		out = append(out, store.Record{
			"id":         b.id,
			"user_id":    userID,
			"badge_name": b.name,
			"badge_type": b.badgeType,
		})
	}
	return out, nil
}

func (f *fakeBadges) Award(_ context.Context, userID uint64, name, badgeType string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.rows[userID] = append(f.rows[userID], badgeRow{id: id, name: name, badgeType: badgeType})
	return id, nil
}

func (f *fakeBadges) CountForUser(_ context.Context, userID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[userID]), nil
}

type fakePublisher struct {
	mu          sync.Mutex
	registered  []queue.UserRegisteredEvent
	badgeEvents []queue.BadgeEarnedEvent
}

func (f *fakePublisher) PublishUserRegistered(_ context.Context, ev queue.UserRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, ev)
	return nil
}

func (f *fakePublisher) PublishBadgeEarned(_ context.Context, ev queue.BadgeEarnedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badgeEvents = append(f.badgeEvents, ev)
	return nil
}

type fakeSender struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sent     int
	fail     bool
}

func (f *fakeSender) SendVerificationCode(_ context.Context, to, _ string, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("provider unavailable")
	}
	f.lastTo = to
	f.lastCode = code
	f.sent++
	return nil
}
