package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.io/infrasutra/orgmail/internal/auth"
	"github.io/infrasutra/orgmail/internal/kv"
)

// Store owns the active profile and the three mail collections. Every
// mutation is written through to the backend before it returns.
type Store struct {
	mu       sync.Mutex
	backend  kv.Backend
	keys     kv.Keys
	logger   *slog.Logger
	newID    func() string
	user     *UserProfile
	incoming []MailRecord
	outgoing []MailRecord
	archived []MailRecord
	closed   bool

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

type Option func(*Store)

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(backend kv.Backend, keys kv.Keys, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		keys:      keys,
		logger:    logger.With("component", "store"),
		newID:     uuid.NewString,
		incoming:  []MailRecord{},
		outgoing:  []MailRecord{},
		archived:  []MailRecord{},
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the four keys independently. A missing or malformed value leaves
// that part of the state empty; only backend failures are returned.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := loadKey[*UserProfile](ctx, s, s.keys.User)
	if err != nil {
		return err
	}
	if user != nil && user.Email == "" && user.Name == "" {
		user = nil
	}
	s.user = user

	for _, target := range []struct {
		key  string
		dest *[]MailRecord
	}{
		{s.keys.Incoming, &s.incoming},
		{s.keys.Outgoing, &s.outgoing},
		{s.keys.Archived, &s.archived},
	} {
		records, err := loadKey[[]MailRecord](ctx, s, target.key)
		if err != nil {
			return err
		}
		if records == nil {
			records = []MailRecord{}
		}
		*target.dest = records
	}

	s.logger.Info("state loaded",
		"user", s.user != nil,
		"incoming", len(s.incoming),
		"outgoing", len(s.outgoing),
		"archived", len(s.archived),
	)
	return nil
}

// loadKey decodes one key into a fresh value. A value that does not decode
// completely yields the zero value, never a partial one.
func loadKey[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return zero, nil
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Warn("discarding malformed persisted value", "key", key, "error", err)
		return zero, nil
	}
	return value, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Incoming: cloneRecords(s.incoming),
		Outgoing: cloneRecords(s.outgoing),
		Archived: cloneRecords(s.archived),
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}

func (s *Store) Profile() (UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return UserProfile{}, false
	}
	return *s.user, true
}

// Mailbox returns the active collection for t in store (prepend) order.
func (s *Store) Mailbox(t MailType) []MailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(*s.active(t))
}

func (s *Store) Archived() []MailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.archived)
}

// AddMail assigns a fresh id and prepends the record to its mailbox.
func (s *Store) AddMail(ctx context.Context, record MailRecord) (MailRecord, error) {
	t, err := ParseMailType(string(record.Type))
	if err != nil {
		return MailRecord{}, err
	}
	if err := record.Validate(); err != nil {
		return MailRecord{}, err
	}
	record.Type = t

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return MailRecord{}, ErrClosed
	}
	record.ID = s.uniqueID()
	box := s.active(t)
	*box = prepend(*box, record)
	err = s.persistRecords(ctx, s.keyFor(t), *box)
	s.mu.Unlock()

	s.notify(Change{Op: "add", Collections: []Collection{collectionFor(t)}, RecordID: record.ID})
	return record, err
}

// ArchiveMail moves a record from its mailbox to the front of the archive.
// The record must still be present in the mailbox named by its type.
func (s *Store) ArchiveMail(ctx context.Context, record MailRecord) (MailRecord, error) {
	t, err := ParseMailType(string(record.Type))
	if err != nil {
		return MailRecord{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return MailRecord{}, ErrClosed
	}
	box := s.active(t)
	idx := indexOf(*box, record.ID)
	if idx < 0 {
		s.mu.Unlock()
		return MailRecord{}, fmt.Errorf("archive %s: %w", record.ID, ErrRecordNotFound)
	}
	stored := (*box)[idx]
	*box = removeAt(*box, idx)
	s.archived = prepend(s.archived, stored)
	err = errors.Join(
		s.persistRecords(ctx, s.keyFor(t), *box),
		s.persistRecords(ctx, s.keys.Archived, s.archived),
	)
	s.mu.Unlock()

	s.notify(Change{Op: "archive", Collections: []Collection{collectionFor(t), CollectionArchived}, RecordID: stored.ID})
	return stored, err
}

// RestoreMail moves an archived record back to the front of the mailbox
// recorded in its type.
func (s *Store) RestoreMail(ctx context.Context, record MailRecord) (MailRecord, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return MailRecord{}, ErrClosed
	}
	idx := indexOf(s.archived, record.ID)
	if idx < 0 {
		s.mu.Unlock()
		return MailRecord{}, fmt.Errorf("restore %s: %w", record.ID, ErrRecordNotFound)
	}
	stored := s.archived[idx]
	t, err := ParseMailType(string(stored.Type))
	if err != nil {
		s.mu.Unlock()
		return MailRecord{}, fmt.Errorf("restore %s: %w", record.ID, err)
	}
	s.archived = removeAt(s.archived, idx)
	box := s.active(t)
	*box = prepend(*box, stored)
	err = errors.Join(
		s.persistRecords(ctx, s.keys.Archived, s.archived),
		s.persistRecords(ctx, s.keyFor(t), *box),
	)
	s.mu.Unlock()

	s.notify(Change{Op: "restore", Collections: []Collection{CollectionArchived, collectionFor(t)}, RecordID: stored.ID})
	return stored, err
}

// Login starts a local session for email. The password must be present but is
// not checked against anything. Any existing profile is replaced.
func (s *Store) Login(ctx context.Context, email, password string) (UserProfile, error) {
	var missing []string
	normalized, err := auth.NormalizeEmail(email)
	if err != nil {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return UserProfile{}, &ValidationError{Fields: missing}
	}

	profile := UserProfile{
		Name:       auth.DisplayName(normalized),
		Email:      normalized,
		Department: auth.DefaultDepartment,
	}
	if err := s.setUser(ctx, "login", &profile); err != nil {
		return profile, err
	}
	return profile, nil
}

func (s *Store) Signup(ctx context.Context, req SignupRequest) (UserProfile, error) {
	var missing []string
	name := strings.TrimSpace(req.Name)
	if name == "" {
		missing = append(missing, "name")
	}
	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return UserProfile{}, &ValidationError{Fields: missing}
	}
	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = auth.DefaultDepartment
	}

	profile := UserProfile{
		Name:       name,
		Email:      email,
		Department: department,
		Password:   req.Password,
	}
	if err := s.setUser(ctx, "signup", &profile); err != nil {
		return profile, err
	}
	return profile, nil
}

func (s *Store) Logout(ctx context.Context) error {
	return s.setUser(ctx, "logout", nil)
}

// DeleteAccount clears the active profile. Mail records are kept.
func (s *Store) DeleteAccount(ctx context.Context) error {
	return s.setUser(ctx, "delete_account", nil)
}

func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (UserProfile, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return UserProfile{}, ErrClosed
	}
	if s.user == nil {
		s.mu.Unlock()
		return UserProfile{}, ErrNotLoggedIn
	}
	profile := *s.user
	if update.Name != nil {
		profile.Name = *update.Name
	}
	if update.Email != nil {
		profile.Email = *update.Email
	}
	if update.Department != nil {
		profile.Department = *update.Department
	}
	if update.Avatar != nil {
		profile.Avatar = *update.Avatar
	}
	s.user = &profile
	err := s.persistUser(ctx)
	s.mu.Unlock()

	s.notify(Change{Op: "update_profile", Collections: []Collection{CollectionUser}})
	return profile, err
}

func (s *Store) setUser(ctx context.Context, op string, profile *UserProfile) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.user = profile
	err := s.persistUser(ctx)
	s.mu.Unlock()

	s.notify(Change{Op: op, Collections: []Collection{CollectionUser}})
	return err
}

// Subscribe registers fn for change notifications until the returned function
// is called or the store is closed.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// Close rejects further mutations and drops all observers.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.obsMu.Lock()
	s.observers = make(map[int]Observer)
	s.obsMu.Unlock()
	return nil
}

func (s *Store) notify(change Change) {
	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(change)
	}
}

func (s *Store) persistUser(ctx context.Context) error {
	if s.user == nil {
		if err := s.backend.Remove(ctx, s.keys.User); err != nil {
			s.logger.Error("persist user", "error", err)
			return fmt.Errorf("persist user: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(s.user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.backend.Set(ctx, s.keys.User, string(data)); err != nil {
		s.logger.Error("persist user", "error", err)
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *Store) persistRecords(ctx context.Context, key string, records []MailRecord) error {
	if records == nil {
		records = []MailRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		s.logger.Error("persist collection", "key", key, "error", err)
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (s *Store) active(t MailType) *[]MailRecord {
	if t == Outgoing {
		return &s.outgoing
	}
	return &s.incoming
}

func (s *Store) keyFor(t MailType) string {
	if t == Outgoing {
		return s.keys.Outgoing
	}
	return s.keys.Incoming
}

// uniqueID draws ids until one is unused across all three collections.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if id == "" {
			continue
		}
		if indexOf(s.incoming, id) < 0 && indexOf(s.outgoing, id) < 0 && indexOf(s.archived, id) < 0 {
			return id
		}
	}
}

func indexOf(records []MailRecord, id string) int {
	if id == "" {
		return -1
	}
	for i, record := range records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

func prepend(records []MailRecord, record MailRecord) []MailRecord {
	out := make([]MailRecord, 0, len(records)+1)
	out = append(out, record)
	return append(out, records...)
}

func removeAt(records []MailRecord, idx int) []MailRecord {
	out := make([]MailRecord, 0, len(records)-1)
	out = append(out, records[:idx]...)
	return append(out, records[idx+1:]...)
}

func cloneRecords(records []MailRecord) []MailRecord {
	out := make([]MailRecord, len(records))
	copy(out, records)
	return out
}
