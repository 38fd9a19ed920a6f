// internal/draft/store.go
//
// Draft envelopes wrap a wizard session with save/expiry timestamps and
// a content checksum. Expiry is lazy: expired entries are treated as
// absent and purged whenever they are encountered.

package draft

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"specsmith/internal/wizard"
)

const (
	// Retention is the draft lifetime. A draft older than this is gone.
	Retention = 24 * time.Hour

	// SchemaVersion tags the envelope layout.
	SchemaVersion = "1"

	draftPrefix = "draft/"
)

var (
	// ErrQuotaExceeded is returned when a save cannot fit even after
	// purging expired drafts.
	ErrQuotaExceeded = errors.New("draft: storage quota exceeded")
	// ErrCorrupted is returned when a stored draft fails its checksum
	// or cannot be decoded. The entry is discarded, never trusted.
	ErrCorrupted = errors.New("draft: stored draft is corrupted")
)

// Metadata summarizes a stored draft for listings.
type Metadata struct {
	SessionID     string    `json:"sessionId"`
	SavedAt       time.Time `json:"savedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CurrentStep   int       `json:"currentStep"`
	AnsweredCount int       `json:"answeredCount"`
}

type envelopeMeta struct {
	SavedAt   time.Time `json:"savedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Checksum  string    `json:"checksum,omitempty"`
}

type envelope struct {
	Version  string          `json:"version"`
	WizardID string          `json:"wizardId"`
	Data     json.RawMessage `json:"data"`
	Metadata envelopeMeta    `json:"metadata"`
}

// Store persists wizard sessions through a KV backend.
type Store struct {
	kv     KV
	now    func() time.Time
	logger *zap.Logger
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for save and expiry timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a draft store over a KV backend.
func NewStore(kv KV, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{kv: kv, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func draftKey(sessionID string) string {
	return draftPrefix + sessionID
}

// Save serializes the session under its id with a fresh expiry window.
// When the backend is near quota it purges expired drafts first and
// refuses with ErrQuotaExceeded if the payload still does not fit.
func (s *Store) Save(session wizard.Session) error {
	if session.ID == "" {
		return fmt.Errorf("draft: session has no id")
	}
	if err := session.CheckInvariants(); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("draft: encode session %s: %w", session.ID, err)
	}
	now := s.now()
	env := envelope{
		Version:  SchemaVersion,
		WizardID: session.ID,
		Data:     data,
		Metadata: envelopeMeta{
			SavedAt:   now,
			ExpiresAt: now.Add(Retention),
			Checksum:  checksum(data),
		},
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("draft: encode envelope %s: %w", session.ID, err)
	}
	if err := s.ensureHeadroom(int64(len(payload))); err != nil {
		return err
	}
	if err := s.kv.Set(draftKey(session.ID), payload); err != nil {
		return err
	}
	s.logger.Debug("draft saved",
		zap.String("sessionId", session.ID),
		zap.Int("bytes", len(payload)),
		zap.Time("expiresAt", env.Metadata.ExpiresAt))
	return nil
}

func (s *Store) ensureHeadroom(need int64) error {
	used, quota, err := s.kv.Usage()
	if err != nil {
		// Backends that cannot measure usage just try the write.
		return nil
	}
	if used+need <= quota {
		return nil
	}
	purged, purgeErr := s.PurgeExpired()
	if purgeErr != nil {
		s.logger.Warn("purge before save failed", zap.Error(purgeErr))
	}
	if purged > 0 {
		if used, quota, err = s.kv.Usage(); err == nil && used+need <= quota {
			return nil
		}
	}
	return ErrQuotaExceeded
}

// Load returns the session stored under the id. Expired entries are
// deleted and reported as ErrNotFound; corrupt entries are deleted and
// reported as ErrCorrupted.
func (s *Store) Load(sessionID string) (wizard.Session, error) {
	payload, err := s.kv.Get(draftKey(sessionID))
	if err != nil {
		return wizard.Session{}, err
	}
	env, err := s.decode(sessionID, payload)
	if err != nil {
		return wizard.Session{}, err
	}
	if s.now().After(env.Metadata.ExpiresAt) {
		s.discard(sessionID, "expired")
		return wizard.Session{}, ErrNotFound
	}
	var session wizard.Session
	if err := json.Unmarshal(env.Data, &session); err != nil {
		s.discard(sessionID, "undecodable session")
		return wizard.Session{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if err := session.CheckInvariants(); err != nil {
		s.discard(sessionID, "invariant violation")
		return wizard.Session{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return session, nil
}

func (s *Store) decode(sessionID string, payload []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.discard(sessionID, "undecodable envelope")
		return envelope{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if env.Metadata.Checksum != "" && env.Metadata.Checksum != checksum(env.Data) {
		s.discard(sessionID, "checksum mismatch")
		return envelope{}, ErrCorrupted
	}
	return env, nil
}

func (s *Store) discard(sessionID, reason string) {
	if err := s.kv.Delete(draftKey(sessionID)); err != nil {
		s.logger.Warn("discard draft failed",
			zap.String("sessionId", sessionID), zap.Error(err))
		return
	}
	s.logger.Info("draft discarded",
		zap.String("sessionId", sessionID), zap.String("reason", reason))
}

// List returns metadata for unexpired drafts, newest save first. Expired
// or corrupt entries found along the way are purged.
func (s *Store) List() ([]Metadata, error) {
	keys, err := s.kv.Keys(draftPrefix)
	if err != nil {
		return nil, err
	}
	var out []Metadata
	for _, key := range keys {
		sessionID := key[len(draftPrefix):]
		payload, err := s.kv.Get(key)
		if err != nil {
			continue
		}
		env, err := s.decode(sessionID, payload)
		if err != nil {
			continue
		}
		if s.now().After(env.Metadata.ExpiresAt) {
			s.discard(sessionID, "expired")
			continue
		}
		var session wizard.Session
		if err := json.Unmarshal(env.Data, &session); err != nil {
			s.discard(sessionID, "undecodable session")
			continue
		}
		out = append(out, Metadata{
			SessionID:     sessionID,
			SavedAt:       env.Metadata.SavedAt,
			ExpiresAt:     env.Metadata.ExpiresAt,
			CurrentStep:   session.CurrentStep,
			AnsweredCount: session.AnsweredCount(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// Delete removes a draft regardless of its state.
func (s *Store) Delete(sessionID string) error {
	return s.kv.Delete(draftKey(sessionID))
}

// PurgeExpired removes every expired draft and returns how many went.
func (s *Store) PurgeExpired() (int, error) {
	keys, err := s.kv.Keys(draftPrefix)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, key := range keys {
		payload, err := s.kv.Get(key)
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// Unreadable entries count as expired.
			if s.kv.Delete(key) == nil {
				purged++
			}
			continue
		}
		if s.now().After(env.Metadata.ExpiresAt) {
			if s.kv.Delete(key) == nil {
				purged++
			}
		}
	}
	return purged, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
