// Package conversation runs the inbound customer chat: sessions, duplicate
// event filtering and the menu-driven state machine.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/cache"
	"github.com/LeventeLantos/rental-messaging/internal/model"
)

const sessionPrefix = "session:"

// SessionStore keeps one session per phone in a key-value backend.
// Each write refreshes the ttl.
type SessionStore struct {
	kv  cache.Store
	ttl time.Duration
	now func() time.Time
}

func NewSessionStore(kv cache.Store, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, ttl: ttl, now: time.Now}
}

func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) Get(ctx context.Context, phone string) (model.Session, bool, error) {
	b, err := s.kv.Get(ctx, sessionPrefix+phone)
	if errors.Is(err, cache.ErrMiss) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return model.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Create starts a session at the greeting step, replacing any existing one.
func (s *SessionStore) Create(ctx context.Context, phone string, lang model.Language) (model.Session, error) {
	now := s.now().UTC()
	sess := model.Session{
		Phone:       phone,
		Step:        model.StepGreeting,
		Language:    lang,
		CreatedAt:   now,
		LastTouched: now,
	}
	return sess, s.put(ctx, sess)
}

// Update applies patch to the stored session, creating it when absent.
func (s *SessionStore) Update(ctx context.Context, phone string, patch model.SessionPatch) (model.Session, error) {
	sess, ok, err := s.Get(ctx, phone)
	if err != nil {
		return model.Session{}, err
	}
	now := s.now().UTC()
	if !ok {
		sess = model.Session{Phone: phone, Step: model.StepGreeting, Language: model.PrimaryLanguage, CreatedAt: now}
	}
	if patch.Step != nil {
		sess.Step = *patch.Step
	}
	if patch.Language != nil {
		sess.Language = *patch.Language
	}
	if patch.CustomerID != nil {
		sess.CustomerID = *patch.CustomerID
	}
	if patch.Form != nil {
		sess.Form = *patch.Form
	}
	sess.LastTouched = now
	return sess, s.put(ctx, sess)
}

// LinkCustomer records customerID on the session of the first phone that has
// one and no customer yet.
func (s *SessionStore) LinkCustomer(ctx context.Context, phones []string, customerID int64) error {
	for _, p := range phones {
		sess, ok, err := s.Get(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if sess.CustomerID == 0 {
			_, err = s.Update(ctx, p, model.SessionPatch{CustomerID: &customerID})
		}
		return err
	}
	return nil
}

func (s *SessionStore) put(ctx context.Context, sess model.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, sessionPrefix+sess.Phone, b, s.ttl); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}
