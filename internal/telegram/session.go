package telegram

import (
	"fmt"
	"sync"
	"time"
)

// SessionStep identifies which step of a multi-step admin conversation
// the admin is in.
type SessionStep string

const (
	// add-bun flow: name, then point value
	StepAddBunName   SessionStep = "addbun_name"
	StepAddBunPoints SessionStep = "addbun_points"

	// edit-bun flow (bun is picked via inline keyboard)
	StepEditBunPoints SessionStep = "editbun_points"

	// points-for-everyone flow (chat is picked via inline keyboard)
	StepPointsAllAmount SessionStep = "points_all_amount"

	// points-for-one-user flow
	StepPointsUserName   SessionStep = "points_user_name"
	StepPointsUserAmount SessionStep = "points_user_amount"

	// set-exact-total flow
	StepSetPointsName   SessionStep = "set_points_name"
	StepSetPointsAmount SessionStep = "set_points_amount"

	// broadcast flow (chat is picked via inline keyboard)
	StepSendMessageText SessionStep = "send_message_text"
)

// sessionTTL is the inactivity timeout for a session.
const sessionTTL = 5 * time.Minute

// Session holds the state of one admin's multi-step interaction.
// Only the fields relevant to the current flow are populated.
type Session struct {
	Step SessionStep

	TargetChatID int64  // chat the operation applies to
	ChatTitle    string // human label for TargetChatID, used in prompts
	BunName      string // bun being added or edited
	BunPoints    int    // point value captured on a previous step
	Username     string // target user's username, without @

	ExpiresAt time.Time
}

// chatLabel returns what to call the target chat in replies.
func (sess *Session) chatLabel() string {
	if sess.ChatTitle != "" {
		return sess.ChatTitle
	}
	return fmt.Sprintf("Чат %d", sess.TargetChatID)
}

// sessions stores active sessions keyed by the admin's Telegram user ID.
type sessionStore struct {
	mu   sync.RWMutex
	data map[int64]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[int64]*Session)}
}

func (s *sessionStore) get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[userID]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

func (s *sessionStore) set(userID int64, sess *Session) {
	sess.ExpiresAt = time.Now().Add(sessionTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = sess
}

func (s *sessionStore) touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.data[userID]; ok {
		sess.ExpiresAt = time.Now().Add(sessionTTL)
	}
}

func (s *sessionStore) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
}
