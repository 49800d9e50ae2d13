package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreGetSet(t *testing.T) {
	store := newSessionStore()

	_, ok := store.get(1)
	assert.False(t, ok)

	store.set(1, &Session{Step: StepAddBunName})
	sess, ok := store.get(1)
	require.True(t, ok)
	assert.Equal(t, StepAddBunName, sess.Step)

	store.clear(1)
	_, ok = store.get(1)
	assert.False(t, ok)
}

func TestSessionStoreIsolatedPerUser(t *testing.T) {
	store := newSessionStore()

	store.set(1, &Session{Step: StepAddBunName, BunName: "Эклер"})
	store.set(2, &Session{Step: StepSendMessageText, TargetChatID: -100})

	s1, ok := store.get(1)
	require.True(t, ok)
	assert.Equal(t, StepAddBunName, s1.Step)
	assert.Equal(t, "Эклер", s1.BunName)

	s2, ok := store.get(2)
	require.True(t, ok)
	assert.Equal(t, StepSendMessageText, s2.Step)
	assert.Equal(t, int64(-100), s2.TargetChatID)

	store.clear(1)
	_, ok = store.get(1)
	assert.False(t, ok)
	_, ok = store.get(2)
	assert.True(t, ok, "clearing one admin must not touch another")
}

func TestSessionStoreExpiry(t *testing.T) {
	store := newSessionStore()

	store.set(1, &Session{Step: StepAddBunName})
	store.data[1].ExpiresAt = time.Now().Add(-time.Second)

	_, ok := store.get(1)
	assert.False(t, ok, "expired session must not be returned")
}

func TestSessionStoreTouchRefreshesTTL(t *testing.T) {
	store := newSessionStore()

	store.set(1, &Session{Step: StepAddBunName})
	store.data[1].ExpiresAt = time.Now().Add(time.Second)

	store.touch(1)
	sess, ok := store.get(1)
	require.True(t, ok)
	assert.Greater(t, time.Until(sess.ExpiresAt), 4*time.Minute)
}

func TestSessionAdvanceKeepsCollectedData(t *testing.T) {
	store := newSessionStore()

	store.set(1, &Session{Step: StepAddBunName})
	sess, _ := store.get(1)
	sess.BunName = "Плюшка"
	sess.Step = StepAddBunPoints
	store.set(1, sess)

	got, ok := store.get(1)
	require.True(t, ok)
	assert.Equal(t, StepAddBunPoints, got.Step)
	assert.Equal(t, "Плюшка", got.BunName)
}
