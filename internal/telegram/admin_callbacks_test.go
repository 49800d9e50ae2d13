package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatUserPayload(t *testing.T) {
	chatID, userID, err := parseChatUserPayload("-1001234567890_42")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), chatID)
	assert.Equal(t, int64(42), userID)

	chatID, userID, err = parseChatUserPayload("77_100")
	require.NoError(t, err)
	assert.Equal(t, int64(77), chatID)
	assert.Equal(t, int64(100), userID)

	_, _, err = parseChatUserPayload("77")
	assert.Error(t, err)

	_, _, err = parseChatUserPayload("abc_def")
	assert.Error(t, err)

	_, _, err = parseChatUserPayload("_42")
	assert.Error(t, err)
}
