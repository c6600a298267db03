package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMapRoundTrip(t *testing.T) {
	uid := "user-1"
	s := NewSession(&uid)
	s.Metadata = map[string]any{"channel": "web"}

	back, err := SessionFromMap(s.ToMap())
	require.NoError(t, err)
	assert.Equal(t, s, back)

	anon := NewSession(nil)
	raw, err := json.Marshal(anon.ToMap())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Nil(t, m["user_id"])
	back, err = SessionFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, anon, back)
}

func TestMessageMapRoundTrip(t *testing.T) {
	msg := NewMessage("session-1", SenderBot, "Hello! How can I help you today?")
	back, err := MessageFromMap(msg.ToMap())
	require.NoError(t, err)
	assert.Equal(t, msg, back)
}

func TestFromMapDefaults(t *testing.T) {
	s, err := SessionFromMap(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.Status)
	assert.True(t, s.Active())
	assert.Nil(t, s.UserID)

	m, err := MessageFromMap(map[string]any{"content": "hi"})
	require.NoError(t, err)
	assert.Equal(t, SenderUser, m.SenderType)
	assert.NotEmpty(t, m.ID)
}

func TestEchoAssistant(t *testing.T) {
	content, suggestions, err := EchoAssistant{}.Reply(t.Context(), nil, "laptop")
	require.NoError(t, err)
	assert.Contains(t, content, "'laptop'")
	assert.Len(t, suggestions, 3)

	suggestions[0] = "changed"
	_, again, _ := EchoAssistant{}.Reply(t.Context(), nil, "x")
	assert.Equal(t, "Show me laptops", again[0])
}
