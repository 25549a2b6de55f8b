package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := NewUserMessage("Hello", now)

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.Equal(t, now, msg.Timestamp)
	assert.True(t, msg.IsUser())
}

func TestNewBotMessage(t *testing.T) {
	msg := NewBotMessage("Response", time.Time{})

	assert.Equal(t, RoleBot, msg.Role)
	assert.Equal(t, "Response", msg.Content)
	assert.False(t, msg.IsUser())
}
