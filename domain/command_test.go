package domain

import (
	"echoes/errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewPostEchoCommand(t *testing.T) {
	t.Run("rejects empty and whitespace-only content", func(t *testing.T) {
		req := require.New(t)
		for _, content := range []string{"", "   ", "\n\t "} {
			_, err := NewPostEchoCommand(content, "sig")
			req.ErrorIs(err, errors.ErrEmptyContent)
			req.True(errors.IsValidation(err))
		}
	})

	t.Run("truncates to the echo bound", func(t *testing.T) {
		req := require.New(t)
		cmd, err := NewPostEchoCommand(strings.Repeat("é", MaxEchoLength+20), "sig")
		req.NoError(err)
		req.Equal(MaxEchoLength, len([]rune(cmd.Content)))
		req.Equal(SignatureID("sig"), cmd.Signature)
	})

	t.Run("keeps surrounding whitespace of real content", func(t *testing.T) {
		req := require.New(t)
		cmd, err := NewPostEchoCommand("  hello  ", "")
		req.NoError(err)
		req.Equal("  hello  ", cmd.Content)
	})
}

func TestNewReplyCommand(t *testing.T) {
	req := require.New(t)
	echoID := uuid.New()

	_, err := NewReplyCommand(echoID, " ")
	req.ErrorIs(err, errors.ErrEmptyContent)

	cmd, err := NewReplyCommand(echoID, strings.Repeat("a", MaxReplyLength+1))
	req.NoError(err)
	req.Len(cmd.Content, MaxReplyLength)

	_, err = NewReplyCommand(uuid.Nil, "hi back")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestHasUnread(t *testing.T) {
	req := require.New(t)
	req.False(HasUnread(nil))
	req.False(HasUnread([]Notification{{Reply: Reply{IsRead: true}}}))
	req.True(HasUnread([]Notification{{Reply: Reply{IsRead: true}}, {Reply: Reply{IsRead: false}}}))
}
