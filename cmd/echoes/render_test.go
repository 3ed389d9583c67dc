package main

import (
	"bytes"
	"echoes/domain"
	"echoes/runtime/workers"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ThreadNumbersResonances(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	echo := domain.Echo{
		ID:        uuid.New(),
		Content:   "hello",
		CreatedAt: now.Add(-90 * time.Minute),
		Replies:   []domain.Reply{{Content: "first"}, {Content: "second"}},
	}

	newRenderer(&out, false).Thread(echo, now)
	req.Equal("46h 30m 00s\nhello\n\nResonance #1  first\nResonance #2  second\n", out.String())
}

func TestRenderer_BoardSkipsEchoesWithoutCountdown(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	shown, expired := domain.Echo{ID: uuid.New(), Content: "still here"}, domain.Echo{ID: uuid.New(), Content: "gone"}

	newRenderer(&out, false).Board([]domain.Echo{shown, expired}, []workers.Countdown{{EchoID: shown.ID, Label: "3h left"}})
	req.Contains(out.String(), "still here")
	req.Contains(out.String(), "3h left")
	req.NotContains(out.String(), "gone")
}

func TestUnreadIndicator_PrintsOnChangeOnly(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	indicator := newUnreadIndicator(newRenderer(&out, false))

	for _, unread := range []bool{false, false, true, true, false} {
		indicator.Update(unread)
	}
	req.Equal([]string{"o No new resonance", "* New resonance on your echoes", "o No new resonance"},
		strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestPreview(t *testing.T) {
	req := require.New(t)
	req.Equal("two words", preview("two\n\n   words"))
	long := preview(strings.Repeat("é", 100))
	req.Len([]rune(long), previewLength)
	req.True(strings.HasSuffix(long, "..."))
}
