package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_CensorBasicWord(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"idiot"}, '*')
	req.NoError(err)

	censored, found := m.Censor("what an idiot move")

	req.Equal("what an ***** move", censored)
	req.Equal([]string{"idiot"}, found)
}

func TestModerator_CensorLeetSpeak(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"idiot"}, '*')
	req.NoError(err)

	censored, found := m.Censor("you 1d10t")

	req.Equal("you *****", censored)
	req.Len(found, 1)
}

func TestModerator_CleanTextUntouched(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"idiot"}, '*')
	req.NoError(err)

	censored, found := m.Censor("perfectly polite sentence")

	req.Equal("perfectly polite sentence", censored)
	req.Empty(found)
}

func TestLoadEmbedded(t *testing.T) {
	req := require.New(t)

	lists, err := LoadEmbedded()

	req.NoError(err)
	req.NotEmpty(lists.Words)
	req.Contains(lists.Languages, "en")
	req.Contains(lists.Languages, "es")
}
