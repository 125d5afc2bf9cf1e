package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverEntriesFromFencedReply(t *testing.T) {
	raw := "Sure! Here are your words:\n```json\n" + `[
  {"word": "Explore", "phonetic": "/ɪkˈsplɔːr/", "meaning": "探索", "phrases": ["explore the world", "explore options"], "example_sentence": "I explore the fridge at 3am like it's Narnia."},
  {"word": "Resilient", "phonetic": "/rɪˈzɪliənt/", "meaning": "有韧性的", "phrases": ["resilient economy"], "example_sentence": "My phone battery is not resilient."}
]` + "\n```\nGood luck with the Gaokao!"

	entries, err := RecoverEntries(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Explore", entries[0].Word)
	assert.Equal(t, "/ɪkˈsplɔːr/", entries[0].Phonetic)
	assert.Equal(t, "探索", entries[0].Meaning)
	assert.Equal(t, []string{"explore the world", "explore options"}, entries[0].Phrases)
	assert.Equal(t, "Resilient", entries[1].Word)
}

func TestRecoverEntriesAcceptsFieldAliases(t *testing.T) {
	raw := `[{"word":"Diligent","chinese_meaning":"勤奋的","phrases":"diligent student","fun_sentence":"So diligent."},
	{"word":"Anxiety","translation":"焦虑","sentence":"Anxiety before exams."}]`

	entries, err := RecoverEntries(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "勤奋的", entries[0].Meaning)
	assert.Equal(t, []string{"diligent student"}, entries[0].Phrases)
	assert.Equal(t, "So diligent.", entries[0].ExampleSentence)

	assert.Equal(t, "焦虑", entries[1].Meaning)
	assert.Equal(t, "Anxiety before exams.", entries[1].ExampleSentence)
	assert.NotNil(t, entries[1].Phrases)
	assert.Empty(t, entries[1].Phrases)
	assert.Empty(t, entries[1].Phonetic)
}

func TestRecoverEntriesDropsNonObjects(t *testing.T) {
	entries, err := RecoverEntries(`[1, "two", null, {"word": "Explore"}, ["nested"]]`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Explore", entries[0].Word)
}

func TestRecoverEntriesEmptyArray(t *testing.T) {
	entries, err := RecoverEntries("Nothing worth learning here: []")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRecoverEntriesWithoutArray(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		`{"word": "Explore"}`,
		"] backwards [",
	} {
		_, err := RecoverEntries(raw)
		assert.ErrorIs(t, err, ErrNoJSONArray, raw)
	}
}

func TestRecoverEntriesUnparseableSpan(t *testing.T) {
	cases := []string{
		`[{"word": "Explore",}]`,
		`[{"word": "Explore"}] and also [{"word": "Resilient"}]`,
		`[this is not json]`,
	}
	for _, raw := range cases {
		_, err := RecoverEntries(raw)
		assert.ErrorIs(t, err, ErrUnparseable, raw)
	}
}
