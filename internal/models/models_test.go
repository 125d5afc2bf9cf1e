package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabEntryCloneKeepsEmptyPhrases(t *testing.T) {
	entry := VocabEntry{Word: "Explore", Phrases: []string{}}

	clone := entry.Clone()
	require.NotNil(t, clone.Phrases)
	assert.Empty(t, clone.Phrases)

	raw, err := json.Marshal(CloneEntries([]VocabEntry{entry})[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phrases":[]`)
}

func TestVocabEntryCloneIsDeep(t *testing.T) {
	entry := VocabEntry{Word: "Explore", Phrases: []string{"explore options"}}
	clone := entry.Clone()
	clone.Phrases[0] = "changed"
	assert.Equal(t, "explore options", entry.Phrases[0])

	assert.Nil(t, CloneEntries(nil))
}

func TestLessonVocabEntriesKeepsEmptyPhrases(t *testing.T) {
	lesson := &Lesson{Entries: []LessonEntry{{Entry: VocabEntry{Word: "Diligent", Phrases: []string{}}}}}
	entries := lesson.VocabEntries()
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].Phrases)
}
