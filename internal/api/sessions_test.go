package api

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-ai/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()
	require.NotEmpty(t, session.ID)
	assert.Empty(t, session.Entries)

	require.NoError(t, m.Begin(session.ID))
	assert.ErrorIs(t, m.Begin(session.ID), ErrSessionBusy)

	entries := []models.VocabEntry{{Word: "Explore", Phrases: []string{"explore options"}}}
	done, err := m.Complete(session.ID, "reading.pdf", "models/gemini-1.5-flash", entries)
	require.NoError(t, err)
	assert.False(t, done.Busy)
	assert.Equal(t, "reading.pdf", done.Source)
	require.Len(t, done.Entries, 1)

	entries[0].Phrases[0] = "mutated"
	stored, ok := m.Get(session.ID)
	require.True(t, ok)
	assert.Equal(t, "explore options", stored.Entries[0].Phrases[0])

	require.NoError(t, m.Begin(session.ID))
	m.Finish(session.ID)
	stored, _ = m.Get(session.ID)
	assert.False(t, stored.Busy)
	assert.Len(t, stored.Entries, 1)
}

func TestSessionToggleReveal(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()
	_, err := m.Complete(session.ID, "a.docx", "m", []models.VocabEntry{{Word: "A"}, {Word: "B"}})
	require.NoError(t, err)

	entry, revealed, err := m.ToggleReveal(session.ID, 1)
	require.NoError(t, err)
	assert.True(t, revealed)
	assert.Equal(t, "B", entry.Word)

	_, revealed, err = m.ToggleReveal(session.ID, 1)
	require.NoError(t, err)
	assert.False(t, revealed)

	_, _, err = m.ToggleReveal(session.ID, 2)
	assert.ErrorIs(t, err, ErrQuestionOutOfRange)
	_, _, err = m.ToggleReveal(session.ID, -1)
	assert.ErrorIs(t, err, ErrQuestionOutOfRange)
	_, _, err = m.ToggleReveal("missing", 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteResetsReveal(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()
	_, err := m.Complete(session.ID, "a.docx", "m", []models.VocabEntry{{Word: "A"}})
	require.NoError(t, err)
	_, _, err = m.ToggleReveal(session.ID, 0)
	require.NoError(t, err)

	done, err := m.Complete(session.ID, "b.docx", "m", []models.VocabEntry{{Word: "B"}})
	require.NoError(t, err)
	assert.Empty(t, done.Revealed)
	assert.Equal(t, "B", done.Entries[0].Word)
}

func TestToggleRevealSnapshotSurvivesReplacement(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()
	_, err := m.Complete(session.ID, "a.docx", "m", []models.VocabEntry{{Word: "A"}, {Word: "B"}, {Word: "C"}})
	require.NoError(t, err)

	entry, revealed, err := m.ToggleReveal(session.ID, 2)
	require.NoError(t, err)

	_, err = m.Complete(session.ID, "b.docx", "m", []models.VocabEntry{{Word: "Z"}})
	require.NoError(t, err)

	assert.True(t, revealed)
	assert.Equal(t, "C", entry.Word)
	_, _, err = m.ToggleReveal(session.ID, 2)
	assert.ErrorIs(t, err, ErrQuestionOutOfRange)
}

func TestClonedEntriesKeepEmptyPhrases(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()
	_, err := m.Complete(session.ID, "a.docx", "m", []models.VocabEntry{{Word: "Explore", Phrases: []string{}}})
	require.NoError(t, err)

	stored, ok := m.Get(session.ID)
	require.True(t, ok)
	require.NotNil(t, stored.Entries[0].Phrases)

	raw, err := json.Marshal(stored.Entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phrases":[]`)
}

func TestSessionMissing(t *testing.T) {
	m := NewSessionManager()
	_, ok := m.Get("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, m.Begin("missing"), ErrSessionNotFound)
	_, err := m.Complete("missing", "", "", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionBeginIsExclusive(t *testing.T) {
	m := NewSessionManager()
	session := m.Create()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Begin(session.ID) == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, started)
}
