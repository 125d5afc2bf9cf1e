package models

import (
	"database/sql"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// VocabEntry is one vocabulary item recovered from a model reply.
type VocabEntry struct {
	Word            string   `json:"word"`
	Phonetic        string   `json:"phonetic"`
	Meaning         string   `json:"meaning"`
	Phrases         []string `json:"phrases"`
	ExampleSentence string   `json:"example_sentence"`
}

// Clone returns a copy that shares no slices with e.
func (e VocabEntry) Clone() VocabEntry {
	out := e
	if e.Phrases != nil {
		out.Phrases = make([]string, len(e.Phrases))
		copy(out.Phrases, e.Phrases)
	}
	return out
}

// CloneEntries deep-copies an ordered entry sequence.
func CloneEntries(entries []VocabEntry) []VocabEntry {
	if entries == nil {
		return nil
	}
	out := make([]VocabEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

type Lesson struct {
	ID        int64
	Name      string
	Entries   []LessonEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VocabEntries strips scheduling state from the lesson entries.
func (l *Lesson) VocabEntries() []VocabEntry {
	out := make([]VocabEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		out = append(out, e.Entry.Clone())
	}
	return out
}

type LessonSummary struct {
	Name       string    `json:"name"`
	EntryCount int       `json:"entry_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LessonEntry is a stored VocabEntry plus its study schedule.
type LessonEntry struct {
	ID            int64
	LessonID      int64
	Position      int
	Entry         VocabEntry
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
}

type ReviewLog struct {
	ID            int64
	EntryID       int64
	Rating        int
	ScheduledDays int
	ElapsedDays   int
	State         int
	ReviewedAt    time.Time
}

func (e *LessonEntry) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     e.Stability,
		Difficulty:    e.Difficulty,
		ElapsedDays:   uint64(max(e.ElapsedDays, 0)),
		ScheduledDays: uint64(max(e.ScheduledDays, 0)),
		Reps:          uint64(max(e.Reps, 0)),
		Lapses:        uint64(max(e.Lapses, 0)),
		State:         fsrs.State(max(e.State, 0)),
	}
	if e.Due.Valid {
		card.Due = e.Due.Time
	}
	if e.LastReview.Valid {
		card.LastReview = e.LastReview.Time
	}
	return card
}

func (e *LessonEntry) ApplyFSRSCard(f fsrs.Card) {
	e.Due = sql.NullTime{Time: f.Due, Valid: !f.Due.IsZero()}
	e.Stability = f.Stability
	e.Difficulty = f.Difficulty
	e.ElapsedDays = int(f.ElapsedDays)
	e.ScheduledDays = int(f.ScheduledDays)
	e.Reps = int(f.Reps)
	e.Lapses = int(f.Lapses)
	e.State = int(f.State)
	e.LastReview = sql.NullTime{Time: f.LastReview, Valid: !f.LastReview.IsZero()}
}
