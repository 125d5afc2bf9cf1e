package services

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/rs/zerolog/log"

	"vocab-ai/internal/models"
)

//go:embed lessons.json
var defaultLessons []byte

var (
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrInvalidLessonName = errors.New("lesson name must not be empty")
	ErrEntryNotFound     = errors.New("lesson entry not found")
	// ErrNoDueEntries indicates that no entry of the lesson is ready to study.
	ErrNoDueEntries = errors.New("no due entries")
)

// LessonService stores named units of vocabulary entries and schedules their
// study with FSRS.
type LessonService struct {
	db     *sql.DB
	params fsrs.Parameters
	now    func() time.Time
}

func NewLessonService(db *sql.DB) *LessonService {
	return &LessonService{
		db:     db,
		params: fsrs.DefaultParam(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Save replaces the whole ordered entry sequence of the named lesson, creating
// the lesson if needed. Scheduling state of replaced entries is discarded.
func (s *LessonService) Save(ctx context.Context, name string, entries []models.VocabEntry) (*models.Lesson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidLessonName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO lessons (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at;
	`, name, now, now); err != nil {
		return nil, fmt.Errorf("upsert lesson %q: %w", name, err)
	}

	var lessonID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM lessons WHERE name = ?;`, name).Scan(&lessonID); err != nil {
		return nil, fmt.Errorf("load lesson id %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_entries WHERE lesson_id = ?;`, lessonID); err != nil {
		return nil, fmt.Errorf("clear lesson entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lesson_entries (lesson_id, position, word, phonetic, meaning, phrases, example_sentence, due, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		phrases := e.Phrases
		if phrases == nil {
			phrases = []string{}
		}
		encoded, err := json.Marshal(phrases)
		if err != nil {
			return nil, fmt.Errorf("encode phrases for %q: %w", e.Word, err)
		}
		if _, err := stmt.ExecContext(ctx,
			lessonID, i, e.Word, e.Phonetic, e.Meaning, string(encoded), e.ExampleSentence, now, int(fsrs.New),
		); err != nil {
			return nil, fmt.Errorf("insert entry %q: %w", e.Word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lesson: %w", err)
	}

	log.Info().Str("lesson", name).Int("entries", len(entries)).Msg("lesson saved")
	return s.Get(ctx, name)
}

func (s *LessonService) Get(ctx context.Context, name string) (*models.Lesson, error) {
	lesson := &models.Lesson{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM lessons WHERE name = ?;
	`, strings.TrimSpace(name)).Scan(&lesson.ID, &lesson.Name, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("load lesson %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM lesson_entries
		WHERE lesson_id = ?
		ORDER BY position ASC;
	`, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("query lesson entries: %w", err)
	}
	defer rows.Close()

	lesson.Entries = []models.LessonEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		lesson.Entries = append(lesson.Entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson entries: %w", err)
	}
	return lesson, nil
}

// List returns every lesson with its entry count, ordered by name.
func (s *LessonService) List(ctx context.Context) ([]models.LessonSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.name, COUNT(e.id), l.updated_at
		FROM lessons l
		LEFT JOIN lesson_entries e ON e.lesson_id = l.id
		GROUP BY l.id
		ORDER BY l.name ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	out := []models.LessonSummary{}
	for rows.Next() {
		var summary models.LessonSummary
		if err := rows.Scan(&summary.Name, &summary.EntryCount, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson summary: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return out, nil
}

func (s *LessonService) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lessons WHERE name = ?;`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete lesson %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLessonNotFound
	}
	return nil
}

// NextDue returns the entry of the lesson with the earliest due time that is
// already due.
func (s *LessonService) NextDue(ctx context.Context, name string) (*models.LessonEntry, error) {
	lesson, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM lesson_entries
		WHERE lesson_id = ? AND due IS NOT NULL AND due <= ?
		ORDER BY due ASC, position ASC
		LIMIT 1;
	`, lesson.ID, s.now())
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDueEntries
		}
		return nil, err
	}
	return entry, nil
}

// Review applies a study rating to the entry at position within the lesson.
func (s *LessonService) Review(ctx context.Context, name string, position int, rating fsrs.Rating) (*models.LessonEntry, *models.ReviewLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+prefixed("e.", entryColumns)+`
		FROM lesson_entries e
		JOIN lessons l ON l.id = e.lesson_id
		WHERE l.name = ? AND e.position = ?;
	`, strings.TrimSpace(name), position)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrEntryNotFound
		}
		return nil, nil, fmt.Errorf("load entry %d of %q: %w", position, name, err)
	}

	now := s.now()
	scheduling := s.params.Repeat(entry.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		return nil, nil, fmt.Errorf("rating %d not supported", rating)
	}
	entry.ApplyFSRSCard(info.Card)

	if _, err := tx.ExecContext(ctx, `
		UPDATE lesson_entries
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
		    reps = ?, lapses = ?, state = ?, last_review = ?
		WHERE id = ?;
	`,
		nullTimeValue(entry.Due),
		entry.Stability,
		entry.Difficulty,
		entry.ElapsedDays,
		entry.ScheduledDays,
		entry.Reps,
		entry.Lapses,
		entry.State,
		nullTimeValue(entry.LastReview),
		entry.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("update entry %d: %w", entry.ID, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO review_logs (entry_id, rating, scheduled_days, elapsed_days, state, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, entry.ID, int(info.ReviewLog.Rating), int(info.ReviewLog.ScheduledDays), int(info.ReviewLog.ElapsedDays), int(info.ReviewLog.State), now)
	if err != nil {
		return nil, nil, fmt.Errorf("insert review log: %w", err)
	}
	logID, _ := res.LastInsertId()

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit review: %w", err)
	}

	return entry, &models.ReviewLog{
		ID:            logID,
		EntryID:       entry.ID,
		Rating:        int(info.ReviewLog.Rating),
		ScheduledDays: int(info.ReviewLog.ScheduledDays),
		ElapsedDays:   int(info.ReviewLog.ElapsedDays),
		State:         int(info.ReviewLog.State),
		ReviewedAt:    now,
	}, nil
}

// SeedDefaults loads the hand-authored units bundled with the binary. Units
// that already exist are left alone.
func (s *LessonService) SeedDefaults(ctx context.Context) (int, error) {
	return s.Seed(ctx, defaultLessons)
}

// Seed inserts the units of a {"unit name": [entries...]} document that do
// not exist yet and returns how many were created.
func (s *LessonService) Seed(ctx context.Context, data []byte) (int, error) {
	var units map[string][]models.VocabEntry
	if err := json.Unmarshal(data, &units); err != nil {
		return 0, fmt.Errorf("decode seed lessons: %w", err)
	}

	names := make([]string, 0, len(units))
	for name := range units {
		names = append(names, name)
	}
	sort.Strings(names)

	created := 0
	for _, name := range names {
		if _, err := s.Get(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrLessonNotFound) {
			return created, err
		}
		if _, err := s.Save(ctx, name, units[name]); err != nil {
			return created, fmt.Errorf("seed lesson %q: %w", name, err)
		}
		created++
	}
	return created, nil
}

const entryColumns = `id, lesson_id, position, word, phonetic, meaning, phrases, example_sentence,
		due, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, state, last_review`

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LessonEntry, error) {
	var (
		entry   models.LessonEntry
		phrases string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.LessonID,
		&entry.Position,
		&entry.Entry.Word,
		&entry.Entry.Phonetic,
		&entry.Entry.Meaning,
		&phrases,
		&entry.Entry.ExampleSentence,
		&entry.Due,
		&entry.Stability,
		&entry.Difficulty,
		&entry.ElapsedDays,
		&entry.ScheduledDays,
		&entry.Reps,
		&entry.Lapses,
		&entry.State,
		&entry.LastReview,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lesson entry: %w", err)
	}
	entry.Entry.Phrases = []string{}
	if phrases != "" {
		if err := json.Unmarshal([]byte(phrases), &entry.Entry.Phrases); err != nil {
			return nil, fmt.Errorf("decode phrases of entry %d: %w", entry.ID, err)
		}
	}
	return &entry, nil
}

func nullTimeValue(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}
