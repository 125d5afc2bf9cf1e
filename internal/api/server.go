package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/rs/zerolog/log"

	"vocab-ai/internal/models"
	"vocab-ai/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

const (
	msgGenerationFailed = "The AI could not produce a vocabulary list for this file. Please try again."
	msgInsufficientText = "Could not read enough text from this file. It may be a scanned image; upload a document with selectable text."
	msgUnsupported      = "Unsupported file type. Upload a .pdf or .docx file."
)

type Server struct {
	mux        *http.ServeMux
	sessions   *SessionManager
	ingestion  *services.IngestionService
	lessons    *services.LessonService
	providers  services.ProviderFactory
	defaultKey string
	maxUpload  int64
}

// Options configures a Server.
type Options struct {
	DefaultAPIKey string
	MaxUploadMB   int
}

func NewServer(
	ingestion *services.IngestionService,
	lessons *services.LessonService,
	providers services.ProviderFactory,
	opts Options,
) *Server {
	maxUpload := int64(opts.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	s := &Server{
		mux:        http.NewServeMux(),
		sessions:   NewSessionManager(),
		ingestion:  ingestion,
		lessons:    lessons,
		providers:  providers,
		defaultKey: opts.DefaultAPIKey,
		maxUpload:  maxUpload,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/model", s.handleResolveModel)
	s.mux.HandleFunc("/api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("/api/sessions/", s.handleSessionActions)
	s.mux.HandleFunc("/api/lessons", s.handleListLessons)
	s.mux.HandleFunc("/api/lessons/", s.handleLessonActions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolveModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	credential := s.credential(r, "")
	if credential == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingCredential.Error())
		return
	}
	provider, err := s.providers(r.Context(), credential)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	res := services.ResolveModel(r.Context(), provider)
	writeJSON(w, http.StatusOK, map[string]string{
		"provider": provider.Name(),
		"model":    res.Model,
		"source":   string(res.Source),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessions.Create())
}

// handleSessionActions serves /api/sessions/{id}[/generate|/quiz|/quiz/{n}/reveal|/save].
func (s *Server) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/sessions/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		session, ok := s.sessions.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, session)
	case len(parts) == 2 && parts[1] == "generate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleGenerate(w, r, id)
	case len(parts) == 2 && parts[1] == "quiz":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleSessionQuiz(w, id)
	case len(parts) == 4 && parts[1] == "quiz" && parts[3] == "reveal":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleReveal(w, id, parts[2])
	case len(parts) == 2 && parts[1] == "save":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleSaveSession(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, id string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", s.maxUpload>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	count := 0
	if raw := strings.TrimSpace(r.FormValue("count")); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 0 {
			writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
	}

	credential := s.credential(r, r.FormValue("api_key"))
	if credential == "" {
		writeError(w, http.StatusBadRequest, services.ErrMissingCredential.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	if err := s.sessions.Begin(id); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSessionBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer s.sessions.Finish(id)

	result, err := s.ingestion.Ingest(r.Context(), header.Filename, data, credential, count)
	if err != nil {
		var extractErr *services.ExtractionError
		switch {
		case errors.Is(err, services.ErrUnsupportedFormat):
			writeError(w, http.StatusUnsupportedMediaType, msgUnsupported)
		case errors.As(err, &extractErr):
			writeError(w, http.StatusUnprocessableEntity, "Error reading file: "+extractErr.Error())
		case errors.Is(err, services.ErrInsufficientText):
			writeError(w, http.StatusUnprocessableEntity, msgInsufficientText)
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	gen := result.Generation
	if !gen.OK() || len(gen.Entries) == 0 {
		log.Warn().Str("session", id).Str("failure", string(gen.Failure)).Err(gen.Err).Msg("generation produced no entries")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   msgGenerationFailed,
			"failure": gen.Failure,
		})
		return
	}

	session, err := s.sessions.Complete(id, result.Filename, gen.Model, gen.Entries)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"quiz":    sessionQuiz(session),
	})
}

type quizItem struct {
	Number   int    `json:"number"`
	Prompt   string `json:"prompt"`
	Revealed bool   `json:"revealed"`
	Answer   string `json:"answer,omitempty"`
	Meaning  string `json:"meaning,omitempty"`
}

func sessionQuiz(session *Session) []quizItem {
	out := make([]quizItem, 0, len(session.Entries))
	for i, e := range session.Entries {
		out = append(out, newQuizItem(i+1, e, session.Revealed[i]))
	}
	return out
}

func newQuizItem(number int, entry models.VocabEntry, revealed bool) quizItem {
	item := quizItem{Number: number, Prompt: services.Blank(entry), Revealed: revealed}
	if revealed {
		item.Answer = entry.Word
		item.Meaning = entry.Meaning
	}
	return item
}

func (s *Server) handleSessionQuiz(w http.ResponseWriter, id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": sessionQuiz(session)})
}

func (s *Server) handleReveal(w http.ResponseWriter, id, rawNumber string) {
	number, err := strconv.Atoi(rawNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question number")
		return
	}
	entry, revealed, err := s.sessions.ToggleReveal(id, number-1)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrQuestionOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, newQuizItem(number, entry, revealed))
}

type saveSessionRequest struct {
	Lesson string `json:"lesson"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request, id string) {
	var payload saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	if len(session.Entries) == 0 {
		writeError(w, http.StatusConflict, "session has no generated entries to save")
		return
	}
	lesson, err := s.lessons.Save(r.Context(), payload.Lesson, session.Entries)
	if err != nil {
		s.writeLessonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessonPayload(lesson))
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	lessons, err := s.lessons.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

// handleLessonActions serves /api/lessons/{name}[/quiz|/next|/entries/{pos}/review].
func (s *Server) handleLessonActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/lessons/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	name := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			lesson, err := s.lessons.Get(r.Context(), name)
			if err != nil {
				s.writeLessonError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, lessonPayload(lesson))
		case http.MethodPut:
			s.handlePutLesson(w, r, name)
		case http.MethodDelete:
			if err := s.lessons.Delete(r.Context(), name); err != nil {
				s.writeLessonError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "quiz":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		lesson, err := s.lessons.Get(r.Context(), name)
		if err != nil {
			s.writeLessonError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quiz": services.BuildQuiz(lesson.VocabEntries())})
	case len(parts) == 2 && parts[1] == "next":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		s.handleNextEntry(w, r, name)
	case len(parts) == 4 && parts[1] == "entries" && parts[3] == "review":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleReviewEntry(w, r, name, parts[2])
	default:
		http.NotFound(w, r)
	}
}

type putLessonRequest struct {
	Entries []models.VocabEntry `json:"entries"`
}

func (s *Server) handlePutLesson(w http.ResponseWriter, r *http.Request, name string) {
	var payload putLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	lesson, err := s.lessons.Save(r.Context(), name, payload.Entries)
	if err != nil {
		s.writeLessonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessonPayload(lesson))
}

func (s *Server) handleNextEntry(w http.ResponseWriter, r *http.Request, name string) {
	entry, err := s.lessons.NextDue(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrNoDueEntries) {
			writeJSON(w, http.StatusOK, map[string]any{
				"entry":   nil,
				"message": "No words due. Come back later!",
			})
			return
		}
		s.writeLessonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entryPayload(*entry)})
}

type reviewRequest struct {
	Rating string `json:"rating"`
}

func (s *Server) handleReviewEntry(w http.ResponseWriter, r *http.Request, name, rawPosition string) {
	position, err := strconv.Atoi(rawPosition)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry position")
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, logEntry, err := s.lessons.Review(r.Context(), name, position, rating)
	if err != nil {
		s.writeLessonError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entry": entryPayload(*entry),
		"log": map[string]any{
			"rating":  logEntry.Rating,
			"due_in":  logEntry.ScheduledDays,
			"updated": logEntry.ReviewedAt.Format(timeLayout),
		},
	})
}

func (s *Server) writeLessonError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrLessonNotFound), errors.Is(err, services.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidLessonName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// credential picks the request key (header, then form value) over the configured one.
func (s *Server) credential(r *http.Request, formValue string) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if key := strings.TrimSpace(formValue); key != "" {
		return key
	}
	return strings.TrimSpace(s.defaultKey)
}

func lessonPayload(lesson *models.Lesson) map[string]any {
	entries := make([]map[string]any, 0, len(lesson.Entries))
	for _, e := range lesson.Entries {
		entries = append(entries, entryPayload(e))
	}
	return map[string]any{
		"name":       lesson.Name,
		"entries":    entries,
		"created_at": lesson.CreatedAt.Format(timeLayout),
		"updated_at": lesson.UpdatedAt.Format(timeLayout),
	}
}

func entryPayload(e models.LessonEntry) map[string]any {
	return map[string]any{
		"position":         e.Position,
		"word":             e.Entry.Word,
		"phonetic":         e.Entry.Phonetic,
		"meaning":          e.Entry.Meaning,
		"phrases":          e.Entry.Phrases,
		"example_sentence": e.Entry.ExampleSentence,
		"due":              nullTimeToString(e),
		"state":            e.State,
		"reps":             e.Reps,
	}
}

// pathParts splits the escaped path after prefix so lesson names may contain '/'.
func pathParts(r *http.Request, prefix string) []string {
	path := strings.TrimPrefix(r.URL.EscapedPath(), prefix)
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			unescaped = p
		}
		out = append(out, unescaped)
	}
	return out
}

const timeLayout = time.RFC3339

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}

func nullTimeToString(e models.LessonEntry) *string {
	if e.Due.Valid {
		str := e.Due.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
