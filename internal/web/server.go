// Package web is the HTMX shell over the scheduling core. Handlers
// only shuttle state to templates; scheduling decisions live in the
// leitner, aggregate and session packages.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/leitner/internal/aggregate"
	"github.com/conorfennell/leitner/internal/domain"
	"github.com/conorfennell/leitner/internal/leitner"
	"github.com/conorfennell/leitner/internal/session"
	"github.com/conorfennell/leitner/internal/storage"
	cardsync "github.com/conorfennell/leitner/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server. One study session
// is live at a time, matching the single-study-screen design.
type Server struct {
	db        *storage.DB
	router    *http.ServeMux
	intervals leitner.Intervals
	reposDir  string
	templates *template.Template

	mu      sync.Mutex
	session *session.Session
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, intervals leitner.Intervals, reposDir string) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		intervals: intervals,
		reposDir:  reposDir,
		templates: tpl,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based routes
	s.router.HandleFunc("/deck", s.handleGetDeck())
	s.router.HandleFunc("/study", s.handlePostStudy())
	s.router.HandleFunc("/review/next", s.handleGetNextReview())
	s.router.HandleFunc("/review/skip", s.handlePostSkip())
	s.router.HandleFunc("/review/answer/", s.handleShowAnswer())
	s.router.HandleFunc("/review/", s.handlePostReview())

	// Scoping and source management routes
	s.router.HandleFunc("/subjects", s.handleSubjects())
	s.router.HandleFunc("/subjects/", s.handleToggleSubject())
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

type boxCount struct {
	Box   int
	Count int
}

type deckView struct {
	Boxes    []boxCount
	TotalDue int
	Total    int
	Subject  string
	Subjects []string
}

// handleGetDeck renders box statistics for the active subjects,
// optionally scoped by a subject query parameter. The aggregate is
// recomputed fresh on every request.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := r.URL.Query().Get("subject")
		cards, err := s.db.FetchCards(domain.Filter{Subject: subject})
		if err != nil {
			slog.Error("error fetching cards for deck view", "error", err)
			s.templates.ExecuteTemplate(w, "fetch_error", nil)
			return
		}
		subjects, err := s.db.FetchActiveSubjects()
		if err != nil {
			slog.Error("error fetching active subjects", "error", err)
			s.templates.ExecuteTemplate(w, "fetch_error", nil)
			return
		}

		agg := aggregate.Compute(cards, time.Now(), nil)
		view := deckView{TotalDue: agg.TotalDue, Total: agg.TotalInStudyBank, Subject: subject, Subjects: subjects}
		for i, n := range agg.Boxes {
			view.Boxes = append(view.Boxes, boxCount{Box: i + 1, Count: n})
		}
		s.templates.ExecuteTemplate(w, "deck", view)
	}
}

// handlePostStudy starts a new session over the scoped card set. Free
// study uses due-first ordering; a single-box review uses
// review-date-ascending, since every card there shares a box.
func (s *Server) handlePostStudy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filter := domain.Filter{
			Subject: r.PostFormValue("subject"),
			Topic:   r.PostFormValue("topic"),
		}
		policy := leitner.DueFirst
		if boxStr := r.PostFormValue("box"); boxStr != "" {
			box, err := strconv.Atoi(boxStr)
			if err != nil || box < 1 || box > leitner.Boxes {
				http.Error(w, "Invalid box", http.StatusBadRequest)
				return
			}
			filter.Box = box
			policy = leitner.ReviewDateAscending
		}

		cards, err := s.db.FetchCards(filter)
		if err != nil {
			slog.Error("error fetching cards for session", "error", err)
			s.templates.ExecuteTemplate(w, "fetch_error", nil)
			return
		}

		s.mu.Lock()
		s.session = session.New(cards, policy, s.intervals, s.db)
		s.mu.Unlock()

		s.renderCurrentCard(w)
	}
}

// handleGetNextReview renders the front of the current card.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderCurrentCard(w)
	}
}

// handlePostSkip steps past the current card without answering it,
// used for frozen cards in mixed decks.
func (s *Server) handlePostSkip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		if s.session != nil {
			if err := s.session.Skip(); err != nil && !errors.Is(err, session.ErrNoCurrentCard) {
				slog.Error("error skipping card", "error", err)
			}
		}
		s.mu.Unlock()

		s.renderCurrentCard(w)
	}
}

type cardView struct {
	Card      domain.Card
	Frozen    bool
	DaysUntil int
	Position  int
	DeckSize  int
}

func (s *Server) renderCurrentCard(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		s.templates.ExecuteTemplate(w, "no_session", nil)
		return
	}

	switch s.session.State() {
	case session.Empty:
		s.templates.ExecuteTemplate(w, "session_empty", nil)
	case session.Completed, session.Drained:
		s.templates.ExecuteTemplate(w, "session_complete", s.session.Stats())
	default:
		card, review, err := s.session.Current()
		if err != nil {
			slog.Error("error reading current card", "error", err)
			s.templates.ExecuteTemplate(w, "fetch_error", nil)
			return
		}
		s.templates.ExecuteTemplate(w, "card_front", cardView{
			Card:      card,
			Frozen:    review.Frozen,
			DaysUntil: review.DaysUntil,
			Position:  s.session.Index() + 1,
			DeckSize:  s.session.Len(),
		})
	}
}

// handleShowAnswer renders the back of the current card.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/review/answer/")

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == nil {
			s.templates.ExecuteTemplate(w, "no_session", nil)
			return
		}
		card, review, err := s.session.Current()
		if err != nil || card.Hash != hash {
			http.NotFound(w, r)
			return
		}
		if review.Frozen {
			// Frozen cards are view-only; no answer capture.
			s.templates.ExecuteTemplate(w, "card_frozen", cardView{Card: card, Frozen: true, DaysUntil: review.DaysUntil})
			return
		}
		s.templates.ExecuteTemplate(w, "card_back", cardView{Card: card})
	}
}

// handlePostReview records a correctness judgment for the current card
// and renders the next one. A failed persist still advances the
// session; the user sees a non-blocking notice instead of losing the
// review.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hash := strings.TrimPrefix(r.URL.Path, "/review/")
		result := r.PostFormValue("result")
		if result != "correct" && result != "incorrect" {
			http.Error(w, "Invalid result", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		if s.session == nil {
			s.mu.Unlock()
			s.templates.ExecuteTemplate(w, "no_session", nil)
			return
		}
		if card, _, err := s.session.Current(); err != nil || card.Hash != hash {
			s.mu.Unlock()
			http.NotFound(w, r)
			return
		}
		err := s.session.Answer(result == "correct")
		s.mu.Unlock()

		var persistErr *session.PersistError
		switch {
		case errors.As(err, &persistErr):
			slog.Warn("review persisted locally only", "card", persistErr.CardHash, "error", persistErr.Err)
			s.templates.ExecuteTemplate(w, "persist_notice", persistErr.CardHash)
		case errors.Is(err, session.ErrFrozenCard):
			http.Error(w, "Card is frozen", http.StatusConflict)
			return
		case err != nil:
			slog.Error("error answering card", "card", hash, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		s.renderCurrentCard(w)
	}
}

type subjectView struct {
	Name   string
	Active bool
}

// handleSubjects renders the subject list with active toggles.
func (s *Server) handleSubjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSubjectList(w)
	}
}

// handleToggleSubject flips a subject's active flag and re-renders the
// list.
func (s *Server) handleToggleSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/subjects/")
		active := r.PostFormValue("active") == "true"

		if err := s.db.SetSubjectActive(name, active); err != nil {
			slog.Error("error toggling subject", "subject", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderSubjectList(w)
	}
}

func (s *Server) renderSubjectList(w http.ResponseWriter) {
	subjects, err := s.db.GetAllSubjects()
	if err != nil {
		slog.Error("error getting subjects", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var views []subjectView
	for name, active := range subjects {
		views = append(views, subjectView{Name: name, Active: active})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	s.templates.ExecuteTemplate(w, "subject_list", views)
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderSources(w, "sources")
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	if _, err := s.db.InsertSource(path, cardsync.SourceType(path)); err != nil {
		slog.Error("error inserting new source", "path", path, "error", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}
	s.renderSources(w, "source_list")
}

// handleDeleteSource deletes a source, with its cards, and re-renders
// the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			slog.Error("error deleting source", "id", id, "error", err)
			http.Error(w, "Failed to delete source", http.StatusInternalServerError)
			return
		}
		s.renderSources(w, "source_list")
	}
}

// handlePostSync triggers a manual sync and re-renders the source
// list. Runs in the foreground so the list reflects the result.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := cardsync.Run(s.db, s.reposDir, time.Now()); err != nil {
			slog.Error("sync failed", "error", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}

		s.templates.ExecuteTemplate(w, "sync_success", nil)
		s.renderSources(w, "source_list")
	}
}

func (s *Server) renderSources(w http.ResponseWriter, tmpl string) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("error getting sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.templates.ExecuteTemplate(w, tmpl, map[string]interface{}{
		"Sources": sources,
	})
}
