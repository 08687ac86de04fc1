package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/leitner/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrCardNotFound reports a schedule write against a card that no
// longer exists, e.g. deleted by a sync while a session held it.
var ErrCardNotFound = errors.New("storage: card not found")

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up
// to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = "hash, question, answer, context, subject, topic, box, next_review, in_study_bank"

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var c domain.Card
	err := row.Scan(
		&c.Hash,
		&c.Question,
		&c.Answer,
		&c.Context,
		&c.Subject,
		&c.Topic,
		&c.Box,
		&c.NextReview,
		&c.InStudyBank,
	)
	return c, err
}

// FetchCards returns the cards matching filter. Results are always
// restricted to study-bank cards whose subject is currently active;
// ordering is the caller's responsibility.
func (db *DB) FetchCards(filter domain.Filter) ([]domain.Card, error) {
	query := "SELECT " + cardColumns + ` FROM cards
		WHERE in_study_bank = 1
		AND subject IN (SELECT name FROM subjects WHERE active = 1)`
	var args []any

	var clauses []string
	if filter.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Topic != "" {
		clauses = append(clauses, "topic = ?")
		args = append(args, filter.Topic)
	}
	if filter.Box != 0 {
		clauses = append(clauses, "box = ?")
		args = append(args, filter.Box)
	}
	if len(clauses) > 0 {
		query += " AND " + strings.Join(clauses, " AND ")
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// UpdateCardSchedule writes a card's new box and review date in a
// single statement, so the pair can never be half-applied. Updating a
// missing card returns ErrCardNotFound rather than silently
// un-scheduling it.
func (db *DB) UpdateCardSchedule(hash string, box int, nextReview time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET box = ?, next_review = ?
		WHERE hash = ?
	`, box, nextReview, hash)
	if err != nil {
		return fmt.Errorf("failed to update schedule for card %s: %w", hash, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update schedule for card %s: %w", hash, err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update schedule for card %s: %w", hash, ErrCardNotFound)
	}
	return nil
}

// SetInStudyBank moves a card in or out of the study bank.
func (db *DB) SetInStudyBank(hash string, in bool) error {
	_, err := db.conn.Exec(`
		UPDATE cards
		SET in_study_bank = ?
		WHERE hash = ?
	`, in, hash)
	if err != nil {
		return fmt.Errorf("failed to set study bank flag for card %s: %w", hash, err)
	}
	return nil
}

// InsertCard inserts a new card. New cards start in box 1 and are due
// immediately at now.
func (db *DB) InsertCard(card domain.Card, sourceID int64, now time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (hash, question, answer, context, subject, topic, box, next_review, in_study_bank, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.Hash,
		card.Question,
		card.Answer,
		card.Context,
		card.Subject,
		card.Topic,
		1,
		now,
		true,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	return nil
}

// FindCardByHash retrieves a card by its hash, or nil if absent.
func (db *DB) FindCardByHash(hash string) (*domain.Card, error) {
	row := db.conn.QueryRow("SELECT "+cardColumns+" FROM cards WHERE hash = ?", hash)
	card, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &card, nil
}

// GetCardsBySourceID retrieves every card belonging to a source,
// regardless of study-bank or subject state.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query("SELECT "+cardColumns+" FROM cards WHERE source_id = ?", sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for source ID %d: %w", sourceID, err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// DeleteCardByHash removes a card.
func (db *DB) DeleteCardByHash(hash string) error {
	_, err := db.conn.Exec("DELETE FROM cards WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

// UpsertSubject registers a subject, active by default. An existing
// row keeps its active flag.
func (db *DB) UpsertSubject(name string) error {
	_, err := db.conn.Exec("INSERT OR IGNORE INTO subjects (name, active) VALUES (?, 1)", name)
	if err != nil {
		return fmt.Errorf("failed to upsert subject %s: %w", name, err)
	}
	return nil
}

// SetSubjectActive toggles whether a subject participates in
// scheduling.
func (db *DB) SetSubjectActive(name string, active bool) error {
	_, err := db.conn.Exec("UPDATE subjects SET active = ? WHERE name = ?", active, name)
	if err != nil {
		return fmt.Errorf("failed to set active flag for subject %s: %w", name, err)
	}
	return nil
}

// FetchActiveSubjects returns the names of subjects currently being
// studied.
func (db *DB) FetchActiveSubjects() ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM subjects WHERE active = 1 ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active subjects: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetAllSubjects returns every subject with its active flag.
func (db *DB) GetAllSubjects() (map[string]bool, error) {
	rows, err := db.conn.Query("SELECT name, active FROM subjects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}
	defer rows.Close()

	subjects := make(map[string]bool)
	for rows.Next() {
		var name string
		var active bool
		if err := rows.Scan(&name, &active); err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects[name] = active
	}
	return subjects, rows.Err()
}

// Source is a card origin, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource registers a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil if absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow("SELECT id, path, type, last_scanned FROM sources WHERE path = ?", path)
	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query("SELECT id, path, type, last_scanned FROM sources")
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned records when a source was last reconciled.
func (db *DB) UpdateSourceLastScanned(sourceID int64, now time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, now, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and every card that came from it.
func (db *DB) DeleteSource(sourceID int64) error {
	if _, err := db.conn.Exec("DELETE FROM cards WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete cards for source ID %d: %w", sourceID, err)
	}
	if _, err := db.conn.Exec("DELETE FROM sources WHERE id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}
