package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/models"
)

// ErrNotFound is returned when a card does not exist.
var ErrNotFound = errors.New("card not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// CardFilter narrows ListCards. Zero values match everything.
type CardFilter struct {
	Active *bool
	Issuer string
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			issuer TEXT NOT NULL,
			active INTEGER NOT NULL,
			document TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_active ON cards(active)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_issuer ON cards(issuer)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertCard creates or updates a card. The whole document is stored so
// rules round-trip exactly as they were submitted.
func (db *DB) UpsertCard(ctx context.Context, card catalog.CardDocument) error {
	document, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode card %s: %w", card.ID, err)
	}

	query := `INSERT INTO cards (id, name, issuer, active, document, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		issuer = excluded.issuer,
		active = excluded.active,
		document = excluded.document,
		updated_at = excluded.updated_at`

	_, err = db.conn.ExecContext(ctx,
		query,
		card.ID,
		card.Name,
		card.Issuer,
		card.IsActive,
		string(document),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}

	return nil
}

// GetCard returns a single card document.
func (db *DB) GetCard(ctx context.Context, id string) (catalog.CardDocument, error) {
	var document string
	err := db.conn.QueryRowContext(ctx, `SELECT document FROM cards WHERE id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.CardDocument{}, ErrNotFound
	}
	if err != nil {
		return catalog.CardDocument{}, fmt.Errorf("failed to query card %s: %w", id, err)
	}

	return decodeCard(document)
}

// ListCards returns card documents matching filter, ordered by name.
func (db *DB) ListCards(ctx context.Context, filter CardFilter) ([]catalog.CardDocument, error) {
	builder := sq.Select("document").From("cards").OrderBy("name", "id")
	if filter.Active != nil {
		builder = builder.Where(sq.Eq{"active": *filter.Active})
	}
	if filter.Issuer != "" {
		builder = builder.Where(sq.Eq{"issuer": filter.Issuer})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build card query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := []catalog.CardDocument{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}

		card, err := decodeCard(document)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// DeleteCard removes a card.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// LoadCards returns the active catalog, normalized for the engine.
func (db *DB) LoadCards(ctx context.Context) ([]models.CreditCard, error) {
	active := true
	docs, err := db.ListCards(ctx, CardFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	return catalog.NormalizeAll(docs), nil
}

func decodeCard(document string) (catalog.CardDocument, error) {
	var card catalog.CardDocument
	if err := json.Unmarshal([]byte(document), &card); err != nil {
		return catalog.CardDocument{}, fmt.Errorf("failed to decode card: %w", err)
	}
	return card, nil
}
