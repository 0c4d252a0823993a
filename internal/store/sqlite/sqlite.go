package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

const (
	receiptDelivered = "delivered"
	receiptRead      = "read"
)

// Schema creates the tables used by SQLiteStore. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS participants (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	connection_id TEXT,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	sender         TEXT NOT NULL,
	sender_conn_id TEXT NOT NULL,
	body           TEXT NOT NULL DEFAULT '',
	is_private     BOOLEAN NOT NULL DEFAULT 0,
	recipient      TEXT,
	file_name      TEXT,
	file_url       TEXT,
	file_mime      TEXT,
	file_size      INTEGER,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS message_receipts (
	message_id    INTEGER NOT NULL,
	connection_id TEXT NOT NULL,
	kind          TEXT NOT NULL,
	PRIMARY KEY (message_id, connection_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, id);
CREATE INDEX IF NOT EXISTS idx_participants_conn ON participants(connection_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Migrate applies Schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// New creates a new SQLite store with the schema applied.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== MessageStore implementation ====

// InsertMessage persists a message with empty receipt sets.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg store.NewMessage) (*store.Message, error) {
	query := `
		INSERT INTO messages (sender, sender_conn_id, body, is_private, recipient,
			file_name, file_url, file_mime, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var (
		recipient                  sql.NullString
		fileName, fileURL, fileMim sql.NullString
		fileSize                   sql.NullInt64
	)
	if msg.To != "" {
		recipient = sql.NullString{String: msg.To, Valid: true}
	}
	if msg.File != nil {
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		fileURL = sql.NullString{String: msg.File.URL, Valid: true}
		fileMim = sql.NullString{String: msg.File.MimeType, Valid: true}
		fileSize = sql.NullInt64{Int64: msg.File.Size, Valid: true}
	}

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		msg.Sender, msg.SenderConnID, msg.Body, msg.IsPrivate, recipient,
		fileName, fileURL, fileMim, fileSize, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Message{
		ID:           strconv.FormatInt(id, 10),
		Sender:       msg.Sender,
		SenderConnID: msg.SenderConnID,
		Body:         msg.Body,
		IsPrivate:    msg.IsPrivate,
		To:           msg.To,
		File:         msg.File,
		DeliveredTo:  []string{},
		ReadBy:       []string{},
		CreatedAt:    createdAt,
	}, nil
}

// GetMessage retrieves a message by id together with its receipt sets.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	query := `
		SELECT id, sender, sender_conn_id, body, is_private, recipient,
			file_name, file_url, file_mime, file_size, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, rowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	receipts, err := s.loadReceipts(ctx, `WHERE message_id = ?`, rowID)
	if err != nil {
		return nil, err
	}
	receipts.apply(msg)

	return msg, nil
}

// UpdateMessageSets unions connection ids into the receipt sets of a message.
func (s *SQLiteStore) UpdateMessageSets(ctx context.Context, id string, update store.SetUpdate) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, rowID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check message: %w", err)
	}

	insert := `INSERT OR IGNORE INTO message_receipts (message_id, connection_id, kind) VALUES (?, ?, ?)`
	if update.Delivered != "" {
		if _, err := tx.ExecContext(ctx, insert, rowID, update.Delivered, receiptDelivered); err != nil {
			return false, fmt.Errorf("insert delivered receipt: %w", err)
		}
	}
	if update.Read != "" {
		if _, err := tx.ExecContext(ctx, insert, rowID, update.Read, receiptRead); err != nil {
			return false, fmt.Errorf("insert read receipt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// DeleteMessage removes a message and its receipts.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, rowID)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_receipts WHERE message_id = ?`, rowID); err != nil {
		return false, fmt.Errorf("delete receipts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteAllMessages removes every message and receipt.
func (s *SQLiteStore) DeleteAllMessages(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM message_receipts`); err != nil {
		return fmt.Errorf("delete receipts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns up to limit messages ordered by creation time.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int, ascending bool) ([]*store.Message, error) {
	order := "ASC"
	if !ascending {
		order = "DESC"
	}
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}

	window := fmt.Sprintf(`ORDER BY created_at %[1]s, id %[1]s LIMIT ?`, order)
	query := `
		SELECT id, sender, sender_conn_id, body, is_private, recipient,
			file_name, file_url, file_mime, file_size, created_at
		FROM messages
	` + window

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	// Select the receipts through the same window rather than binding one
	// parameter per message; long histories exceed SQLite's variable limit.
	receipts, err := s.loadReceipts(ctx, "WHERE message_id IN (SELECT id FROM messages "+window+")", limit)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		receipts.apply(msg)
	}

	return messages, nil
}

// ==== ParticipantStore implementation ====

// UpsertParticipant creates the participant if needed and binds it to connID.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, username, connID string) (*store.Participant, error) {
	query := `
		INSERT INTO participants (username, connection_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET connection_id = excluded.connection_id
	`
	if _, err := s.db.ExecContext(ctx, query, username, connID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert participant: %w", err)
	}

	var (
		p      store.Participant
		id     int64
		connNS sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, connection_id, created_at FROM participants WHERE username = ?`,
		username,
	).Scan(&id, &p.Username, &connNS, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query participant: %w", err)
	}
	p.ID = strconv.FormatInt(id, 10)
	p.ConnectionID = connNS.String

	return &p, nil
}

// ClearConnection unsets the live connection pointer matching connID.
func (s *SQLiteStore) ClearConnection(ctx context.Context, connID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE participants SET connection_id = NULL WHERE connection_id = ?`, connID)
	if err != nil {
		return fmt.Errorf("clear connection: %w", err)
	}
	return nil
}

// ListParticipants returns all participants ordered by creation time.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, connection_id, created_at
		FROM participants
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*store.Participant, 0)
	for rows.Next() {
		var (
			p      store.Participant
			id     int64
			connNS sql.NullString
		)
		if err := rows.Scan(&id, &p.Username, &connNS, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.ConnectionID = connNS.String
		participants = append(participants, &p)
	}

	return participants, rows.Err()
}

// DeleteParticipant removes a participant by id.
func (s *SQLiteStore) DeleteParticipant(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, rowID)
	if err != nil {
		return false, fmt.Errorf("delete participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteAllParticipants removes every participant.
func (s *SQLiteStore) DeleteAllParticipants(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM participants`); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}

// ==== helpers ====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg                        store.Message
		id                         int64
		recipient                  sql.NullString
		fileName, fileURL, fileMim sql.NullString
		fileSize                   sql.NullInt64
	)
	err := row.Scan(
		&id,
		&msg.Sender,
		&msg.SenderConnID,
		&msg.Body,
		&msg.IsPrivate,
		&recipient,
		&fileName,
		&fileURL,
		&fileMim,
		&fileSize,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.ID = strconv.FormatInt(id, 10)
	msg.To = recipient.String
	if fileURL.Valid || fileName.Valid {
		msg.File = &store.FileRef{
			Name:     fileName.String,
			URL:      fileURL.String,
			MimeType: fileMim.String,
			Size:     fileSize.Int64,
		}
	}
	msg.DeliveredTo = []string{}
	msg.ReadBy = []string{}

	return &msg, nil
}

// receiptSets maps message id to its delivered and read connection ids.
type receiptSets map[string]*[2][]string

func (r receiptSets) apply(msg *store.Message) {
	sets, ok := r[msg.ID]
	if !ok {
		return
	}
	msg.DeliveredTo = append(msg.DeliveredTo, sets[0]...)
	msg.ReadBy = append(msg.ReadBy, sets[1]...)
}

func (s *SQLiteStore) loadReceipts(ctx context.Context, where string, args ...any) (receiptSets, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, connection_id, kind FROM message_receipts `+where+` ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	sets := make(receiptSets)
	for rows.Next() {
		var (
			messageID    int64
			connectionID string
			kind         string
		)
		if err := rows.Scan(&messageID, &connectionID, &kind); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		key := strconv.FormatInt(messageID, 10)
		entry, ok := sets[key]
		if !ok {
			entry = &[2][]string{}
			sets[key] = entry
		}
		switch kind {
		case receiptDelivered:
			entry[0] = append(entry[0], connectionID)
		case receiptRead:
			entry[1] = append(entry[1], connectionID)
		}
	}

	return sets, rows.Err()
}

func parseID(id string) (int64, bool) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || rowID <= 0 {
		return 0, false
	}
	return rowID, true
}
