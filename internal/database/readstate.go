// Package database persists per-channel read state locally so unread badges
// are correct immediately on startup, before the backend snapshot arrives.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	_ "modernc.org/sqlite"
)

// DB wraps the local SQLite cache.
type DB struct {
	*sql.DB
}

// New opens the cache at path and initializes the schema.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	wrapper := &DB{db}
	if err := wrapper.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return wrapper, nil
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS read_state (
		channel_id TEXT PRIMARY KEY,
		last_read_message_id TEXT NOT NULL,
		mentioned_message_ids TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SaveRecord upserts one channel's read state.
func (db *DB) SaveRecord(rec models.UnreadRecord) error {
	mentions, err := json.Marshal(rec.MentionedMessageIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal mentions: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO read_state (channel_id, last_read_message_id, mentioned_message_ids, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			last_read_message_id = excluded.last_read_message_id,
			mentioned_message_ids = excluded.mentioned_message_ids,
			updated_at = excluded.updated_at`,
		rec.ChannelID.String(), rec.LastReadMessageID.String(), string(mentions), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save read state: %w", err)
	}
	return nil
}

// SaveAll writes every record in one transaction.
func (db *DB) SaveAll(records []models.UnreadRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO read_state (channel_id, last_read_message_id, mentioned_message_ids, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			last_read_message_id = excluded.last_read_message_id,
			mentioned_message_ids = excluded.mentioned_message_ids,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range records {
		mentions, err := json.Marshal(rec.MentionedMessageIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal mentions: %w", err)
		}
		if _, err := stmt.Exec(rec.ChannelID.String(), rec.LastReadMessageID.String(), string(mentions), now); err != nil {
			return fmt.Errorf("failed to save read state: %w", err)
		}
	}
	return tx.Commit()
}

// LoadRecords reads all cached read state.
func (db *DB) LoadRecords() ([]models.UnreadRecord, error) {
	rows, err := db.Query(`SELECT channel_id, last_read_message_id, mentioned_message_ids FROM read_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to load read state: %w", err)
	}
	defer rows.Close()

	var out []models.UnreadRecord
	for rows.Next() {
		var channelID, lastRead, mentions string
		if err := rows.Scan(&channelID, &lastRead, &mentions); err != nil {
			return nil, fmt.Errorf("failed to scan read state: %w", err)
		}
		rec := models.UnreadRecord{}
		if rec.ChannelID, err = snowflake.Parse(channelID); err != nil {
			return nil, fmt.Errorf("corrupt read state row: %w", err)
		}
		if rec.LastReadMessageID, err = snowflake.Parse(lastRead); err != nil {
			return nil, fmt.Errorf("corrupt read state row: %w", err)
		}
		if err := json.Unmarshal([]byte(mentions), &rec.MentionedMessageIDs); err != nil {
			return nil, fmt.Errorf("corrupt mention list: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
