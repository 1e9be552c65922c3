// Package database provides the intelligence archive: accepted signals,
// emitted insights, and fired alerts are persisted to PostgreSQL for
// offline analysis.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// DB wraps a database connection and provides archive operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// marshalPayloadToJSONB serializes a signal payload to a sql.NullString for
// JSONB storage. Returns a NullString with Valid=false for an empty payload.
func marshalPayloadToJSONB(payload map[string]any) (sql.NullString, error) {
	var payloadJSON sql.NullString
	if len(payload) > 0 {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadJSON = sql.NullString{
			String: string(jsonBytes),
			Valid:  true,
		}
	}
	return payloadJSON, nil
}

// InsertSignalIdempotent archives a scored signal.
// Uses INSERT ... ON CONFLICT DO NOTHING so redelivered signals are not
// duplicated. Returns true if a new row was inserted.
func (db *DB) InsertSignalIdempotent(ctx context.Context, sig *intel.Signal) (bool, error) {
	payloadJSON, err := marshalPayloadToJSONB(sig.Payload)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO signals (signal_id, competitor, head, observed_at, payload, raw_confidence, confidence, threat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signal_id) DO NOTHING
		RETURNING signal_id
	`

	var signalID string
	err = db.conn.QueryRowContext(ctx, query,
		sig.ID,
		sig.Competitor,
		string(sig.Head),
		sig.ObservedAt,
		payloadJSON,
		sig.RawConfidence,
		sig.Confidence,
		string(sig.Threat),
	).Scan(&signalID)

	if err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("Signal already archived, skipping",
				"signal_id", sig.ID,
				"competitor", sig.Competitor,
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to insert signal: %w", err)
	}
	return true, nil
}

// InsertInsightIdempotent archives a correlated insight with its evidence set.
func (db *DB) InsertInsightIdempotent(ctx context.Context, in *intel.Insight) (bool, error) {
	query := `
		INSERT INTO insights (insight_id, competitor, pattern_kind, signal_ids, composite_confidence, threat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (insight_id) DO NOTHING
		RETURNING insight_id
	`

	var insightID string
	err := db.conn.QueryRowContext(ctx, query,
		in.ID,
		in.Competitor,
		in.PatternKind,
		pq.Array(in.SignalIDs),
		in.CompositeConfidence,
		string(in.Threat),
		in.CreatedAt,
	).Scan(&insightID)

	if err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("Insight already archived, skipping",
				"insight_id", in.ID,
				"competitor", in.Competitor,
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to insert insight: %w", err)
	}
	return true, nil
}

// InsertAlertIdempotent archives a dispatched alert. Alerts are keyed by
// (competitor, subject, first_seen_at) so a refresh after cooldown archives
// as a new row while in-cooldown redeliveries do not.
func (db *DB) InsertAlertIdempotent(ctx context.Context, a *intel.Alert) (bool, error) {
	query := `
		INSERT INTO alerts (subject_id, competitor, subject, threat, first_seen_at, suppressed_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (competitor, subject, first_seen_at) DO NOTHING
		RETURNING subject_id
	`

	var subjectID string
	err := db.conn.QueryRowContext(ctx, query,
		a.SubjectID,
		a.Competitor,
		a.Subject,
		string(a.Threat),
		a.FirstSeenAt,
		a.SuppressedUntil,
	).Scan(&subjectID)

	if err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("Alert already archived, skipping",
				"competitor", a.Competitor,
				"subject", a.Subject,
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return true, nil
}
