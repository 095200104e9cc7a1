package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "facturo/internal/core/context"
	"facturo/internal/core/id"
	"facturo/internal/domain/documents"
)

// eventCompressThreshold is the payload size above which event payloads
// are stored zstd-compressed. Status changes are tiny; conversion events
// carry full document snapshots and can be large.
const eventCompressThreshold = 10 * 1024

const (
	compressionNone = "none"
	compressionZstd = "zstd"
)

// EventStore persists the document audit trail.
type EventStore struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewEventStore creates an event store.
func NewEventStore(txManager *TxManager) (*EventStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &EventStore{txManager: txManager, encoder: encoder, decoder: decoder}, nil
}

// Record implements documents.EventRecorder.
func (s *EventStore) Record(ctx context.Context, event documents.Event) error {
	if id.IsNil(event.ID) {
		event.ID = id.New()
	}
	if event.UserID == "" {
		event.UserID = appctx.GetUserID(ctx)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	payload := []byte(event.Payload)
	var compressed []byte
	algo := compressionNone
	if len(payload) > eventCompressThreshold {
		compressed = s.encoder.EncodeAll(payload, nil)
		payload = nil
		algo = compressionZstd
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO document_events (
			id, document_id, action, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.ID, event.DocumentID, event.Action, event.UserID,
		payload, compressed, algo, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document event: %w", err)
	}
	return nil
}

// History returns the audit trail of a document, newest first.
func (s *EventStore) History(ctx context.Context, documentID id.ID, limit int) ([]documents.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, document_id, action, user_id,
		       payload, payload_compressed, compression_algo, created_at
		FROM document_events
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query document events: %w", err)
	}
	defer rows.Close()

	var events []documents.Event
	for rows.Next() {
		var e documents.Event
		var compressed []byte
		var algo string
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Action, &e.UserID,
			&e.Payload, &compressed, &algo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if algo == compressionZstd && len(compressed) > 0 {
			payload, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress event payload: %w", err)
			}
			e.Payload = payload
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ensure compile-time interface compliance.
var _ documents.EventRecorder = (*EventStore)(nil)
