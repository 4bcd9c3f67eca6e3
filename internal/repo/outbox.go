package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dagda/internal/domain"
)

// ListPendingOutbox returns PENDING entries, oldest first.
func (r Repo) ListPendingOutbox(ctx context.Context) ([]domain.OutboxEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,party_id,type,payload_json,status,created_at,sent_at FROM outbox WHERE status=? ORDER BY created_at, seq`, domain.OutboxPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.OutboxEvent{}
	for rows.Next() {
		var e domain.OutboxEvent
		var payload string
		var sentAt sql.NullString
		if err := rows.Scan(&e.ID, &e.PartyID, &e.Type, &payload, &e.Status, &e.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode outbox payload %s: %w", e.ID, err)
		}
		if sentAt.Valid {
			e.SentAt = sentAt.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) AppendOutbox(ctx context.Context, e domain.OutboxEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO outbox(id,party_id,type,payload_json,status,created_at,sent_at) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.PartyID, e.Type, string(b), e.Status, e.CreatedAt, nullable(e.SentAt))
	return err
}

// UpdateOutboxStatus sets the status and sent timestamp of one entry.
func (r Repo) UpdateOutboxStatus(ctx context.Context, id string, status domain.OutboxStatus, sentAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE outbox SET status=?, sent_at=? WHERE id=?`, status, nullable(sentAt), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("outbox event", id)
	}
	return nil
}
