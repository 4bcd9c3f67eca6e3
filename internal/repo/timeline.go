package repo

import (
	"context"
	"database/sql"
	"strings"

	"dagda/internal/domain"
)

// ListEvents returns a party's whole timeline, most recent first.
func (r Repo) ListEvents(ctx context.Context, partyID string) ([]domain.TimelineEvent, error) {
	return r.LatestEvents(ctx, partyID, 0, "")
}

// LatestEvents returns up to limit events (0 = all), optionally of one type.
func (r Repo) LatestEvents(ctx context.Context, partyID string, limit int, evtType string) ([]domain.TimelineEvent, error) {
	clauses := []string{"party_id=?"}
	args := []any{partyID}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	query := `SELECT id,party_id,type,label,payload_json,created_at FROM timeline WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.TimelineEvent{}
	for rows.Next() {
		var e domain.TimelineEvent
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.PartyID, &e.Type, &e.Label, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// AppendEvent inserts; timeline rows are never updated.
func (r Repo) AppendEvent(ctx context.Context, e domain.TimelineEvent) error {
	return appendEvent(ctx, r.DB, e)
}

func appendEvent(ctx context.Context, x execer, e domain.TimelineEvent) error {
	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `INSERT INTO timeline(id,party_id,type,label,payload_json,created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.PartyID, e.Type, e.Label, payload, e.CreatedAt)
	return err
}
