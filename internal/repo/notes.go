package repo

import (
	"context"

	"dagda/internal/domain"
)

// ListNotes returns a party's notes, most recent first.
func (r Repo) ListNotes(ctx context.Context, partyID string) ([]domain.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,party_id,content,created_at FROM notes WHERE party_id=? ORDER BY created_at DESC, rowid DESC`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.PartyID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) SaveNote(ctx context.Context, n domain.Note) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notes(id,party_id,content,created_at) VALUES (?,?,?,?)
ON CONFLICT(id) DO UPDATE SET party_id=excluded.party_id, content=excluded.content, created_at=excluded.created_at`,
		n.ID, n.PartyID, n.Content, n.CreatedAt)
	return err
}
