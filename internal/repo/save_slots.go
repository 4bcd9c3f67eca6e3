package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"dagda/internal/domain"
)

// ListSaveSlots returns a party's slots ordered by slot number.
func (r Repo) ListSaveSlots(ctx context.Context, partyID string) ([]domain.SaveSlot, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,party_id,slot,snapshot_json,created_at FROM save_slots WHERE party_id=? ORDER BY slot`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.SaveSlot{}
	for rows.Next() {
		var s domain.SaveSlot
		var snapshot string
		if err := rows.Scan(&s.ID, &s.PartyID, &s.Slot, &snapshot, &s.CreatedAt); err != nil {
			return nil, err
		}
		var snap domain.PartySnapshot
		if err := json.Unmarshal([]byte(snapshot), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot for slot %s: %w", s.ID, err)
		}
		s.Snapshot = &snap
		res = append(res, s)
	}
	return res, rows.Err()
}

// SaveSaveSlot upserts by id; replacing a slot keeps its id.
func (r Repo) SaveSaveSlot(ctx context.Context, s domain.SaveSlot) error {
	var snap domain.PartySnapshot
	if s.Snapshot != nil {
		snap = *s.Snapshot
	}
	snapshot, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO save_slots(id,party_id,slot,snapshot_json,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET party_id=excluded.party_id, slot=excluded.slot, snapshot_json=excluded.snapshot_json, created_at=excluded.created_at`,
		s.ID, s.PartyID, s.Slot, string(snapshot), s.CreatedAt)
	return err
}

func (r Repo) DeleteSaveSlot(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM save_slots WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("save slot", id)
	}
	return nil
}
