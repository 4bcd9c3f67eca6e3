package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dagda/internal/domain"
)

const partyColumns = `id,name,mode,status,current_chapter,character_json,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (domain.Party, error) {
	var p domain.Party
	var character string
	if err := row.Scan(&p.ID, &p.Name, &p.Mode, &p.Status, &p.CurrentChapter, &character, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(character), &p.Character); err != nil {
		return p, fmt.Errorf("decode character for party %s: %w", p.ID, err)
	}
	return p, nil
}

// ListParties returns every party, most recently updated first.
func (r Repo) ListParties(ctx context.Context) ([]domain.Party, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+partyColumns+` FROM parties ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) GetParty(ctx context.Context, id string) (domain.Party, error) {
	p, err := scanParty(r.DB.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Party{}, notFound("party", id)
	}
	return p, err
}

// SaveParty upserts the whole aggregate.
func (r Repo) SaveParty(ctx context.Context, p domain.Party) error {
	character, err := json.Marshal(p.Character)
	if err != nil {
		return fmt.Errorf("encode character: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO parties(`+partyColumns+`) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, mode=excluded.mode, status=excluded.status,
current_chapter=excluded.current_chapter, character_json=excluded.character_json,
created_at=excluded.created_at, updated_at=excluded.updated_at`,
		p.ID, p.Name, p.Mode, p.Status, p.CurrentChapter, string(character), p.CreatedAt, p.UpdatedAt)
	return err
}

// DeletePartyCascade removes a party with its notes, saves, timeline and
// outbox rows in a single transaction.
func (r Repo) DeletePartyCascade(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM parties WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete party: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("party", id)
	}
	for _, table := range []string{"notes", "save_slots", "timeline", "outbox"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE party_id=?`, id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}
