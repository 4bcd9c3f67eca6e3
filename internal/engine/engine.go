package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"dagda/internal/clock"
	"dagda/internal/config"
	"dagda/internal/dice"
	"dagda/internal/domain"
	"dagda/internal/events"
	"dagda/internal/repo"
)

type PartyStore interface {
	ListParties(ctx context.Context) ([]domain.Party, error)
	GetParty(ctx context.Context, id string) (domain.Party, error)
	SaveParty(ctx context.Context, p domain.Party) error
	DeletePartyCascade(ctx context.Context, id string) error
}

type NoteStore interface {
	ListNotes(ctx context.Context, partyID string) ([]domain.Note, error)
	SaveNote(ctx context.Context, n domain.Note) error
}

type SaveSlotStore interface {
	ListSaveSlots(ctx context.Context, partyID string) ([]domain.SaveSlot, error)
	SaveSaveSlot(ctx context.Context, s domain.SaveSlot) error
	DeleteSaveSlot(ctx context.Context, id string) error
}

type EventLog interface {
	ListEvents(ctx context.Context, partyID string) ([]domain.TimelineEvent, error)
	LatestEvents(ctx context.Context, partyID string, limit int, evtType string) ([]domain.TimelineEvent, error)
	AppendEvent(ctx context.Context, e domain.TimelineEvent) error
}

type Outbox interface {
	ListPendingOutbox(ctx context.Context) ([]domain.OutboxEvent, error)
	AppendOutbox(ctx context.Context, e domain.OutboxEvent) error
	UpdateOutboxStatus(ctx context.Context, id string, status domain.OutboxStatus, sentAt string) error
}

// Engine runs the campaign use cases over the repository and capability ports.
type Engine struct {
	Parties  PartyStore
	Notebook NoteStore
	Slots    SaveSlotStore
	Log      EventLog
	Outbox   Outbox
	Dice     dice.Source
	Clock    clock.Clock
	Config   *config.Config
	Logger   *log.Logger
	NewID    func() string
}

// New wires an Engine onto a migrated SQLite database.
func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: db}
	return Engine{
		Parties:  r,
		Notebook: r,
		Slots:    r,
		Log:      r,
		Outbox:   r,
		Dice:     NewDice(cfg),
		Clock:    clock.System{},
		Config:   cfg,
		Logger:   log.Default(),
	}
}

// NewDice picks the die source named by the config.
func NewDice(cfg *config.Config) dice.Source {
	if cfg != nil && cfg.Dice.Source == config.DiceSeeded {
		return dice.NewSeeded(cfg.Dice.Seed)
	}
	return dice.NewCrypto()
}

func (e Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return clock.Format(e.now())
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

func (e Engine) writer() events.Writer {
	return events.Writer{Timeline: e.Log, Outbox: e.Outbox, Now: e.now, NewID: e.newID}
}

func (e Engine) emit(ctx context.Context, evt events.Event) (domain.TimelineEvent, error) {
	return e.writer().Append(ctx, evt)
}

func (e Engine) deathPolicy() string {
	if e.Config == nil || e.Config.Rules.MortalDeath == "" {
		return config.DeathDead
	}
	return e.Config.Rules.MortalDeath
}

// loadActive loads a party that play actions may still change.
func (e Engine) loadActive(ctx context.Context, id string) (domain.Party, error) {
	p, err := e.Parties.GetParty(ctx, id)
	if err != nil {
		return domain.Party{}, err
	}
	if p.Status != domain.StatusActive {
		return domain.Party{}, fmt.Errorf("%w: party %s is %s", ErrPartyNotActive, p.ID, p.Status)
	}
	return p, nil
}

func required(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return v, nil
}
