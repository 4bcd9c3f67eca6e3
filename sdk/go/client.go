package dagdasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Dagda HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Character is the API character model (partial).
type Character struct {
	Name      string `json:"name"`
	Talent    string `json:"talent"`
	HPMax     int    `json:"hpMax"`
	HPCurrent int    `json:"hpCurrent"`
	Luck      int    `json:"luck"`
	Dexterity int    `json:"dexterity"`
}

// Party represents a campaign party.
type Party struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Mode           string    `json:"mode"`
	Status         string    `json:"status"`
	CurrentChapter int       `json:"currentChapter"`
	Character      Character `json:"character"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
}

type Note struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// SaveSlot is a slot header; the snapshot is left out.
type SaveSlot struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId"`
	Slot      int    `json:"slot"`
	CreatedAt string `json:"createdAt"`
}

// Event is a timeline entry.
type Event struct {
	ID        string         `json:"id"`
	PartyID   string         `json:"partyId"`
	Type      string         `json:"type"`
	Label     string         `json:"label"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

type OutboxEntry struct {
	ID        string         `json:"id"`
	PartyID   string         `json:"partyId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"createdAt"`
	SentAt    string         `json:"sentAt,omitempty"`
}

type HPResult struct {
	Party       Party `json:"party"`
	Dead        bool  `json:"dead"`
	MortalDeath bool  `json:"mortalDeath"`
	DeathReset  bool  `json:"deathReset"`
}

type SaveResult struct {
	Slot     SaveSlot `json:"slot"`
	Replaced bool     `json:"replaced"`
}

// Export holds the raw envelope, ready to feed back into Import.
type Export struct {
	Envelope json.RawMessage `json:"envelope"`
	Summary  string          `json:"summary"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Code extracts the error code from the response envelope.
func (e *APIError) Code() string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err != nil {
		return ""
	}
	return env.Error.Code
}

// CreateParty creates a party and rolls its character.
func (c *Client) CreateParty(ctx context.Context, name, mode, characterName, talent string) (Party, error) {
	body := map[string]any{
		"name":          name,
		"mode":          mode,
		"characterName": characterName,
		"talent":        talent,
	}
	var resp Party
	err := c.do(ctx, http.MethodPost, "parties", body, &resp)
	return resp, err
}

func (c *Client) ListParties(ctx context.Context) ([]Party, error) {
	var resp struct {
		Items []Party `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "parties", nil, &resp)
	return resp.Items, err
}

func (c *Client) GetParty(ctx context.Context, id string) (Party, error) {
	var resp Party
	err := c.do(ctx, http.MethodGet, partyPath(id, ""), nil, &resp)
	return resp, err
}

func (c *Client) DeleteParty(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, partyPath(id, ""), nil, nil)
}

// SetChapter reports whether the chapter actually changed.
func (c *Client) SetChapter(ctx context.Context, id string, chapter int) (Party, bool, error) {
	var resp struct {
		Party   Party `json:"party"`
		Changed bool  `json:"changed"`
	}
	err := c.do(ctx, http.MethodPut, partyPath(id, "chapter"), map[string]any{"chapter": chapter}, &resp)
	return resp.Party, resp.Changed, err
}

func (c *Client) UpdateHP(ctx context.Context, id string, delta int) (HPResult, error) {
	var resp HPResult
	err := c.do(ctx, http.MethodPost, partyPath(id, "hp"), map[string]any{"delta": delta}, &resp)
	return resp, err
}

func (c *Client) SpendLuck(ctx context.Context, id string, cost int) (Party, error) {
	var resp Party
	err := c.do(ctx, http.MethodPost, partyPath(id, "luck"), map[string]any{"cost": cost}, &resp)
	return resp, err
}

func (c *Client) AddNote(ctx context.Context, id, content string) (Note, error) {
	var resp Note
	err := c.do(ctx, http.MethodPost, partyPath(id, "notes"), map[string]any{"content": content}, &resp)
	return resp, err
}

func (c *Client) Notes(ctx context.Context, id string) ([]Note, error) {
	var resp struct {
		Items []Note `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, partyPath(id, "notes"), nil, &resp)
	return resp.Items, err
}

func (c *Client) AddAction(ctx context.Context, id, label string) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPost, partyPath(id, "actions"), map[string]any{"label": label}, &resp)
	return resp, err
}

// Timeline returns up to limit events, newest first. An empty evtType
// returns every type.
func (c *Client) Timeline(ctx context.Context, id string, limit int, evtType string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if evtType != "" {
		q.Set("type", evtType)
	}
	endpoint := partyPath(id, "timeline")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) CreateSave(ctx context.Context, id string, slot int) (SaveResult, error) {
	var resp SaveResult
	err := c.do(ctx, http.MethodPost, partyPath(id, "saves"), map[string]any{"slot": slot}, &resp)
	return resp, err
}

func (c *Client) SaveSlots(ctx context.Context, id string) ([]SaveSlot, error) {
	var resp struct {
		Items []SaveSlot `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, partyPath(id, "saves"), nil, &resp)
	return resp.Items, err
}

func (c *Client) RestoreSave(ctx context.Context, id, slotID string) (Party, error) {
	var resp Party
	endpoint := partyPath(id, fmt.Sprintf("saves/%s/restore", url.PathEscape(slotID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) FinishParty(ctx context.Context, id string) (Party, error) {
	var resp Party
	err := c.do(ctx, http.MethodPost, partyPath(id, "finish"), nil, &resp)
	return resp, err
}

func (c *Client) Export(ctx context.Context, id string) (Export, error) {
	var resp Export
	err := c.do(ctx, http.MethodGet, partyPath(id, "export"), nil, &resp)
	return resp, err
}

// Import sends an export envelope as-is and returns the new party.
func (c *Client) Import(ctx context.Context, envelope []byte) (Party, error) {
	var resp Party
	err := c.do(ctx, http.MethodPost, "imports", json.RawMessage(envelope), &resp)
	return resp, err
}

func (c *Client) PendingOutbox(ctx context.Context) ([]OutboxEntry, error) {
	var resp struct {
		Items []OutboxEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "outbox", nil, &resp)
	return resp.Items, err
}

func (c *Client) MarkOutboxSent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("outbox/%s/sent", url.PathEscape(id)), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func partyPath(id, rest string) string {
	p := "parties/" + url.PathEscape(id)
	if rest != "" {
		p += "/" + strings.TrimLeft(rest, "/")
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
