package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/rules"
	"dagda/internal/transfer"
)

type partyPath struct {
	ID string `path:"id"`
}

func registerParties(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "listParties",
		Method:      http.MethodGet,
		Path:        "/parties",
		Summary:     "List parties",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PartyList `json:"body"`
	}, error) {
		parties, err := e.ListParties(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PartyList `json:"body"`
		}{Body: PartyList{Items: parties}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "createParty",
		Method:        http.MethodPost,
		Path:          "/parties",
		Summary:       "Create a party",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body CreatePartyRequest
	}) (*partyOutput, error) {
		p, err := e.CreateParty(ctx, engine.CreatePartyInput{
			Name:          in.Body.Name,
			Mode:          in.Body.Mode,
			CharacterName: in.Body.CharacterName,
			Talent:        in.Body.Talent,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getParty",
		Method:      http.MethodGet,
		Path:        "/parties/{id}",
		Summary:     "Get a party",
	}, func(ctx context.Context, in *partyPath) (*partyOutput, error) {
		p, err := e.GetParty(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deleteParty",
		Method:        http.MethodDelete,
		Path:          "/parties/{id}",
		Summary:       "Delete a party and everything it owns",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *partyPath) (*struct{}, error) {
		if err := e.DeleteParty(ctx, in.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateChapter",
		Method:      http.MethodPut,
		Path:        "/parties/{id}/chapter",
		Summary:     "Move to a chapter",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body ChapterRequest
	}) (*struct {
		Body ChapterResponse `json:"body"`
	}, error) {
		p, changed, err := e.UpdateChapter(ctx, in.ID, in.Body.Chapter)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChapterResponse `json:"body"`
		}{Body: ChapterResponse{Party: p, Changed: changed}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateHP",
		Method:      http.MethodPost,
		Path:        "/parties/{id}/hp",
		Summary:     "Apply an HP delta",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body HPRequest
	}) (*hpOutput, error) {
		res, err := e.UpdateHP(ctx, in.ID, in.Body.Delta)
		if err != nil {
			return nil, handleError(err)
		}
		return &hpOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "applyLuck",
		Method:      http.MethodPost,
		Path:        "/parties/{id}/luck",
		Summary:     "Spend luck",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body LuckRequest
	}) (*partyOutput, error) {
		p, err := e.ApplyLuck(ctx, in.ID, in.Body.Cost)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateInventory",
		Method:      http.MethodPatch,
		Path:        "/parties/{id}/inventory",
		Summary:     "Replace parts of the inventory",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body InventoryRequest
	}) (*partyOutput, error) {
		patch := rules.InventoryPatch{
			Weapons:          in.Body.Weapons,
			Items:            in.Body.Items,
			Currency:         in.Body.Currency,
			EquippedWeaponID: in.Body.EquippedWeaponID,
		}
		p, err := e.UpdateInventory(ctx, in.ID, patch, in.Body.Label)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "finishParty",
		Method:      http.MethodPost,
		Path:        "/parties/{id}/finish",
		Summary:     "Finish a party",
	}, func(ctx context.Context, in *partyPath) (*partyOutput, error) {
		p, err := e.FinishParty(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})
}

func registerJournal(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/parties/{id}/notes",
		Summary:     "List notes",
	}, func(ctx context.Context, in *partyPath) (*struct {
		Body NoteList `json:"body"`
	}, error) {
		notes, err := e.Notes(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NoteList `json:"body"`
		}{Body: NoteList{Items: notes}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "addNote",
		Method:        http.MethodPost,
		Path:          "/parties/{id}/notes",
		Summary:       "Add a note",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body NoteRequest
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.AddNote(ctx, in.ID, in.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "addAction",
		Method:        http.MethodPost,
		Path:          "/parties/{id}/actions",
		Summary:       "Log a custom action",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body ActionRequest
	}) (*struct {
		Body domain.TimelineEvent `json:"body"`
	}, error) {
		evt, err := e.AddCustomAction(ctx, in.ID, in.Body.Label)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TimelineEvent `json:"body"`
		}{Body: evt}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "timeline",
		Method:      http.MethodGet,
		Path:        "/parties/{id}/timeline",
		Summary:     "Timeline, newest first",
	}, func(ctx context.Context, in *struct {
		ID    string `path:"id"`
		Limit int    `query:"limit" minimum:"0"`
		Type  string `query:"type"`
	}) (*struct {
		Body TimelineList `json:"body"`
	}, error) {
		events, err := e.RecentEvents(ctx, in.ID, in.Limit, domain.EventType(in.Type))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TimelineList `json:"body"`
		}{Body: TimelineList{Items: events}}, nil
	})
}

func registerSaves(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "listSaves",
		Method:      http.MethodGet,
		Path:        "/parties/{id}/saves",
		Summary:     "List save slots",
	}, func(ctx context.Context, in *partyPath) (*struct {
		Body SaveSlotList `json:"body"`
	}, error) {
		slots, err := e.SaveSlots(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SaveSlotList `json:"body"`
		}{Body: SaveSlotList{Items: slots}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "createSave",
		Method:        http.MethodPost,
		Path:          "/parties/{id}/saves",
		Summary:       "Save into a slot",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body SaveRequest
	}) (*saveOutput, error) {
		res, err := e.CreateSave(ctx, in.ID, in.Body.Slot)
		if err != nil {
			return nil, handleError(err)
		}
		return &saveOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restoreSave",
		Method:      http.MethodPost,
		Path:        "/parties/{id}/saves/{slot_id}/restore",
		Summary:     "Restore a save",
	}, func(ctx context.Context, in *struct {
		ID     string `path:"id"`
		SlotID string `path:"slot_id"`
	}) (*partyOutput, error) {
		p, err := e.RestoreSave(ctx, in.ID, in.SlotID)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})
}

func registerExchange(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "exportParty",
		Method:      http.MethodGet,
		Path:        "/parties/{id}/export",
		Summary:     "Export a party",
	}, func(ctx context.Context, in *partyPath) (*struct {
		Body ExportResponse `json:"body"`
	}, error) {
		res, err := e.ExportParty(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		env, err := transfer.Decode(res.JSON)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExportResponse `json:"body"`
		}{Body: ExportResponse{Envelope: env, Summary: res.Summary}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "importParty",
		Method:        http.MethodPost,
		Path:          "/imports",
		Summary:       "Import an exported party",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		RawBody []byte `contentType:"application/json"`
	}) (*partyOutput, error) {
		p, err := e.ImportParty(ctx, in.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		return &partyOutput{Body: p}, nil
	})
}

func registerOutbox(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "pendingOutbox",
		Method:      http.MethodGet,
		Path:        "/outbox",
		Summary:     "Pending outbox entries",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OutboxList `json:"body"`
	}, error) {
		items, err := e.PendingOutbox(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OutboxList `json:"body"`
		}{Body: OutboxList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "markOutboxSent",
		Method:        http.MethodPost,
		Path:          "/outbox/{id}/sent",
		Summary:       "Mark an outbox entry delivered",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.MarkOutboxSent(ctx, in.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
