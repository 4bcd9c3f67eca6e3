package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path"
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"dagda/internal/combat"
	"dagda/internal/engine"
	"dagda/internal/repo"
	"dagda/internal/transfer"
)

// defaultCombatRounds bounds an auto-resolved fight when the request does not.
const defaultCombatRounds = 50

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"insufficient_luck"`
	Message string         `json:"message" example:"precondition failed: insufficient luck"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the campaign API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Request validation errors are plain bad requests.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Dagda API", "1.0.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerMe(group)
	registerParties(group, cfg.Engine)
	registerJournal(group, cfg.Engine)
	registerSaves(group, cfg.Engine)
	registerExchange(group, cfg.Engine)
	registerCombat(group, cfg.Engine, cfg.Auth.logger())
	registerOutbox(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, engine.ErrInsufficientLuck):
		return newAPIError(http.StatusConflict, "insufficient_luck", msg, nil)
	case errors.Is(err, engine.ErrSaveSlotsFull):
		return newAPIError(http.StatusConflict, "save_slots_full", msg, nil)
	case errors.Is(err, engine.ErrRestoreNotAllowed):
		return newAPIError(http.StatusConflict, "restore_not_allowed", msg, nil)
	case errors.Is(err, engine.ErrPartyNotActive):
		return newAPIError(http.StatusConflict, "party_not_active", msg, nil)
	case errors.Is(err, engine.ErrPrecondition):
		return newAPIError(http.StatusConflict, "precondition_failed", msg, nil)
	case errors.Is(err, transfer.ErrFormat):
		return newAPIError(http.StatusBadRequest, "invalid_format", msg, nil)
	case errors.Is(err, engine.ErrInvalidInput):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case errors.Is(err, combat.ErrInvalidEnemies),
		errors.Is(err, combat.ErrUnknownEnemy),
		errors.Is(err, combat.ErrEnemyDown),
		errors.Is(err, combat.ErrNoRoll),
		errors.Is(err, combat.ErrCombatOver),
		errors.Is(err, combat.ErrNotStarted):
		return newAPIError(http.StatusBadRequest, "combat_rejected", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.Schemas != nil {
		oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError")
	}
	for _, item := range oas.Paths {
		for _, op := range operations(item) {
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range operations(item) {
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func operations(item *huma.PathItem) []*huma.Operation {
	var ops []*huma.Operation
	for _, op := range []*huma.Operation{
		item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
	} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{Subject: p.Subject, Source: p.Source}}, nil
	})
}

func registerCombat(api huma.API, e engine.Engine, logger *log.Logger) {
	type combatInput struct {
		ID   string `path:"id"`
		Body CombatRequest
	}
	huma.Register(api, huma.Operation{
		OperationID: "resolveCombat",
		Method:      http.MethodPost,
		Path:        "/parties/{id}/combat",
		Summary:     "Auto-resolve a fight",
	}, func(ctx context.Context, in *combatInput) (*struct {
		Body CombatResponse `json:"body"`
	}, error) {
		rounds := in.Body.MaxRounds
		if rounds == 0 {
			rounds = defaultCombatRounds
		}
		session := combat.NewSession(e, e.Dice)
		if err := session.Start(ctx, in.ID, in.Body.Enemies); err != nil {
			return nil, handleError(err)
		}
		outcome, err := session.AutoResolve(ctx, rounds)
		if err != nil {
			return nil, handleError(err)
		}
		logger.Printf("combat resolved party=%s outcome=%q rounds=%d", in.ID, outcome, session.Rounds())
		p, err := e.GetParty(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CombatResponse `json:"body"`
		}{Body: CombatResponse{Outcome: outcome, Rounds: session.Rounds(), Enemies: session.Enemies(), Party: p}}, nil
	})
}
