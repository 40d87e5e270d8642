package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ucmd/internal/api/models"
	"github.com/smazurov/ucmd/internal/ucm"
)

func (s *Server) registerCardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/api/cards",
		Summary:     "List Cards",
		Description: "List registered sound cards and whether each has an open session",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CardListResponse, error) {
		infos := s.registry.Cards()
		cards := make([]models.CardData, 0, len(infos))
		for _, info := range infos {
			cards = append(cards, s.cardData(info))
		}
		return &models.CardListResponse{
			Body: models.CardListData{Cards: cards, Count: len(cards)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "open-card",
		Method:      http.MethodPost,
		Path:        "/api/cards/{card}/open",
		Summary:     "Open Card",
		Description: "Open a use case session for the card. Opening an open card is a no-op.",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 500},
	}, func(ctx context.Context, input *models.CardPath) (*models.StateResponse, error) {
		sess, err := s.manager.Open(ctx, input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StateResponse{Body: stateData(sess)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "close-card",
		Method:      http.MethodPost,
		Path:        "/api/cards/{card}/close",
		Summary:     "Close Card",
		Description: "Close the card's session, resetting every device and modifier",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, input *models.CardPath) (*struct{}, error) {
		if err := s.manager.Close(input.Card); err != nil {
			return nil, toHTTPError(err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-card",
		Method:      http.MethodPost,
		Path:        "/api/cards/{card}/reset",
		Summary:     "Reset Card",
		Description: "Disable every modifier and device and return to the Inactive verb",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, input *models.CardPath) (*models.StateResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		if err := sess.Reset(); err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StateResponse{Body: stateData(sess)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-card-value",
		Method:      http.MethodGet,
		Path:        "/api/cards/{card}/value",
		Summary:     "Get Value",
		Description: "Read a single value such as _verb, PlaybackPCM/<device> or CaptureCTL",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409},
	}, func(_ context.Context, input *models.GetValueRequest) (*models.ValueResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		value, err := sess.Get(input.Identifier)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.ValueResponse{Body: models.ValueData{
			Card:       input.Card,
			Identifier: input.Identifier,
			Value:      value,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-card-value",
		Method:      http.MethodPut,
		Path:        "/api/cards/{card}/value",
		Summary:     "Set Value",
		Description: "Set the verb, or enable, disable or switch a device or modifier",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500, 501},
	}, func(_ context.Context, input *models.SetValueRequest) (*models.StateResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		if err := sess.Set(input.Body.Identifier, input.Body.Value); err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StateResponse{Body: stateData(sess)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-card-values",
		Method:      http.MethodGet,
		Path:        "/api/cards/{card}/list",
		Summary:     "Get List",
		Description: "Read a list such as _verbs, _devices, _modifiers, _enadevs or _enamods",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.GetListRequest) (*models.ListResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		values, err := sess.GetList(input.Identifier)
		if err != nil {
			return nil, toHTTPError(err)
		}
		if values == nil {
			values = []string{}
		}
		return &models.ListResponse{Body: models.ListData{
			Card:       input.Card,
			Identifier: input.Identifier,
			Values:     values,
			Count:      len(values),
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-card-status",
		Method:      http.MethodGet,
		Path:        "/api/cards/{card}/status",
		Summary:     "Get Status",
		Description: "Read _devstatus/<device> or _modstatus/<modifier>",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.GetStatusRequest) (*models.StatusResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		status, err := sess.GetI(input.Identifier)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{
			Card:       input.Card,
			Identifier: input.Identifier,
			Status:     status,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "dump-card",
		Method:      http.MethodGet,
		Path:        "/api/cards/{card}/dump",
		Summary:     "Dump Card",
		Description: "Return the parsed verb files and the current session state",
		Tags:        []string{"cards"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.CardPath) (*models.DumpResponse, error) {
		sess, err := s.manager.Get(input.Card)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.DumpResponse{Body: sess.Snapshot()}, nil
	})
}

func (s *Server) cardData(info ucm.CardInfo) models.CardData {
	return models.CardData{
		Name:        info.Name,
		Number:      info.Number,
		ControlPath: info.ControlPath,
		ConfigDir:   info.ConfigDir,
		Master:      info.Master,
		Open:        s.manager.IsOpen(info.Name),
	}
}

func stateData(sess *ucm.Session) models.StateData {
	snap := sess.Snapshot()
	return models.StateData{
		Card:             snap.Card,
		ParseComplete:    snap.ParseComplete,
		CurrentVerb:      snap.CurrentVerb,
		EnabledDevices:   nonNil(snap.EnabledDevices),
		EnabledModifiers: nonNil(snap.EnabledModifiers),
		ParseErrors:      sess.ParseErrors(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
