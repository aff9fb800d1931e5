package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/lunarsession/internal/controller"
	"github.com/dgnsrekt/lunarsession/internal/suggest"
)

type settingsOutput struct {
	Body map[string]any
}

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "status", Method: http.MethodGet, Path: "/api/status", Summary: "Loading state, transport and codec backend", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*struct{ Body controller.Status }, error) {
			st, err := svc.Status(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &struct{ Body controller.Status }{Body: st}, nil
		})

	type suggestInput struct {
		Q string `query:"q" doc:"Partial address-bar input"`
	}
	huma.Register(api, huma.Operation{OperationID: "suggest", Method: http.MethodGet, Path: "/api/suggest", Summary: "Dropdown suggestions for partial input", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *suggestInput) (*struct{ Body suggest.Result }, error) {
			res, err := svc.Suggest(ctx, input.Q)
			if err != nil {
				return nil, mapErr(err)
			}
			return &struct{ Body suggest.Result }{Body: res}, nil
		})

	type encodeInput struct {
		Destination string `query:"destination" doc:"Real-world URL to route"`
		Backend     string `query:"backend" doc:"Codec backend; defaults to the active one"`
	}
	huma.Register(api, huma.Operation{OperationID: "codec-encode", Method: http.MethodGet, Path: "/api/codec/encode", Summary: "Encode a destination into a routed path", Tags: []string{"Codec"}},
		func(ctx context.Context, input *encodeInput) (*addressOutput, error) {
			addr, err := svc.Encode(ctx, input.Backend, input.Destination)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &addressOutput{}
			out.Body.Address = addr
			return out, nil
		})

	type decodeInput struct {
		Address string `query:"address" doc:"Routed path or bare token"`
	}
	huma.Register(api, huma.Operation{OperationID: "codec-decode", Method: http.MethodGet, Path: "/api/codec/decode", Summary: "Decode a routed path back to its destination", Tags: []string{"Codec"}},
		func(ctx context.Context, input *decodeInput) (*struct {
			Body struct {
				Destination string `json:"destination"`
			}
		}, error) {
			dest, err := svc.Decode(ctx, input.Address)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &struct {
				Body struct {
					Destination string `json:"destination"`
				}
			}{}
			out.Body.Destination = dest
			return out, nil
		})

	type backendInput struct {
		Body struct {
			Backend string `json:"backend" doc:"Codec backend name, e.g. sc or uv"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-codec-backend", Method: http.MethodPut, Path: "/api/codec/backend", Summary: "Select the codec backend for new navigations", Tags: []string{"Codec"}},
		func(ctx context.Context, input *backendInput) (*struct {
			Body struct {
				Backend string `json:"backend"`
			}
		}, error) {
			if err := svc.SetBackend(ctx, input.Body.Backend); err != nil {
				return nil, mapErr(err)
			}
			out := &struct {
				Body struct {
					Backend string `json:"backend"`
				}
			}{}
			out.Body.Backend = input.Body.Backend
			return out, nil
		})

	type pingInput struct {
		URL string `query:"url" doc:"Wisp websocket URL; defaults to the stored endpoint"`
	}
	huma.Register(api, huma.Operation{OperationID: "transport-ping", Method: http.MethodGet, Path: "/api/transport/ping", Summary: "Measure wisp handshake latency", Tags: []string{"Transport"}},
		func(ctx context.Context, input *pingInput) (*struct{ Body controller.PingResult }, error) {
			res, err := svc.PingTransport(ctx, input.URL)
			if err != nil {
				return nil, mapErr(err)
			}
			return &struct{ Body controller.PingResult }{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-settings", Method: http.MethodGet, Path: "/api/settings", Summary: "Persisted settings", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*settingsOutput, error) {
			all, err := svc.Settings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &settingsOutput{Body: all}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "reset-settings", Method: http.MethodPost, Path: "/api/settings/reset", Summary: "Restore default settings and bookmarks", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*settingsOutput, error) {
			all, err := svc.ResetSettings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &settingsOutput{Body: all}, nil
		})
}
