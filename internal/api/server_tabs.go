package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/lunarsession/internal/session"
)

type tabIDInput struct {
	ID int `path:"id" doc:"Tab id"`
}

type tabOutput struct {
	Body session.TabInfo
}

type tabsOutput struct {
	Body struct {
		Tabs []session.TabInfo `json:"tabs"`
	}
}

func registerTabHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/tabs", Summary: "List tabs in strip order", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})

	type openTabInput struct {
		Body struct {
			Destination string `json:"destination,omitempty" doc:"URL, lunar:// route or routed path. Empty opens the new-tab page."`
		} `required:"false"`
	}
	huma.Register(api, huma.Operation{OperationID: "open-tab", Method: http.MethodPost, Path: "/api/tabs", Summary: "Open a tab and make it active", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *openTabInput) (*tabOutput, error) {
			info, err := svc.OpenTab(ctx, input.Body.Destination)
			if err != nil {
				return nil, mapErr(err)
			}
			return &tabOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "close-tab", Method: http.MethodDelete, Path: "/api/tabs/{id}", Summary: "Close a tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*struct {
			Body struct {
				Status string `json:"status"`
			}
		}, error) {
			if err := svc.CloseTab(ctx, input.ID); err != nil {
				return nil, mapErr(err)
			}
			out := &struct {
				Body struct {
					Status string `json:"status"`
				}
			}{}
			out.Body.Status = "closed"
			return out, nil
		})

	type activateInput struct {
		Body struct {
			ID int `json:"id" doc:"Tab id to activate"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "activate-tab", Method: http.MethodPut, Path: "/api/tabs/active", Summary: "Switch the active tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *activateInput) (*tabOutput, error) {
			info, err := svc.ActivateTab(ctx, input.Body.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &tabOutput{Body: info}, nil
		})

	type reorderInput struct {
		Body struct {
			Dragged int  `json:"dragged" doc:"Tab being moved"`
			Target  int  `json:"target" doc:"Tab to drop next to"`
			After   bool `json:"after,omitempty" doc:"Drop after target instead of before"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "reorder-tabs", Method: http.MethodPost, Path: "/api/tabs/reorder", Summary: "Move a tab next to another", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *reorderInput) (*tabsOutput, error) {
			tabs, err := svc.ReorderTabs(ctx, input.Body.Dragged, input.Body.Target, input.Body.After)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})
}
