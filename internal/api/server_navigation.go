package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/session"
)

type addressOutput struct {
	Body struct {
		Address string `json:"address" doc:"Location written to the frame; empty when nothing moved"`
	}
}

func registerNavigationHandlers(api huma.API, svc Service) {
	type navigateInput struct {
		Body struct {
			Input string `json:"input" doc:"Address-bar text: URL, bare domain, lunar:// route, math or search phrase"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "navigate", Method: http.MethodPost, Path: "/api/navigate", Summary: "Submit address-bar input to the active tab", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *navigateInput) (*struct{ Body session.Submission }, error) {
			sub, err := svc.Navigate(ctx, input.Body.Input)
			if err != nil {
				return nil, mapErr(err)
			}
			return &struct{ Body session.Submission }{Body: sub}, nil
		})

	steps := []struct {
		id, path, summary string
		fn                func(context.Context) (string, error)
	}{
		{"back", "/api/tabs/active/back", "Go back in the active tab", svc.Back},
		{"forward", "/api/tabs/active/forward", "Go forward in the active tab", svc.Forward},
		{"reload", "/api/tabs/active/reload", "Reload the active tab", svc.Reload},
	}
	for _, st := range steps {
		fn := st.fn
		huma.Register(api, huma.Operation{OperationID: st.id, Method: http.MethodPost, Path: st.path, Summary: st.summary, Tags: []string{"Navigation"}},
			func(ctx context.Context, input *struct{}) (*addressOutput, error) {
				addr, err := fn(ctx)
				if err != nil {
					return nil, mapErr(err)
				}
				out := &addressOutput{}
				out.Body.Address = addr
				return out, nil
			})
	}

	huma.Register(api, huma.Operation{OperationID: "list-bookmarks", Method: http.MethodGet, Path: "/api/bookmarks", Summary: "List bookmarks", Tags: []string{"Bookmarks"}},
		func(ctx context.Context, input *struct{}) (*struct {
			Body struct {
				Bookmarks []bookmarks.Bookmark `json:"bookmarks"`
			}
		}, error) {
			list, err := svc.ListBookmarks(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &struct {
				Body struct {
					Bookmarks []bookmarks.Bookmark `json:"bookmarks"`
				}
			}{}
			out.Body.Bookmarks = list
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "toggle-bookmark", Method: http.MethodPost, Path: "/api/bookmarks/toggle", Summary: "Bookmark or un-bookmark the active tab", Tags: []string{"Bookmarks"}},
		func(ctx context.Context, input *struct{}) (*struct {
			Body struct {
				Bookmarked bool `json:"bookmarked"`
			}
		}, error) {
			on, err := svc.ToggleBookmark(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &struct {
				Body struct {
					Bookmarked bool `json:"bookmarked"`
				}
			}{}
			out.Body.Bookmarked = on
			return out, nil
		})
}
