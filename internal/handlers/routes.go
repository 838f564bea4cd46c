package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkguard/internal/ratelimit"
)

// RegisterRoutes registers link management and redirect routes with their rate limit configuration.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/links",
		Summary:       "Create a short link",
		Description:   "Checks the destination against the safety policy and stores a new short link.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/links",
		Summary:     "List links",
		Description: "Lists the caller's links. Admins see every link.",
		Tags:        []string{"Links"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/links/{key}",
		Summary:     "Get a link",
		Tags:        []string{"Links"},
	}, h.GetLink)

	huma.Register(api, huma.Operation{
		OperationID: "delete-link",
		Method:      http.MethodDelete,
		Path:        "/links/{key}",
		Summary:     "Delete a link",
		Description: "Removes the link, or tombstones it when the store cannot delete.",
		Tags:        []string{"Links"},
	}, h.DeleteLink)

	redirectLimits := map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeRedirect},
	}

	huma.Register(api, huma.Operation{
		OperationID: "follow-link",
		Method:      http.MethodGet,
		Path:        "/u/{code}",
		Summary:     "Follow a short link",
		Tags:        []string{"Redirect"},
		Metadata:    redirectLimits,
	}, h.Redirect)

	huma.Register(api, huma.Operation{
		OperationID: "follow-link-head",
		Method:      http.MethodHead,
		Path:        "/u/{code}",
		Summary:     "Follow a short link (headers only)",
		Tags:        []string{"Redirect"},
		Metadata:    redirectLimits,
	}, h.Redirect)
}
