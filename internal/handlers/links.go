package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkguard/internal/auth"
	"github.com/serroba/linkguard/internal/events"
	"github.com/serroba/linkguard/internal/links"
	"github.com/serroba/linkguard/internal/urlguard"
	"go.uber.org/zap"
)

// LinkHandler serves link management and redirects.
type LinkHandler struct {
	service *links.Service
	baseURL string
	publish events.Publishers
	logger  *zap.Logger
}

// NewLinkHandler creates a link handler. An empty baseURL derives short URLs from the request origin.
func NewLinkHandler(service *links.Service, baseURL string, publish events.Publishers, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		publish: publish,
		logger:  logger,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	meta := RequestMetaFromContext(ctx)

	link, decision, err := h.service.Create(ctx, p, links.CreateInput{
		RealURL: req.Body.RealURL,
		Code:    req.Body.Code,
	})
	if err != nil {
		if rejected, ok := links.IsRejection(err); ok {
			h.publishRejected(ctx, p, req.Body.RealURL, rejected, meta)
		}

		return nil, h.toHTTPError(err)
	}

	event := &events.LinkCreatedEvent{
		ID:        link.ID,
		Code:      link.Code,
		RealURL:   link.RealURL,
		OwnerID:   link.OwnerID,
		Verdict:   string(decision.Verdict),
		Reason:    decision.Reason,
		CreatedAt: link.CreatedAt,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}

	if err := h.publish.LinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	body := h.toBody(ctx, link)

	resp := &CreateLinkResponse{Body: body}
	resp.Location = body.ShortURL

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	records, err := h.service.List(ctx, p)
	if err != nil {
		return nil, h.toHTTPError(err)
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkBody, 0, len(records))

	for _, link := range records {
		resp.Body.Links = append(resp.Body.Links, h.toBody(ctx, link))
	}

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *LinkKeyRequest) (*GetLinkResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	link, err := h.service.Get(ctx, p, req.Key)
	if err != nil {
		return nil, h.toHTTPError(err)
	}

	return &GetLinkResponse{Body: h.toBody(ctx, link)}, nil
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *LinkKeyRequest) (*DeleteLinkResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	link, outcome, err := h.service.Delete(ctx, p, req.Key)
	if err != nil {
		return nil, h.toHTTPError(err)
	}

	event := &events.LinkDeletedEvent{
		ID:        link.ID,
		Code:      link.Code,
		OwnerID:   link.OwnerID,
		DeletedBy: p.ID,
		Soft:      outcome.Soft,
		DeletedAt: time.Now().UTC(),
	}

	if err := h.publish.LinkDeleted(ctx, event); err != nil {
		h.logger.Error("failed to publish link deleted event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &DeleteLinkResponse{}
	resp.Body.Deleted = true
	resp.Body.Soft = outcome.Soft

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, huma.Error400BadRequest("Invalid or missing code")
	}

	link, err := h.service.Resolve(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			return nil, huma.Error404NotFound("Not found")
		case errors.Is(err, links.ErrInvalidDestination):
			return nil, huma.Error400BadRequest("Invalid destination")
		default:
			h.logger.Error("failed to resolve link", zap.String("code", code), zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to resolve link")
		}
	}

	meta := RequestMetaFromContext(ctx)
	event := &events.LinkVisitedEvent{
		ID:        link.ID,
		Code:      link.Code,
		Clicks:    link.Clicks,
		VisitedAt: time.Now().UTC(),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	if err := h.publish.LinkVisited(ctx, event); err != nil {
		h.logger.Error("failed to publish link visited event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return &RedirectResponse{
		Status:       http.StatusFound,
		Location:     link.RealURL,
		CacheControl: "no-store, no-cache, must-revalidate, max-age=0",
		Pragma:       "no-cache",
		Expires:      "0",
		RobotsTag:    "noindex, nofollow",
	}, nil
}

func (h *LinkHandler) publishRejected(
	ctx context.Context,
	p auth.Principal,
	rawURL string,
	decision urlguard.Decision,
	meta RequestMeta,
) {
	event := &events.URLRejectedEvent{
		URL:        rawURL,
		Verdict:    string(decision.Verdict),
		Reason:     decision.Reason,
		Vendor:     decision.Vendor,
		OwnerID:    p.ID,
		ClientIP:   meta.ClientIP,
		RejectedAt: time.Now().UTC(),
	}

	if err := h.publish.URLRejected(ctx, event); err != nil {
		h.logger.Error("failed to publish url rejected event",
			zap.String("reason", event.Reason),
			zap.Error(err),
		)
	}
}

func (h *LinkHandler) toBody(ctx context.Context, link *links.Link) LinkBody {
	return LinkBody{
		ID:        link.ID,
		Code:      link.Code,
		RealURL:   link.RealURL,
		ShortURL:  h.shortURL(ctx, link.Code),
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt,
	}
}

func (h *LinkHandler) shortURL(ctx context.Context, code string) string {
	base := h.baseURL
	if base == "" {
		base = RequestMetaFromContext(ctx).BaseURL()
	}

	return base + "/u/" + code
}

func (h *LinkHandler) toHTTPError(err error) error {
	switch {
	case errors.Is(err, links.ErrUnsafeURL):
		return huma.Error400BadRequest("URL is unsafe")
	case errors.Is(err, links.ErrReviewRequired):
		return huma.Error400BadRequest("Suspicious URL (needs admin review)")
	case errors.Is(err, links.ErrCodeExists):
		return huma.Error409Conflict("Code already exists")
	case errors.Is(err, links.ErrInvalidCode):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, urlguard.ErrEmptyInput), errors.Is(err, urlguard.ErrMalformedURL):
		return huma.Error400BadRequest("Invalid URL")
	case errors.Is(err, links.ErrNotFound):
		return huma.Error404NotFound("Not found")
	default:
		h.logger.Error("link operation failed", zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}

func principal(ctx context.Context) (auth.Principal, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Principal{}, huma.Error401Unauthorized("Unauthorized")
	}

	return p, nil
}
