package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch"
	"identitypulse/internal/identity/models"
	"identitypulse/internal/platform/metrics"
	"identitypulse/internal/platform/middleware"
	dErrors "identitypulse/pkg/domain-errors"
	"identitypulse/pkg/platform/httputil"
)

// RequestTimeout bounds every identity request. It covers index discovery
// plus the search itself.
const RequestTimeout = 20 * time.Second

// Service defines the interface for identity search operations.
type Service interface {
	Search(ctx context.Context, q models.IdentityQuery) (*models.MatchResult, error)
	Countries() []*country.Profile
	Country(code string) (*country.Profile, error)
	Servers() []dispatch.EndpointSnapshot
	CheckServers(ctx context.Context) ([]dispatch.EndpointSnapshot, error)
}

// Handler handles identity search endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
}

// New creates a new identity Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	identityRouter := chi.NewRouter()
	identityRouter.Use(middleware.Recovery(h.logger, h.metrics))
	identityRouter.Use(middleware.RequestID)
	identityRouter.Use(middleware.Logger(h.logger))
	identityRouter.Use(middleware.Timeout(RequestTimeout))
	identityRouter.Use(middleware.ContentTypeJSON)
	identityRouter.Use(middleware.LatencyMiddleware(h.metrics))
	identityRouter.Post("/search", h.HandleSearch)
	identityRouter.Get("/countries", h.HandleListCountries)
	identityRouter.Get("/countries/{code}", h.HandleGetCountry)
	identityRouter.Get("/servers", h.HandleListServers)
	identityRouter.Post("/servers/check", h.HandleCheckServers)

	r.Mount("/identity", identityRouter)
}

// HandleSearch runs one identity search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Search(ctx, req.Query())
	if err != nil {
		h.logFailure(ctx, requestID, "identity search failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListCountries lists every supported country.
func (h *Handler) HandleListCountries(w http.ResponseWriter, r *http.Request) {
	profiles := h.service.Countries()
	resp := CountriesResponse{Countries: make([]CountryResponse, 0, len(profiles))}
	for _, p := range profiles {
		resp.Countries = append(resp.Countries, toCountryResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetCountry returns one country's input requirements.
func (h *Handler) HandleGetCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.Country(chi.URLParam(r, "code"))
	if err != nil {
		h.logFailure(ctx, middleware.GetRequestID(ctx), "country lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCountryResponse(p))
}

// HandleListServers returns the last known status of every endpoint.
func (h *Handler) HandleListServers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toServersResponse(h.service.Servers()))
}

// HandleCheckServers probes every endpoint now.
func (h *Handler) HandleCheckServers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshots, err := h.service.CheckServers(ctx)
	if err != nil {
		h.logFailure(ctx, middleware.GetRequestID(ctx), "health check failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toServersResponse(snapshots))
}

func (h *Handler) logFailure(ctx context.Context, requestID, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestID,
		"code", string(dErrors.CodeOf(err)),
		"error", err,
	)
}
