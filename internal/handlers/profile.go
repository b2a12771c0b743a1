// Package handlers implements the HTTP handlers of the UE profile API.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
	"github.com/jaydenhoang5291/ue-profile/internal/events"
	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/observability"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
	"github.com/jaydenhoang5291/ue-profile/internal/storage"
)

// Generator builds profiles from a generation template.
type Generator interface {
	Generate(ctx context.Context, spec *profile.GeneratorSpec) ([]*profile.UeProfile, error)
}

// counter is implemented by stores that can report their size cheaply.
type counter interface {
	Count(ctx context.Context) (int64, error)
}

// ProfileHandler handles the /ue_profiles endpoints.
type ProfileHandler struct {
	store     storage.Store
	generator Generator
	log       *observability.Logger
	metrics   *observability.Metrics
	events    events.Publisher
	maxUEs    int
}

// ProfileHandlerOption configures a ProfileHandler.
type ProfileHandlerOption func(*ProfileHandler)

// WithMetrics records profile operations on m.
func WithMetrics(m *observability.Metrics) ProfileHandlerOption {
	return func(h *ProfileHandler) { h.metrics = m }
}

// WithMaxUEs caps num_ues of a generate request. Zero means no cap.
func WithMaxUEs(n int) ProfileHandlerOption {
	return func(h *ProfileHandler) { h.maxUEs = n }
}

// WithEvents publishes a change event for every stored, replaced or
// removed profile.
func WithEvents(p events.Publisher) ProfileHandlerOption {
	return func(h *ProfileHandler) { h.events = p }
}

// NewProfileHandler creates a new ProfileHandler.
// It requires a storage backend, a generator and a logger.
func NewProfileHandler(store storage.Store, gen Generator, logger *zap.Logger, opts ...ProfileHandlerOption) *ProfileHandler {
	if store == nil {
		panic("storage cannot be nil")
	}
	if gen == nil {
		panic("generator cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	h := &ProfileHandler{
		store:     store,
		generator: gen,
		log:       observability.NewLogger(logger).WithComponent("profiles"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListProfiles handles GET /ue_profiles.
// Lists the caller's profiles, oldest first.
//
// Query Parameters:
//   - supi: case-insensitive SUPI substring
//   - offset, limit: optional pagination
//
// Response: 200 OK with an array of UeProfile objects. X-Total-Count holds
// the number of matches before pagination.
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	q := models.ParseProfileQuery(c.Request.URL.Query())

	ues, err := h.store.List(ctx, storage.ListFilter{
		SupiContains: q.Supi,
		UserID:       auth.UserIDFromContext(ctx),
	})
	h.record("list", start, err)
	if err != nil {
		h.fail(c, "list", "", err)
		return
	}

	page := models.Paginate(ues, q)
	h.log.WithContext(ctx).Debug("profiles listed",
		zap.Int("count", len(page)),
		zap.Int("total", len(ues)),
	)

	c.Header("X-Total-Count", strconv.Itoa(len(ues)))
	c.JSON(http.StatusOK, page)
}

// GetProfile handles GET /ue_profiles/:supi.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	supi := c.Param("supi")
	start := time.Now()

	ue, err := h.owned(c.Request.Context(), supi)
	h.record("get", start, err)
	if err != nil {
		h.fail(c, "get", supi, err)
		return
	}
	c.JSON(http.StatusOK, ue)
}

// CreateProfiles handles POST /ue_profiles.
// The body is a batch of profiles; either all of them are stored or none.
// Server assigned fields in the body are ignored and the profiles are
// owned by the caller.
//
// Response: 201 Created with the stored profiles.
func (h *ProfileHandler) CreateProfiles(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	var batch []*profile.UeProfile
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.badRequest(c, "create", "Invalid request body: "+err.Error())
		return
	}
	if len(batch) == 0 {
		h.badRequest(c, "create", "At least one profile is required")
		return
	}

	owner := auth.UserIDFromContext(ctx)
	for i, ue := range batch {
		if ue == nil {
			h.badRequest(c, "create", fmt.Sprintf("Profile %d is null", i))
			return
		}
		ue.ID = ""
		ue.CreatedAt = time.Time{}
		ue.UserID = owner
	}

	err := h.store.CreateMany(ctx, batch)
	h.record("create", start, err)
	if err != nil {
		h.fail(c, "create", "", err)
		return
	}

	h.refreshCount(ctx)
	h.publish(ctx, events.ProfileCreated, batch...)
	h.log.WithContext(ctx).LogProfileOperation("create", batch[0].Supi, len(batch), nil)
	c.JSON(http.StatusCreated, batch)
}

// GenerateProfiles handles POST /ue_profiles/generate.
// Builds num_ues random profiles from the template and stores them.
//
// Response: 201 Created with the generated profiles.
func (h *ProfileHandler) GenerateProfiles(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	var spec profile.GeneratorSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.badRequest(c, "generate", "Invalid request body: "+err.Error())
		return
	}
	if err := profile.ValidateGeneratorSpec(&spec, h.maxUEs); err != nil {
		h.badRequest(c, "generate", err.Error())
		return
	}

	ues, err := h.generator.Generate(ctx, &spec)
	if err == nil {
		owner := auth.UserIDFromContext(ctx)
		for _, ue := range ues {
			ue.UserID = owner
		}
		err = h.store.CreateMany(ctx, ues)
	}
	h.record("generate", start, err)
	if err != nil {
		h.fail(c, "generate", "", err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProfilesGenerated(len(ues))
	}
	h.refreshCount(ctx)
	h.publish(ctx, events.ProfileCreated, ues...)
	h.log.WithContext(ctx).
		WithFields(zap.String("mcc", spec.PlmnID.Mcc), zap.String("mnc", spec.PlmnID.Mnc)).
		LogProfileOperation("generate", "", len(ues), nil)
	c.JSON(http.StatusCreated, ues)
}

// UpdateProfile handles PUT /ue_profiles/:supi.
// The body is the profile without its identity fields; the stored SUPI,
// owner and creation time are kept.
//
// Response: 200 OK with the stored profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	supi := c.Param("supi")
	start := time.Now()

	var ue profile.UeProfile
	if err := c.ShouldBindJSON(&ue); err != nil {
		h.badRequest(c, "update", "Invalid request body: "+err.Error())
		return
	}

	_, err := h.owned(ctx, supi)
	if err == nil {
		err = h.store.Update(ctx, supi, &ue)
	}
	h.record("update", start, err)
	if err != nil {
		h.fail(c, "update", supi, err)
		return
	}

	h.publish(ctx, events.ProfileUpdated, &ue)
	h.log.WithContext(ctx).LogProfileOperation("update", supi, 1, nil)
	c.JSON(http.StatusOK, &ue)
}

// DeleteProfile handles DELETE /ue_profiles/:supi.
//
// Response: 204 No Content.
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	ctx := c.Request.Context()
	supi := c.Param("supi")
	start := time.Now()

	existing, err := h.owned(ctx, supi)
	if err == nil {
		err = h.store.Delete(ctx, supi)
	}
	h.record("delete", start, err)
	if err != nil {
		h.fail(c, "delete", supi, err)
		return
	}

	h.refreshCount(ctx)
	h.publish(ctx, events.ProfileDeleted, existing)
	h.log.WithContext(ctx).LogProfileOperation("delete", supi, 1, nil)
	c.Status(http.StatusNoContent)
}

// ExportProfile handles GET /ue_profiles/:supi/export.
// Returns the profile as a YAML attachment.
func (h *ProfileHandler) ExportProfile(c *gin.Context) {
	supi := c.Param("supi")
	start := time.Now()

	ue, err := h.owned(c.Request.Context(), supi)
	var buf bytes.Buffer
	if err == nil {
		err = profile.EncodeYAML(&buf, ue)
	}
	h.record("export", start, err)
	if err != nil {
		h.fail(c, "export", supi, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", supi+".yaml"))
	c.Data(http.StatusOK, "application/yaml", buf.Bytes())
}

// owned loads the profile under supi if the caller may see it. Profiles of
// other users are reported as not found.
func (h *ProfileHandler) owned(ctx context.Context, supi string) (*profile.UeProfile, error) {
	ue, err := h.store.Get(ctx, supi)
	if err != nil {
		return nil, err
	}
	user := auth.UserIDFromContext(ctx)
	if user != "" && ue.UserID != "" && ue.UserID != user {
		return nil, storage.ErrProfileNotFound
	}
	return ue, nil
}

// publish emits one event per profile. The change is already stored, so a
// failed publish is only logged.
func (h *ProfileHandler) publish(ctx context.Context, t events.Type, ues ...*profile.UeProfile) {
	if h.events == nil {
		return
	}
	log := h.log.WithContext(ctx)
	for _, ue := range ues {
		ev := events.NewEvent(t, ue)
		if err := h.events.Publish(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to publish profile event",
				zap.String("event_type", t.String()),
				zap.String("supi", ue.Supi),
			)
			continue
		}
		log.LogProfileEvent(t.String(), ue.Supi, map[string]any{"event_id": ev.ID})
	}
}

func (h *ProfileHandler) record(op string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.RecordProfileOperation(op, time.Since(start), err)
	}
}

func (h *ProfileHandler) refreshCount(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	if cs, ok := h.store.(counter); ok {
		if n, err := cs.Count(ctx); err == nil {
			h.metrics.SetProfileCount(int(n))
		}
	}
}

func (h *ProfileHandler) badRequest(c *gin.Context, op, message string) {
	if h.metrics != nil {
		h.metrics.RecordValidationFailure(op)
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   models.ErrorBadRequest,
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

// fail maps a storage or validation error to an error response.
func (h *ProfileHandler) fail(c *gin.Context, op, supi string, err error) {
	var resp models.ErrorResponse
	switch {
	case errors.Is(err, storage.ErrProfileNotFound):
		resp = models.ErrorResponse{Error: models.ErrorNotFound, Message: "UE profile not found: " + supi, Code: http.StatusNotFound}
	case errors.Is(err, storage.ErrInvalidSUPI):
		resp = models.ErrorResponse{Error: models.ErrorBadRequest, Message: "SUPI is required", Code: http.StatusBadRequest}
	case errors.Is(err, storage.ErrProfileExists):
		resp = models.ErrorResponse{Error: models.ErrorConflict, Message: err.Error(), Code: http.StatusConflict}
	case errors.Is(err, profile.ErrInvalidProfile):
		if h.metrics != nil {
			h.metrics.RecordValidationFailure(op)
		}
		resp = models.ErrorResponse{Error: models.ErrorValidation, Message: err.Error(), Code: http.StatusBadRequest}
	case errors.Is(err, storage.ErrStorageUnavailable):
		resp = models.ErrorResponse{Error: models.ErrorUnavailable, Message: "Storage temporarily unavailable", Code: http.StatusServiceUnavailable}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp = models.ErrorResponse{Error: models.ErrorUnavailable, Message: "Request cancelled", Code: http.StatusServiceUnavailable}
	default:
		resp = models.ErrorResponse{Error: models.ErrorInternal, Message: "Failed to " + op + " UE profiles", Code: http.StatusInternalServerError}
	}

	log := h.log.WithContext(c.Request.Context()).WithFields(zap.Int("status", resp.Code))
	if resp.Code >= http.StatusInternalServerError {
		log.LogProfileOperation(op, supi, 0, err)
	} else {
		log.WithError(err).Info("profile operation rejected",
			zap.String("operation", op),
			zap.String("supi", supi),
		)
	}

	c.JSON(resp.Code, resp)
}
