package dentist

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/dentist"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type Handler struct {
	service *dentist.Service
}

func NewHandler(service *dentist.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	dentists := r.Group("/dentists")
	{
		dentists.GET("", h.ListDentists)
		dentists.POST("", auth.RequireRole(model.RoleAdmin), h.CreateDentist)
		dentists.GET("/:id", h.GetDentist)
		dentists.GET("/:id/schedule", h.GetSchedule)
		dentists.PUT("/:id/schedule", auth.RequireRole(model.RoleAdmin, model.RoleDentist), h.SaveSchedule)
	}
}

func (h *Handler) ListDentists(c *gin.Context) {
	// Patients only see dentists they can book.
	activeOnly := c.Query("all") != "true"
	if actor, ok := middleware.ActorFrom(c); !ok || !actor.Role.IsStaff() {
		activeOnly = true
	}

	list, err := h.service.ListDentists(c.Request.Context(), activeOnly)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) CreateDentist(c *gin.Context) {
	var req model.CreateDentistRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	d, err := h.service.CreateDentist(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, d)
}

func (h *Handler) GetDentist(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.service.GetDentist(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.GetSchedule(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

type saveScheduleRequest struct {
	Entries []model.ScheduleEntry `json:"entries" binding:"max=7,dive"`
}

// SaveSchedule replaces the weekly schedule. Dentists may only edit their own.
func (h *Handler) SaveSchedule(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	if actor.Role == model.RoleDentist && (actor.DentistID == nil || *actor.DentistID != id) {
		httputil.RespondWithError(c, apperr.Forbidden("dentists can only edit their own schedule"))
		return
	}
	var req saveScheduleRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	entries, err := h.service.SaveSchedule(c.Request.Context(), id, req.Entries)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}
