package availability

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/availability"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/availability", h.AvailableSlots)

	slots := r.Group("/slots")
	{
		slots.GET("", h.ListSlots)
		slots.POST("", auth.RequireRole(model.RoleAdmin), h.CreateSlot)
		slots.PATCH("/:id", auth.RequireRole(model.RoleAdmin), h.SetSlotActive)
	}
}

type availabilityQuery struct {
	Date      string `form:"date" binding:"required,civildate"`
	BranchID  string `form:"branch_id" binding:"required,uuid"`
	DentistID string `form:"dentist_id" binding:"omitempty,uuid"`
	// ExcludeID lets a reschedule dialog offer the appointment's own slot.
	ExcludeID string `form:"exclude_id" binding:"omitempty,uuid"`
}

// AvailableSlots lists the bookable times of one day for a branch and an
// optional dentist.
func (h *Handler) AvailableSlots(c *gin.Context) {
	var q availabilityQuery
	if !handler.BindQuery(c, &q) {
		return
	}
	date, _ := model.ParseDate(q.Date)
	branchID := handler.OptionalUUID(q.BranchID)

	result, err := h.service.ListAvailableSlots(c.Request.Context(), date,
		handler.OptionalUUID(q.DentistID), *branchID, handler.OptionalUUID(q.ExcludeID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListSlots(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

type createSlotRequest struct {
	Time string `json:"time" binding:"required,timeofday"`
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	t, _ := model.ParseTimeOfDay(req.Time)

	slot, err := h.service.CreateSlot(c.Request.Context(), t)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, slot)
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) SetSlotActive(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetSlotActive(c.Request.Context(), id, *req.Active); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "active": *req.Active})
}
