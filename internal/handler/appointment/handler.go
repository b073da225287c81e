package appointment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/appointment"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type Handler struct {
	service        *appointment.Service
	sweepBatchSize int
}

func NewHandler(service *appointment.Service, sweepBatchSize int) *Handler {
	if sweepBatchSize <= 0 {
		sweepBatchSize = 100
	}
	return &Handler{service: service, sweepBatchSize: sweepBatchSize}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.GET("/:id/allowed-statuses", h.AllowedStatuses)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PUT("/:id/schedule", h.Reschedule)
		appointments.POST("/sweep", auth.RequireRole(model.RoleAdmin), h.SweepOverdue)
	}
}

type bookRequest struct {
	PatientID string `json:"patient_id" binding:"omitempty,uuid"`
	ServiceID string `json:"service_id" binding:"required,uuid"`
	DentistID string `json:"dentist_id" binding:"omitempty,uuid"`
	BranchID  string `json:"branch_id" binding:"required,uuid"`
	Date      string `json:"date" binding:"required,civildate"`
	Time      string `json:"time" binding:"required,timeofday"`
	Reason    string `json:"reason" binding:"max=500"`
}

func (r bookRequest) toModel() model.BookingRequest {
	date, _ := model.ParseDate(r.Date)
	t, _ := model.ParseTimeOfDay(r.Time)
	req := model.BookingRequest{
		DentistID: handler.OptionalUUID(r.DentistID),
		Date:      date,
		Time:      t,
		Reason:    r.Reason,
	}
	if id := handler.OptionalUUID(r.PatientID); id != nil {
		req.PatientID = *id
	}
	if id := handler.OptionalUUID(r.ServiceID); id != nil {
		req.ServiceID = *id
	}
	if id := handler.OptionalUUID(r.BranchID); id != nil {
		req.BranchID = *id
	}
	return req
}

func (h *Handler) BookAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req bookRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.BookAppointment(c.Request.Context(), actor, req.toModel())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, a)
}

type listQuery struct {
	BranchID  string `form:"branch_id" binding:"omitempty,uuid"`
	DentistID string `form:"dentist_id" binding:"omitempty,uuid"`
	PatientID string `form:"patient_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,apptstatus"`
	From      string `form:"from" binding:"omitempty,civildate"`
	To        string `form:"to" binding:"omitempty,civildate"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var q listQuery
	if !handler.BindQuery(c, &q) {
		return
	}

	page := model.Pagination{Page: q.Page, PageSize: q.PageSize}.Normalize()

	filters := model.AppointmentFilters{
		BranchID:  handler.OptionalUUID(q.BranchID),
		DentistID: handler.OptionalUUID(q.DentistID),
		PatientID: handler.OptionalUUID(q.PatientID),
		Limit:     page.PageSize,
		Offset:    page.Offset(),
	}
	if q.Status != "" {
		status := model.AppointmentStatus(q.Status)
		filters.Status = &status
	}
	filters.From, _ = handler.OptionalDate(q.From)
	filters.To, _ = handler.OptionalDate(q.To)

	list, err := h.service.List(c.Request.Context(), filters, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"items":     list,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) AllowedStatuses(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	statuses, err := h.service.AllowedNextStatusesFor(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"statuses": statuses})
}

type statusRequest struct {
	Status string  `json:"status" binding:"required,apptstatus"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.Transition(c.Request.Context(), id, model.AppointmentStatus(req.Status), req.Notes, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

type rescheduleRequest struct {
	Date string `json:"date" binding:"required,civildate"`
	Time string `json:"time" binding:"required,timeofday"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	date, _ := model.ParseDate(req.Date)
	t, _ := model.ParseTimeOfDay(req.Time)

	a, err := h.service.RescheduleAppointment(c.Request.Context(), id, date, t, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

// SweepOverdue runs one batch of the overdue reconciliation on demand.
func (h *Handler) SweepOverdue(c *gin.Context) {
	result, err := h.service.AutoUpdateOverdueAppointments(c.Request.Context(), h.sweepBatchSize)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
