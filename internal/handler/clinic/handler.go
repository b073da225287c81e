package clinic

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/clinic"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type Handler struct {
	service *clinic.Service
}

func NewHandler(service *clinic.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := auth.RequireRole(model.RoleAdmin)

	branches := r.Group("/branches")
	{
		branches.GET("", h.ListBranches)
		branches.POST("", admin, h.CreateBranch)
		branches.GET("/:id/blocked-dates", h.ListBlockedDates)
	}

	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.POST("", admin, h.CreateService)
	}

	blocked := r.Group("/blocked-dates", admin)
	{
		blocked.POST("", h.BlockDate)
		blocked.PATCH("/:id", h.SetBlockedDateActive)
	}
}

func (h *Handler) ListBranches(c *gin.Context) {
	list, err := h.service.ListBranches(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) CreateBranch(c *gin.Context) {
	var req model.CreateBranchRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	b, err := h.service.CreateBranch(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, b)
}

func (h *Handler) ListServices(c *gin.Context) {
	list, err := h.service.ListServices(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.CreateServiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	s, err := h.service.CreateService(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, s)
}

type blockedQuery struct {
	From string `form:"from" binding:"omitempty,civildate"`
}

func (h *Handler) ListBlockedDates(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var q blockedQuery
	if !handler.BindQuery(c, &q) {
		return
	}
	from, _ := handler.OptionalDate(q.From)

	list, err := h.service.ListBlockedDates(c.Request.Context(), id, from)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

type blockRequest struct {
	BranchID string `json:"branch_id" binding:"required,uuid"`
	Date     string `json:"date" binding:"required,civildate"`
	Reason   string `json:"reason" binding:"max=255"`
}

func (h *Handler) BlockDate(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req blockRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	date, _ := model.ParseDate(req.Date)

	b, err := h.service.BlockDate(c.Request.Context(), model.BlockDateRequest{
		BranchID: *handler.OptionalUUID(req.BranchID),
		Date:     date,
		Reason:   req.Reason,
	}, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, b)
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) SetBlockedDateActive(c *gin.Context) {
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	b, err := h.service.SetBlockedDateActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}
