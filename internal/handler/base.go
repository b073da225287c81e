// Package handler holds the helpers every HTTP handler package shares.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
	"github.com/jwalitptl/dental-api/pkg/validator"
)

// BindJSON binds and validates the body, answering 400 on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondBadRequest(c, validator.FormatError(err))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters, answering 400 on failure.
func BindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httputil.RespondBadRequest(c, validator.FormatError(err))
		return false
	}
	return true
}

// UUIDParam parses a path parameter, answering 400 when it is malformed.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondBadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Actor returns the authenticated actor, answering 401 when there is none.
func Actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperr.Unauthorized(nil))
		return model.Actor{}, false
	}
	return actor, true
}

// OptionalUUID parses s when it is not empty. Callers validate the format
// with the uuid binding tag first.
func OptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// OptionalDate parses s when it is not empty.
func OptionalDate(s string) (*model.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
