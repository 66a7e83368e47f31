package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockops/backend/internal/domain/shared"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// HandleDomainError maps domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		h.Error(c, http.StatusConflict, dto.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		h.Error(c, http.StatusConflict, dto.ErrCodeConcurrencyConflict, err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock, err.Error())
	case errors.Is(err, shared.ErrIntegrityViolation):
		h.Error(c, http.StatusConflict, dto.ErrCodeIntegrityViolation, err.Error())
	default:
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.Error(c, http.StatusUnprocessableEntity, domainErr.Code, domainErr.Message)
			return
		}
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Internal server error")
	}
}
