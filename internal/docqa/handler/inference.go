// Package handler provides HTTP handlers for the docqa service.
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docqa/internal/docqa/biz"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/internal/pkg/httputils"
	"github.com/kart-io/docqa/pkg/utils/errors"
)

// inferenceTimeout bounds a single generation round trip.
const inferenceTimeout = 120 * time.Second

// InferenceHandler handles question answering requests.
type InferenceHandler struct {
	service biz.Service
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(service biz.Service) *InferenceHandler {
	return &InferenceHandler{service: service}
}

// Infer answers a question grounded on the indexed documents.
//
// POST /api/inference
func (h *InferenceHandler) Infer(c *gin.Context) {
	var req model.InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(err.Error()), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), inferenceTimeout)
	defer cancel()

	resp, err := h.service.Infer(ctx, &req)
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInferenceFailed.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, resp)
}

// DirectInfer answers a question without document retrieval.
//
// POST /api/direct-inference
func (h *InferenceHandler) DirectInfer(c *gin.Context) {
	var req model.InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(err.Error()), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), inferenceTimeout)
	defer cancel()

	resp, err := h.service.DirectInfer(ctx, &req)
	if err != nil {
		httputils.WriteResponse(c, errors.ErrGenerationFailed.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, resp)
}

// Chat routes a conversational message by classified intent.
//
// POST /api/chat
func (h *InferenceHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(err.Error()), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), inferenceTimeout)
	defer cancel()

	resp, err := h.service.Chat(ctx, &req)
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInferenceFailed.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, resp)
}
