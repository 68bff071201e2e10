package api

import (
	"errors"
	"net/http"

	"captioner/internal/entity/dto"
	"captioner/internal/llm"
	"captioner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerateResponse 生成接口的响应体
type GenerateResponse struct {
	Result *dto.GenerationResult `json:"result"`
}

// Generate 处理配文生成请求
func (h *HTTPHandler) Generate(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req dto.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	req.Normalize()

	if field := req.MissingField(); field != "" {
		MissingField(c, field)
		return
	}
	if field := req.InvalidField(); field != "" {
		InvalidField(c, field)
		return
	}

	result, _, err := h.generationService.Generate(c.Request.Context(), user.ID, req)
	if err != nil {
		h.respondGenerationError(c, user.ID, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Result: result})
}

// respondGenerationError 将生成管线的分类错误映射到 HTTP 响应。
// 原始模型输出始终记录在服务端日志；仅在显式开启时随响应透出。
func (h *HTTPHandler) respondGenerationError(c *gin.Context, userID uint, err error) {
	if errors.Is(err, service.ErrQuotaExceeded) {
		ErrorResponse(c, http.StatusTooManyRequests, ErrCodeQuotaExceeded, "daily generation limit reached")
		return
	}

	var fetchErr *llm.UpstreamFetchError
	if errors.As(err, &fetchErr) {
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeUpstreamFetch, "could not fetch the source image")
		return
	}

	var parseErr *llm.ResponseParseError
	if errors.As(err, &parseErr) {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"raw":     parseErr.Raw,
		}).Error("generation_response_parse_failed")
		if h.cfg.ExposeRawModelOutput {
			ErrorResponseWithDetails(c, http.StatusInternalServerError, ErrCodeResponseParse,
				"model output was not valid JSON", gin.H{"raw": parseErr.Raw})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeResponseParse, "model output was not valid JSON")
		return
	}

	var schemaErr *llm.SchemaValidationError
	if errors.As(err, &schemaErr) {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"reason":  schemaErr.Reason,
			"raw":     schemaErr.Raw,
		}).Error("generation_schema_invalid")
		if h.cfg.ExposeRawModelOutput {
			ErrorResponseWithDetails(c, http.StatusInternalServerError, ErrCodeSchemaInvalid,
				"model output violated the result contract", gin.H{"reason": schemaErr.Reason, "raw": schemaErr.Raw})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeSchemaInvalid, "model output violated the result contract")
		return
	}

	var genErr *llm.UpstreamGenerationError
	if errors.As(err, &genErr) {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"status":  genErr.StatusCode,
		}).Error("generation_upstream_failed")
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "caption generation failed")
		return
	}

	logrus.WithError(err).WithField("user_id", userID).Error("generation_failed")
	InternalError(c, "caption generation failed")
}

// Quota 返回当前用户的当日额度
func (h *HTTPHandler) Quota(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	quota, err := h.generationService.QuotaStatus(c.Request.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to compute quota")
		InternalError(c, "failed to compute quota")
		return
	}

	c.JSON(http.StatusOK, quota)
}
