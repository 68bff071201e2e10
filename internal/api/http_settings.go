package api

import (
	"net/http"
	"strings"

	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GetSettings 返回当前用户的偏好设置。
func (h *HTTPHandler) GetSettings(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{
		DefaultLanguage: user.DefaultLanguage,
	})
}

// UpdateSettings 更新当前用户的偏好设置。语言为自由文本，仅做去空白。
func (h *HTTPHandler) UpdateSettings(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req dto.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	language := strings.TrimSpace(req.DefaultLanguage)
	if language == "" {
		MissingField(c, "default_language")
		return
	}

	updates := db.UserUpdates{DefaultLanguage: &language}
	if err := h.repo.UpdateUser(c.Request.Context(), user.ID, updates); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to update settings")
		InternalError(c, "failed to update settings")
		return
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{DefaultLanguage: language})
}
