package api

import (
	"io"
	"net/http"

	"captioner/internal/entity/dto"
	"captioner/internal/storage"
	"captioner/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Upload 接收 multipart 图片上传，持久化后返回可供生成接口使用的 URL。
// 字段名为 file；非图片内容一律拒绝。
func (h *HTTPHandler) Upload(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	if h.storage == nil {
		ServiceUnavailable(c, "storage not available")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		MissingField(c, "file")
		return
	}

	if h.cfg.MaxUploadBytes > 0 && fileHeader.Size > h.cfg.MaxUploadBytes {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, ErrCodeUploadTooLarge, "file exceeds upload size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("failed to open uploaded file")
		InternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	limit := h.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		logrus.WithError(err).Error("failed to read uploaded file")
		InternalError(c, "failed to read upload")
		return
	}
	if int64(len(data)) > limit {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, ErrCodeUploadTooLarge, "file exceeds upload size limit")
		return
	}

	// 声明的 Content-Type 不可信，按字节嗅探判断
	contentType := http.DetectContentType(data)
	if !utils.IsImageContentType(contentType) {
		BadRequest(c, ErrCodeUploadNotImage, "uploaded file is not an image")
		return
	}

	ext := utils.ExtensionFromMime(contentType)
	if ext == "" {
		ext = "bin"
	}

	relativePath, err := h.storage.Save(c.Request.Context(), data, storage.SaveOptions{
		Category:  "uploads",
		Extension: ext,
		BaseName:  uuid.NewString(),
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to save upload")
		InternalError(c, "failed to save upload")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"path":       relativePath,
		"size_bytes": len(data),
		"mime":       contentType,
	}).Info("upload_saved")

	c.JSON(http.StatusCreated, dto.UploadResponse{
		Path: relativePath,
		URL:  h.publicURL(relativePath),
	})
}
