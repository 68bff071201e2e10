package api

import (
	"errors"
	"net/http"
	"strconv"

	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListHistory 返回当前用户的生成历史，最新在前。
func (h *HTTPHandler) ListHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c)
		return
	}
	query.UserID = user.ID

	records, meta, err := h.repo.ListGenerations(c.Request.Context(), &query)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to list history")
		InternalError(c, "failed to list history")
		return
	}

	items := make([]dto.HistoryItem, 0, len(records))
	for i := range records {
		items = append(items, makeHistoryItem(&records[i]))
	}

	c.JSON(http.StatusOK, dto.HistoryListResponse{
		Generations: items,
		Meta:        meta,
	})
}

// GetHistory 返回单条历史记录。不属于当前用户的记录一律按不存在处理。
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	record, err := h.repo.GetGeneration(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "record not found")
			return
		}
		logrus.WithError(err).WithField("record_id", id).Error("failed to load history record")
		InternalError(c, "failed to load record")
		return
	}
	if record.UserID != user.ID {
		NotFound(c, ErrCodeRecordNotFound, "record not found")
		return
	}

	c.JSON(http.StatusOK, dto.HistoryDetailResponse{Generation: makeHistoryItem(record)})
}

// DeleteHistory 删除一条历史记录。删除影响 0 行时按不存在处理：
// 记录不存在和记录属于他人对调用方不可区分。
func (h *HTTPHandler) DeleteHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	affected, err := h.repo.DeleteGeneration(c.Request.Context(), id, user.ID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"record_id": id,
			"user_id":   user.ID,
		}).Error("failed to delete history record")
		InternalError(c, "failed to delete record")
		return
	}
	if affected == 0 {
		NotFound(c, ErrCodeRecordNotFound, "record not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ClearHistory 清空当前用户的全部历史记录。
func (h *HTTPHandler) ClearHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	removed, err := h.repo.DeleteGenerationsByUser(c.Request.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to clear history")
		InternalError(c, "failed to clear history")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"removed": removed,
	}).Info("history_cleared")

	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid record id")
		return 0, false
	}
	return uint(id), true
}

func makeHistoryItem(record *db.Generation) dto.HistoryItem {
	if record == nil {
		return dto.HistoryItem{}
	}
	return dto.HistoryItem{
		ID:            record.ID,
		ImageURL:      record.ImageURL,
		Goal:          record.Goal,
		Platform:      record.Platform,
		Audience:      record.Audience,
		Language:      record.Language,
		CaptionLength: record.CaptionLength,
		EmojiLevel:    record.EmojiLevel,
		Result:        record.ResultJSON,
		CreatedAt:     record.CreatedAt,
	}
}
