package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"captioner/internal/entity/common"
	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"
	"captioner/internal/llm"
	"captioner/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrQuotaExceeded 当日生成次数已用完。
var ErrQuotaExceeded = errors.New("daily generation limit reached")

// GenerationService 封装配文生成的业务逻辑：额度检查、调用模型、归档结果。
type GenerationService struct {
	repo       model.Repository
	generator  llm.Generator
	dailyLimit int
}

// NewGenerationService 创建生成服务实例
func NewGenerationService(repo model.Repository, generator llm.Generator, dailyLimit int) *GenerationService {
	if dailyLimit <= 0 {
		dailyLimit = 3
	}
	return &GenerationService{
		repo:       repo,
		generator:  generator,
		dailyLimit: dailyLimit,
	}
}

// StartOfDay returns local midnight for the given instant. The daily window
// resets at the server's local midnight, not a rolling 24 hours.
func StartOfDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// QuotaStatus reports today's usage for the user. The count is advisory:
// nothing stops two concurrent requests from both passing the check, so the
// ceiling can be overshot by the number of in-flight generations.
func (s *GenerationService) QuotaStatus(ctx context.Context, userID uint) (*dto.QuotaResponse, error) {
	used, err := s.repo.CountGenerationsSince(ctx, userID, StartOfDay(time.Now()))
	if err != nil {
		return nil, err
	}

	remaining := s.dailyLimit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return &dto.QuotaResponse{
		Limit:       s.dailyLimit,
		UsedToday:   int(used),
		Remaining:   remaining,
		CanGenerate: int(used) < s.dailyLimit,
	}, nil
}

// Generate runs one caption generation for the user: quota check, model call,
// then archiving. A failed archive does not fail the request; the result is
// already in hand and the user should get it.
func (s *GenerationService) Generate(ctx context.Context, userID uint, req dto.GenerationRequest) (*dto.GenerationResult, string, error) {
	quota, err := s.QuotaStatus(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if !quota.CanGenerate {
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,
			"used_today": quota.UsedToday,
			"limit":      quota.Limit,
		}).Info("generation_quota_exceeded")
		return nil, "", ErrQuotaExceeded
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"platform": req.Platform,
		"goal":     req.Goal,
		"language": req.Language,
	}).Info("generation_start")

	result, raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, raw, err
	}

	s.archiveGeneration(ctx, userID, req, result)

	return result, raw, nil
}

// archiveGeneration persists the run for history and quota accounting. Errors
// are logged, not returned.
func (s *GenerationService) archiveGeneration(ctx context.Context, userID uint, req dto.GenerationRequest, result *dto.GenerationResult) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("generation_archive_marshal_failed")
		return
	}

	record := &db.Generation{
		UserID:        userID,
		ImageURL:      req.ImageURL,
		Goal:          req.Goal,
		Platform:      req.Platform,
		Audience:      req.Audience,
		Language:      req.Language,
		CaptionLength: req.CaptionLength,
		EmojiLevel:    req.EmojiLevel,
		ResultJSON:    common.JSONDocument(resultJSON),
	}
	if err := s.repo.CreateGeneration(ctx, record); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("generation_archive_failed")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"record_id": record.ID,
	}).Info("generation_archived")
}
