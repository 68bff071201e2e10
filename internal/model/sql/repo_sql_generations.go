package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"captioner/internal/entity/common"
	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"
)

// CreateGeneration archives one completed generation run.
func (r *GormRepository) CreateGeneration(ctx context.Context, record *db.Generation) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if record == nil {
		return fmt.Errorf("generation is nil")
	}
	if record.UserID == 0 {
		return fmt.Errorf("generation has no owner")
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// ListGenerations returns paginated generations, newest first. UserID is
// mandatory: history is always scoped to its owner.
func (r *GormRepository) ListGenerations(ctx context.Context, params *dto.HistoryQuery) ([]db.Generation, *common.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if params == nil || params.UserID == 0 {
		return nil, nil, fmt.Errorf("history query requires a user")
	}

	query := r.db.WithContext(ctx).Model(&db.Generation{}).Where("user_id = ?", params.UserID)
	if trimmed := strings.TrimSpace(params.Platform); trimmed != "" {
		query = query.Where("platform = ?", trimmed)
	}
	if trimmed := strings.TrimSpace(params.Goal); trimmed != "" {
		query = query.Where("goal = ?", trimmed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page := 1
	pageSize := 20
	if params.Page > 0 {
		page = int(params.Page)
	}
	if params.PageSize > 0 {
		pageSize = int(params.PageSize)
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	var records []db.Generation
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return records, meta, nil
}

// GetGeneration loads a single generation by ID. Ownership is checked by the
// caller against the returned record.
func (r *GormRepository) GetGeneration(ctx context.Context, id uint) (*db.Generation, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid generation id")
	}
	var record db.Generation
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteGeneration removes a generation owned by userID and reports how many
// rows went away. Zero rows means the record does not exist or belongs to
// someone else; both look the same to the caller on purpose.
func (r *GormRepository) DeleteGeneration(ctx context.Context, id, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if id == 0 || userID == 0 {
		return 0, fmt.Errorf("invalid generation or user id")
	}
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&db.Generation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteGenerationsByUser clears the user's entire history.
func (r *GormRepository) DeleteGenerationsByUser(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&db.Generation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountGenerationsSince counts the user's generations created at or after the
// given instant. Used for the daily allowance check.
func (r *GormRepository) CountGenerationsSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Generation{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
