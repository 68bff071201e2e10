package model

import (
	"context"
	"time"

	"captioner/internal/entity/common"
	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *db.User) error
	UpdateUser(ctx context.Context, id uint, updates db.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id uint) (*db.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// 生成记录
	CreateGeneration(ctx context.Context, record *db.Generation) error
	ListGenerations(ctx context.Context, params *dto.HistoryQuery) ([]db.Generation, *common.Meta, error)
	GetGeneration(ctx context.Context, id uint) (*db.Generation, error)
	// DeleteGeneration removes the record only when it belongs to userID and
	// reports the number of rows removed, so callers can tell "not yours or
	// not there" apart from success.
	DeleteGeneration(ctx context.Context, id, userID uint) (int64, error)
	DeleteGenerationsByUser(ctx context.Context, userID uint) (int64, error)
	CountGenerationsSince(ctx context.Context, userID uint, since time.Time) (int64, error)
}
