package dto

import (
	"captioner/internal/entity/common"
	"time"
)

// HistoryQuery supports querying archived generations.
type HistoryQuery struct {
	common.BaseParams
	Platform string `json:"platform" form:"platform" query:"platform"`
	Goal     string `json:"goal" form:"goal" query:"goal"`
	UserID   uint   `json:"-" form:"-" query:"-"`
}

// HistoryItem is the response representation of an archived generation.
// Result is an opaque GenerationResult document; consumers must not assume
// anything beyond valid JSON.
type HistoryItem struct {
	ID            uint                `json:"id"`
	ImageURL      string              `json:"image_url"`
	Goal          string              `json:"goal"`
	Platform      string              `json:"platform"`
	Audience      string              `json:"audience"`
	Language      string              `json:"language"`
	CaptionLength string              `json:"caption_length"`
	EmojiLevel    string              `json:"emoji_level"`
	Result        common.JSONDocument `json:"result_json"`
	CreatedAt     time.Time           `json:"created_at"`
}

// HistoryListResponse is the response for listing history entries.
type HistoryListResponse struct {
	Generations []HistoryItem `json:"generations"`
	Meta        *common.Meta  `json:"meta"`
}

// HistoryDetailResponse is the response for a single history entry.
type HistoryDetailResponse struct {
	Generation HistoryItem `json:"generation"`
}

// QuotaResponse reports the caller's daily generation allowance. The check is
// advisory: concurrent requests may still race past the ceiling.
type QuotaResponse struct {
	Limit       int  `json:"limit"`
	UsedToday   int  `json:"used_today"`
	Remaining   int  `json:"remaining"`
	CanGenerate bool `json:"can_generate"`
}
