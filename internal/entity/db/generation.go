package db

import (
	"captioner/internal/entity/common"
	"time"
)

// Generation stores one caption generation run together with the settings that
// produced it. A row is created only after the model returned a valid result;
// the decoded result is archived as an opaque JSON document.
type Generation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	ImageURL string `gorm:"column:image_url;type:text" json:"image_url"`

	Goal          string `gorm:"column:goal;type:varchar(64)" json:"goal"`
	Platform      string `gorm:"column:platform;type:varchar(64)" json:"platform"`
	Audience      string `gorm:"column:audience;type:varchar(64)" json:"audience"`
	Language      string `gorm:"column:language;type:varchar(64)" json:"language"`
	CaptionLength string `gorm:"column:caption_length;type:varchar(16)" json:"caption_length"`
	EmojiLevel    string `gorm:"column:emoji_level;type:varchar(16)" json:"emoji_level"`

	ResultJSON common.JSONDocument `gorm:"column:result_json;type:json" json:"result_json"`
}

// TableName 指定表名
func (Generation) TableName() string {
	return "generations"
}
