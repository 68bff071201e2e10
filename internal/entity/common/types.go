package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONDocument 以 JSON 文本格式存储一段不透明的 JSON 文档。
// 消费方不应修改其内容，仅做展示或归档。
type JSONDocument json.RawMessage

// Value 实现 driver.Valuer 接口。
func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("invalid json document")
	}
	return string(d), nil
}

// Scan 实现 sql.Scanner 接口。
func (d *JSONDocument) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*d = JSONDocument("{}")
			return nil
		}
		*d = append((*d)[:0], v...)
		return nil
	case string:
		if v == "" {
			*d = JSONDocument("{}")
			return nil
		}
		*d = JSONDocument(v)
		return nil
	default:
		return fmt.Errorf("unsupported type for JSONDocument: %T", value)
	}
}

// MarshalJSON 原样输出底层文档。
func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(d).MarshalJSON()
}

// UnmarshalJSON 原样保存输入。
func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(d).UnmarshalJSON(data)
}

// Meta 包含分页元数据。
type Meta struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

// BaseParams 包含通用的分页参数。
type BaseParams struct {
	PageSize int64 `json:"page_size" form:"page_size" query:"page_size"`
	Page     int64 `json:"page" form:"page" query:"page"`
}
