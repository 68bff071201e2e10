package dto

// SettingsResponse carries the caller's stored preferences.
type SettingsResponse struct {
	DefaultLanguage string `json:"default_language"`
}

// SettingsUpdateRequest upserts the caller's preferences.
type SettingsUpdateRequest struct {
	DefaultLanguage string `json:"default_language"`
}

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}
