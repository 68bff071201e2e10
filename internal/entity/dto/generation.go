package dto

import "strings"

// GenerationRequest is the payload for a caption generation call. All fields
// are required; imageUrl must point at a fetchable image.
type GenerationRequest struct {
	ImageURL      string `json:"imageUrl"`
	Goal          string `json:"goal"`
	Platform      string `json:"platform"`
	Audience      string `json:"audience"`
	Language      string `json:"language"`
	CaptionLength string `json:"captionLength"`
	EmojiLevel    string `json:"emojiLevel"`
}

// Normalize trims surrounding whitespace from every field.
func (r *GenerationRequest) Normalize() {
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	r.Goal = strings.TrimSpace(r.Goal)
	r.Platform = strings.TrimSpace(r.Platform)
	r.Audience = strings.TrimSpace(r.Audience)
	r.Language = strings.TrimSpace(r.Language)
	r.CaptionLength = strings.TrimSpace(r.CaptionLength)
	r.EmojiLevel = strings.TrimSpace(r.EmojiLevel)
}

// MissingField returns the name of the first empty required field, or "".
// Field names follow the JSON payload.
func (r *GenerationRequest) MissingField() string {
	switch {
	case r.ImageURL == "":
		return "imageUrl"
	case r.Goal == "":
		return "goal"
	case r.Platform == "":
		return "platform"
	case r.Audience == "":
		return "audience"
	case r.Language == "":
		return "language"
	case r.CaptionLength == "":
		return "captionLength"
	case r.EmojiLevel == "":
		return "emojiLevel"
	}
	return ""
}

// InvalidField returns the name of the first field whose value is outside the
// supported set, or "". Language is free-form and not checked.
func (r *GenerationRequest) InvalidField() string {
	switch {
	case !contains(Goals, r.Goal):
		return "goal"
	case !contains(Platforms, r.Platform):
		return "platform"
	case !contains(Audiences, r.Audience):
		return "audience"
	case !contains(CaptionLengths, r.CaptionLength):
		return "captionLength"
	case !contains(EmojiLevels, r.EmojiLevel):
		return "emojiLevel"
	}
	return ""
}

// Option sets mirror the product's configuration panel.
var (
	Goals          = []string{"get_more_comments", "go_viral", "soft_sell", "premium_tone", "faith_motivation", "storytelling"}
	Platforms      = []string{"Instagram", "TikTok", "LinkedIn", "WhatsApp Status"}
	Audiences      = []string{"friends", "customers", "church", "professional", "youth"}
	CaptionLengths = []string{"short", "medium", "long"}
	EmojiLevels    = []string{"none", "low", "normal", "high"}

	DetectedMoods = []string{"happy", "calm", "excited", "serious", "romantic", "funny", "unknown"}
	CaptionStyles = []string{"curiosity", "emotional", "humorous", "premium", "faith", "storytelling", "direct"}
	CaptionCTAs   = []string{"comment", "like", "save", "share", "follow", "click", "none"}
)

// ExpectedCaptionCount is the contract with the model: the captions array of a
// valid result holds exactly this many entries.
const ExpectedCaptionCount = 10

func contains(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}

// Caption is one generated suggestion plus its metadata.
type Caption struct {
	Text   string `json:"text"`
	Style  string `json:"style"`
	CTA    string `json:"cta"`
	Reason string `json:"reason"`
}

// GenerationResult is the decoded model output. It is produced once per
// request and never mutated afterwards, only displayed or archived.
type GenerationResult struct {
	PhotoSummary    string    `json:"photo_summary"`
	DetectedMood    string    `json:"detected_mood"`
	Captions        []Caption `json:"captions"`
	Hashtags        []string  `json:"hashtags"`
	WhyItWorks      []string  `json:"why_it_works"`
	ContentWarnings []string  `json:"content_warnings"`
}
