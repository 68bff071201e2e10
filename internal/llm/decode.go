package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"captioner/internal/entity/dto"
)

// StripFence removes a surrounding markdown code fence (``` or ```json) from
// model output. Text without a fence is returned unchanged apart from
// whitespace trimming, so the function is idempotent.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop an optional language tag on the opening fence line.
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine == "" || isFenceLanguageTag(firstLine) {
			text = text[idx:]
		}
	} else {
		text = strings.TrimSpace(text)
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func isFenceLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// DecodeResult parses model output into a GenerationResult, stripping an
// optional markdown fence first. It returns ResponseParseError for malformed
// JSON and SchemaValidationError for well-formed JSON that breaks the
// contract. Both carry the raw text.
func DecodeResult(raw string) (*dto.GenerationResult, error) {
	cleaned := StripFence(raw)
	if cleaned == "" {
		return nil, &ResponseParseError{Raw: raw, Err: fmt.Errorf("empty model output")}
	}

	var result dto.GenerationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &ResponseParseError{Raw: raw, Err: err}
	}

	if reason := validateResult(&result); reason != "" {
		return nil, &SchemaValidationError{Raw: raw, Reason: reason}
	}
	return &result, nil
}

// validateResult enforces the output contract beyond JSON shape. Unknown mood
// values degrade to "unknown" rather than failing the whole generation.
func validateResult(result *dto.GenerationResult) string {
	if strings.TrimSpace(result.PhotoSummary) == "" {
		return "photo_summary is empty"
	}
	if len(result.Captions) != dto.ExpectedCaptionCount {
		return fmt.Sprintf("expected %d captions, got %d", dto.ExpectedCaptionCount, len(result.Captions))
	}

	if !containsValue(dto.DetectedMoods, result.DetectedMood) {
		result.DetectedMood = "unknown"
	}

	for i, caption := range result.Captions {
		if strings.TrimSpace(caption.Text) == "" {
			return fmt.Sprintf("caption %d has empty text", i)
		}
		if !containsValue(dto.CaptionStyles, caption.Style) {
			return fmt.Sprintf("caption %d has unknown style %q", i, caption.Style)
		}
		if !containsValue(dto.CaptionCTAs, caption.CTA) {
			return fmt.Sprintf("caption %d has unknown cta %q", i, caption.CTA)
		}
	}

	// Nil slices serialize as null; normalise to empty arrays so stored and
	// returned payloads always carry the full shape.
	if result.Hashtags == nil {
		result.Hashtags = []string{}
	}
	if result.WhyItWorks == nil {
		result.WhyItWorks = []string{}
	}
	if result.ContentWarnings == nil {
		result.ContentWarnings = []string{}
	}
	return ""
}

func containsValue(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}
