package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"captioner/internal/entity/dto"
)

func validResultJSON(t *testing.T, mutate func(*dto.GenerationResult)) string {
	t.Helper()
	result := dto.GenerationResult{
		PhotoSummary: "A person smiling at a sunset on the beach.",
		DetectedMood: "happy",
		Hashtags:     []string{"#sunset", "#beachlife"},
		WhyItWorks:   []string{"short hooks", "matches tone", "clear CTA"},
	}
	for i := 0; i < dto.ExpectedCaptionCount; i++ {
		result.Captions = append(result.Captions, dto.Caption{
			Text:   fmt.Sprintf("Caption number %d", i),
			Style:  "curiosity",
			CTA:    "comment",
			Reason: "hook-first works on this platform",
		})
	}
	if mutate != nil {
		mutate(&result)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(raw)
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFence(tt.in)
			if got != tt.want {
				t.Fatalf("StripFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Running the strip twice must not change the output further.
			if again := StripFence(got); again != got {
				t.Fatalf("StripFence not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestDecodeResultAcceptsFencedAndUnfenced(t *testing.T) {
	raw := validResultJSON(t, nil)
	fenced := "```json\n" + raw + "\n```"

	plain, err := DecodeResult(raw)
	if err != nil {
		t.Fatalf("unexpected error for plain payload: %v", err)
	}
	wrapped, err := DecodeResult(fenced)
	if err != nil {
		t.Fatalf("unexpected error for fenced payload: %v", err)
	}
	if plain.PhotoSummary != wrapped.PhotoSummary || len(plain.Captions) != len(wrapped.Captions) {
		t.Fatal("fenced and unfenced payloads decoded differently")
	}
}

func TestDecodeResultInvalidJSON(t *testing.T) {
	raw := "I could not produce JSON, sorry."
	_, err := DecodeResult(raw)

	var parseErr *ResponseParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ResponseParseError, got %T (%v)", err, err)
	}
	if parseErr.Raw != raw {
		t.Fatalf("expected raw text to be preserved, got %q", parseErr.Raw)
	}
}

func TestDecodeResultWrongCaptionCount(t *testing.T) {
	raw := validResultJSON(t, func(r *dto.GenerationResult) {
		r.Captions = r.Captions[:3]
	})
	_, err := DecodeResult(raw)

	var schemaErr *SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %T (%v)", err, err)
	}
	if !strings.Contains(schemaErr.Reason, "expected 10 captions") {
		t.Fatalf("unexpected reason: %q", schemaErr.Reason)
	}
	if schemaErr.Raw == "" {
		t.Fatal("expected raw text on schema error")
	}
}

func TestDecodeResultUnknownStyle(t *testing.T) {
	raw := validResultJSON(t, func(r *dto.GenerationResult) {
		r.Captions[4].Style = "sarcastic"
	})
	_, err := DecodeResult(raw)

	var schemaErr *SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %T (%v)", err, err)
	}
}

func TestDecodeResultNormalizesUnknownMoodAndNilArrays(t *testing.T) {
	raw := validResultJSON(t, func(r *dto.GenerationResult) {
		r.DetectedMood = "melancholic"
		r.Hashtags = nil
		r.ContentWarnings = nil
	})
	result, err := DecodeResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DetectedMood != "unknown" {
		t.Fatalf("expected mood to degrade to unknown, got %q", result.DetectedMood)
	}
	if result.Hashtags == nil || result.ContentWarnings == nil {
		t.Fatal("expected nil arrays to be normalised to empty slices")
	}
}
