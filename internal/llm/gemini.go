package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"captioner/internal/entity/dto"
	"captioner/internal/prompt"

	"github.com/sirupsen/logrus"
)

// Generator produces a caption result for a request. The raw model text is
// returned alongside the decoded result so callers can archive or log it.
type Generator interface {
	Generate(ctx context.Context, req dto.GenerationRequest) (*dto.GenerationResult, string, error)
}

// Non-streaming endpoint: caption results are small JSON documents, so a
// single response body is simpler and easier to validate than SSE chunks.
const geminiGenerateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

const imageFetchTimeout = 30 * time.Second

// Request payload pieces ----------------------------------------------------
type (
	geminiInlineData struct {
		MimeType string `json:"mimeType,omitempty"`
		Data     string `json:"data,omitempty"`
	}
	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inlineData,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiRequest struct {
		Contents []geminiContent `json:"contents"`
	}
)

// Response payload pieces ---------------------------------------------------
type (
	geminiCandidate struct {
		FinishReason string        `json:"finishReason,omitempty"`
		Content      geminiContent `json:"content"`
	}
	geminiError struct {
		Message string `json:"message"`
	}
	geminiResponse struct {
		Candidates []geminiCandidate `json:"candidates"`
		Error      *geminiError      `json:"error,omitempty"`
	}
)

// GeminiGateway calls the Gemini generateContent API with the photo and the
// rendered instruction, then decodes the JSON answer.
type GeminiGateway struct {
	apiKey   string
	model    string
	endpoint string
	httpCli  *http.Client
}

// NewGeminiGateway builds a gateway. endpoint may be empty (public Gemini
// API), a base URL, or a fmt template containing %s for the model name.
// httpCli may be nil.
func NewGeminiGateway(apiKey, model, endpoint string, httpCli *http.Client) (*GeminiGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key missing")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini model is required")
	}
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 120 * time.Second}
	}
	return &GeminiGateway{
		apiKey:   strings.TrimSpace(apiKey),
		model:    strings.TrimSpace(model),
		endpoint: strings.TrimSpace(endpoint),
		httpCli:  httpCli,
	}, nil
}

// Generate fetches the image, sends it with the instruction, and decodes the
// model's JSON answer. Failures come back as the typed errors in errors.go.
func (g *GeminiGateway) Generate(ctx context.Context, req dto.GenerationRequest) (*dto.GenerationResult, string, error) {
	log := providerLogger(ctx, "gemini", g.model)

	log.WithFields(logrus.Fields{
		"image_url": truncateForLog(req.ImageURL, 128),
		"platform":  req.Platform,
		"goal":      req.Goal,
	}).Info("gemini_generate_captions_start")

	b64, mimeType, err := g.fetchImageAsBase64(ctx, req.ImageURL)
	if err != nil {
		log.WithError(err).Warn("gemini_image_fetch_failed")
		return nil, "", err
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{MimeType: mimeType, Data: b64}},
					{Text: prompt.Build(req)},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("gemini marshal request: %w", err)
	}

	targetURL := resolveGeminiEndpoint(g.endpoint, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("gemini create request: %w", err)
	}
	// Prefer header to avoid logging API key inside URLs; most gateways accept this.
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpCli.Do(httpReq)
	if err != nil {
		return nil, "", &UpstreamGenerationError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &UpstreamGenerationError{Reason: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(string(respBytes)),
		}).Error("gemini_generate_captions_http_error")
		return nil, "", &UpstreamGenerationError{StatusCode: resp.StatusCode, Body: logSnippet(string(respBytes))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, "", &UpstreamGenerationError{Reason: "unmarshal response envelope: " + err.Error()}
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return nil, "", &UpstreamGenerationError{Reason: parsed.Error.Message}
	}

	raw := collectText(parsed)
	if strings.TrimSpace(raw) == "" {
		return nil, "", &UpstreamGenerationError{Reason: "response carried no text"}
	}

	result, err := DecodeResult(raw)
	if err != nil {
		log.WithFields(logrus.Fields{
			"raw_preview": logSnippet(raw),
		}).Warn("gemini_result_decode_failed")
		return nil, raw, err
	}

	log.WithFields(logrus.Fields{
		"caption_count": len(result.Captions),
		"hashtag_count": len(result.Hashtags),
		"detected_mood": result.DetectedMood,
	}).Info("gemini_generate_captions_done")

	return result, raw, nil
}

// collectText concatenates the text parts of every candidate in order.
func collectText(resp geminiResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// fetchImageAsBase64 pulls the photo and encodes it for inlineData usage. A
// non-2xx status or a non-image payload is an UpstreamFetchError.
func (g *GeminiGateway) fetchImageAsBase64(ctx context.Context, url string) (string, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, imageFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", &UpstreamFetchError{URL: url, Reason: err.Error()}
	}

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return "", "", &UpstreamFetchError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", &UpstreamFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &UpstreamFetchError{URL: url, Reason: "read body: " + err.Error()}
	}

	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if idx := strings.Index(mimeType, ";"); idx > 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		// Some hosts serve images as octet-stream; trust the bytes over the header.
		mimeType = http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return "", "", &UpstreamFetchError{URL: url, Reason: "payload is not an image (" + mimeType + ")"}
		}
	}

	logrus.WithFields(logrus.Fields{
		"mime":       mimeType,
		"size_bytes": len(data),
		"url":        truncateForLog(url, 128),
	}).Info("gemini_image_fetched")

	return base64.StdEncoding.EncodeToString(data), mimeType, nil
}

// truncateForLog keeps logs short while still surfacing useful context.
func truncateForLog(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}

// resolveGeminiEndpoint builds the request URL from a provided endpoint template or base URL.
// - If endpoint contains "%s", it is treated as a fmt template and will be formatted with model.
// - If endpoint is a bare base URL, the default Gemini suffix is appended.
// - If empty, fall back to the public Gemini endpoint.
func resolveGeminiEndpoint(endpoint, model string) string {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		return fmt.Sprintf(geminiGenerateEndpoint, model)
	}

	if strings.Contains(base, "%s") {
		return fmt.Sprintf(base, model)
	}

	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, model)
}
