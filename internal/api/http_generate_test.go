package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"captioner/internal/config"
	"captioner/internal/entity/common"
	"captioner/internal/entity/db"
	"captioner/internal/entity/dto"
	"captioner/internal/llm"
	"captioner/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type memoryRepo struct {
	users       map[uint]*db.User
	generations []db.Generation
	nextUserID  uint
	nextGenID   uint
}

var _ model.Repository = (*memoryRepo)(nil)

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uint]*db.User)}
}

func (m *memoryRepo) CreateUser(ctx context.Context, user *db.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *memoryRepo) UpdateUser(ctx context.Context, id uint, updates db.UserUpdates) error {
	user, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if updates.DisplayName != nil {
		user.DisplayName = *updates.DisplayName
	}
	if updates.PasswordHash != nil {
		user.PasswordHash = *updates.PasswordHash
	}
	if updates.IsActive != nil {
		user.IsActive = *updates.IsActive
	}
	if updates.DefaultLanguage != nil {
		user.DefaultLanguage = *updates.DefaultLanguage
	}
	return nil
}

func (m *memoryRepo) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) GetUserByID(ctx context.Context, id uint) (*db.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *memoryRepo) CreateGeneration(ctx context.Context, record *db.Generation) error {
	m.nextGenID++
	record.ID = m.nextGenID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.generations = append(m.generations, *record)
	return nil
}

func (m *memoryRepo) ListGenerations(ctx context.Context, params *dto.HistoryQuery) ([]db.Generation, *common.Meta, error) {
	var matched []db.Generation
	for i := len(m.generations) - 1; i >= 0; i-- {
		g := m.generations[i]
		if g.UserID != params.UserID {
			continue
		}
		if params.Platform != "" && g.Platform != params.Platform {
			continue
		}
		if params.Goal != "" && g.Goal != params.Goal {
			continue
		}
		matched = append(matched, g)
	}
	return matched, &common.Meta{Total: int64(len(matched)), Page: 1, PageSize: 20}, nil
}

func (m *memoryRepo) GetGeneration(ctx context.Context, id uint) (*db.Generation, error) {
	for i := range m.generations {
		if m.generations[i].ID == id {
			return &m.generations[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) DeleteGeneration(ctx context.Context, id, userID uint) (int64, error) {
	for i := range m.generations {
		if m.generations[i].ID == id && m.generations[i].UserID == userID {
			m.generations = append(m.generations[:i], m.generations[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memoryRepo) DeleteGenerationsByUser(ctx context.Context, userID uint) (int64, error) {
	var kept []db.Generation
	var removed int64
	for _, g := range m.generations {
		if g.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, g)
	}
	m.generations = kept
	return removed, nil
}

func (m *memoryRepo) CountGenerationsSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	for _, g := range m.generations {
		if g.UserID == userID && !g.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type stubGenerator struct {
	result *dto.GenerationResult
	raw    string
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, req dto.GenerationRequest) (*dto.GenerationResult, string, error) {
	return s.result, s.raw, s.err
}

func stubResult() *dto.GenerationResult {
	result := &dto.GenerationResult{
		PhotoSummary:    "A bowl of ramen on a table.",
		DetectedMood:    "happy",
		Hashtags:        []string{"#ramen"},
		WhyItWorks:      []string{"food photos perform well"},
		ContentWarnings: []string{},
	}
	for i := 0; i < dto.ExpectedCaptionCount; i++ {
		result.Captions = append(result.Captions, dto.Caption{
			Text:  fmt.Sprintf("caption %d", i),
			Style: "humorous",
			CTA:   "comment",
		})
	}
	return result
}

type testEnv struct {
	handler *HTTPHandler
	router  *gin.Engine
	repo    *memoryRepo
}

func newTestEnv(t *testing.T, generator llm.Generator) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		JWTSecret:            "test-secret",
		JWTIssuer:            "captioner-test",
		JWTExpirationMinutes: 60,
		DailyGenerationLimit: 3,
		GeminiAPIKey:         "test-key",
		StoragePublicBaseURL: "/files",
		MaxUploadBytes:       1 << 20,
	}

	repo := newMemoryRepo()
	handler, err := NewHTTPHandler(cfg, repo, nil, generator)
	if err != nil {
		t.Fatalf("unexpected error creating handler: %v", err)
	}

	router := gin.New()
	apiGroup := router.Group("/api")
	apiGroup.POST("/auth/register", handler.Register)
	apiGroup.POST("/auth/login", handler.Login)

	authed := apiGroup.Group("")
	authed.Use(handler.AuthMiddleware())
	authed.GET("/auth/me", handler.Me)
	authed.POST("/generate", handler.Generate)
	authed.GET("/quota", handler.Quota)
	authed.GET("/history", handler.ListHistory)
	authed.GET("/history/:id", handler.GetHistory)
	authed.DELETE("/history/:id", handler.DeleteHistory)
	authed.DELETE("/history", handler.ClearHistory)
	authed.GET("/settings", handler.GetSettings)
	authed.PUT("/settings", handler.UpdateSettings)

	return &testEnv{handler: handler, router: router, repo: repo}
}

func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	body, _ := json.Marshal(dto.AuthRegisterRequest{Email: email, Password: "secret-pass"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", w.Code, w.Body.String())
	}
	var resp dto.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	return resp.Token
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func validGeneratePayload() dto.GenerationRequest {
	return dto.GenerationRequest{
		ImageURL:      "https://cdn.example.com/p.jpg",
		Goal:          "go_viral",
		Platform:      "TikTok",
		Audience:      "youth",
		Language:      "English",
		CaptionLength: "short",
		EmojiLevel:    "high",
	}
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error body %q: %v", w.Body.String(), err)
	}
	return apiErr
}

func TestGenerateRequiresAuth(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	w := env.doJSON(t, http.MethodPost, "/api/generate", "", validGeneratePayload())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	token := env.registerUser(t, "val@example.com")

	missing := validGeneratePayload()
	missing.Platform = ""
	w := env.doJSON(t, http.MethodPost, "/api/generate", token, missing)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if apiErr := decodeAPIError(t, w); apiErr.Code != ErrCodeMissingField {
		t.Fatalf("expected %s, got %s", ErrCodeMissingField, apiErr.Code)
	}

	invalid := validGeneratePayload()
	invalid.Goal = "sell_everything"
	w = env.doJSON(t, http.MethodPost, "/api/generate", token, invalid)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if apiErr := decodeAPIError(t, w); apiErr.Code != ErrCodeInvalidField {
		t.Fatalf("expected %s, got %s", ErrCodeInvalidField, apiErr.Code)
	}
}

func TestGenerateSuccessAndQuota(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	token := env.registerUser(t, "gen@example.com")

	for i := 0; i < 3; i++ {
		w := env.doJSON(t, http.MethodPost, "/api/generate", token, validGeneratePayload())
		if w.Code != http.StatusOK {
			t.Fatalf("generation %d expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var resp GenerateResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if len(resp.Result.Captions) != dto.ExpectedCaptionCount {
			t.Fatalf("expected %d captions, got %d", dto.ExpectedCaptionCount, len(resp.Result.Captions))
		}
	}

	// Fourth call crosses the daily ceiling.
	w := env.doJSON(t, http.MethodPost, "/api/generate", token, validGeneratePayload())
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if apiErr := decodeAPIError(t, w); apiErr.Code != ErrCodeQuotaExceeded {
		t.Fatalf("expected %s, got %s", ErrCodeQuotaExceeded, apiErr.Code)
	}

	w = env.doJSON(t, http.MethodGet, "/api/quota", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var quota dto.QuotaResponse
	if err := json.Unmarshal(w.Body.Bytes(), &quota); err != nil {
		t.Fatalf("unmarshal quota: %v", err)
	}
	if quota.UsedToday != 3 || quota.Remaining != 0 || quota.CanGenerate {
		t.Fatalf("unexpected quota: %+v", quota)
	}
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"fetch", &llm.UpstreamFetchError{URL: "https://x/p.jpg", StatusCode: 404}, http.StatusInternalServerError, ErrCodeUpstreamFetch},
		{"generation", &llm.UpstreamGenerationError{StatusCode: 500, Body: "boom"}, http.StatusInternalServerError, ErrCodeGenerationFailed},
		{"parse", &llm.ResponseParseError{Raw: "nope", Err: errors.New("bad json")}, http.StatusInternalServerError, ErrCodeResponseParse},
		{"schema", &llm.SchemaValidationError{Raw: "{}", Reason: "expected 10 captions, got 2"}, http.StatusInternalServerError, ErrCodeSchemaInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubGenerator{err: tt.err})
			token := env.registerUser(t, tt.name+"@example.com")
			w := env.doJSON(t, http.MethodPost, "/api/generate", token, validGeneratePayload())
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			apiErr := decodeAPIError(t, w)
			if apiErr.Code != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, apiErr.Code)
			}
			if apiErr.Details != nil {
				t.Fatal("raw model output must not leak unless explicitly enabled")
			}
		})
	}
}

func TestGenerateExposesRawWhenEnabled(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: &llm.ResponseParseError{Raw: "plain text answer", Err: errors.New("bad json")}})
	env.handler.cfg.ExposeRawModelOutput = true
	token := env.registerUser(t, "raw@example.com")

	w := env.doJSON(t, http.MethodPost, "/api/generate", token, validGeneratePayload())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("plain text answer")) {
		t.Fatalf("expected raw output in details, got %s", w.Body.String())
	}
}
