package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"captioner/internal/entity/dto"
	"captioner/internal/storage"
)

func generateOnce(t *testing.T, env *testEnv, token string) {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/generate", token, validGeneratePayload())
	if w.Code != http.StatusOK {
		t.Fatalf("generation failed: %d %s", w.Code, w.Body.String())
	}
}

func TestHistoryListAndDetail(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	token := env.registerUser(t, "hist@example.com")

	generateOnce(t, env, token)
	generateOnce(t, env, token)

	w := env.doJSON(t, http.MethodGet, "/api/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list dto.HistoryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Generations) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list.Generations))
	}
	if list.Meta == nil || list.Meta.Total != 2 {
		t.Fatalf("unexpected meta: %+v", list.Meta)
	}

	detailPath := fmt.Sprintf("/api/history/%d", list.Generations[0].ID)
	w = env.doJSON(t, http.MethodGet, detailPath, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var detail dto.HistoryDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if len(detail.Generation.Result) == 0 {
		t.Fatal("expected archived result document")
	}

	var archived dto.GenerationResult
	if err := json.Unmarshal(detail.Generation.Result, &archived); err != nil {
		t.Fatalf("archived result is not a valid document: %v", err)
	}
	if len(archived.Captions) != dto.ExpectedCaptionCount {
		t.Fatalf("expected %d archived captions, got %d", dto.ExpectedCaptionCount, len(archived.Captions))
	}
}

func TestHistoryIsScopedToOwner(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	ownerToken := env.registerUser(t, "owner@example.com")
	otherToken := env.registerUser(t, "other@example.com")

	generateOnce(t, env, ownerToken)

	// The other user sees an empty history.
	w := env.doJSON(t, http.MethodGet, "/api/history", otherToken, nil)
	var list dto.HistoryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Generations) != 0 {
		t.Fatal("history must not leak across users")
	}

	// Reading or deleting someone else's record behaves like a missing record.
	recordID := env.repo.generations[0].ID
	w = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/history/%d", recordID), otherToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign record read, got %d", w.Code)
	}
	w = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/history/%d", recordID), otherToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign record delete, got %d", w.Code)
	}
	if len(env.repo.generations) != 1 {
		t.Fatal("foreign delete must not remove the record")
	}

	// The owner can delete it.
	w = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/history/%d", recordID), ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", w.Code)
	}

	// Deleting again reports not found.
	w = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/history/%d", recordID), ownerToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeated delete, got %d", w.Code)
	}
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	token := env.registerUser(t, "clear@example.com")

	generateOnce(t, env, token)
	generateOnce(t, env, token)

	w := env.doJSON(t, http.MethodDelete, "/api/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["deleted"] != 2 {
		t.Fatalf("expected 2 deleted, got %d", resp["deleted"])
	}
	if len(env.repo.generations) != 0 {
		t.Fatal("expected empty history after clear")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	token := env.registerUser(t, "settings@example.com")

	w := env.doJSON(t, http.MethodGet, "/api/settings", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var settings dto.SettingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.DefaultLanguage != "English" {
		t.Fatalf("expected English default, got %q", settings.DefaultLanguage)
	}

	w = env.doJSON(t, http.MethodPut, "/api/settings", token, dto.SettingsUpdateRequest{DefaultLanguage: "Swahili"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = env.doJSON(t, http.MethodGet, "/api/settings", token, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.DefaultLanguage != "Swahili" {
		t.Fatalf("expected Swahili after update, got %q", settings.DefaultLanguage)
	}

	// Blank language is rejected.
	w = env.doJSON(t, http.MethodPut, "/api/settings", token, dto.SettingsUpdateRequest{DefaultLanguage: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank language, got %d", w.Code)
	}
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{result: stubResult(), raw: "{}"})
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env.handler.storage = store
	env.router.POST("/api/uploads", env.handler.AuthMiddleware(), env.handler.Upload)

	token := env.registerUser(t, "upload@example.com")

	pngBytes := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

	makeUpload := func(payload []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", "photo.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("write form file: %v", err)
		}
		writer.Close()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		env.router.ServeHTTP(w, req)
		return w
	}

	w := makeUpload(pngBytes)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp dto.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal upload response: %v", err)
	}
	if resp.Path == "" || resp.URL == "" {
		t.Fatalf("expected path and url, got %+v", resp)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(resp.Path))); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}

	// Non-image payloads are rejected regardless of file name.
	w = makeUpload([]byte("just some text pretending to be a picture"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image upload, got %d", w.Code)
	}
	if apiErr := decodeAPIError(t, w); apiErr.Code != ErrCodeUploadNotImage {
		t.Fatalf("expected %s, got %s", ErrCodeUploadNotImage, apiErr.Code)
	}
}
