package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/make-video-api/internal/video"
)

// mockRenderer implements Renderer for testing.
type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, req video.Request) (*video.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*video.Result), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, opts ...HandlerOption) (http.Handler, *mockRenderer) {
	t.Helper()
	renderer := &mockRenderer{}
	opts = append([]HandlerOption{WithRequestIDGenerator(func() string { return "req-test" })}, opts...)
	h := NewHandlers(renderer, testLogger(), opts...)
	return NewRouter(h, testLogger(), DefaultConfig()), renderer
}

func postJSON(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/make-video", reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func assertCORSHeaders(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMakeVideo_Options(t *testing.T) {
	router, renderer := newTestRouter(t)

	for _, body := range []string{"", "garbage", `{"imageUrl":"x"}`} {
		req := httptest.NewRequest(http.MethodOptions, "/api/make-video", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assertCORSHeaders(t, rec)
	}

	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestMakeVideo_OptionsWithoutMiddleware(t *testing.T) {
	h := NewHandlers(&mockRenderer{}, testLogger())

	rec := httptest.NewRecorder()
	h.MakeVideo(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORSHeaders(t, rec)
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}

func TestMakeVideo_MethodNotAllowed(t *testing.T) {
	router, renderer := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/make-video", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "Method not allowed", decodeError(t, rec).Error)
			assertCORSHeaders(t, rec)
		})
	}

	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestMakeVideo_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing image", map[string]any{"audioUrl": "https://x/a.mp3"}},
		{"missing audio", map[string]any{"imageUrl": "https://x/i.jpg"}},
		{"empty strings", map[string]any{"imageUrl": "", "audioUrl": ""}},
		{"empty object", map[string]any{}},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, renderer := newTestRouter(t)

			rec := postJSON(t, router, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "Missing required fields: imageUrl and audioUrl are required", resp.Error)
			assert.Empty(t, resp.Details)
			renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
		})
	}
}

func TestMakeVideo_BlankURLRejectedByService(t *testing.T) {
	router, renderer := newTestRouter(t)
	renderer.On("Render", mock.Anything, mock.Anything).Return(nil, video.ErrInvalidRequest)

	rec := postJSON(t, router, map[string]any{"imageUrl": "  ", "audioUrl": "https://x/a.mp3"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: imageUrl and audioUrl are required", decodeError(t, rec).Error)
}

func TestMakeVideo_InvalidJSON(t *testing.T) {
	router, renderer := newTestRouter(t)

	rec := postJSON(t, router, "invalid json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeError(t, rec).Error)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestMakeVideo_BodyTooLarge(t *testing.T) {
	router, renderer := newTestRouter(t, WithMaxBodyBytes(64))

	big := fmt.Sprintf(`{"imageUrl":"https://x/%s","audioUrl":"https://x/a.mp3"}`, strings.Repeat("a", 200))
	rec := postJSON(t, router, big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", decodeError(t, rec).Error)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestMakeVideo_Success(t *testing.T) {
	router, renderer := newTestRouter(t)

	data := []byte("\x00\x00\x00\x20ftypisom-fake-video")
	renderer.On("Render", mock.Anything, video.Request{
		ID:          "req-test",
		ImageURL:    "https://cdn.example/meme.jpg",
		AudioURL:    "https://cdn.example/track.mp3",
		Duration:    12,
		CompanyName: "Acme",
		Day:         5,
	}).Return(&video.Result{
		RequestID:   "req-1",
		Filename:    "Acme_meme_day5.mp4",
		ContentType: "video/mp4",
		Data:        data,
	}, nil)

	rec := postJSON(t, router, map[string]any{
		"imageUrl":    "https://cdn.example/meme.jpg",
		"audioUrl":    "https://cdn.example/track.mp3",
		"duration":    12,
		"companyName": "Acme",
		"day":         5,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Acme_meme_day5.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, fmt.Sprint(len(data)), rec.Header().Get("Content-Length"))
	assert.Equal(t, "req-test", rec.Header().Get("X-Request-ID"))
	assert.Empty(t, rec.Header().Get("X-Video-URL"))
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, len(rec.Body.Bytes()), len(data))
	assertCORSHeaders(t, rec)

	renderer.AssertExpectations(t)
}

func TestMakeVideo_DefaultsPassThrough(t *testing.T) {
	router, renderer := newTestRouter(t)

	// Defaults are applied by the service; the handler forwards zero values.
	renderer.On("Render", mock.Anything, video.Request{
		ID:       "req-test",
		ImageURL: "https://cdn.example/meme.jpg",
		AudioURL: "https://cdn.example/track.mp3",
	}).Return(&video.Result{
		RequestID:   "req-2",
		Filename:    "Company_meme_day1.mp4",
		ContentType: "video/mp4",
		Data:        []byte("video"),
		ArchiveURL:  "https://bucket.s3.us-east-1.amazonaws.com/req-2/Company_meme_day1.mp4",
	}, nil)

	rec := postJSON(t, router, map[string]any{
		"imageUrl": "https://cdn.example/meme.jpg",
		"audioUrl": "https://cdn.example/track.mp3",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Company_meme_day1.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/req-2/Company_meme_day1.mp4", rec.Header().Get("X-Video-URL"))
	renderer.AssertExpectations(t)
}

func TestMakeVideo_RenderFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"download failed", fmt.Errorf("%w: audio: fetch: unexpected status: https://x/a.mp3 returned 404", video.ErrDownloadFailed)},
		{"encode failed", fmt.Errorf("%w: ffmpeg error: exit status 1: Conversion failed!", video.ErrEncodeFailed)},
		{"other", errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, renderer := newTestRouter(t)
			renderer.On("Render", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := postJSON(t, router, map[string]any{
				"imageUrl": "https://x/i.jpg",
				"audioUrl": "https://x/a.mp3",
			})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, "req-test", rec.Header().Get("X-Request-ID"))

			resp := decodeError(t, rec)
			assert.Equal(t, "Failed to generate video", resp.Error)
			assert.Equal(t, tt.err.Error(), resp.Details)
		})
	}
}

func TestMakeVideo_RequestIDOnEveryPostResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		renderErr  error
		wantStatus int
	}{
		{"missing fields", map[string]any{}, nil, http.StatusBadRequest},
		{"invalid json", "{", nil, http.StatusBadRequest},
		{"encode failure", map[string]any{"imageUrl": "https://x/i.jpg", "audioUrl": "https://x/a.mp3"}, video.ErrEncodeFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, renderer := newTestRouter(t)
			if tt.renderErr != nil {
				renderer.On("Render", mock.Anything, mock.MatchedBy(func(r video.Request) bool {
					return r.ID == "req-test"
				})).Return(nil, tt.renderErr)
			}

			rec := postJSON(t, router, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "req-test", rec.Header().Get("X-Request-ID"))
			renderer.AssertExpectations(t)
		})
	}
}

func TestMakeVideo_GeneratesRequestID(t *testing.T) {
	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, mock.Anything).Return(nil, video.ErrDownloadFailed)
	router := NewRouter(NewHandlers(renderer, testLogger()), testLogger(), DefaultConfig())

	rec := postJSON(t, router, map[string]any{"imageUrl": "https://x/i.jpg", "audioUrl": "https://x/a.mp3"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	reqID := rec.Header().Get("X-Request-ID")
	assert.True(t, strings.HasPrefix(reqID, "req-"), reqID)

	sent := renderer.Calls[0].Arguments.Get(1).(video.Request)
	assert.Equal(t, reqID, sent.ID)
}

func TestAttachment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Company_meme_day1.mp4", `attachment; filename="Company_meme_day1.mp4"`},
		{`Say "Hi"_meme_day2.mp4`, `attachment; filename="Say \"Hi\"_meme_day2.mp4"`},
		{"Bad\r\nHeader_meme_day1.mp4", `attachment; filename="BadHeader_meme_day1.mp4"`},
		{`back\slash_meme_day1.mp4`, `attachment; filename="back\\slash_meme_day1.mp4"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, attachment(tt.in))
		})
	}
}
