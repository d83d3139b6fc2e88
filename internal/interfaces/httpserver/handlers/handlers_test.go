package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/domain/iteration"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/middlewares"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/requests"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req illustration.GenerationRequest) (*illustration.GenerationResult, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, req illustration.GenerationRequest) (*illustration.GenerationResult, error) {
	m.calls++
	return m.GenerateFunc(ctx, req)
}

type mockIterator struct {
	IterateFunc func(ctx context.Context, req iteration.Request) (*iteration.Result, error)
	calls       int
}

func (m *mockIterator) Iterate(ctx context.Context, req iteration.Request) (*iteration.Result, error) {
	m.calls++
	return m.IterateFunc(ctx, req)
}

type mockOutputs struct {
	FetchOutputFunc func(ctx context.Context, rawURL string) ([]byte, string, error)
}

func (m *mockOutputs) FetchOutput(ctx context.Context, rawURL string) ([]byte, string, error) {
	return m.FetchOutputFunc(ctx, rawURL)
}

func init() {
	gin.SetMode(gin.TestMode)
	if err := requests.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newRouter(p *Provider) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.POST("/api/generate", p.Illustration.Generate)
	r.POST("/api/iterate", p.Iteration.Iterate)
	r.GET("/api/download-image", p.Download.DownloadImage)
	r.GET("/api/catalog", p.Catalog.Titles)
	r.GET("/api/palettes", p.Catalog.Palettes)
	r.GET("/api/artists", p.Catalog.Artists)
	return r
}

func newProvider(gen Generator, it Iterator, out OutputFetcher) *Provider {
	cfg := &config.Config{MaxUploadBytes: 1 << 20}
	return NewProvider(cfg, gen, it, out, catalog.Default(), zerolog.Nop())
}

func multipartBody(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGenerate_Success(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, req illustration.GenerationRequest) (*illustration.GenerationResult, error) {
			assert.Equal(t, pngBytes, req.Image)
			assert.Equal(t, illustration.ModePintor, req.Mode)
			assert.Equal(t, "picasso", req.Artist)
			return &illustration.GenerationResult{
				ResultURL:   "https://storage/out.png",
				ResponseID:  "resp_1",
				ImageCallID: "ig_1",
				Mode:        req.Mode,
			}, nil
		},
	}
	router := newRouter(newProvider(gen, nil, nil))

	body, contentType := multipartBody(t, pngBytes, map[string]string{"mode": "pintor", "artist": "picasso"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "https://storage/out.png", out["resultUrl"])
	assert.Equal(t, "resp_1", out["responseId"])
	assert.Equal(t, "ig_1", out["imageCallId"])
	assert.Equal(t, []any{}, out["brandRefs"])
}

func TestGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		image   []byte
		fields  map[string]string
		wantErr string
	}{
		{"missing image", nil, nil, "No image uploaded"},
		{"empty image", []byte{}, nil, "No image uploaded"},
		{"invalid mode", pngBytes, map[string]string{"mode": "cubist"}, "Invalid mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{}
			router := newRouter(newProvider(gen, nil, nil))

			body, contentType := multipartBody(t, tt.image, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, tt.wantErr, out["error"])
			assert.Equal(t, "validation", out["code"])
			assert.NotEmpty(t, out["request_id"])
			assert.Zero(t, gen.calls)
		})
	}
}

func TestGenerate_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    string
	}{
		{"validation", apperrors.Validation("Invalid or missing artist for mode 'pintor'"), http.StatusBadRequest, "Invalid or missing artist for mode 'pintor'"},
		{"upstream", apperrors.Upstream("image generation failed", errors.New("rate limited")), http.StatusInternalServerError, "image generation failed: rate limited"},
		{"internal", apperrors.Internal("store image", errors.New("disk full")), http.StatusInternalServerError, "Failed to generate image"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "Failed to generate image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{
				GenerateFunc: func(ctx context.Context, req illustration.GenerationRequest) (*illustration.GenerationResult, error) {
					return nil, tt.err
				},
			}
			router := newRouter(newProvider(gen, nil, nil))

			body, contentType := multipartBody(t, pngBytes, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
		})
	}
}

func postIterate(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/iterate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIterate_RejectsBeforeCallingService(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing ids", `{"action":"scale_up"}`, "previousResponseId and imageCallId are required"},
		{"missing image call id", `{"previousResponseId":"resp_1","action":"scale_up"}`, "previousResponseId and imageCallId are required"},
		{"unknown action", `{"previousResponseId":"resp_1","imageCallId":"ig_1","action":"rotate"}`, `unknown action "rotate"`},
		{"malformed json", `{"previousResponseId":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &mockIterator{}
			router := newRouter(newProvider(nil, it, nil))

			rec := postIterate(router, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
			assert.Zero(t, it.calls)
		})
	}
}

func TestIterate_ForwardsContinuation(t *testing.T) {
	it := &mockIterator{
		IterateFunc: func(ctx context.Context, req iteration.Request) (*iteration.Result, error) {
			assert.Equal(t, iteration.Continuation{
				ResponseID:          "resp_1",
				ImageCallID:         "ig_1",
				PrevImageURL:        "https://storage/out.png",
				OriginalDescription: "a woman reading",
			}, req.Continuation)
			assert.Equal(t, iteration.ActionChat, req.Action)
			assert.Equal(t, "add a cat", req.Param)
			return &iteration.Result{ResultURL: "https://storage/out2.png", ResponseID: "resp_2", ImageCallID: "ig_2"}, nil
		},
	}
	router := newRouter(newProvider(nil, it, nil))

	rec := postIterate(router, `{
		"previousResponseId": "resp_1",
		"imageCallId": "ig_1",
		"action": "chat",
		"actionParam": "add a cat",
		"originalDescription": {"text": "a woman reading", "prevImageUrl": "https://storage/out.png"}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "resp_2", out["responseId"])
	assert.Equal(t, "ig_2", out["imageCallId"])
	assert.Equal(t, "https://storage/out2.png", out["resultUrl"])
	assert.NotContains(t, out, "suggestedTitle")
}

func TestIterate_SuggestTitle(t *testing.T) {
	it := &mockIterator{
		IterateFunc: func(ctx context.Context, req iteration.Request) (*iteration.Result, error) {
			return &iteration.Result{SuggestedTitle: "Ahorro en familia"}, nil
		},
	}
	router := newRouter(newProvider(nil, it, nil))

	rec := postIterate(router, `{"previousResponseId":"resp_1","imageCallId":"ig_1","action":"suggest_title","originalDescription":"a family"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"suggestedTitle": "Ahorro en familia"}, decode(t, rec))
}

func TestIterate_ServiceValidationIs400(t *testing.T) {
	it := &mockIterator{
		IterateFunc: func(ctx context.Context, req iteration.Request) (*iteration.Result, error) {
			return nil, apperrors.Validation("actionParam is required for add_title")
		},
	}
	router := newRouter(newProvider(nil, it, nil))

	rec := postIterate(router, `{"previousResponseId":"resp_1","imageCallId":"ig_1","action":"add_title","actionParam":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "actionParam is required for add_title", decode(t, rec)["error"])
}

func TestDownloadImage(t *testing.T) {
	const signed = "https://ilustra.s3.amazonaws.com/outputs/a.png?X-Amz-Signature=abc"

	tests := []struct {
		name       string
		query      string
		fetch      func(ctx context.Context, rawURL string) ([]byte, string, error)
		wantStatus int
		wantErr    string
	}{
		{name: "missing url", query: "", wantStatus: http.StatusBadRequest, wantErr: "Invalid or missing URL"},
		{name: "not a url", query: "?url=not-a-url", wantStatus: http.StatusBadRequest, wantErr: "Invalid or missing URL"},
		{
			name:  "foreign bucket",
			query: "?url=https://evil.example.com/a.png",
			fetch: func(ctx context.Context, rawURL string) ([]byte, string, error) {
				return nil, "", apperrors.Validation("url does not reference the outputs bucket")
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    "Invalid or missing URL",
		},
		{
			name:  "fetch failure",
			query: "?url=https://ilustra.s3.amazonaws.com/outputs/a.png",
			fetch: func(ctx context.Context, rawURL string) ([]byte, string, error) {
				return nil, "", apperrors.Upstream("fetch image", errors.New("timeout"))
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "Failed to download image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &mockOutputs{FetchOutputFunc: tt.fetch}
			router := newRouter(newProvider(nil, nil, out))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download-image"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
		})
	}

	t.Run("success", func(t *testing.T) {
		out := &mockOutputs{
			FetchOutputFunc: func(ctx context.Context, rawURL string) ([]byte, string, error) {
				assert.Equal(t, signed, rawURL)
				return pngBytes, "image/png", nil
			},
		}
		p := newProvider(nil, nil, out)
		p.Download.now = func() time.Time { return time.UnixMilli(1700000000123) }
		router := newRouter(p)

		req := httptest.NewRequest(http.MethodGet, "/api/download-image", nil)
		q := req.URL.Query()
		q.Set("url", signed)
		req.URL.RawQuery = q.Encode()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="ilustracion_ing_1700000000123.png"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, pngBytes, rec.Body.Bytes())
	})
}

func TestCatalogEndpoints(t *testing.T) {
	router := newRouter(newProvider(nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var titles struct {
		Titles []string `json:"titles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &titles))
	assert.Equal(t, catalog.Default().Titles(), titles.Titles)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/palettes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var palettes struct {
		Palettes []struct {
			Name   string   `json:"name"`
			Colors []string `json:"colors"`
			Param  string   `json:"param"`
		} `json:"palettes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &palettes))
	require.Len(t, palettes.Palettes, 4)
	assert.Equal(t, "Orange + Sky + Maroon + Blush", palettes.Palettes[0].Name)
	assert.Equal(t, "#FF6200, #89D6FD, #4D0020, #F689FD", palettes.Palettes[0].Param)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/artists", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "artists")
}
