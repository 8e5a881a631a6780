package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datapoint/internal/config"
	"github.com/JonMunkholm/datapoint/internal/core"
	"github.com/JonMunkholm/datapoint/internal/synth"
)

const peopleCSV = "id,name,gender,age\n1,Ann,Female,34\n2,Bob,Male,\n3,Cy,-,29\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 30 * time.Second, ShutdownTimeout: time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20},
		Generate: config.GenerateConfig{DefaultRows: 100, MaxRows: 1000, DefaultModel: "ctgan", MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: time.Minute},
		Storage:  config.StorageConfig{MediaRoot: "media"},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

type testEnv struct {
	srv *Server
	svc *core.Service
}

func newTestEnv(t *testing.T, cfg *config.Config, limiter *core.Limiter) *testEnv {
	t.Helper()
	svc, err := core.NewService(core.Options{
		OutputRoot:   t.TempDir(),
		MaxRows:      cfg.Generate.MaxRows,
		DefaultModel: "ctgan",
		Seed:         11,
	}, synth.NewReconciler(synth.New(11)), limiter, core.NewMemoryHistory(10))
	require.NoError(t, err)

	srv := NewServer(svc, cfg)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, svc: svc}
}

// uploadBody builds a multipart body. An empty fileName omits the file part.
func uploadBody(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, path, fileName, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := uploadBody(t, fileName, content, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="num_rows"`)
	assert.Contains(t, body, `value="100"`)
	assert.Contains(t, body, `<option value="ctgan" selected>`)
	assert.Contains(t, body, `<option value="xlsx">`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{
		"num_rows":         "6",
		"output_file_type": "csv",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp generateResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "/media/synthetic/people_cleaned_synthetic.csv", resp.File)
	assert.Equal(t, 6, resp.Rows)
	assert.NotEmpty(t, resp.RunID)

	// The returned URL serves the file.
	dl := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(dl, httptest.NewRequest(http.MethodGet, resp.File, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	lines := strings.Split(strings.TrimSpace(dl.Body.String()), "\n")
	assert.Equal(t, "id,name,gender,age", lines[0])
	assert.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[6], "6,"), lines[6])
}

func TestGenerate_AllPaths(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	for _, p := range []string{"/generate", "/generate/", "/generate/smart", "/generate/smart/"} {
		rec := env.post(t, p, "people.tsv", strings.ReplaceAll(peopleCSV, ",", "\t"), map[string]string{
			"num_rows":         "2",
			"output_file_type": "xlsx",
			"fill_strategy":    "observed",
		})
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", p, rec.Body.String())
	}
}

func TestGenerate_DefaultRows(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{"output_file_type": "tsv"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp generateResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 100, resp.Rows)
}

func TestGenerate_ClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		fields   map[string]string
		wantCode string
	}{
		{"json output", "people.csv", map[string]string{"output_file_type": "json"}, "GEN001"},
		{"missing output type", "people.csv", map[string]string{}, "GEN001"},
		{"unsupported input", "people.pdf", map[string]string{"output_file_type": "csv"}, "FILE003"},
		{"no file", "", map[string]string{"output_file_type": "csv"}, "FILE004"},
		{"bad num_rows", "people.csv", map[string]string{"output_file_type": "csv", "num_rows": "lots"}, "GEN002"},
		{"zero num_rows", "people.csv", map[string]string{"output_file_type": "csv", "num_rows": "0"}, "GEN002"},
		{"bad strategy", "people.csv", map[string]string{"output_file_type": "csv", "fill_strategy": "guess"}, "GEN003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), nil)

			rec := env.post(t, "/generate/", tt.fileName, peopleCSV, tt.fields)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Action)

			entries, err := os.ReadDir(env.svc.OutputPath())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestGenerate_EmptyFile(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := env.post(t, "/generate/", "blank.csv", "", map[string]string{"output_file_type": "csv"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "FILE005", resp.Code)
}

func TestGenerate_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 256
	env := newTestEnv(t, cfg, nil)

	big := "id,comment\n" + strings.Repeat("1,aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n", 50)
	rec := env.post(t, "/generate/", "big.csv", big, map[string]string{"output_file_type": "csv"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "FILE001", resp.Code)
}

func TestGenerate_FileTooLargeUnknownLength(t *testing.T) {
	// Limits that cut the body inside the file part's header and inside its content.
	for _, limit := range []int64{160, 400} {
		t.Run(strconv.FormatInt(limit, 10), func(t *testing.T) {
			cfg := testConfig()
			cfg.Upload.MaxFileSize = limit
			env := newTestEnv(t, cfg, nil)

			big := "id,comment\n" + strings.Repeat("1,aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n", 50)
			body, contentType := uploadBody(t, "big.csv", big, map[string]string{"output_file_type": "csv"})
			req := httptest.NewRequest(http.MethodPost, "/generate/", io.NopCloser(body))
			req.Header.Set("Content-Type", contentType)
			req.ContentLength = -1
			rec := httptest.NewRecorder()
			env.srv.Router().ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, "FILE001", resp.Code)
		})
	}
}

func TestGenerate_Busy(t *testing.T) {
	limiter := core.NewLimiter(1, 10*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	env := newTestEnv(t, testConfig(), limiter)
	rec := env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{"output_file_type": "csv"})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "UPL002", resp.Code)
}

func TestGenerate_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, GenerateLimit: 1}
	env := newTestEnv(t, cfg, nil)

	fields := map[string]string{"output_file_type": "csv", "num_rows": "3"}
	first := env.post(t, "/generate/", "people.csv", peopleCSV, fields)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := env.post(t, "/generate/", "people.csv", peopleCSV, fields)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	var resp ErrorResponse
	decodeJSON(t, second, &resp)
	assert.Equal(t, "RATE001", resp.Code)
}

func TestGenerate_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	env := newTestEnv(t, cfg, nil)

	rec := env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{"output_file_type": "csv"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The page and health check stay public.
	page := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, page.Code)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{"output_file_type": "csv", "num_rows": "4"})
	env.post(t, "/generate/", "people.csv", peopleCSV, map[string]string{"output_file_type": "json"})

	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs []core.Run `json:"runs"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, core.RunFailed, resp.Runs[0].Status)
	assert.Equal(t, core.RunSucceeded, resp.Runs[1].Status)
	assert.Equal(t, 4, resp.Runs[1].OutputRows)
	assert.Equal(t, "192.0.2.1", resp.Runs[1].IPAddress)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status      string             `json:"status"`
		Generations core.LimiterStatus `json:"generations"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, core.DefaultMaxConcurrent, resp.Generations.MaxConcurrent)
}

func TestMedia_NoListing(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/synthetic/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/synthetic/missing.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseRows(t *testing.T) {
	n, err := parseRows("", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = parseRows(" 25 ", 100)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	_, err = parseRows("2.5", 100)
	assert.ErrorIs(t, err, core.ErrInvalidRowCount)
}
