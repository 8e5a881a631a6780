package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datapoint/internal/core"
	"github.com/JonMunkholm/datapoint/internal/logging"
	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/tabular"
	"github.com/JonMunkholm/datapoint/internal/web/templates"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Form fields of a generation request.
const (
	fieldFile       = "file"
	fieldRows       = "num_rows"
	fieldOutputType = "output_file_type"
	fieldModel      = "model_type"
	fieldStrategy   = "fill_strategy"
)

// generateResponse is the success body of a generation request.
type generateResponse struct {
	Status   string `json:"status"`
	File     string `json:"file"`
	RunID    string `json:"runId"`
	Rows     int    `json:"rows"`
	Replaced int    `json:"replaced"`
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	formats := make([]string, len(tabular.Formats))
	for i, f := range tabular.Formats {
		formats[i] = string(f)
	}
	models := make([]string, len(model.Types))
	for i, t := range model.Types {
		models[i] = string(t)
	}

	data := templates.IndexData{
		DefaultRows:  s.cfg.Generate.DefaultRows,
		MaxRows:      s.service.MaxRows(),
		MaxFileMB:    s.cfg.Upload.MaxFileSize >> 20,
		Formats:      formats,
		Models:       models,
		DefaultModel: strings.ToLower(s.cfg.Generate.DefaultModel),
		Strategies:   []string{string(core.StrategySynthetic), string(core.StrategyObserved)},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleGenerate reads the multipart upload and runs the pipeline.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.MaxFileSize
	if r.ContentLength > limit {
		s.respondError(w, r, tooLarge(limit), http.StatusBadRequest)
		return
	}

	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, limit)}
	r.Body = body
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		// The multipart reader does not always wrap the limit error, so a
		// failure after the limit tripped is reported as too large.
		var maxErr *http.MaxBytesError
		if body.exceeded || errors.As(err, &maxErr) {
			err = tooLarge(limit)
		} else {
			err = fmt.Errorf("%w: %v", core.ErrNoFile, err)
		}
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	rows, err := parseRows(r.FormValue(fieldRows), s.cfg.Generate.DefaultRows)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req := core.GenerateRequest{
		Rows:         rows,
		OutputFormat: r.FormValue(fieldOutputType),
		Model:        r.FormValue(fieldModel),
		Strategy:     r.FormValue(fieldStrategy),
	}

	// A missing file is left to the service so the rejection is recorded.
	file, header, err := r.FormFile(fieldFile)
	switch {
	case err == nil:
		defer file.Close()
		req.FileName = header.Filename
		req.Body = file
	case !errors.Is(err, http.ErrMissingFile):
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Generate(ctx, req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Status:   "success",
		File:     res.URL,
		RunID:    res.RunID,
		Rows:     res.Rows,
		Replaced: res.Report.Replaced,
	})
}

// parseRows reads num_rows, using def when the field is absent.
func parseRows(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", core.ErrInvalidRowCount, raw)
	}
	return n, nil
}

// handleHistory lists recent generation runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)
	runs, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleHealth reports liveness and generation slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"generations": s.service.Limiter().Status(),
	})
}

// mediaHandler serves generated files. Directory listings are not exposed.
func (s *Server) mediaHandler() http.Handler {
	prefix := "/media/" + core.OutputDir + "/"
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(s.service.OutputPath())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// limitedBody records whether the wrapped http.MaxBytesReader hit its limit.
type limitedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		b.exceeded = true
	}
	return n, err
}

func tooLarge(limit int64) error {
	return fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, limit)
}
