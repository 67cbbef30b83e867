package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plantdoc/internal/config"
	"plantdoc/internal/dto"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"
	"plantdoc/internal/repository/sqlite"
	"plantdoc/internal/service"
	"plantdoc/internal/service/diagnosis"
	"plantdoc/internal/service/prediction"
	"plantdoc/internal/service/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	detections []model.Detection
	err        error
}

func (s *stubDetector) Detect(_ context.Context, _ string, _ []byte) ([]model.Detection, error) {
	return s.detections, s.err
}

type passRenderer struct{}

func (passRenderer) Draw(img []byte, _ []model.Detection) ([]byte, error) {
	return img, nil
}

type testEnv struct {
	cfg        *config.Config
	logger     *logger.Logger
	manager    *service.Manager
	store      *storage.ResultStore
	diagnoses  *sqlite.DiagnosisRepository
	detections *sqlite.DetectionRepository
	detector   *stubDetector
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		LogDirectory:     filepath.Join(dir, "logs"),
		ImageDirectory:   filepath.Join(dir, "results"),
		ExampleDirectory: filepath.Join(dir, "img"),
		MaxUploadSize:    1 << 20,
		HealthyClasses:   config.DefaultHealthyClasses,
		DiseaseClasses:   config.DefaultDiseaseClasses,
	}
	require.NoError(t, os.MkdirAll(cfg.ExampleDirectory, 0755))

	log, err := logger.New(cfg.LogDirectory, io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	diagnoses := sqlite.NewDiagnosisRepository(db)
	detections := sqlite.NewDetectionRepository(db)
	store := storage.NewResultStore(cfg, log, diagnoses, detections)
	detector := &stubDetector{detections: []model.Detection{{Label: "Tomato leaf", Confidence: 0.9}}}
	diagnoser := diagnosis.NewDiagnoser(cfg.HealthyClasses, cfg.DiseaseClasses)

	return &testEnv{
		cfg:        cfg,
		logger:     log,
		manager:    service.NewManager(cfg, log, detector, diagnoser, passRenderer{}, store, nil),
		store:      store,
		diagnoses:  diagnoses,
		detections: detections,
		detector:   detector,
	}
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDiagnoseHandler(t *testing.T) {
	env := setupEnv(t)
	h := DiagnoseHandler(env.manager, env.cfg, env.logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "leaf.jpg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result dto.DiagnosisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.StatusHealthy, result.Status)
	assert.Equal(t, []string{"Tomato leaf"}, result.Found)
	assert.Equal(t, "leaf.jpg", result.Original)

	count, err := env.diagnoses.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDiagnoseHandler_Errors(t *testing.T) {
	env := setupEnv(t)
	h := DiagnoseHandler(env.manager, env.cfg, env.logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/diagnose", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "leaf.gif", []byte("gif")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported image type")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "big.jpg", bytes.Repeat([]byte("x"), 2<<20)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.detector.err = &prediction.APIError{Op: "create source", StatusCode: 401, Body: "unauthorized"}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "leaf.png", []byte("png")))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExampleHandlers(t *testing.T) {
	env := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.ExampleDirectory, "plant8.jpg"), []byte("jpeg"), 0644))

	rec := httptest.NewRecorder()
	ExamplesHandler(env.manager, env.logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/examples", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"examples":["plant8.jpg"]}`, rec.Body.String())

	h := DiagnoseExampleHandler(env.manager, env.logger)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/examples/diagnose?name=plant8.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/examples/diagnose?name=missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassesAndHealth(t *testing.T) {
	env := setupEnv(t)

	rec := httptest.NewRecorder()
	ClassesHandler(env.cfg, env.logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes", nil))
	var classes dto.ClassesData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &classes))
	assert.Equal(t, config.DefaultHealthyClasses, classes.Healthy)
	assert.Equal(t, config.DefaultDiseaseClasses, classes.Diseases)

	rec = httptest.NewRecorder()
	HealthHandler(env.logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHistoryHandlers(t *testing.T) {
	env := setupEnv(t)

	var names []string
	for i := 0; i < 3; i++ {
		result, err := env.manager.Diagnose(context.Background(), "leaf.jpg", model.SourceUpload, []byte("jpeg"))
		require.NoError(t, err)
		names = append(names, result.Filename)
	}

	rec := httptest.NewRecorder()
	GetHistoryHandler(env.logger, env.diagnoses, env.detections).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?page=2&limit=2&label=Tomato+leaf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []struct {
			Name   string   `json:"name"`
			Labels []string `json:"labels"`
		} `json:"items"`
		Length     int `json:"length"`
		TotalPages int `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Length)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []string{"Tomato leaf"}, page.Items[0].Labels)

	rec = httptest.NewRecorder()
	ViewResultHandler(env.store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/view?filename="+names[0], nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())

	rec = httptest.NewRecorder()
	ViewResultHandler(env.store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/view?filename=..%2Fsecret", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	DeleteResultHandler(env.store, env.logger).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history/delete?filename="+names[0], nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	count, err := env.diagnoses.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec = httptest.NewRecorder()
	ClearHistoryHandler(env.store, env.logger).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err = env.diagnoses.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLogsHandlers(t *testing.T) {
	env := setupEnv(t)
	env.logger.Info("hello from test")

	rec := httptest.NewRecorder()
	ShowLogsHandler(env.logger, logger.InfoFile).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello from test")

	rec = httptest.NewRecorder()
	ClearLogsHandler(env.logger, logger.InfoFile).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs/info/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	data, err := os.ReadFile(filepath.Join(env.cfg.LogDirectory, logger.InfoFile))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLoginHandler(t *testing.T) {
	env := setupEnv(t)
	env.cfg.Password = "secret"
	h := LoginHandler(env.cfg, env.logger)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)

	rec = httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, atoiDefault(tt.input, tt.def), tt.input)
	}
}
