package service

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"plantdoc/internal/config"
	"plantdoc/internal/dto"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"
	"plantdoc/internal/service/diagnosis"
	"plantdoc/internal/service/storage"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedImage is returned for files that are not png, jpg or jpeg.
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrEmptyImage is returned for zero-length uploads.
	ErrEmptyImage = errors.New("empty image")
	// ErrExampleNotFound is returned when a bundled example does not exist.
	ErrExampleNotFound = errors.New("example not found")
)

// imageExtensions are the upload types the server accepts.
var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Detector finds plant regions in an image.
type Detector interface {
	Detect(ctx context.Context, filename string, data []byte) ([]model.Detection, error)
}

// Renderer draws detections onto an image.
type Renderer interface {
	Draw(img []byte, detections []model.Detection) ([]byte, error)
}

// ResultStore persists rendered diagnoses.
type ResultStore interface {
	Save(res storage.Result) (*model.DiagnosisRecord, error)
}

// Broadcaster pushes new diagnoses to live viewers.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

// Manager runs one image through detection, diagnosis, rendering and storage.
type Manager struct {
	detector    Detector
	diagnoser   *diagnosis.Diagnoser
	renderer    Renderer
	store       ResultStore
	broadcaster Broadcaster
	examplesDir string
	logger      *logger.Logger
}

// NewManager wires the diagnosis pipeline.
func NewManager(cfg *config.Config, logger *logger.Logger, detector Detector, diagnoser *diagnosis.Diagnoser,
	renderer Renderer, store ResultStore, broadcaster Broadcaster) *Manager {
	return &Manager{
		detector:    detector,
		diagnoser:   diagnoser,
		renderer:    renderer,
		store:       store,
		broadcaster: broadcaster,
		examplesDir: cfg.ExampleDirectory,
		logger:      logger,
	}
}

// IsSupportedImage reports whether name has an accepted image extension.
func IsSupportedImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Diagnose detects plants in data, stores the rendered result and notifies viewers.
func (m *Manager) Diagnose(ctx context.Context, filename string, source model.Source, data []byte) (*dto.DiagnosisResult, error) {
	if !IsSupportedImage(filename) {
		return nil, errors.Wrapf(ErrUnsupportedImage, "%s", filename)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrEmptyImage, "%s", filename)
	}

	detections, err := m.detector.Detect(ctx, filename, data)
	if err != nil {
		return nil, errors.Wrapf(err, "detect %s", filename)
	}

	verdict := m.diagnoser.Diagnose(detections)
	m.logger.Info("🌱 %s: %s (%d regions)", filename, verdict.Status, len(detections))

	rendered, err := m.renderer.Draw(data, detections)
	if err != nil {
		return nil, errors.Wrapf(err, "render %s", filename)
	}

	rec, err := m.store.Save(storage.Result{
		Original:   filename,
		Source:     source,
		Diagnosis:  verdict,
		Detections: detections,
		Image:      rendered,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store %s", filename)
	}

	result := &dto.DiagnosisResult{
		Filename:   rec.Filename,
		Original:   filename,
		Source:     source,
		Status:     verdict.Status,
		Found:      verdict.Found,
		Message:    verdict.Message,
		Detections: detections,
		ImageURL:   "/api/history/view?filename=" + url.QueryEscape(rec.Filename),
		Timestamp:  rec.Timestamp,
	}

	if m.broadcaster != nil {
		if err := m.broadcaster.BroadcastJSON(result); err != nil {
			m.logger.Warning("Failed to broadcast %s: %v", rec.Filename, err)
		}
	}

	return result, nil
}

// Examples lists the bundled example images by file name.
func (m *Manager) Examples() ([]string, error) {
	entries, err := os.ReadDir(m.examplesDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", m.examplesDir)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// DiagnoseExample diagnoses one of the bundled example images.
func (m *Manager) DiagnoseExample(ctx context.Context, name string) (*dto.DiagnosisResult, error) {
	if name == "" || name != filepath.Base(name) || !IsSupportedImage(name) {
		return nil, errors.Wrapf(ErrExampleNotFound, "%q", name)
	}

	data, err := os.ReadFile(filepath.Join(m.examplesDir, name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrExampleNotFound, "%q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read example %s", name)
	}

	return m.Diagnose(ctx, name, model.SourceExample, data)
}
