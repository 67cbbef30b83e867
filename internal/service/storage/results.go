package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"plantdoc/internal/config"
	"plantdoc/internal/dataset"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"
	"plantdoc/internal/repository"
)

// timestampLayout prefixes stored result names so a directory listing sorts by time.
const timestampLayout = "2006-01-02_15-04-05.000"

// Result is one rendered diagnosis waiting to be stored.
type Result struct {
	Original   string
	Source     model.Source
	Diagnosis  model.Diagnosis
	Detections []model.Detection
	Image      []byte
}

// ResultStore writes rendered results to the image directory and records them in the history.
type ResultStore struct {
	imagesDir     string
	namer         dataset.Namer
	now           func() time.Time
	mu            sync.Mutex
	logger        *logger.Logger
	diagnosisRepo repository.DiagnosisRepository
	detectionRepo repository.DetectionRepository
}

// NewResultStore creates a ResultStore rooted at the configured image directory.
func NewResultStore(config *config.Config, logger *logger.Logger, diagnosisRepo repository.DiagnosisRepository, detectionRepo repository.DetectionRepository) *ResultStore {
	return &ResultStore{
		imagesDir:     config.ImageDirectory,
		namer:         dataset.RandomNamer{},
		now:           time.Now,
		logger:        logger,
		diagnosisRepo: diagnosisRepo,
		detectionRepo: detectionRepo,
	}
}

// Dir returns the folder results are written to.
func (s *ResultStore) Dir() string {
	return s.imagesDir
}

// Save writes the rendered image and inserts its diagnosis and detections.
// The file is removed again when the database insert fails.
func (s *ResultStore) Save(res Result) (*model.DiagnosisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	ts := s.now()
	suffix, err := s.namer.Name(".jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to name result: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s", ts.Format(timestampLayout), res.Diagnosis.Status, suffix)
	fullpath := filepath.Join(s.imagesDir, filename)

	if err := os.WriteFile(fullpath, res.Image, 0644); err != nil {
		return nil, fmt.Errorf("failed to save image %s: %w", filename, err)
	}

	found := res.Diagnosis.Found
	if found == nil {
		found = []string{}
	}

	rec := &model.DiagnosisRecord{
		Filename:  filename,
		Original:  res.Original,
		Source:    res.Source,
		Status:    res.Diagnosis.Status,
		Found:     found,
		Timestamp: ts,
		FilePath:  fullpath,
		FileSize:  int64(len(res.Image)),
	}

	id, err := s.diagnosisRepo.Insert(rec)
	if err != nil {
		os.Remove(fullpath)
		return nil, fmt.Errorf("failed to save diagnosis %s: %w", filename, err)
	}
	rec.ID = id

	if err := s.detectionRepo.InsertBatch(id, res.Detections); err != nil {
		s.logger.Error("Error saving detections for %s: %v", filename, err)
	}

	s.logger.Info("Saved diagnosis %s (%s, %d regions)", filename, rec.Status, len(res.Detections))
	return rec, nil
}

// Path resolves a stored result name inside the image directory.
// Names that would escape the directory are rejected.
func (s *ResultStore) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	return filepath.Join(s.imagesDir, filename), nil
}

// Delete removes one result from disk and history.
func (s *ResultStore) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file %s: %v", path, err)
	}

	if err := s.diagnosisRepo.DeleteByFilename(filename); err != nil {
		return fmt.Errorf("failed to delete diagnosis %s: %w", filename, err)
	}

	s.logger.Info("Deleted diagnosis: %s", filename)
	return nil
}

// Clear removes every stored result and empties the history.
func (s *ResultStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.imagesDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read results directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.imagesDir, file.Name())); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
		}
	}

	if err := s.diagnosisRepo.DeleteAll(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	s.logger.Info("All results cleared from directory: %s", s.imagesDir)
	return nil
}
