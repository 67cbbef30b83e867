package repository

import (
	"plantdoc/internal/model"
)

// DiagnosisRepository defines the interface for diagnosis history operations.
type DiagnosisRepository interface {
	// Create operations
	Insert(rec *model.DiagnosisRecord) (int64, error)

	// Read operations
	GetByID(id int64) (*model.DiagnosisRecord, error)
	GetByFilename(filename string) (*model.DiagnosisRecord, error)
	GetAll(filter *model.DiagnosisFilter) ([]model.DiagnosisRecord, error)
	GetTotalCount(filter *model.DiagnosisFilter) (int, error)
	GetTotalSize() (int64, error)

	// Delete operations
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(diagnosisID int64, detections []model.Detection) error

	// Read operations
	GetByDiagnosisID(diagnosisID int64) ([]model.Detection, error)
	GetAllLabels() ([]string, error)
}
