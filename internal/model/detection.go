package model

import "time"

// Detection is one region returned by the prediction service.
// Coordinates are normalized to [0,1].
type Detection struct {
	ID          int64   `json:"id,omitempty"`
	DiagnosisID int64   `json:"diagnosis_id,omitempty"`
	Label       string  `json:"label"`
	XMin        float64 `json:"xmin"`
	YMin        float64 `json:"ymin"`
	XMax        float64 `json:"xmax"`
	YMax        float64 `json:"ymax"`
	Confidence  float64 `json:"confidence"`
}

// Status is the overall health verdict for one image.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDiseased Status = "diseased"
	StatusNone     Status = "none"
)

// Diagnosis is the verdict derived from a set of detections.
type Diagnosis struct {
	Status  Status   `json:"status"`
	Found   []string `json:"found"`
	Message string   `json:"message"`
}

// Source tells where a diagnosed image came from.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceExample Source = "example"
)

// DiagnosisRecord is a persisted diagnosis.
type DiagnosisRecord struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Original  string    `json:"original"`
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`
	Found     []string  `json:"found"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// DiagnosisFilter narrows history queries.
type DiagnosisFilter struct {
	Status Status
	Label  string
	Source Source
	Limit  int
	Offset int
}
