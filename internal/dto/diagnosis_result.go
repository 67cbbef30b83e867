package dto

import (
	"time"

	"plantdoc/internal/model"
)

// DiagnosisResult is returned for each diagnosed image and pushed to live viewers.
type DiagnosisResult struct {
	Filename   string            `json:"filename"`
	Original   string            `json:"original"`
	Source     model.Source      `json:"source"`
	Status     model.Status      `json:"status"`
	Found      []string          `json:"found"`
	Message    string            `json:"message"`
	Detections []model.Detection `json:"detections"`
	ImageURL   string            `json:"imageUrl"`
	Timestamp  time.Time         `json:"timestamp"`
}
