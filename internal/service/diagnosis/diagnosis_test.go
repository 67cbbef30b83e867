package diagnosis

import (
	"testing"

	"plantdoc/internal/model"

	"github.com/stretchr/testify/assert"
)

func detections(labels ...string) []model.Detection {
	out := make([]model.Detection, 0, len(labels))
	for _, l := range labels {
		out = append(out, model.Detection{Label: l, Confidence: 0.9})
	}
	return out
}

func TestDiagnose(t *testing.T) {
	d := NewDiagnoser(
		[]string{"Tomato leaf", "Peach leaf"},
		[]string{"Tomato leaf yellow virus", "Corn leaf blight"},
	)

	tests := []struct {
		name   string
		input  []model.Detection
		status model.Status
		found  []string
	}{
		{"healthy only", detections("Tomato leaf", "Peach leaf", "Tomato leaf"), model.StatusHealthy, []string{"Tomato leaf", "Peach leaf"}},
		{"disease wins over healthy", detections("Tomato leaf", "Corn leaf blight"), model.StatusDiseased, []string{"Corn leaf blight"}},
		{"several diseases", detections("Corn leaf blight", "Tomato leaf yellow virus", "Corn leaf blight"), model.StatusDiseased, []string{"Corn leaf blight", "Tomato leaf yellow virus"}},
		{"unknown labels", detections("Apple leaf"), model.StatusNone, []string{}},
		{"nothing detected", nil, model.StatusNone, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Diagnose(tt.input)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.found, got.Found)
			assert.NotEmpty(t, got.Message)
			for _, f := range tt.found {
				assert.Contains(t, got.Message, f)
			}
		})
	}
}

func TestDiagnose_NoPlantMessage(t *testing.T) {
	got := NewDiagnoser(nil, nil).Diagnose(detections("Tomato leaf"))
	assert.Equal(t, "No plant was found", got.Message)
}
