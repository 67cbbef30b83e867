package diagnosis

import (
	"fmt"
	"strings"

	"plantdoc/internal/model"
)

// Diagnoser turns detections into a verdict by checking their labels against a
// list of healthy classes and a list of disease classes.
type Diagnoser struct {
	healthy map[string]struct{}
	disease map[string]struct{}
}

// NewDiagnoser builds a Diagnoser from the two class lists.
func NewDiagnoser(healthy, disease []string) *Diagnoser {
	return &Diagnoser{healthy: toSet(healthy), disease: toSet(disease)}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// Diagnose reports a disease when any disease class was detected, otherwise good
// health when any healthy class was, otherwise that no plant was found.
// Found labels keep the order in which they were first detected.
func (d *Diagnoser) Diagnose(detections []model.Detection) model.Diagnosis {
	var healthy, diseases []string
	seen := make(map[string]bool)

	for _, det := range detections {
		if seen[det.Label] {
			continue
		}
		seen[det.Label] = true

		if _, ok := d.disease[det.Label]; ok {
			diseases = append(diseases, det.Label)
		}
		if _, ok := d.healthy[det.Label]; ok {
			healthy = append(healthy, det.Label)
		}
	}

	switch {
	case len(diseases) > 0:
		return model.Diagnosis{
			Status:  model.StatusDiseased,
			Found:   diseases,
			Message: fmt.Sprintf("🦠 Your plants need a doctor! Found %s!", strings.Join(diseases, ", ")),
		}
	case len(healthy) > 0:
		return model.Diagnosis{
			Status:  model.StatusHealthy,
			Found:   healthy,
			Message: fmt.Sprintf("🪴 Your plants have good health! Found %s!", strings.Join(healthy, ", ")),
		}
	default:
		return model.Diagnosis{
			Status:  model.StatusNone,
			Found:   []string{},
			Message: "No plant was found",
		}
	}
}
