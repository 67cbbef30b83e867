package dto

import (
	"encoding/json"
	"time"

	"plantdoc/internal/model"
)

// HistoryItem is one stored diagnosis as listed in the history page.
type HistoryItem struct {
	Name      string       `json:"name"`
	Original  string       `json:"original"`
	Source    model.Source `json:"source"`
	Status    model.Status `json:"status"`
	Found     []string     `json:"found"`
	Labels    []string     `json:"labels"`
	Date      time.Time    `json:"date"`
	TimeOfDay time.Time    `json:"timeOfDay"`
}

// MarshalJSON formats date and time-of-day the way the history page shows them.
func (h HistoryItem) MarshalJSON() ([]byte, error) {
	type Alias HistoryItem
	return json.Marshal(&struct {
		Alias
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
	}{
		Alias:     (Alias)(h),
		Date:      h.Date.Format("02-01-2006"),
		TimeOfDay: h.TimeOfDay.Format("15:04"),
	})
}
