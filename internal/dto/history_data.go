// HistoryData is a paginated response payload for the diagnosis history.
package dto

type HistoryData struct {
	Items       []HistoryItem `json:"items"`
	Labels      []string      `json:"labels"`
	Size        int64         `json:"size"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
