package dto

// ClassesData lists the labels the model can recognise, split by verdict.
type ClassesData struct {
	Healthy  []string `json:"healthy"`
	Diseases []string `json:"diseases"`
}
