package model

// AnnotationRow is one record of the annotation CSV: a single box on a named image.
// Coordinates are kept exactly as they appear in the source file.
type AnnotationRow struct {
	Filename string
	Class    string
	XMin     string
	XMax     string
	YMin     string
	YMax     string
}

// Box is a labelled bounding box as written to labels.json.
type Box struct {
	Label string `json:"label"`
	XMin  string `json:"xmin"`
	XMax  string `json:"xmax"`
	YMin  string `json:"ymin"`
	YMax  string `json:"ymax"`
}

// LabeledFile groups every box of one generated image file.
type LabeledFile struct {
	File  string `json:"file"`
	Boxes []Box  `json:"boxes"`
}

// BoxFromRow carries the row's class and coordinates into a Box unchanged.
func BoxFromRow(row AnnotationRow) Box {
	return Box{
		Label: row.Class,
		XMin:  row.XMin,
		XMax:  row.XMax,
		YMin:  row.YMin,
		YMax:  row.YMax,
	}
}
