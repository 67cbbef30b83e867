package dataset

import (
	"encoding/csv"
	"io"
	"strings"

	"plantdoc/internal/model"

	"github.com/pkg/errors"
)

// Column names of the annotation CSV.
const (
	ColumnFilename = "filename"
	ColumnClass    = "class"
	ColumnXMin     = "xmin"
	ColumnXMax     = "xmax"
	ColumnYMin     = "ymin"
	ColumnYMax     = "ymax"
)

var requiredColumns = []string{ColumnFilename, ColumnClass, ColumnXMin, ColumnXMax, ColumnYMin, ColumnYMax}

// ErrMissingColumn is returned when the CSV header lacks a column the operation needs.
var ErrMissingColumn = errors.New("missing required column")

// annotationReader reads annotation rows from a CSV file with a header row.
// Extra columns are ignored; every record must have as many fields as the header.
type annotationReader struct {
	csv     *csv.Reader
	columns map[string]int
}

func newAnnotationReader(r io.Reader, required ...string) (*annotationReader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(ErrMissingColumn, "no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "column %q", name)
		}
	}

	return &annotationReader{csv: cr, columns: columns}, nil
}

// next returns the following row, or io.EOF once the file is exhausted.
func (a *annotationReader) next() (model.AnnotationRow, error) {
	record, err := a.csv.Read()
	if err != nil {
		return model.AnnotationRow{}, err
	}

	return model.AnnotationRow{
		Filename: a.field(record, ColumnFilename),
		Class:    a.field(record, ColumnClass),
		XMin:     a.field(record, ColumnXMin),
		XMax:     a.field(record, ColumnXMax),
		YMin:     a.field(record, ColumnYMin),
		YMax:     a.field(record, ColumnYMax),
	}, nil
}

func (a *annotationReader) field(record []string, name string) string {
	idx, ok := a.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
