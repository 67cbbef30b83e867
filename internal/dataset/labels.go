package dataset

import (
	"encoding/json"
	"os"

	"plantdoc/internal/model"

	"github.com/pkg/errors"
)

// LabelsFile is the name of the label document written at the dataset root.
const LabelsFile = "labels.json"

// labelAccumulator collects boxes per generated file, remembering first-insertion order.
type labelAccumulator struct {
	order []string
	boxes map[string][]model.Box
}

func newLabelAccumulator() *labelAccumulator {
	return &labelAccumulator{boxes: make(map[string][]model.Box)}
}

func (a *labelAccumulator) add(file string, box model.Box) {
	if _, ok := a.boxes[file]; !ok {
		a.order = append(a.order, file)
	}
	a.boxes[file] = append(a.boxes[file], box)
}

func (a *labelAccumulator) files() []model.LabeledFile {
	files := make([]model.LabeledFile, 0, len(a.order))
	for _, name := range a.order {
		files = append(files, model.LabeledFile{File: name, Boxes: a.boxes[name]})
	}
	return files
}

// WriteLabels stores files as a JSON array at path.
func WriteLabels(path string, files []model.LabeledFile) error {
	if files == nil {
		files = []model.LabeledFile{}
	}

	data, err := json.Marshal(files)
	if err != nil {
		return errors.Wrap(err, "encode labels")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadLabels loads a label document written by WriteLabels.
func ReadLabels(path string) ([]model.LabeledFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var files []model.LabeledFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return files, nil
}
