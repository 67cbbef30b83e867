package dataset

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownPreset is returned for a class preset name that is not registered.
var ErrUnknownPreset = errors.New("unknown class preset")

// Presets are the PlantDoc class selections the converter knows by name.
// An empty list selects every class.
var Presets = map[string][]string{
	"plantdoc": {},
	"plantdoc-healthy": {
		"Blueberry leaf", "Peach leaf", "Raspberry leaf", "Strawberry leaf",
		"Tomato leaf", "Bell_pepper leaf", "Soyabean leaf", "Apple leaf",
		"Cherry leaf", "grape leaf", "Potato leaf",
	},
	"plantdoc-healthy-5": {
		"Blueberry leaf", "Peach leaf", "Raspberry leaf", "Strawberry leaf", "Tomato leaf",
	},
	"plantdoc-10": {
		"Blueberry leaf", "Tomato leaf yellow virus", "Peach leaf", "Raspberry leaf",
		"Strawberry leaf", "Tomato Septoria leaf spot", "Tomato leaf", "Corn leaf blight",
		"Potato leaf early blight", "Bell_pepper leaf",
	},
	"plantdoc-tomato": {
		"Tomato leaf yellow virus", "Tomato Septoria leaf spot", "Tomato leaf", "Tomato mold leaf",
		"Tomato leaf bacterial spot", "Tomato leaf mosaic virus", "Tomato leaf late blight",
		"Tomato Early blight leaf", "Tomato two spotted spider mites leaf",
	},
}

// PresetNames returns the registered preset names in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassFilter is the set of classes admitted into a dataset.
// The empty filter admits everything.
type ClassFilter map[string]struct{}

// NewClassFilter builds a filter from a list of class labels.
func NewClassFilter(classes ...string) ClassFilter {
	filter := make(ClassFilter, len(classes))
	for _, class := range classes {
		filter[class] = struct{}{}
	}
	return filter
}

// ClassFilterFor combines a named preset with extra class labels.
// An empty preset name means no preset.
func ClassFilterFor(preset string, extra []string) (ClassFilter, error) {
	var classes []string
	if preset != "" {
		list, ok := Presets[preset]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownPreset, "%q", preset)
		}
		classes = append(classes, list...)
	}
	classes = append(classes, extra...)
	return NewClassFilter(classes...), nil
}

// Allows reports whether rows labelled with class belong in the dataset.
func (f ClassFilter) Allows(class string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[class]
	return ok
}

// Classes returns the filter members sorted alphabetically.
func (f ClassFilter) Classes() []string {
	classes := make([]string, 0, len(f))
	for class := range f {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
