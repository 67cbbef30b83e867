package dataset

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ClassCount is the number of annotation rows carrying one class label.
type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// ClassCounts maps class labels to their number of annotation rows.
type ClassCounts map[string]int

// AnalyzeClasses counts the annotation rows per class in the CSV at path.
func AnalyzeClasses(path string) (ClassCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open annotations %s", path)
	}
	defer f.Close()

	counts, err := CountClasses(f)
	if err != nil {
		return nil, errors.Wrapf(err, "analyze %s", path)
	}
	return counts, nil
}

// CountClasses counts rows per value of the class column. Only that column is required.
func CountClasses(r io.Reader) (ClassCounts, error) {
	reader, err := newAnnotationReader(r, ColumnClass)
	if err != nil {
		return nil, err
	}

	counts := make(ClassCounts)
	for {
		row, err := reader.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		counts[row.Class]++
	}
	return counts, nil
}

// Total is the number of rows counted.
func (c ClassCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Sorted lists the classes from most to least frequent, ties broken by name.
func (c ClassCounts) Sorted() []ClassCount {
	list := make([]ClassCount, 0, len(c))
	for class, n := range c {
		list = append(list, ClassCount{Class: class, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Class < list[j].Class
	})
	return list
}

// String renders the frequency report, one class per line.
func (c ClassCounts) String() string {
	var b strings.Builder
	for _, cc := range c.Sorted() {
		fmt.Fprintf(&b, "%6d  %s\n", cc.Count, cc.Class)
	}
	fmt.Fprintf(&b, "%6d  total (%d classes)\n", c.Total(), len(c))
	return b.String()
}
