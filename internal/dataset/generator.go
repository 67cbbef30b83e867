// Package dataset turns the PlantDoc annotation CSV and its image folder into a
// self-contained dataset: renamed copies of the referenced images plus a single
// labels.json listing the boxes of every copied file.
//
// A run is a single sequential pass. The output folder is replaced wholesale, so a
// dataset name must be treated as a fresh namespace, and two runs must never target
// the same folder at the same time.
package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"plantdoc/internal/model"

	"github.com/pkg/errors"
)

var (
	// ErrMissingImage is returned under MissingFail when a row names an absent image.
	ErrMissingImage = errors.New("source image not found")
	// ErrNameCollision is returned when the namer keeps producing names already in use.
	ErrNameCollision = errors.New("could not generate a unique file name")
	// ErrUnsafeOutput is returned when clearing the output folder would touch the sources.
	ErrUnsafeOutput = errors.New("unsafe output folder")
)

// maxNameAttempts bounds how often a taken name is redrawn.
const maxNameAttempts = 8

// MissingImagePolicy decides what happens to rows whose image is not on disk.
type MissingImagePolicy string

const (
	// MissingSkip drops the row silently.
	MissingSkip MissingImagePolicy = "skip"
	// MissingWarn drops the row and logs a warning.
	MissingWarn MissingImagePolicy = "warn"
	// MissingFail aborts the run.
	MissingFail MissingImagePolicy = "fail"
)

// ParseMissingImagePolicy validates a policy name.
func ParseMissingImagePolicy(s string) (MissingImagePolicy, error) {
	switch p := MissingImagePolicy(strings.ToLower(s)); p {
	case MissingSkip, MissingWarn, MissingFail:
		return p, nil
	default:
		return "", errors.Errorf("unknown missing image policy %q", s)
	}
}

// Logger is what the generator reports progress and skipped rows through.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}

// Options describe one conversion.
type Options struct {
	// ImageDir is the folder the CSV filenames are relative to.
	ImageDir string
	// LabelsPath is the annotation CSV.
	LabelsPath string
	// OutputDir is the dataset folder. It is deleted and recreated.
	OutputDir string
	// Classes selects the rows to keep. Empty keeps all rows.
	Classes ClassFilter
}

func (o Options) validate() error {
	if o.ImageDir == "" || o.LabelsPath == "" || o.OutputDir == "" {
		return errors.New("image folder, labels file and output folder are required")
	}

	out, err := filepath.Abs(o.OutputDir)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", o.OutputDir)
	}
	images, err := filepath.Abs(o.ImageDir)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", o.ImageDir)
	}
	labels, err := filepath.Abs(o.LabelsPath)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", o.LabelsPath)
	}

	if within(images, out) || within(labels, out) {
		return errors.Wrapf(ErrUnsafeOutput, "%s contains the source data", o.OutputDir)
	}
	return nil
}

// within reports whether path equals dir or lies beneath it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Result summarizes a finished conversion.
type Result struct {
	OutputDir string              `json:"output_dir"`
	Files     int                 `json:"files"`
	Boxes     int                 `json:"boxes"`
	Filtered  int                 `json:"filtered"`
	Skipped   int                 `json:"skipped"`
	Labels    []model.LabeledFile `json:"-"`
}

// Generator converts annotation CSVs into datasets.
type Generator struct {
	namer   Namer
	missing MissingImagePolicy
	logger  Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithNamer sets how copied files are named.
func WithNamer(n Namer) Option {
	return func(g *Generator) { g.namer = n }
}

// WithMissingImagePolicy sets how rows referencing absent images are handled.
func WithMissingImagePolicy(p MissingImagePolicy) Option {
	return func(g *Generator) { g.missing = p }
}

// WithLogger sets where progress and skipped rows are reported.
func WithLogger(l Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator returns a generator using random names and warning on missing images.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		namer:   RandomNamer{},
		missing: MissingWarn,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the dataset described by opts.
//
// The CSV header is checked before the output folder is cleared. A bad row found
// later aborts the run and leaves whatever was already copied in place.
func (g *Generator) Generate(opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(opts.LabelsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open annotations %s", opts.LabelsPath)
	}
	defer f.Close()

	reader, err := newAnnotationReader(f, requiredColumns...)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", opts.LabelsPath)
	}

	if err := prepareOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}

	c := &conversion{
		Generator: g,
		opts:      opts,
		copied:    make(map[string]string),
		taken:     make(map[string]struct{}),
		labels:    newLabelAccumulator(),
		result:    &Result{OutputDir: opts.OutputDir},
	}

	for record := 1; ; record++ {
		row, err := reader.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", opts.LabelsPath)
		}
		if err := c.add(row); err != nil {
			return nil, errors.Wrapf(err, "%s record %d", opts.LabelsPath, record)
		}
	}

	c.result.Labels = c.labels.files()
	c.result.Files = len(c.copied)

	if err := WriteLabels(filepath.Join(opts.OutputDir, LabelsFile), c.result.Labels); err != nil {
		return nil, err
	}

	g.logger.Info("Dataset %s: %d files, %d boxes (%d rows filtered, %d skipped)",
		opts.OutputDir, c.result.Files, c.result.Boxes, c.result.Filtered, c.result.Skipped)

	return c.result, nil
}

// conversion holds the state of one Generate call.
type conversion struct {
	*Generator
	opts   Options
	copied map[string]string
	taken  map[string]struct{}
	labels *labelAccumulator
	result *Result
}

func (c *conversion) add(row model.AnnotationRow) error {
	if !c.opts.Classes.Allows(row.Class) {
		c.result.Filtered++
		return nil
	}

	name, ok, err := c.ensureImage(row.Filename)
	if err != nil {
		return err
	}
	if !ok {
		c.result.Skipped++
		return nil
	}

	c.labels.add(name, model.BoxFromRow(row))
	c.result.Boxes++
	return nil
}

// ensureImage copies the source image on first sight and returns its generated name.
// ok is false when the image is missing and the row must be dropped.
func (c *conversion) ensureImage(original string) (name string, ok bool, err error) {
	if existing, found := c.copied[original]; found {
		return existing, true, nil
	}

	src := filepath.Join(c.opts.ImageDir, original)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return "", false, c.missingImage(original, src)
		}
		return "", false, errors.Wrapf(err, "stat %s", src)
	}

	name, err = c.uniqueName(src)
	if err != nil {
		return "", false, err
	}

	if err := copyFile(src, filepath.Join(c.opts.OutputDir, name)); err != nil {
		return "", false, err
	}

	c.copied[original] = name
	c.taken[name] = struct{}{}
	return name, true, nil
}

func (c *conversion) uniqueName(src string) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name, err := c.namer.Name(src)
		if err != nil {
			return "", err
		}
		if _, used := c.taken[name]; !used {
			return name, nil
		}
	}
	return "", errors.Wrapf(ErrNameCollision, "%s", src)
}

func (c *conversion) missingImage(original, src string) error {
	switch c.missing {
	case MissingFail:
		return errors.Wrapf(ErrMissingImage, "%s", src)
	case MissingWarn:
		c.logger.Warning("Skipping annotation for %s: %s not found", original, src)
	}
	return nil
}

// prepareOutputDir replaces dir with an empty folder.
func prepareOutputDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "clear %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s to %s", src, dst)
	}
	return errors.Wrapf(out.Close(), "close %s", dst)
}
