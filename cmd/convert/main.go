// Command convert prints the class frequencies of the PlantDoc annotation CSV and
// builds a renamed, filtered copy of the dataset with a single labels.json.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"plantdoc/internal/dataset"
	"plantdoc/internal/logger"
)

type options struct {
	images    string
	labels    string
	name      string
	preset    string
	classes   string
	analyze   bool
	generate  bool
	namer     string
	onMissing string
	logDir    string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.images, "images", "TRAIN", "Directory containing the source images")
	fs.StringVar(&opts.labels, "labels", "train_labels.csv", "Annotation CSV")
	fs.StringVar(&opts.name, "name", "plantdoc-10-train", "Output dataset directory (replaced)")
	fs.StringVar(&opts.preset, "preset", "plantdoc-10", "Class preset: "+strings.Join(dataset.PresetNames(), ", "))
	fs.StringVar(&opts.classes, "classes", "", "Extra comma separated classes to keep")
	fs.BoolVar(&opts.analyze, "analyze", true, "Print the class frequency report")
	fs.BoolVar(&opts.generate, "generate", true, "Generate the dataset")
	fs.StringVar(&opts.namer, "namer", "random", "File naming: random or content")
	fs.StringVar(&opts.onMissing, "on-missing", string(dataset.MissingWarn), "Missing image policy: skip, warn or fail")
	fs.StringVar(&opts.logDir, "log-dir", "", "Also write logs to this directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func splitClasses(s string) []string {
	var classes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

func run(opts *options, stdout io.Writer, log *logger.Logger) error {
	if opts.analyze {
		counts, err := dataset.AnalyzeClasses(opts.labels)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "📊 Classes in %s:\n%s", opts.labels, counts)
	}

	if !opts.generate {
		return nil
	}

	filter, err := dataset.ClassFilterFor(opts.preset, splitClasses(opts.classes))
	if err != nil {
		return err
	}
	namer, err := dataset.NamerFor(opts.namer)
	if err != nil {
		return err
	}
	policy, err := dataset.ParseMissingImagePolicy(opts.onMissing)
	if err != nil {
		return err
	}

	generator := dataset.NewGenerator(
		dataset.WithNamer(namer),
		dataset.WithMissingImagePolicy(policy),
		dataset.WithLogger(log),
	)

	result, err := generator.Generate(dataset.Options{
		ImageDir:   opts.images,
		LabelsPath: opts.labels,
		OutputDir:  opts.name,
		Classes:    filter,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "✅ %s: %d images, %d boxes\n", result.OutputDir, result.Files, result.Boxes)
	if result.Skipped > 0 {
		fmt.Fprintf(stdout, "⚠️  Skipped %d rows with missing images\n", result.Skipped)
	}
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	log, err := logger.NewLogger(opts.logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(opts, os.Stdout, log); err != nil {
		log.Error("Conversion failed: %v", err)
		log.Close()
		os.Exit(1)
	}
}
