package render

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"strconv"
	"strings"

	"plantdoc/internal/config"
	"plantdoc/internal/model"

	"gocv.io/x/gocv"
)

const (
	lineThickness = 9
	textScale     = 1.0
	textThickness = 2
	textOffsetX   = 20
)

var (
	boxColor    = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0}
	borderColor = color.RGBA{R: 0, G: 0, B: 0, A: 0}
)

// Renderer draws prediction boxes on images.
type Renderer struct {
	width  int
	border int
	// jitter returns the vertical label offset so overlapping labels stay readable.
	jitter func() int
}

// NewRenderer creates a Renderer using the render settings of cfg.
func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		width:  cfg.RenderWidth,
		border: cfg.RenderBorder,
		jitter: func() int { return 10 + rand.IntN(31) },
	}
}

// Draw resizes the image to the configured width, outlines every detection with
// its label and confidence, frames the result with a black border and returns it
// as JPEG.
func (r *Renderer) Draw(img []byte, detections []model.Detection) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	resized := gocv.NewMat()
	defer resized.Close()

	size := ScaledSize(mat.Cols(), mat.Rows(), r.width)
	if err := gocv.Resize(mat, &resized, size, 0, 0, gocv.InterpolationArea); err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	w, h := float64(size.X), float64(size.Y)
	for _, det := range detections {
		rect := image.Rect(int(det.XMin*w), int(det.YMin*h), int(det.XMax*w), int(det.YMax*h))
		if err := gocv.Rectangle(&resized, rect, boxColor, lineThickness); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		pt := image.Pt(int(det.XMin*w)+textOffsetX, int(det.YMin*h)+r.jitter())
		if err := gocv.PutText(&resized, Caption(det), pt, gocv.FontHersheySimplex, textScale, boxColor, textThickness); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	framed := gocv.NewMat()
	defer framed.Close()

	b := r.border
	if err := gocv.CopyMakeBorder(resized, &framed, b, b, b, b, gocv.BorderConstant, borderColor); err != nil {
		return nil, fmt.Errorf("failed to add border: %w", err)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, framed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// ScaledSize keeps the aspect ratio of a cols x rows image resized to width.
func ScaledSize(cols, rows, width int) image.Point {
	if width <= 0 || cols == 0 {
		return image.Pt(cols, rows)
	}
	return image.Pt(width, int(float64(rows)*float64(width)/float64(cols)))
}

// Caption is the text drawn next to a box: the label and the first three
// characters of the confidence.
func Caption(det model.Detection) string {
	conf := strconv.FormatFloat(det.Confidence, 'f', -1, 64)
	if !strings.Contains(conf, ".") {
		conf += ".0"
	}
	if len(conf) > 3 {
		conf = conf[:3]
	}
	return fmt.Sprintf("%s: %s", det.Label, conf)
}
