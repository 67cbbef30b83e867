// Package prediction talks to the hosted prediction service: the image is uploaded
// as a source, a prediction is requested against the configured model, and the
// source is deleted again.
package prediction

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"plantdoc/internal/config"
	"plantdoc/internal/logger"
	"plantdoc/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrMalformedResponse is returned when a response lacks the expected fields.
var ErrMalformedResponse = errors.New("malformed prediction response")

// APIError is a non-2xx answer from the service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client is a prediction service client. It never retries.
type Client struct {
	http        *resty.Client
	baseURL     string
	auth        string
	model       string
	inputField  string
	outputField string
	threshold   float64
	logger      *logger.Logger
}

// NewClient builds a client from the prediction settings of cfg.
func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	baseURL := cfg.PredictionURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		http:        resty.New().SetTimeout(cfg.PredictionTimeout),
		baseURL:     baseURL,
		auth:        fmt.Sprintf("username=%s;api_key=%s", cfg.PredictionUsername, cfg.PredictionAPIKey),
		model:       cfg.PredictionModel,
		inputField:  cfg.PredictionInput,
		outputField: cfg.PredictionOutput,
		threshold:   cfg.PredictionThreshold,
		logger:      logger,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path + "?" + c.auth
}

// CreateSource uploads an image and returns the id of the created source.
func (c *Client) CreateSource(ctx context.Context, filename string, data []byte) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		Post(c.url("source"))
	if err != nil {
		return "", errors.Wrap(err, "upload source")
	}
	if resp.IsError() {
		return "", &APIError{Op: "upload source", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	source := gjson.GetBytes(resp.Body(), "resource").String()
	if source == "" {
		return "", errors.Wrap(ErrMalformedResponse, "source without resource id")
	}
	return source, nil
}

// Predict runs the model on a source and returns every region it reports.
func (c *Client) Predict(ctx context.Context, source string) ([]model.Detection, error) {
	payload := map[string]interface{}{
		"model":      c.model,
		"input_data": map[string]string{c.inputField: source},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.url("prediction"))
	if err != nil {
		return nil, errors.Wrap(err, "request prediction")
	}
	if resp.IsError() {
		return nil, &APIError{Op: "prediction", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return ParseRegions(resp.Body(), c.outputField)
}

// DeleteSource removes an uploaded source.
func (c *Client) DeleteSource(ctx context.Context, source string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(c.url(source))
	if err != nil {
		return errors.Wrapf(err, "delete %s", source)
	}
	if resp.IsError() {
		return &APIError{Op: "delete " + source, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Detect uploads the image, predicts, removes the source again and keeps the
// regions whose confidence is above the threshold. A failed cleanup is only logged.
func (c *Client) Detect(ctx context.Context, filename string, data []byte) ([]model.Detection, error) {
	source, err := c.CreateSource(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.DeleteSource(context.WithoutCancel(ctx), source); err != nil {
			c.logger.Warning("Could not remove prediction source %s: %v", source, err)
		}
	}()

	regions, err := c.Predict(ctx, source)
	if err != nil {
		return nil, err
	}
	return FilterByConfidence(regions, c.threshold), nil
}

// ParseRegions extracts the [label, xmin, ymin, xmax, ymax, confidence] arrays found
// under prediction.<field>. A missing field means nothing was found.
func ParseRegions(body []byte, field string) ([]model.Detection, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrap(ErrMalformedResponse, "invalid json")
	}

	regions := gjson.GetBytes(body, "prediction."+field)
	detections := make([]model.Detection, 0)
	if !regions.Exists() {
		return detections, nil
	}
	if !regions.IsArray() {
		return nil, errors.Wrapf(ErrMalformedResponse, "prediction.%s is not a list", field)
	}

	var parseErr error
	regions.ForEach(func(_, region gjson.Result) bool {
		values := region.Array()
		if len(values) < 6 {
			parseErr = errors.Wrapf(ErrMalformedResponse, "region %d has %d values", len(detections), len(values))
			return false
		}
		detections = append(detections, model.Detection{
			Label:      values[0].String(),
			XMin:       values[1].Float(),
			YMin:       values[2].Float(),
			XMax:       values[3].Float(),
			YMax:       values[4].Float(),
			Confidence: values[5].Float(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return detections, nil
}

// FilterByConfidence keeps detections strictly above threshold.
func FilterByConfidence(detections []model.Detection, threshold float64) []model.Detection {
	kept := make([]model.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence > threshold {
			kept = append(kept, d)
		}
	}
	return kept
}
