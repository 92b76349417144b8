// Package classifier calls the item image classification endpoint.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/models"
)

// Client posts item photos to the classifier.
type Client struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

// NewClient returns a client for the endpoint at url.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}, url: url, logger: logger}
}

// Classify uploads the image as the multipart field "image".
// The endpoint answers with a list of predictions, or a single object that is treated as a list of one.
func (c *Client) Classify(ctx context.Context, filename string, r io.Reader) ([]models.ItemPrediction, error) {
	if filename == "" {
		filename = "image.jpg"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("classifier: read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier: read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.logger.Warn("Classifier returned an error", zap.Int("status", res.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("classifier: status %d", res.StatusCode)
	}
	return decodePredictions(raw)
}

func decodePredictions(raw []byte) ([]models.ItemPrediction, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []models.ItemPrediction
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("classifier: decode list: %w", err)
		}
		return list, nil
	}
	var one models.ItemPrediction
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("classifier: decode prediction: %w", err)
	}
	return []models.ItemPrediction{one}, nil
}
