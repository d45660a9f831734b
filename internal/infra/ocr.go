package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// OCRResponse is returned by the OCR sidecar (tesseract behind a small HTTP API).
type OCRResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// OCRClient sends price-board photos to the OCR sidecar. Every call goes
// through the circuit breaker.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *CircuitBreaker
}

func NewOCRClient(baseURL string, timeout time.Duration, breaker *CircuitBreaker) *OCRClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(BreakerConfig{})
	}
	return &OCRClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// Breaker exposes the breaker for health reporting.
func (c *OCRClient) Breaker() *CircuitBreaker { return c.breaker }

// ExtractText posts the image as multipart field "file" to {baseURL}/extract.
func (c *OCRClient) ExtractText(ctx context.Context, filename string, image io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("ocr: build form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("ocr: copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ocr: close form: %w", err)
	}
	body := buf.Bytes()

	var text string
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("ocr: create request: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ocr: sidecar unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ocr: sidecar returned %d", resp.StatusCode)
		}

		var result OCRResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("ocr: decode response: %w", err)
		}
		if result.Error != "" {
			return fmt.Errorf("ocr: %s", result.Error)
		}
		text = result.Text
		return nil
	})
	return text, err
}
