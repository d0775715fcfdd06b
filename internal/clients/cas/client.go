package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"sbt-engine/internal/observability"
)

// FileMeta describes an upload for the pinning service.
type FileMeta struct {
	Name     string
	MimeType string
}

// Client talks to an IPFS pinning service and returns content ids.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *observability.Logger
}

func New(baseURL, apiKey string, logger *observability.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// UploadFile pins raw bytes and returns the resulting content id.
func (c *Client) UploadFile(ctx context.Context, content []byte, meta FileMeta) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", meta.Name)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(ctx, req)
}

// UploadJSON pins a JSON document and returns the resulting content id.
func (c *Client) UploadJSON(ctx context.Context, doc interface{}, meta FileMeta) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"pinataMetadata": map[string]string{"name": meta.Name},
		"pinataContent":  doc,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pin request returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode pin response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("pin response missing content id")
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "content_id", Value: parsed.IpfsHash})
	c.logger.Info(ctx, "content pinned")
	return parsed.IpfsHash, nil
}
