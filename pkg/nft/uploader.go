package nft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Uploader pins content and returns its content identifier
type Uploader interface {
	Add(ctx context.Context, name string, content []byte) (string, error)
}

// HTTPUploader talks to a Kubo-compatible IPFS node over its HTTP API
type HTTPUploader struct {
	apiURL string
	client *http.Client
}

// NewHTTPUploader creates an uploader against the node's API root,
// e.g. http://127.0.0.1:5001
func NewHTTPUploader(apiURL string) *HTTPUploader {
	return &HTTPUploader{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

// Add pins content via /api/v0/add and returns the CID
func (u *HTTPUploader) Add(ctx context.Context, name string, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL+"/api/v0/add?pin=true", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ipfs add returned status %d: %s", resp.StatusCode, payload)
	}

	var parsed addResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("invalid ipfs add response: %w", err)
	}
	if parsed.Hash == "" {
		return "", fmt.Errorf("ipfs add response missing hash")
	}
	return parsed.Hash, nil
}
