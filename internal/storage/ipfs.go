package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bebranft/creator-market/internal/apperr"
)

// IPFSStore talks to an IPFS node over its HTTP API.
type IPFSStore struct {
	apiURL     string
	httpClient *http.Client
}

// addResponse is the node's answer to /api/v0/add
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// NewIPFSStore creates a content store backed by the IPFS HTTP API at apiURL
// (e.g. http://localhost:5001).
func NewIPFSStore(apiURL string) *IPFSStore {
	return &IPFSStore{
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Put pins the payload and returns its content identifier. The CID is
// computed locally; a disagreement with the node is logged but the node's
// answer wins, since the node is what serves the content back.
func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	localCID, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "blob")
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	endpoint := s.apiURL + "/api/v0/add?pin=true&cid-version=1&raw-leaves=true"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorageUnavailable, err, "content upload failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorageUnavailable, err, "failed to read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.KindStorageUnavailable, "upload rejected: status %d: %s", resp.StatusCode, respBody)
	}

	var added addResponse
	if err := json.Unmarshal(respBody, &added); err != nil {
		return "", apperr.Wrap(apperr.KindStorageUnavailable, err, "failed to decode upload response")
	}
	if added.Hash == "" {
		return "", apperr.New(apperr.KindStorageUnavailable, "upload response missing hash")
	}

	if added.Hash != localCID {
		log.Printf("Warning: node CID %s differs from locally computed %s", added.Hash, localCID)
	}
	return added.Hash, nil
}

// Get fetches a payload by its content identifier.
func (s *IPFSStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	if !ValidCID(contentID) {
		return nil, apperr.New(apperr.KindInvalidArgument, "malformed content identifier %q", contentID)
	}

	endpoint := s.apiURL + "/api/v0/cat?arg=" + url.QueryEscape(contentID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "content fetch failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "failed to read content")
	}
	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(respBody), "not found") || strings.Contains(string(respBody), "no link") {
			return nil, apperr.New(apperr.KindNotFound, "content %s not found", contentID)
		}
		return nil, apperr.New(apperr.KindStorageUnavailable, "fetch rejected: status %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}

// Unpin removes the pin for a content identifier. An already-absent pin is
// treated as success.
func (s *IPFSStore) Unpin(ctx context.Context, contentID string) error {
	if !ValidCID(contentID) {
		return apperr.New(apperr.KindInvalidArgument, "malformed content identifier %q", contentID)
	}

	endpoint := s.apiURL + "/api/v0/pin/rm?arg=" + url.QueryEscape(contentID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "unpin failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "failed to read unpin response")
	}
	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(respBody), "not pinned") {
			return nil
		}
		return apperr.New(apperr.KindStorageUnavailable, "unpin rejected: status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
