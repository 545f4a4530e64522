package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
)

const openServProvider = "openserv"

// maxErrorBody caps how much of an upstream error body is mirrored back
const maxErrorBody = 64 << 10

// OpenServClient lists and downloads files of the brief workspace
type OpenServClient struct {
	apiKey      string
	workspaceID string
	baseURL     string
	client      *http.Client
}

// NewOpenServClient creates a client. Missing credentials are reported per
// call, so the server can start without them.
func NewOpenServClient(apiKey, workspaceID, baseURL string) *OpenServClient {
	if baseURL == "" {
		baseURL = "https://api.openserv.ai"
	}
	return &OpenServClient{
		apiKey:      apiKey,
		workspaceID: workspaceID,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *OpenServClient) checkConfig() error {
	if c.apiKey == "" {
		return apperrors.NewConfigurationError("OPENSERV_API_KEY")
	}
	if c.workspaceID == "" {
		return apperrors.NewConfigurationError("VITE_OPENSERV_WORKSPACE_ID")
	}
	return nil
}

// ListFiles fetches the workspace file listing
func (c *OpenServClient) ListFiles(ctx context.Context) ([]models.WorkspaceFile, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/workspaces/%s/files", c.baseURL, url.PathEscape(c.workspaceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build listing request", err)
	}
	req.Header.Set("x-openserv-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamFailureError(openServProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.NewUpstreamStatusError(openServProvider, resp.StatusCode, string(body))
	}

	var files []models.WorkspaceFile
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, apperrors.NewMalformedResponseError(openServProvider, err)
	}
	return files, nil
}

// Download opens a workspace file. The caller closes the body.
func (c *OpenServClient) Download(ctx context.Context, fileURL string) (io.ReadCloser, int64, error) {
	if err := c.checkConfig(); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build download request", err)
	}

	// Streaming a PDF can outlast the listing timeout
	client := &http.Client{Transport: c.client.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, apperrors.NewUpstreamFailureError(openServProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, 0, apperrors.NewUpstreamStatusError(openServProvider, resp.StatusCode, string(body))
	}
	return resp.Body, resp.ContentLength, nil
}
