package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	httpTimeoutEnvKey  = "DOCANCHOR_HTTP_TIMEOUT"
	apiTokenEnvKey     = "DOCANCHOR_API_TOKEN"
	adminTokenEnvKey   = "DOCANCHOR_ADMIN_TOKEN"

	// UploadField is the multipart field carrying the document.
	UploadField = "file"
)

// Client is a simple HTTP client for the docanchor API.
type Client struct {
	baseURL    string
	http       *http.Client
	authToken  string
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, false, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, false, &resp)
	return resp, err
}

// Upload anchors a document.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (DocumentResponse, error) {
	var resp DocumentResponse
	err := c.upload(ctx, http.MethodPost, "/upload/", name, content, &resp)
	return resp, err
}

// Revoke revokes an anchored document. A refusal reported by the server in
// the body is returned as *SoftError.
func (c *Client) Revoke(ctx context.Context, name string, content io.Reader) (DocumentResponse, error) {
	var resp DocumentResponse
	if err := c.upload(ctx, http.MethodPost, "/revoke/", name, content, &resp); err != nil {
		return resp, err
	}
	if resp.Error != "" {
		return resp, &SoftError{Message: resp.Error}
	}
	return resp, nil
}

// Verify checks a document. Revoked and invalid documents are not errors;
// inspect VerifySuccess and Error.
func (c *Client) Verify(ctx context.Context, name string, content io.Reader) (VerifyResponse, error) {
	var resp VerifyResponse
	err := c.upload(ctx, http.MethodPut, "/verify/", name, content, &resp)
	return resp, err
}

func (c *Client) List(ctx context.Context) ([]DocumentSummary, error) {
	var resp []DocumentSummary
	err := c.do(ctx, http.MethodGet, "/list/", nil, nil, false, &resp)
	return resp, err
}

// History lists the records indexed for one fingerprint.
func (c *Client) History(ctx context.Context, hash string) ([]DocumentSummary, error) {
	var resp []DocumentSummary
	err := c.do(ctx, http.MethodGet, "/list/", url.Values{"hash": {hash}}, nil, false, &resp)
	return resp, err
}

// Delete removes one index row by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete/", nil, DeleteRequest{ID: id}, true, nil)
}

func (c *Client) AdminReconcile(ctx context.Context) (ReconcileResponse, error) {
	var resp ReconcileResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/reconcile", nil, nil, true, &resp)
	return resp, err
}

func (c *Client) AdminCreateTopic(ctx context.Context) (TopicResponse, error) {
	var resp TopicResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/topics", nil, nil, true, &resp)
	return resp, err
}

func (c *Client) upload(ctx context.Context, method, path, name string, content io.Reader, out any) error {
	if content == nil {
		return fmt.Errorf("content is required")
	}
	if name == "" {
		name = "document"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(UploadField, name)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, pr)
	if err != nil {
		_ = pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		_ = pr.Close()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, admin bool, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)
	if admin {
		c.setAdminHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
