package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
)

const (
	pingTimeout     = 5 * time.Second
	defaultEndpoint = "https://storage.googleapis.com"
)

// Client talks to the Cloud Storage JSON API for the voucher and minutes buckets.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	buckets     []string
	tokenSource *tokenSource
}

// NewClient builds a JSON API client for the configured document buckets and verifies access to each.
func NewClient(ctx context.Context, cfg config.StorageConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.VouchersBucket == "" || cfg.MinutesBucket == "" {
		return nil, errors.New("gcs voucher and minutes buckets are required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	var ts *tokenSource
	var err error
	switch {
	case gcp.CredentialsJSON != "":
		ts, err = newServiceAccountTokenSource(httpClient, gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		bytes, readErr := os.ReadFile(gcp.ApplicationCredentials)
		if readErr != nil {
			return nil, fmt.Errorf("reading credentials file: %w", readErr)
		}
		ts, err = newServiceAccountTokenSource(httpClient, string(bytes))
	default:
		ts = newMetadataTokenSource(httpClient, metadataEndpoint)
	}
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:  httpClient,
		endpoint:    defaultEndpoint,
		buckets:     []string{cfg.VouchersBucket, cfg.MinutesBucket},
		tokenSource: ts,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) Close() error {
	return nil
}

// Ping lists at most one object from every configured bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if len(c.buckets) == 0 {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	for _, bucket := range c.buckets {
		u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.endpoint, url.PathEscape(bucket))
		resp, err := c.do(ctx, http.MethodGet, u, "", nil)
		if err != nil {
			return err
		}
		err = checkStatus(resp, "gcs object check failed", http.StatusOK)
		_ = resp.Body.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// UploadObject writes data to bucket/object with a simple media upload, replacing any existing object.
func (c *Client) UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" || object == "" {
		return errors.New("gcs bucket and object are required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.endpoint, url.PathEscape(bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, contentType, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("uploading %s/%s: %w", bucket, object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return checkStatus(resp, fmt.Sprintf("gcs upload of %s/%s failed", bucket, object), http.StatusOK, http.StatusCreated)
}

// DeleteObject removes bucket/object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.endpoint, url.PathEscape(bucket), url.PathEscape(object))

	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", bucket, object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return checkStatus(resp, fmt.Sprintf("gcs delete of %s/%s failed", bucket, object), http.StatusOK, http.StatusNoContent)
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func checkStatus(resp *http.Response, msg string, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("%s: %s: %s", msg, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("%s: %s", msg, resp.Status)
}
