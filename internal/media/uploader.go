// Package media uploads agent-captured screenshots to external storage.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Credential is a one-shot write grant. UploadURL accepts a PUT of the file
// bytes; PublicURL is the durable reference recorded against the listing.
type Credential struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// Issuer hands out upload credentials.
type Issuer interface {
	IssueUploadCredential(ctx context.Context, filename, contentType string) (*Credential, error)
}

// HTTPIssuer requests credentials from the media service over HTTP.
type HTTPIssuer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPIssuer creates an issuer backed by the given endpoint.
func NewHTTPIssuer(endpoint string) *HTTPIssuer {
	return &HTTPIssuer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// IssueUploadCredential asks the media service for an upload grant.
func (i *HTTPIssuer) IssueUploadCredential(ctx context.Context, filename, contentType string) (*Credential, error) {
	body, err := json.Marshal(map[string]string{
		"filename":     filename,
		"content_type": contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request upload credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("credential request returned status %d", resp.StatusCode)
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if cred.UploadURL == "" || cred.PublicURL == "" {
		return nil, fmt.Errorf("credential response missing urls")
	}
	return &cred, nil
}

// Uploader pushes file bytes through issued credentials.
type Uploader struct {
	issuer Issuer
	client *http.Client
}

// NewUploader creates an uploader using the given issuer.
func NewUploader(issuer Issuer) *Uploader {
	return &Uploader{
		issuer: issuer,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload obtains a credential, PUTs the bytes, and returns the public URL.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	cred, err := u.issuer.IssueUploadCredential(ctx, filename, contentType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload of %s returned status %d", filename, resp.StatusCode)
	}
	return cred.PublicURL, nil
}
