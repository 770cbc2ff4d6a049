// Package upload posts finished key images to the archive server.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/example/keyshot/internal/export"
)

// DefaultPath is used when no upload URL is configured.
const DefaultPath = "/api/keyimage/upload"

// DefaultTimeout bounds one upload request.
const DefaultTimeout = 30 * time.Second

// maxDetail caps how much of a plain-text error body is reported.
const maxDetail = 200

// ErrNoPayload is returned when asked to upload an empty result.
var ErrNoPayload = errors.New("nothing to upload")

// RejectedError is returned when the server answers with a non-2xx status.
// The export itself stays valid and may be sent again.
type RejectedError struct {
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	return "upload rejected: " + e.Detail
}

// Client sends key images as multipart forms.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New returns a client posting to target. A relative target, or an empty
// one, is resolved against base.
func New(base, target string, timeout time.Duration) (*Client, error) {
	if target == "" {
		target = DefaultPath
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("upload url: %w", err)
	}
	if !u.IsAbs() {
		if base == "" {
			return nil, fmt.Errorf("upload url %q is relative and no server is configured", target)
		}
		b, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("server url: %w", err)
		}
		u = b.ResolveReference(u)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{URL: u.String(), HTTP: &http.Client{Timeout: timeout}}, nil
}

// Upload posts res and returns the decoded JSON reply, if any.
func (c *Client) Upload(ctx context.Context, res *export.Result) (map[string]any, error) {
	if res == nil || len(res.Payload) == 0 {
		return nil, ErrNoPayload
	}
	body, contentType, err := encodeForm(res)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Detail: errorDetail(resp, data)}
	}
	var reply map[string]any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &reply); err != nil {
			return nil, fmt.Errorf("decode upload response: %w", err)
		}
	}
	return reply, nil
}

func encodeForm(res *export.Result) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="keyimage%s"`, res.Format.Ext()))
	h.Set("Content-Type", res.Format.MIMEType())
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(res.Payload); err != nil {
		return nil, "", err
	}
	fields := []struct{ name, value string }{
		{"study_iuid", res.Metadata.StudyID},
		{"series_iuid", res.Metadata.SeriesID},
		{"sop_iuid", res.Metadata.ImageID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// errorDetail prefers a JSON detail or message, then the start of a text
// body, then the status line.
func errorDetail(resp *http.Response, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimPrefix(resp.Status, fmt.Sprintf("%d ", resp.StatusCode)))
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Message != "":
			return payload.Message
		}
		return fallback
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}
	if r := []rune(text); len(r) > maxDetail {
		text = string(r[:maxDetail])
	}
	return text
}
