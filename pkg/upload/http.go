package upload

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// relayResponse is the JSON contract of the relay endpoint
type relayResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// HTTPRelay posts files as multipart form field "file" to a remote relay
type HTTPRelay struct {
	endpoint string
	origin   string
	client   *http.Client
}

// NewHTTPRelay creates a relay client. origin is prefixed to relative URLs.
func NewHTTPRelay(endpoint, origin string, timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{
		endpoint: endpoint,
		origin:   origin,
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload streams the file to the relay
func (r *HTTPRelay) Upload(ctx context.Context, file File) (*Result, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", file.Name)
		if err == nil {
			_, err = io.Copy(part, file.Body)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	var body relayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, failure(resp.StatusCode, "%s", http.StatusText(resp.StatusCode))
		}
		return nil, failure(resp.StatusCode, "invalid relay response: %v", err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != StatusSuccess {
		msg := body.Message
		if msg == "" {
			msg = "relay rejected the file"
		}
		code := resp.StatusCode
		if code == http.StatusOK {
			code = http.StatusBadGateway
		}
		return nil, failure(code, "%s", msg)
	}
	if body.FileURL == "" {
		return nil, failure(http.StatusBadGateway, "relay returned no file url")
	}

	name := body.FileName
	if name == "" {
		name = file.Name
	}
	return &Result{
		URL:  ResolveURL(r.origin, body.FileURL),
		Name: name,
		Size: body.FileSize,
	}, nil
}
