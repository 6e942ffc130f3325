package backend

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
	"strings"
	"time"

	"go.uber.org/zap"

	"ragdesk/internal/console"
)

const (
	chatPath   = "/api/chat"
	uploadPath = "/api/admin-process-uploads"
	infoPath   = "/api/info"

	uploadField     = "files"
	maxResponseBody = 4 << 20
	maxErrorSnippet = 512
)

// Client talks to the inference and indexing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Chat asks one question and returns the answer text.
func (c *Client) Chat(ctx context.Context, question string) (string, error) {
	bodyBytes, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", fmt.Errorf("marshal chat request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build chat request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, "chat")
	if err != nil {
		return "", err
	}

	var parsed struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &DecodeError{Op: "chat", Err: err}
	}
	if parsed.Answer == nil {
		return "", &DecodeError{Op: "chat", Err: errors.New("missing answer")}
	}
	return *parsed.Answer, nil
}

// UploadBatch sends every file as a repeated "files" part of one multipart
// request.
func (c *Client) UploadBatch(ctx context.Context, files []console.File) (console.IngestionSummary, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreatePart(filePartHeader(f))
		if err != nil {
			return console.IngestionSummary{}, fmt.Errorf("create upload part failed: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return console.IngestionSummary{}, fmt.Errorf("write upload part failed: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return console.IngestionSummary{}, fmt.Errorf("close upload body failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return console.IngestionSummary{}, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.do(req, "upload")
	if err != nil {
		return console.IngestionSummary{}, err
	}

	var parsed struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		AddedChunks *int   `json:"added_chunks"`
		TotalDocs   int    `json:"total_docs"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return console.IngestionSummary{}, &DecodeError{Op: "upload", Err: err}
	}
	// The indexing API answers 200 with status "error" when nothing could be
	// extracted from the batch.
	if parsed.Status == "error" {
		return console.IngestionSummary{}, &StatusError{Op: "upload", StatusCode: http.StatusOK, Body: parsed.Message}
	}
	if parsed.AddedChunks == nil || *parsed.AddedChunks < 0 {
		return console.IngestionSummary{}, &DecodeError{Op: "upload", Err: errors.New("missing or negative added_chunks")}
	}
	return console.IngestionSummary{AddedChunks: *parsed.AddedChunks, TotalDocs: parsed.TotalDocs}, nil
}

// Info returns the free-form index status.
func (c *Client) Info(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+infoPath, nil)
	if err != nil {
		return "", fmt.Errorf("build info request failed: %w", err)
	}

	raw, err := c.do(req, "info")
	if err != nil {
		return "", err
	}

	var parsed struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &DecodeError{Op: "info", Err: err}
	}
	if parsed.Status == nil {
		return "", &DecodeError{Op: "info", Err: errors.New("missing status")}
	}
	return *parsed.Status, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &DecodeError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: snippet(raw)}
	}
	return raw, nil
}

func filePartHeader(f console.File) textproto.MIMEHeader {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, escapeQuotes(f.Name)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet]
	}
	return s
}
