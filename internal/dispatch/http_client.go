package dispatch

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

	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"github.com/chunkcast/chunkcast/internal/httpclient"
	"github.com/chunkcast/chunkcast/internal/logging"
	"github.com/chunkcast/chunkcast/internal/transcript"
)

// HTTPServiceClient speaks the multipart contract of §6 against an
// OpenAI/Groq-compatible audio/transcriptions endpoint.
type HTTPServiceClient struct {
	Client     *httpclient.Client
	BaseURL    string
	Credential string
}

// NewHTTPServiceClient wraps an httpclient.Client, tagging every request
// with an X-Request-Id header and installing before/after-request hooks
// that log each chunk upload and its outcome through internal/logging.
func NewHTTPServiceClient(client *httpclient.Client, baseURL, credential string) *HTTPServiceClient {
	logger := logging.Service("dispatch")
	client.SetBeforeRequestHook(func(req *http.Request) {
		if logger != nil {
			logger.Debug("submitting chunk", "request_id", req.Header.Get("X-Request-Id"), "bytes", req.ContentLength)
		}
	})
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		if logger == nil {
			return
		}
		if err != nil {
			logger.Debug("chunk submission transport error", "request_id", req.Header.Get("X-Request-Id"), "error", err)
			return
		}
		logger.Debug("chunk submission response", "request_id", req.Header.Get("X-Request-Id"), "status", resp.StatusCode)
	})

	return &HTTPServiceClient{Client: client, BaseURL: baseURL, Credential: credential}
}

func defaultRequestID() string { return uuid.NewString() }

type transcriptionResponseBody struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Language string  `json:"language"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

type errorResponseBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Submit uploads payload as a multipart file and decodes the verbose_json
// transcription response.
func (c *HTTPServiceClient) Submit(ctx context.Context, payload []byte, requestID, model, language string) (*ServiceResponse, *ServiceError) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("dispatch: create multipart file: %w", err)}
	}
	if _, err := part.Write(payload); err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("dispatch: write multipart payload: %w", err)}
	}

	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("timestamp_granularities[]", "word")
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("dispatch: close multipart writer: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, body)
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("dispatch: build request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.Credential)
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.Client.Do(ctx, req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("dispatch: read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		msg := extractErrorMessage(resp.Header.Get("Content-Type"), respBody)
		statusErr := fmt.Errorf("dispatch: service returned status %d", resp.StatusCode)
		if msg != "" {
			statusErr = fmt.Errorf("dispatch: service returned status %d: %s", resp.StatusCode, msg)
		}
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Body:       msg,
			Err:        statusErr,
		}
	}

	var parsed transcriptionResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("dispatch: decode response: %w", err)}
	}

	words := make([]transcript.Word, 0, len(parsed.Words))
	for _, w := range parsed.Words {
		words = append(words, transcript.Word{Text: w.Word, Start: w.Start, End: w.End})
	}

	return &ServiceResponse{
		Text:             parsed.Text,
		Words:            words,
		DetectedLanguage: parsed.Language,
		ReportedDuration: time.Duration(parsed.Duration * float64(time.Second)),
	}, nil
}

// extractErrorMessage prefers error.message from a JSON body; for an
// HTML body returned by an intermediary proxy on 502/503, it strips
// markup with k3a/html2text so Failure.message stays human-readable.
func extractErrorMessage(contentType string, body []byte) string {
	if strings.Contains(contentType, "html") {
		return strings.TrimSpace(html2text.HTML2Text(string(body)))
	}

	var parsed errorResponseBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}
