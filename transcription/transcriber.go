// Package transcription calls the external speech-to-text backend. The
// backend is opaque: audio bytes in, text plus detected language out.
package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"babel-relay/contract"
)

var _ contract.ITranscriber = (*HTTPTranscriber)(nil)

type request struct {
	AudioData    string `json:"audio_data"`
	LanguageHint string `json:"language_hint,omitempty"`
}

type response struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type HTTPTranscriber struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPTranscriber(endpoint, apiKey string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, string, error) {
	payload, err := json.Marshal(request{
		AudioData:    base64.StdEncoding.EncodeToString(audio),
		LanguageHint: languageHint,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("transcription backend returned %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return out.Text, out.Language, nil
}
