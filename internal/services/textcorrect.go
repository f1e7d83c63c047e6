package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aidanmarr1/dt-chat-sub000/internal/config"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

// Best-effort text correction. The external service gets one short-bounded
// chance to clean up a message body; on any error, timeout or bad response
// the original text is used unchanged. Sending never blocks on this.

const correctionTimeout = 2 * time.Second

// TextCorrector corrects a message body. Implementations must respect ctx.
type TextCorrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// Corrector is the process-wide corrector, nil when disabled
var Corrector TextCorrector

// InitCorrector wires the HTTP corrector if a service URL is configured
func InitCorrector() {
	if config.AppConfig.TextCorrectionURL != "" {
		Corrector = &httpCorrector{
			url:    config.AppConfig.TextCorrectionURL,
			client: &http.Client{Timeout: correctionTimeout},
		}
	}
}

type httpCorrector struct {
	url    string
	client *http.Client
}

func (h *httpCorrector) Correct(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Corrected string `json:"corrected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Corrected, nil
}

// CorrectOrOriginal runs the corrector with a bounded timeout and falls
// back to the original text on any failure or empty result
func CorrectOrOriginal(ctx context.Context, text string) string {
	if Corrector == nil {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, correctionTimeout)
	defer cancel()

	corrected, err := Corrector.Correct(ctx, text)
	if err != nil || corrected == "" {
		if err != nil {
			logger.Debug().Err(err).Msg("Text correction skipped")
		}
		return text
	}
	return corrected
}
