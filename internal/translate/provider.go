package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/pkg/logger"
)

// Provider translates a single text fragment into the target language.
type Provider interface {
	Translate(ctx context.Context, lang, text string) (string, error)
}

// NewProvider builds the provider named in the configuration. The "off"
// provider returns nil; callers treat a nil provider as translation
// disabled.
func NewProvider(cfg config.TranslateConfig, log *logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case "off", "":
		return nil, nil
	case "http":
		return newHTTPProvider(cfg, log), nil
	case "anthropic":
		return newAnthropicProvider(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown translate provider %q", cfg.Provider)
	}
}

// httpProvider posts text to a generic translation endpoint that speaks
// {"text": ..., "target_lang": ...} in and {"text": ...} out.
type httpProvider struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

func newHTTPProvider(cfg config.TranslateConfig, log *logger.Logger) *httpProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &httpProvider{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log.WithComponent("translate"),
	}
}

func (p *httpProvider) Translate(ctx context.Context, lang, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"text":        text,
		"target_lang": lang,
	})
	if err != nil {
		return "", fmt.Errorf("encoding translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return "", fmt.Errorf("translate endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding translate response: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("translate endpoint returned empty text")
	}
	return out.Text, nil
}

// anthropicProvider wraps the Anthropic SDK for translation.
type anthropicProvider struct {
	client anthropic.Client
	model  string
	log    *logger.Logger
}

func newAnthropicProvider(cfg config.TranslateConfig, log *logger.Logger) *anthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)
	return &anthropicProvider{
		client: client,
		model:  cfg.Model,
		log:    log.WithComponent("translate"),
	}
}

func (p *anthropicProvider) Translate(ctx context.Context, lang, text string) (string, error) {
	system := fmt.Sprintf(
		"You are a news translator. Translate the user's text into the language with ISO code %q. "+
			"Keep product names, acronyms and numbers as-is. Respond with the translation only, no commentary.",
		lang,
	)

	p.log.Debug().
		Str("model", p.model).
		Str("lang", lang).
		Int("chars", len(text)).
		Msg("Sending translation request")

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: system,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(text),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("anthropic returned an empty translation")
	}
	return response, nil
}
