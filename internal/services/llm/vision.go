package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

// ImageDataURL encodes raw image bytes as a data URL for vision prompts.
func ImageDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// CompleteVisionJSON issues a JSON-only chat completion whose user message
// carries both a text prompt and an image. imageURL may be a remote URL or a
// data URL built with ImageDataURL.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt, imageURL string) (string, error) {
	const op = "llm complete vision json"
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	imageURL = strings.TrimSpace(imageURL)
	if systemPrompt == "" {
		return "", fmt.Errorf("%s: system prompt required", op)
	}
	if userPrompt == "" {
		return "", fmt.Errorf("%s: user prompt required", op)
	}
	if imageURL == "" {
		return "", fmt.Errorf("%s: image required", op)
	}
	if !c.Available() {
		return "", fmt.Errorf("%s: api key and base url required", op)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURLPart{URL: imageURL}},
			}},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	return c.completionWithRetry(ctx, payload, op)
}
