package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sindbad/engage/internal/model"
)

// AssistantClient asks the conversational assistant for a reply to an
// inbound customer message.
type AssistantClient struct {
	client *jsonClient
}

func NewAssistantClient(baseURL, apiKey string, timeout time.Duration) *AssistantClient {
	return &AssistantClient{
		client: newJSONClient(baseURL, apiKey, timeout),
	}
}

func (c *AssistantClient) Reply(ctx context.Context, u *model.User, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"message":  text,
		"language": u.Language,
		"segment":  u.Segment,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.client.do(ctx, "POST", "/api/v1/reply", payload)
	if err != nil {
		return "", fmt.Errorf("assistant request: %w", err)
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return resp.Reply, nil
}
