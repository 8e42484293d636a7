package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// jsonClient is a minimal fasthttp wrapper for the JSON partner APIs
// (storefront, billing, assistant).
type jsonClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
}

func newJSONClient(baseURL, token string, timeout time.Duration) *jsonClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &jsonClient{
		baseURL: baseURL,
		token:   token,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

func (c *jsonClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}
