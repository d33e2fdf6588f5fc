package embedding

import (
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI connection shared by the embedder and the
// generative model.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client with the given API key. An empty key
// falls back to the OPENAI_API_KEY environment variable.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OpenAI API key missing: pass one explicitly or set OPENAI_API_KEY")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for reuse by other packages
// (the generative model shares one client).
func (c *Client) Client() *openai.Client {
	return c.client
}
