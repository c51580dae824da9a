// Package elastic is an optional sink that indexes extracted messages into
// Elasticsearch, for installs that want to query exports instead of (or in
// addition to) reading CSV files.
package elastic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog"

	"github.com/pevans/chatexport"
)

// Client indexes extracted messages into one Elasticsearch index.
type Client struct {
	client *elasticsearch.Client
	index  string
	log    zerolog.Logger
}

// New creates a client for the given cluster and index.
func New(url, username, password, index string, skipVerify bool, log zerolog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: skipVerify,
			},
		},
		RetryOnStatus: []int{502, 503, 504, 429},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{client: client, index: index, log: log}, nil
}

// TestConnection verifies the cluster is reachable.
func (c *Client) TestConnection() error {
	res, err := c.client.Info()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned error: %s", res.String())
	}
	return nil
}

// DocumentID builds a deterministic ID for a message, so re-running an
// export updates documents instead of duplicating them.
func DocumentID(m chatexport.ExtractedMessage) string {
	sum := sha256.Sum256([]byte(m.Platform + "|" + m.ChatKey + "|" + m.MessageDate + "|" + m.Text))
	return hex.EncodeToString(sum[:])[:24]
}

// IndexMessages indexes the given messages one by one. Individual index
// failures are logged and counted, not fatal.
func (c *Client) IndexMessages(ctx context.Context, messages []chatexport.ExtractedMessage) (int, error) {
	indexed := 0
	for _, m := range messages {
		if err := c.indexOne(ctx, m); err != nil {
			c.log.Warn().Err(err).Str("chat", m.ChatKey).Msg("failed to index message")
			continue
		}
		indexed++
	}
	c.log.Info().Int("indexed", indexed).Int("total", len(messages)).Str("index", c.index).
		Msg("messages indexed")
	return indexed, nil
}

func (c *Client) indexOne(ctx context.Context, m chatexport.ExtractedMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	res, err := c.client.Index(
		c.index,
		bytes.NewReader(data),
		c.client.Index.WithContext(ctx),
		c.client.Index.WithDocumentID(DocumentID(m)),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.String())
	}
	return nil
}
