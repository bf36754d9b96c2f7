// Package httpnode is the HTTP/JSON client of the ledger node API.
package httpnode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node/api"
)

// maxResponseBytes bounds the response bodies read from the node
const maxResponseBytes = 16 << 20

// Client implements ledger.Node over HTTP
type Client struct {
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
}

var _ ledger.Node = (*Client)(nil)

// New returns a client of the node at nodeURL (http or https).
func New(nodeURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid node URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid node URL %q: expected http(s)://host[:port]", nodeURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: u, client: httpClient, logger: logger}, nil
}

func (c *Client) CreateChannel(ctx context.Context, announce *ledger.Message) (*ledger.ChannelInfo, error) {
	var info ledger.ChannelInfo
	if err := c.do(ctx, http.MethodPost, c.path(), nil, announce, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Subscribe(ctx context.Context, subscribe *ledger.Message) (*ledger.Subscription, error) {
	var sub ledger.Subscription
	if err := c.do(ctx, http.MethodPost, c.path(subscribe.ChannelAddress, "subscriptions"), nil, subscribe, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) Publish(ctx context.Context, m *ledger.Message) (*ledger.Message, error) {
	var stored ledger.Message
	if err := c.do(ctx, http.MethodPost, c.path(m.ChannelAddress, "messages"), nil, m, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (c *Client) GetMessage(ctx context.Context, channelAddress, id string) (*ledger.Message, error) {
	var m ledger.Message
	if err := c.do(ctx, http.MethodGet, c.path(channelAddress, "messages", id), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListMessages(ctx context.Context, q ledger.ListQuery) ([]*ledger.Message, error) {
	query := url.Values{}
	if q.LinkID != "" {
		query.Set("linkId", q.LinkID)
	}
	if q.AfterSeq > 0 {
		query.Set("after", strconv.FormatUint(q.AfterSeq, 10))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp api.MessagesResponse
	if err := c.do(ctx, http.MethodGet, c.path(q.ChannelAddress, "messages"), query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) path(elem ...string) *url.URL {
	return c.baseURL.JoinPath(append([]string{api.ChannelsPath}, elem...)...)
}

// do sends the request and decodes a 2xx body into out. Error bodies are turned back
// into ledger errors; failures to reach the node are internal errors.
func (c *Client) do(ctx context.Context, method string, u *url.URL, query url.Values, in, out any) error {
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return ledger.WrapInternalError(err, "failed to encode request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return ledger.WrapInternalError(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ledger.WrapInternalError(err, "node request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ledger.WrapInternalError(err, "failed to read node response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errResp := api.ErrorResponse{StatusCode: resp.StatusCode, StatusCodeText: http.StatusText(resp.StatusCode)}
		_ = json.Unmarshal(raw, &errResp)
		errResp.StatusCode = resp.StatusCode

		c.logger.Debug("node returned an error",
			slog.String("method", method),
			slog.String("path", u.Path),
			slog.Int("status_code", resp.StatusCode),
			slog.String("error_code", errResp.ErrorCode),
			slog.String("request_id", errResp.ProviderCorrelationReference))
		return errResp.Err()
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return ledger.WrapInternalError(err, "failed to decode node response")
	}
	return nil
}
