package relay

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/integrations/carrier"
)

const trackPath = "/functions/v1/track-shipment"

// Client ходит в edge-функцию, которая проксирует запрос в DTDC.
type Client struct {
	httpc *resty.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:54321"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{httpc: c}
}

type trackReq struct {
	TrackingNumber string `json:"trackingNumber"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) Fetch(ctx context.Context, trackNumber string) ([]byte, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(trackReq{TrackingNumber: trackNumber}).
		SetError(&errorBody{}).
		Post(trackPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "relay request")
		}
		return nil, carrier.NetworkError(err)
	}

	if !resp.IsSuccess() {
		detail := ""
		if eb, ok := resp.Error().(*errorBody); ok && eb != nil {
			detail = eb.Error
		}
		return nil, &carrier.HTTPError{StatusCode: resp.StatusCode(), Detail: detail}
	}
	return resp.Body(), nil
}
