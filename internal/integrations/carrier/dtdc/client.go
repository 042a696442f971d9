package dtdc

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/integrations/carrier"
)

const (
	DefaultURL     = "https://www.dtdc.com/wp-json/custom/v1/domestic/track"
	defaultTimeout = 15 * time.Second

	// DTDC отвечает 403 без браузерных заголовков.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"
)

type Client struct {
	url   string
	httpc *resty.Client
}

func New(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url: url,
		httpc: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "*/*").
			SetHeader("Origin", "https://www.dtdc.com").
			SetHeader("Referer", "https://www.dtdc.com/track-your-shipment/").
			SetHeader("User-Agent", userAgent).
			SetHeader("Sec-Ch-Ua-Platform", `"macOS"`),
	}
}

type trackReq struct {
	TrackType   string `json:"trackType"`
	TrackNumber string `json:"trackNumber"`
}

func (c *Client) Fetch(ctx context.Context, trackNumber string) ([]byte, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(trackReq{TrackType: "cnno", TrackNumber: trackNumber}).
		Post(c.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "dtdc request")
		}
		return nil, carrier.NetworkError(err)
	}

	if !resp.IsSuccess() {
		return nil, &carrier.HTTPError{StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}
