package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"blog_api/pkg/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultWakatimeURL = "https://wakatime.com/api/v1"
	DefaultYoutubeURL  = "https://www.googleapis.com/youtube/v3"
)

// Options 第三方接口地址，测试时指向 httptest
type Options struct {
	WakatimeURL string
	YoutubeURL  string
	Timeout     time.Duration
}

// Client WakaTime / YouTube 接口客户端
type Client struct {
	http        *resty.Client
	wakatimeURL string
	youtubeURL  string
}

// ChannelStats YouTube 频道统计
type ChannelStats struct {
	Subscribers int64
	Views       int64
}

type wakatimeResponse struct {
	Data struct {
		TotalSeconds float64 `json:"total_seconds"`
	} `json:"data"`
}

type youtubeResponse struct {
	Items []struct {
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// New 创建客户端
func New(opts Options) *Client {
	if opts.WakatimeURL == "" {
		opts.WakatimeURL = DefaultWakatimeURL
	}
	if opts.YoutubeURL == "" {
		opts.YoutubeURL = DefaultYoutubeURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	http := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "blog-api/1.0")

	http.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("upstream response",
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("latency", resp.Time()),
		)
		return nil
	})

	return &Client{http: http, wakatimeURL: opts.WakatimeURL, youtubeURL: opts.YoutubeURL}
}

// WakatimeSeconds 全部编码时长（秒）
func (c *Client) WakatimeSeconds(ctx context.Context, apiKey string) (float64, error) {
	var out wakatimeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(apiKey))).
		SetResult(&out).
		Get(c.wakatimeURL + "/users/current/all_time_since_today")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("wakatime: unexpected status %d", resp.StatusCode())
	}
	return out.Data.TotalSeconds, nil
}

// YoutubeChannel 频道订阅数与播放数，频道不存在时返回零值
func (c *Client) YoutubeChannel(ctx context.Context, apiKey, channelID string) (*ChannelStats, error) {
	var out youtubeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "statistics",
			"id":   channelID,
			"key":  apiKey,
		}).
		SetResult(&out).
		Get(c.youtubeURL + "/channels")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("youtube: unexpected status %d", resp.StatusCode())
	}

	if len(out.Items) == 0 {
		return &ChannelStats{}, nil
	}
	st := out.Items[0].Statistics
	return &ChannelStats{
		Subscribers: parseCount(st.SubscriberCount),
		Views:       parseCount(st.ViewCount),
	}, nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
