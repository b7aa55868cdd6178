package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/joke"
)

var (
	ErrEmptyCategory = errors.New("category is required")
	ErrNetwork       = errors.New("joke service unreachable")
	ErrParse         = errors.New("joke response malformed")
)

// DefaultBaseURL 公共笑话服务地址。
const DefaultBaseURL = "https://v2.jokeapi.dev"

// maxBodyBytes 限制响应体大小，设备端只需要一条短文本。
const maxBodyBytes = 16 << 10

// Options 内容服务客户端配置。
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client 远端笑话服务客户端，每次 Fetch 只发出一个请求，不重试。
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

type jokeResponse struct {
	Error    bool   `json:"error"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// NewClient 创建内容服务客户端。
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		metrics: opts.Metrics,
	}
}

// Fetch 获取指定分类的一条笑话。
// 失败时返回的 Item 仍可渲染（内容为 joke.FallbackMarker），错误可用 errors.Is 区分 ErrNetwork / ErrParse。
func (c *Client) Fetch(ctx context.Context, category joke.Category) (joke.Item, error) {
	item, err := c.fetch(ctx, category)
	result := "ok"
	switch {
	case errors.Is(err, ErrNetwork):
		result = "network_error"
	case errors.Is(err, ErrParse):
		result = "parse_error"
	case err != nil:
		result = "invalid"
	}
	c.metrics.ObserveFetch(string(category), result)

	if err != nil {
		log.Printf("[content] fetch category=%s failed: %v", category, err)
		return joke.Fallback(category), err
	}
	return item, nil
}

func (c *Client) fetch(ctx context.Context, category joke.Category) (joke.Item, error) {
	if strings.TrimSpace(string(category)) == "" {
		return joke.Item{}, ErrEmptyCategory
	}

	endpoint := c.baseURL + "/joke/" + url.PathEscape(string(category))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return joke.Item{}, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return joke.Item{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return joke.Item{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return joke.Item{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	return parseJoke(category, body)
}

// parseJoke 按 type 判别字段解析两种响应形态。
func parseJoke(category joke.Category, body []byte) (joke.Item, error) {
	var payload jokeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return joke.Item{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if payload.Error {
		return joke.Item{}, fmt.Errorf("%w: service reported error", ErrParse)
	}

	if payload.Type == string(joke.Single) {
		text := strings.TrimSpace(payload.Joke)
		if text == "" {
			return joke.Item{}, fmt.Errorf("%w: single joke without text", ErrParse)
		}
		return joke.NewSingle(category, text), nil
	}

	setup := strings.TrimSpace(payload.Setup)
	delivery := strings.TrimSpace(payload.Delivery)
	if setup == "" && delivery == "" {
		return joke.Item{}, fmt.Errorf("%w: unrecognized joke type %q", ErrParse, payload.Type)
	}
	return joke.NewTwoPart(category, setup, delivery), nil
}
