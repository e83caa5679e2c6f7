// 包 fetch 封装 HTTP 客户端（代理/超时/重试），用于检查外部链接。
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// DefaultUserAgent 在未配置 UA 时使用。
const DefaultUserAgent = "portfolio-content/1.0 (link check)"

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http  *http.Client
	retry int
	ua    string
}

// Options 为客户端构造参数。
type Options struct {
	Timeout   time.Duration
	Retry     int
	UserAgent string
}

// New 创建客户端，代理取自环境变量（HTTP_PROXY/HTTPS_PROXY/NO_PROXY）。
func New(opts Options) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	cl := &http.Client{Transport: transport}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	cl.Timeout = opts.Timeout
	return &Client{http: cl, retry: opts.Retry, ua: opts.UserAgent}
}

// userAgent 依次取环境变量 PORTFOLIO_UA、配置值与默认值。
func (c *Client) userAgent() string {
	if ua := os.Getenv("PORTFOLIO_UA"); ua != "" {
		return ua
	}
	if c.ua != "" {
		return c.ua
	}
	return DefaultUserAgent
}

// Status 返回 url 的最终状态码：先发 HEAD，服务器不支持 HEAD 时改用 GET。
// 只有网络错误与 5xx/429 会重试，其余状态码直接返回。
func (c *Client) Status(ctx context.Context, url string) (int, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusNotImplemented {
		return resp.StatusCode, nil
	}
	resp, err = c.do(ctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// do 执行请求；网络错误或 5xx/429 时重试，最后一次的响应原样返回。
func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, method, url, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("new request: %w", reqErr)
		}
		req.Header.Set("User-Agent", c.userAgent())
		resp, err := c.http.Do(req)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			if i == attempts-1 {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("http status: %s", resp.Status)
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}
