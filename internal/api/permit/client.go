package permit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/m6parking/parkadmin/internal/models"
)

// DefaultTimeout 请求默认超时
const DefaultTimeout = 30 * time.Second

// Client 许可后端 API 客户端
// 每个操作只发一次 HTTP 请求，不重试、不缓存
type Client struct {
	httpClient *http.Client
	apiHost    string

	mu    sync.RWMutex
	token string
}

// NewClient 创建客户端
func NewClient(apiHost string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiHost: apiHost,
	}
}

// SetToken 设置认证令牌
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token 获取当前令牌
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login 登录并保存令牌
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login", payload, &result); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	c.SetToken(result.Token)
	return result.Token, nil
}

// Logout 登出并清除令牌
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodGet, "/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.SetToken("")
	return nil
}

// doRequest 执行带认证的请求
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiHost+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, nil
}

// doJSON 执行请求并解码 JSON 响应，out 为 nil 时丢弃响应体
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doBytes 执行请求并返回原始响应体（CSV 导出等二进制流）
func (c *Client) doBytes(ctx context.Context, method, path string, body any) ([]byte, error) {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// decodePage 解码分页响应
// 旧版 /lots 接口会直接返回裸数组，这里统一归一化为 Page
func decodePage[T any](r io.Reader) (*models.Page[T], error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []T
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}
		return &models.Page[T]{
			Data:        rows,
			Total:       len(rows),
			PerPage:     len(rows),
			CurrentPage: 1,
			LastPage:    1,
		}, nil
	}

	var page models.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode page response: %w", err)
	}
	if page.LastPage < 1 {
		page.LastPage = 1
	}
	if page.CurrentPage < 1 {
		page.CurrentPage = 1
	}
	return &page, nil
}

// listPage 请求分页列表接口
func listPage[T any](ctx context.Context, c *Client, path string, page, perPage int) (*models.Page[T], error) {
	url := fmt.Sprintf("%s?page=%d&per_page=%d", path, page, perPage)

	resp, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	return decodePage[T](resp.Body)
}
