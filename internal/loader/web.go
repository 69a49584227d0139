package loader

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"

	"ChattyWidget/pkg/http"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// WebFetcher 负责 website 类别文档的内容懒加载：
// 当此类文档的内容为空时，按其来源 URL 抓取页面并转换为可嵌入的纯文本。
type WebFetcher struct {
	client *http.Client
}

// NewWebFetcher 创建一个 WebFetcher。
func NewWebFetcher(client *http.Client) *WebFetcher {
	return &WebFetcher{client: client}
}

// Fetch 抓取页面并将 HTML 转换为 Markdown 文本。
func (f *WebFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %q: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %q", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body of %q: %w", url, err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert page %q: %w", url, err)
	}
	return markdown, nil
}
