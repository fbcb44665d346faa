package scraper

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"letterboxd-capture/pkg/httpclient"
)

// Fetcher retrieves remote pages. Implementations must be safe to call
// sequentially from a single goroutine; no concurrency is required.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
	FetchText(ctx context.Context, url string) (string, error)
}

// FetchError 表示页面获取失败
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher 基于 httpclient 的 Fetcher 实现
type HTTPFetcher struct {
	client *httpclient.Client
}

// NewHTTPFetcher wraps client
func NewHTTPFetcher(client *httpclient.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// FetchDocument 获取并解析 HTML 文档
func (f *HTTPFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.client.GetBytes(ctx, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}

// FetchText 获取原始响应文本
func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := f.client.GetString(ctx, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// Close 释放底层连接
func (f *HTTPFetcher) Close() error {
	return f.client.Close()
}
