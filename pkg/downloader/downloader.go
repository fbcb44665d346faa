package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"letterboxd-capture/internal/config"
	"letterboxd-capture/internal/scraper"
	"letterboxd-capture/pkg/httpclient"
	"letterboxd-capture/pkg/logger"
	"letterboxd-capture/pkg/utils"
)

// Downloader handles poster downloads with parallel support
type Downloader struct {
	config     *config.Config
	httpClient *httpclient.Client
}

// DownloadTask represents a download task
type DownloadTask struct {
	URL      string
	FilePath string
	Headers  map[string]string
}

// DownloadResult represents the result of a download
type DownloadResult struct {
	Task     DownloadTask
	Success  bool
	Skipped  bool
	Error    error
	FilePath string
}

// New creates a new downloader instance
func New(cfg *config.Config) *Downloader {
	client := httpclient.NewClient(&cfg.Proxy)
	client.SetUserAgent(cfg.Site.UserAgent)
	return &Downloader{
		config:     cfg,
		httpClient: client,
	}
}

// DownloadFile downloads a single file. Existing non-empty files are kept.
func (d *Downloader) DownloadFile(ctx context.Context, url, filePath string, headers map[string]string) (skipped bool, err error) {
	if utils.FileExists(filePath) {
		logger.Debug("File already exists, skipping: %s", filePath)
		return true, nil
	}

	dir := filepath.Dir(filePath)
	if err := utils.CreateDirectory(dir); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	resp, err := d.httpClient.Get(ctx, url, headers)
	if err != nil {
		return false, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return false, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, url)
	}

	// 先写到 .part，完成后再重命名
	partPath := filePath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return false, fmt.Errorf("failed to create file %s: %w", partPath, err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(partPath)
		return false, fmt.Errorf("failed to write file %s: %w", partPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(partPath)
		return false, fmt.Errorf("failed to close file %s: %w", partPath, err)
	}
	if err := os.Rename(partPath, filePath); err != nil {
		os.Remove(partPath)
		return false, fmt.Errorf("failed to move %s: %w", partPath, err)
	}

	logger.Info("Downloaded: %s", filepath.Base(filePath))
	return false, nil
}

// DownloadFiles downloads multiple files in parallel. Results keep task order.
func (d *Downloader) DownloadFiles(ctx context.Context, tasks []DownloadTask) []DownloadResult {
	if len(tasks) == 0 {
		return nil
	}

	maxWorkers := d.config.Poster.ParallelDownload
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if maxWorkers > len(tasks) {
		maxWorkers = len(tasks)
	}

	if maxWorkers > 16 {
		logger.Warn("Parallel download thread too large (%d) may cause website ban IP!", maxWorkers)
	}

	taskChan := make(chan int, len(tasks))
	results := make([]DownloadResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go d.downloadWorker(ctx, &wg, tasks, taskChan, results)
	}

	for i := range tasks {
		taskChan <- i
	}
	close(taskChan)

	wg.Wait()
	return results
}

// downloadWorker is a worker goroutine for downloading files
func (d *Downloader) downloadWorker(ctx context.Context, wg *sync.WaitGroup, tasks []DownloadTask, taskChan <-chan int, results []DownloadResult) {
	defer wg.Done()

	for i := range taskChan {
		task := tasks[i]
		result := DownloadResult{Task: task}

		skipped, err := d.DownloadFile(ctx, task.URL, task.FilePath, task.Headers)
		if err != nil {
			result.Error = err
			logger.Error("Download failed: %s -> %s: %v", task.URL, task.FilePath, err)
		} else {
			result.Success = true
			result.Skipped = skipped
			result.FilePath = task.FilePath
		}

		results[i] = result
	}
}

// DownloadPosters mirrors the poster of every record that has one.
// pathFor maps a record to its local file path.
func (d *Downloader) DownloadPosters(ctx context.Context, records []scraper.Record, pathFor func(scraper.Record) string) []DownloadResult {
	var tasks []DownloadTask
	for _, rec := range records {
		if rec.PosterURL == "" {
			continue
		}
		tasks = append(tasks, DownloadTask{
			URL:      rec.PosterURL,
			FilePath: pathFor(rec),
		})
	}

	if len(tasks) == 0 {
		logger.Debug("No posters to download")
		return nil
	}

	results := d.DownloadFiles(ctx, tasks)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Success {
			successCount++
		} else {
			failureCount++
		}
	}

	if failureCount > 0 {
		logger.Warn("Failed to download %d/%d posters", failureCount, len(results))
	} else {
		logger.Info("Successfully mirrored %d posters", successCount)
	}

	return results
}

// Close closes the downloader and cleans up resources
func (d *Downloader) Close() error {
	if d.httpClient != nil {
		return d.httpClient.Close()
	}
	return nil
}
