package utils

import (
	"net/url"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"letterboxd-capture/internal/scraper"
	"letterboxd-capture/pkg/logger"
)

// DebugPrint 以调试格式打印影评数据
func DebugPrint(rec *scraper.Record) {
	if rec == nil {
		return
	}

	logger.Debug("------- DEBUG INFO -------")
	logger.Debug("title: %s", rec.Title)
	logger.Debug("year: %s", rec.Year)
	logger.Debug("rating: %.1f", rec.Rating)
	logger.Debug("watchedDate: %s", rec.WatchedDate)
	logger.Debug("poster: %s", rec.PosterURL)
	logger.Debug("review: %d characters", utf8.RuneCountInString(rec.Review))
	logger.Debug("------- DEBUG INFO -------")
}

// PrintSummary 输出每条影评的概要
func PrintSummary(records []scraper.Record) {
	logger.Info("Extracted reviews with Letterboxd posters:")
	for i, rec := range records {
		posterStatus := "✗ No poster"
		if rec.PosterURL != "" {
			posterStatus = "✓ High-res Poster"
		}
		logger.Info("%d. %s (%s) - %s", i+1, rec.Title, rec.Year, posterStatus)
		logger.Info("   Rating: %.1f/5", rec.Rating)
		logger.Info("   Date: %s", rec.WatchedDate)
		if rec.PosterURL != "" {
			logger.Info("   Poster: %s", rec.PosterURL)
		}
		logger.Info("   Review: %s", Truncate(rec.Review, 100))
	}
}

// Truncate 按字符截断，截断时追加 "..."
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// GetImageExtension 从 URL 确定图像扩展名，忽略查询串
func GetImageExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))

	validExts := []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	for _, validExt := range validExts {
		if ext == validExt {
			return ext
		}
	}

	// 默认为 .jpg
	return ".jpg"
}

// FileExists 检查文件是否存在且不为空
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// CreateDirectory 如果目录不存在则创建目录
func CreateDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}
