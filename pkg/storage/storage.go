package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"letterboxd-capture/internal/config"
	"letterboxd-capture/internal/scraper"
	"letterboxd-capture/pkg/logger"
	"letterboxd-capture/pkg/utils"
)

// 海报文件名（不含扩展名）的最大字符数
const maxPosterNameLen = 120

// Storage 处理影评文件的读写和海报文件命名
type Storage struct {
	config *config.Config
}

// New 创建一个新的存储实例
func New(cfg *config.Config) *Storage {
	return &Storage{
		config: cfg,
	}
}

// Save 把影评写入配置的输出路径，返回实际写入的路径
func (s *Storage) Save(records []scraper.Record) (string, error) {
	path := s.config.Common.OutputPath
	if err := SaveRecords(path, records); err != nil {
		return "", err
	}
	logger.Info("Reviews saved to: %s", path)
	return path, nil
}

// PosterPath 返回影评海报在本地镜像目录中的路径
func (s *Storage) PosterPath(rec scraper.Record) string {
	return filepath.Join(s.config.Poster.Folder, PosterFileName(rec))
}

// SaveRecords 以两空格缩进写出 JSON 数组。先写临时文件再重命名，
// 读者不会看到写了一半的文件。
func SaveRecords(path string, records []scraper.Record) error {
	if records == nil {
		records = []scraper.Record{}
	}

	dir := filepath.Dir(path)
	if err := utils.CreateDirectory(dir); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // 重命名成功后是空操作

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode reviews: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// LoadRecords 读取 SaveRecords 写出的文件
func LoadRecords(path string) ([]scraper.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reviews file %s: %w", path, err)
	}

	var records []scraper.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse reviews file %s: %w", path, err)
	}
	return records, nil
}

// PosterFileName 返回 "Title (Year).ext" 形式的安全文件名
func PosterFileName(rec scraper.Record) string {
	name := rec.Title
	if rec.Year != "" {
		name = fmt.Sprintf("%s (%s)", rec.Title, rec.Year)
	}
	name = shortenString(sanitizeFileName(name), maxPosterNameLen)
	return name + utils.GetImageExtension(rec.PosterURL)
}

// sanitizeFileName 清理文件名中的非法字符（保持最大兼容性）
func sanitizeFileName(fileName string) string {
	// Windows文件系统禁止的字符: < > : " / \ | ? *
	illegalChars := map[rune]string{
		'<':  "＜", // 全角替换
		'>':  "＞",
		':':  "꞉", // 修饰符冒号
		'"':  "＂", // 全角引号
		'/':  "∕", // 除号斜杠
		'\\': "∖", // 集合减号
		'|':  "ǀ", // 齿音咔嗒
		'?':  "？", // 全角问号
		'*':  "∗", // 星号运算符
	}

	var b strings.Builder
	replaced := false
	for _, char := range fileName {
		if replacement, isIllegal := illegalChars[char]; isIllegal {
			b.WriteString(replacement)
			replaced = true
		} else if char < 32 {
			// 跳过控制字符
			replaced = true
		} else {
			b.WriteRune(char)
		}
	}

	// 移除文件名末尾的点和空格（Windows限制）
	result := strings.TrimRight(b.String(), ". ")
	if result == "" {
		result = "unnamed_file"
	}

	if replaced {
		logger.Debug("Sanitized filename: '%s' -> '%s'", fileName, result)
	}
	return result
}

// shortenString 按字符数截断，尽量停在单词边界
func shortenString(str string, maxLen int) string {
	if utf8.RuneCountInString(str) <= maxLen {
		return str
	}

	runes := []rune(str)
	shortened := string(runes[:maxLen])

	// 尝试在单词边界（空格、标点）处截断
	if lastSpace := strings.LastIndexAny(shortened, " -_.,;"); lastSpace > len(shortened)/2 {
		shortened = shortened[:lastSpace]
	}
	return strings.TrimRight(strings.TrimSpace(shortened), ".")
}
