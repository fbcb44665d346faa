package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"letterboxd-capture/internal/config"
	"letterboxd-capture/internal/scraper"
	"letterboxd-capture/pkg/downloader"
	"letterboxd-capture/pkg/logger"
	"letterboxd-capture/pkg/storage"
	"letterboxd-capture/pkg/utils"
)

// ErrCollectionShortfall 所有来源收集到的影评少于 min_records
var ErrCollectionShortfall = errors.New("collection shortfall")

// Collector 影评来源
type Collector interface {
	GetRecentReviews(ctx context.Context, limit int) ([]scraper.Record, error)
	GetRSSReviews(ctx context.Context, limit int) ([]scraper.Record, error)
}

// Processor handles the collect, fallback, mirror and save pipeline
type Processor struct {
	config     *config.Config
	collector  Collector
	storage    *storage.Storage
	downloader *downloader.Downloader
	dryRun     bool
}

// Result represents the outcome of one run
type Result struct {
	Records      []scraper.Record
	Source       string // 实际采用的来源: html, rss 或 fallback
	UsedFallback bool
	Shortfall    error // 触发备用数据时的 ErrCollectionShortfall
	OutputPath   string
	Posters      []downloader.DownloadResult
	Elapsed      time.Duration
}

// NewProcessor creates a new processor backed by the Letterboxd scraper
func NewProcessor(cfg *config.Config) *Processor {
	return NewProcessorWithCollector(cfg, scraper.New(cfg))
}

// NewProcessorWithCollector creates a processor with a custom collector
func NewProcessorWithCollector(cfg *config.Config, collector Collector) *Processor {
	p := &Processor{
		config:    cfg,
		collector: collector,
		storage:   storage.New(cfg),
	}
	if cfg.Poster.Download {
		p.downloader = downloader.New(cfg)
	}
	return p
}

// SetDryRun 开启后不写输出文件也不下载海报
func (p *Processor) SetDryRun(dryRun bool) {
	p.dryRun = dryRun
}

// Run collects reviews, swaps in the fallback dataset on shortfall,
// optionally mirrors posters and saves the result.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	records, source, err := p.collect(ctx)
	if err != nil {
		return nil, err
	}
	result.Records, result.Source = records, source

	if err := p.checkShortfall(records); err != nil {
		logger.Warn("Scraping returned %d reviews, using fallback data...", len(records))
		result.Shortfall = err
		result.Records = p.fallbackRecords()
		result.Source = "fallback"
		result.UsedFallback = true
	}

	logger.Info("Successfully got %d reviews!", len(result.Records))

	if p.config.DebugMode.Switch {
		for i := range result.Records {
			utils.DebugPrint(&result.Records[i])
		}
	}

	if p.dryRun {
		logger.Info("Dry run, output not written")
	} else {
		if p.downloader != nil {
			result.Posters = p.downloader.DownloadPosters(ctx, result.Records, p.storage.PosterPath)
		}

		path, err := p.storage.Save(result.Records)
		if err != nil {
			return result, fmt.Errorf("failed to save reviews: %w", err)
		}
		result.OutputPath = path
	}

	utils.PrintSummary(result.Records)
	result.Elapsed = time.Since(start)
	return result, nil
}

// collect 按配置的来源收集影评。auto 先抓 HTML，不足时再读 RSS，保留较多的一方。
func (p *Processor) collect(ctx context.Context) ([]scraper.Record, string, error) {
	limit := p.config.Common.Limit

	switch p.config.Common.Source {
	case config.SourceHTML:
		records, err := p.fromSource(ctx, config.SourceHTML, limit)
		return records, config.SourceHTML, err
	case config.SourceRSS:
		records, err := p.fromSource(ctx, config.SourceRSS, limit)
		return records, config.SourceRSS, err
	}

	records, err := p.fromSource(ctx, config.SourceHTML, limit)
	if err != nil {
		return nil, "", err
	}
	if p.checkShortfall(records) == nil {
		return records, config.SourceHTML, nil
	}

	logger.Info("HTML scraping returned %d reviews, trying RSS feed", len(records))
	rssRecords, err := p.fromSource(ctx, config.SourceRSS, limit)
	if err != nil {
		return nil, "", err
	}
	if len(rssRecords) > len(records) {
		return rssRecords, config.SourceRSS, nil
	}
	return records, config.SourceHTML, nil
}

// fromSource 调用单个来源。来源错误记录后按零条处理，只有取消会向上返回。
func (p *Processor) fromSource(ctx context.Context, source string, limit int) ([]scraper.Record, error) {
	var (
		records []scraper.Record
		err     error
	)
	if source == config.SourceRSS {
		records, err = p.collector.GetRSSReviews(ctx, limit)
	} else {
		records, err = p.collector.GetRecentReviews(ctx, limit)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		logger.Warn("%s source failed: %v", source, err)
		return nil, nil
	}
	return records, nil
}

func (p *Processor) checkShortfall(records []scraper.Record) error {
	if len(records) == 0 || len(records) < p.config.Common.MinRecords {
		return fmt.Errorf("%w: got %d reviews, need %d", ErrCollectionShortfall, len(records), p.config.Common.MinRecords)
	}
	return nil
}

// Close 释放抓取器和下载器持有的连接
func (p *Processor) Close() error {
	var errs []error
	if c, ok := p.collector.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if p.downloader != nil {
		errs = append(errs, p.downloader.Close())
	}
	return errors.Join(errs...)
}
