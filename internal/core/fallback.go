package core

import (
	"letterboxd-capture/internal/scraper"
	"letterboxd-capture/pkg/logger"
	"letterboxd-capture/pkg/storage"
)

var builtinFallback = []scraper.Record{
	{
		Title:       "Memories of Murder",
		Year:        "2003",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/5/1/3/7/0/51370-memories-of-murder-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "July 22, 2024",
		Review:      "This movie is getting a 4 because of the dude dropkicking every suspect. Bong Joon Ho has the eyes of a good director. I like the way with his staging and blocking, and we can see that with other films e.g. Parasite.",
	},
	{
		Title:       "The Prestige",
		Year:        "2006",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/5/1/4/7/8/51478-the-prestige-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "June 15, 2024",
		Review:      "Typical rivalry between me and my bro in FIFA. Brilliant storytelling and mind-bending plot twists that keep you guessing until the very end.",
	},
	{
		Title:       "Your Name",
		Year:        "2016",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/2/9/0/4/6/4/290464-your-name-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "May 8, 2024",
		Review:      "Jangan lu pada samain sama Sore: Istri dari Masa Depan. Watched this with my homeboy during internship. When she disappeared when writing her name 😭",
	},
	{
		Title:       "Perfect Blue",
		Year:        "1997",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/5/1/5/2/8/51528-perfect-blue-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "April 20, 2024",
		Review:      "Ini film apaan dah. Gw rindu diri gw sebelum nonton film ini. A psychological masterpiece that's both beautiful and disturbing.",
	},
}

// BuiltinFallback 返回内置的备用影评（副本）
func BuiltinFallback() []scraper.Record {
	return append([]scraper.Record(nil), builtinFallback...)
}

// fallbackRecords 优先读取 fallback.path 指定的文件，失败或为空时使用内置数据
func (p *Processor) fallbackRecords() []scraper.Record {
	path := p.config.Fallback.Path
	if path == "" {
		return BuiltinFallback()
	}

	records, err := storage.LoadRecords(path)
	if err != nil {
		logger.Warn("Cannot load fallback file, using built-in data: %v", err)
		return BuiltinFallback()
	}
	if len(records) == 0 {
		logger.Warn("Fallback file %s is empty, using built-in data", path)
		return BuiltinFallback()
	}

	logger.Info("Loaded %d fallback reviews from %s", len(records), path)
	return records
}
