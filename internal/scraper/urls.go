package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// 海报 CDN 的裁剪尺寸片段，统一改写为最大裁剪
var cropSizeRe = regexp.MustCompile(`-0-\d+-0-\d+-crop`)

const (
	posterCDNHost = "ltrbxd.com"
	posterCrop    = "-0-460-0-690-crop"
)

// NormalizePosterURL 规范化海报地址：补全协议、统一 CDN 裁剪尺寸。
// 空值返回 ""，其他地址原样返回。
func NormalizePosterURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}

	if strings.Contains(u, posterCDNHost) && strings.Contains(u, "crop") {
		u = cropSizeRe.ReplaceAllString(u, posterCrop)
	}

	return u
}

// BestFromSrcset 从 srcset 中选出宽度最大的候选地址，宽度相同时取第一个。
// 没有宽度描述的条目只在没有任何带宽度条目时作为兜底。
func BestFromSrcset(srcset string) string {
	best, bestWidth := "", -1
	fallback := ""

	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 || !looksLikeURL(fields[0]) {
			continue
		}
		u := fields[0]

		if len(fields) > 1 {
			if w, ok := parseWidth(fields[1]); ok {
				if w > bestWidth {
					best, bestWidth = u, w
				}
				continue
			}
		}

		if fallback == "" {
			fallback = u
		}
	}

	if best != "" {
		return best
	}
	return fallback
}

// parseWidth 解析 "500w" 形式的宽度描述
func parseWidth(descriptor string) (int, bool) {
	if !strings.HasSuffix(descriptor, "w") {
		return 0, false
	}
	w, err := strconv.Atoi(strings.TrimSuffix(descriptor, "w"))
	if err != nil || w < 0 {
		return 0, false
	}
	return w, true
}

func looksLikeURL(s string) bool {
	return strings.ContainsAny(s, "./")
}
