package summary

import (
	"strings"
	"unicode/utf8"
)

// Excerpt 提取正文首段作为摘录,跳过标题和引用块;超长时按 rune 截断
func Excerpt(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 200
	}
	if para := firstParagraph(content); para != "" {
		return truncateRunes(para, maxLen)
	}
	return truncateRunes(strings.TrimSpace(content), maxLen)
}

// firstParagraph 提取第一段
func firstParagraph(content string) string {
	var para []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ">") {
			if len(para) > 0 {
				break
			}
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}
	return strings.Join(para, " ")
}

// truncateRunes 安全截断字符串(按 rune 而非 byte)
func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
