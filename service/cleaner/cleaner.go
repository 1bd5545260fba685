package cleaner

import (
	"regexp"
	"strings"
	"tender-agent-backend/model"
	"unicode"
)

// 清洗规则按序执行，全部为确定性且幂等的纯函数。
// 命中保留集的片段不允许被任何噪声规则删除。

type noiseRule struct {
	name    string
	pattern *regexp.Regexp
}

var noiseRules = []noiseRule{
	{"page_marker", regexp.MustCompile(`(?m)^-{2,}\s*第\s*\d+\s*页\s*-{2,}\s*$`)},
	{"solo_symbol_line", regexp.MustCompile(`(?m)^[\s\p{P}\p{S}]{1,5}$`)},
	{"ocr_l_run", regexp.MustCompile(`[Il|]{4,}`)},
	{"ocr_o_run", regexp.MustCompile(`[Oo0]{5,}`)},
}

// 保留集：版本号、日期、URL、邮箱、型号等不可误删的片段
var preservePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[vV]\d+(\.\d+)+`),
	regexp.MustCompile(`\d{4}[-/.年]\d{1,2}[-/.月]\d{1,2}日?`),
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`),
	regexp.MustCompile(`[A-Z]{2,}[-_]?\d{2,}`),
}

var (
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	multiBlankRegex  = regexp.MustCompile(`\n{3,}`)
	hyphenJoinRegex  = regexp.MustCompile(`([a-zA-Z])-\n([a-z])`)
	wordBlankRegex   = regexp.MustCompile(`(?m)^[ \t]+$`)
)

// Clean 纯函数：(raw, docType) -> cleaned。满足 Clean(Clean(x)) == Clean(x)。
func Clean(raw string, docType model.FileType) string {
	text := raw

	// 1. 控制字符、BOM、换行统一
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlCharRegex.ReplaceAllString(text, "")

	// 2. 全角转半角（数字与拉丁字母），标点规范化
	text = normalizeWidth(text)

	// 3. 噪声行移除，保留集片段除外
	text = removeNoise(text)

	// 4. 按格式微调
	switch docType {
	case model.FileTypePDF:
		text = hyphenJoinRegex.ReplaceAllString(text, "$1$2")
	case model.FileTypeWord:
		text = wordBlankRegex.ReplaceAllString(text, "")
	}

	// 5. 合并空行并修剪
	text = multiBlankRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func normalizeWidth(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '０' && r <= '９':
			sb.WriteRune(r - '０' + '0')
		case r >= 'Ａ' && r <= 'Ｚ':
			sb.WriteRune(r - 'Ａ' + 'A')
		case r >= 'ａ' && r <= 'ｚ':
			sb.WriteRune(r - 'ａ' + 'a')
		case r == '　':
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func removeNoise(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if isPreserved(line) {
			kept = append(kept, line)
			continue
		}

		drop := false
		cleaned := line
		for _, rule := range noiseRules {
			if rule.pattern.MatchString(cleaned) {
				if rule.name == "ocr_l_run" || rule.name == "ocr_o_run" {
					cleaned = rule.pattern.ReplaceAllString(cleaned, "")
					continue
				}
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, "\n")
}

func isPreserved(line string) bool {
	for _, p := range preservePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// QualityScore 根据长度保留率、空行密度、标点间距和句长分布给出 [0,1] 质量分
func QualityScore(raw, cleaned string) float64 {
	if len(raw) == 0 {
		return 0
	}

	// 长度保留率（权重0.4）
	retention := float64(len(cleaned)) / float64(len(raw))
	if retention > 1 {
		retention = 1
	}

	lines := strings.Split(cleaned, "\n")
	blank := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			blank++
		}
	}
	blankDensity := 0.0
	if len(lines) > 0 {
		blankDensity = float64(blank) / float64(len(lines))
	}
	blankScore := 1 - blankDensity

	// 标点占比（权重0.2）：纯符号堆积压低质量
	punct, total := 0, 0
	for _, r := range cleaned {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	punctScore := 1.0
	if total > 0 {
		ratio := float64(punct) / float64(total)
		if ratio > 0.3 {
			punctScore = 1 - (ratio - 0.3)
		}
	}

	// 句长分布（权重0.2）：平均句长落在 [10, 150] 字符为佳
	sentences := splitSentences(cleaned)
	sentenceScore := 0.5
	if len(sentences) > 0 {
		avg := float64(len([]rune(cleaned))) / float64(len(sentences))
		switch {
		case avg >= 10 && avg <= 150:
			sentenceScore = 1.0
		case avg < 10:
			sentenceScore = avg / 10
		default:
			sentenceScore = 150 / avg
		}
	}

	score := retention*0.4 + blankScore*0.2 + punctScore*0.2 + sentenceScore*0.2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '；' || r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
