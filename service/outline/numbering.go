package outline

import "strconv"

var cnDigits = []string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// cnOrdinal 1..20 用中文序数，再往后退回阿拉伯数字
func cnOrdinal(n int) string {
	if n < 1 || n > 20 {
		return strconv.Itoa(n)
	}
	switch {
	case n <= 10:
		if n == 10 {
			return "十"
		}
		return cnDigits[n]
	case n < 20:
		return "十" + cnDigits[n-10]
	default:
		return "二十"
	}
}

// ChapterLabel 层级编号的规范形式：
// 一级 一、 二级 （一） 三级 1、
func ChapterLabel(level, position int) string {
	switch level {
	case 1:
		return cnOrdinal(position) + "、"
	case 2:
		return "（" + cnOrdinal(position) + "）"
	default:
		return strconv.Itoa(position) + "、"
	}
}

// Normalize 全树重编号。编号只取决于节点位置，
// 与模型返回的编号无关，因此该操作幂等。
func Normalize(chapters []*Chapter) {
	normalizeLevel(chapters, 1)
}

func normalizeLevel(chapters []*Chapter, level int) {
	for i, ch := range chapters {
		ch.Number = ChapterLabel(level, i+1)
		ch.Level = level
		normalizeLevel(ch.Subsections, level+1)
	}
}
