package chunker

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter BPE计数，编码器不可用时退回估算
// （中文字符约1.5 token，拉丁单词约1 token）
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

var defaultCounter = &TokenCounter{}

func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.enc = enc
		}
	})

	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// CountTokens 包级入口，共享默认编码器
func CountTokens(text string) int {
	return defaultCounter.Count(text)
}

func estimateTokens(text string) int {
	cjk := 0
	var latin strings.Builder
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
		} else {
			latin.WriteRune(r)
		}
	}
	words := len(strings.Fields(latin.String()))
	return cjk*3/2 + words
}
