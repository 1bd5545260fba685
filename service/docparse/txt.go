package docparse

import (
	"context"
	"os"
	"strings"
	"tender-agent-backend/apperr"
	"time"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// 编码探测置信度下限，低于该值回退UTF-8
const minDetectConfidence = 70

// TextBackend 纯文本解析后端，自动探测编码
type TextBackend struct{}

var _ Backend = &TextBackend{}

func NewTextBackend() *TextBackend {
	return &TextBackend{}
}

func (b *TextBackend) CanParse(ext string) bool {
	return ext == "txt"
}

func (b *TextBackend) Parse(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Parse("unreadable document", err)
	}

	meta := Metadata{ExtractedAt: time.Now()}

	content, encoding := decodeWithDetection(data, &meta)
	meta.Encoding = encoding
	meta.Lines = strings.Count(content, "\n") + 1
	meta.Chars = len([]rune(content))

	return &Result{Content: content, Metadata: meta}, nil
}

func decodeWithDetection(data []byte, meta *Metadata) (string, string) {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result.Confidence < minDetectConfidence {
		if err != nil {
			meta.Warnings = append(meta.Warnings, "charset detection failed, fallback utf-8")
		} else {
			meta.Warnings = append(meta.Warnings, "low charset confidence, fallback utf-8")
		}
		return string(data), "UTF-8"
	}

	if strings.EqualFold(result.Charset, "UTF-8") {
		return string(data), "UTF-8"
	}

	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		meta.Warnings = append(meta.Warnings, "unsupported charset "+result.Charset+", fallback utf-8")
		return string(data), "UTF-8"
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		meta.Warnings = append(meta.Warnings, "decode failed, fallback utf-8")
		return string(data), "UTF-8"
	}
	return string(decoded), result.Charset
}
