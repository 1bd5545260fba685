package infoextract

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"tender-agent-backend/service/llmclient"
	"unicode"
)

//go:embed prompts/basicinfo.txt
var basicInfoPrompt string

// BasicInfo 招标项目基本信息，字段与 tender_projects 表一一对应
type BasicInfo struct {
	ProjectName     string `json:"project_name"`
	ProjectNumber   string `json:"project_number"`
	Tenderer        string `json:"tenderer"`
	Agency          string `json:"agency"`
	BiddingMethod   string `json:"bidding_method"`
	BiddingLocation string `json:"bidding_location"`
	BiddingTime     string `json:"bidding_time"`
	WinnerCount     string `json:"winner_count"`
	Budget          string `json:"budget"`
}

var (
	projectNameRegex   = regexp.MustCompile(`(?:项目名称|采购项目名称)[：:\s]*([^\n，。；]{2,60})`)
	projectNumberRegex = regexp.MustCompile(`(?:项目编号|招标编号|采购编号|磋商编号)[：:\s]*([A-Za-z0-9\-_（）()\p{Han}]{2,40})`)
	tendererRegex      = regexp.MustCompile(`(?:招标人|采购人|采购单位)(?:名称)?[：:\s]*([^\n，。；]{2,50})`)
	agencyRegex        = regexp.MustCompile(`(?:招标代理机构|采购代理机构|代理机构)(?:名称)?[：:\s]*([^\n，。；]{2,50})`)
	methodRegex        = regexp.MustCompile(`公开招标|邀请招标|竞争性磋商|竞争性谈判|询价|单一来源`)
	locationRegex      = regexp.MustCompile(`(?:开标地点|磋商地点|谈判地点)[：:\s]*([^\n。；]{2,60})`)
	biddingTimeRegex   = regexp.MustCompile(`(?:开标时间|磋商时间|递交截止时间|投标截止时间)[：: ]*([0-9a-zA-Z年月日时分点：: ]{6,30})`)
	winnerCountRegex   = regexp.MustCompile(`(?:中标人|中标候选人|成交供应商)(?:数量)?[：:\s约为]*([0-9一二三壹贰叁]{1,3})\s*[名家个]`)
	budgetRegex        = regexp.MustCompile(`(?:预算金额|采购预算|最高限价|控制价)[：:\s约为人民币]*([0-9][0-9,，.]*\s*[万亿]?元?)`)
)

var (
	// 数字串被字母杂质分隔的时间写法，如 2025t08g28e14e30
	garbledTimeRegex = regexp.MustCompile(`(\d{4})[a-zA-Z]+(\d{1,2})[a-zA-Z]+(\d{1,2})[a-zA-Z]+(\d{1,2})[a-zA-Z]+(\d{1,2})`)
	cnTimeRegex      = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日\s*(\d{1,2})[时点:：](\d{1,2})分?`)
)

// NormalizeTime 将各种时间写法规整为 YYYY年MM月DD日HH时MM分。
// 无法识别时原样返回。
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if m := garbledTimeRegex.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s年%s月%s日%s时%s分",
			m[1], pad2(m[2]), pad2(m[3]), pad2(m[4]), pad2(m[5]))
	}

	if m := cnTimeRegex.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s年%s月%s日%s时%s分",
			m[1], pad2(m[2]), pad2(m[3]), pad2(m[4]), pad2(m[5]))
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// poorQuality 字段值为空、过短、或编号里混入了中文都视为低质量，交给模型补齐
func poorQuality(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	if field == "project_number" {
		if len([]rune(value)) < 4 {
			return true
		}
		for _, r := range value {
			if unicode.Is(unicode.Han, r) {
				return true
			}
		}
	}
	return false
}

// Extractor 基本信息抽取，规则先行，模型只补低质量字段
type Extractor struct {
	client *llmclient.Client
}

func NewExtractor(client *llmclient.Client) *Extractor {
	return &Extractor{client: client}
}

func extractByRegex(text string) *BasicInfo {
	info := &BasicInfo{}
	pick := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	info.ProjectName = pick(projectNameRegex)
	info.ProjectNumber = pick(projectNumberRegex)
	info.Tenderer = pick(tendererRegex)
	info.Agency = pick(agencyRegex)
	info.BiddingMethod = methodRegex.FindString(text)
	info.BiddingLocation = pick(locationRegex)
	info.BiddingTime = NormalizeTime(pick(biddingTimeRegex))
	info.WinnerCount = pick(winnerCountRegex)
	info.Budget = pick(budgetRegex)
	return info
}

// ExtractBasicInfo 规则抽取后仅对低质量字段请求模型，模型结果只覆盖低质量值
func (e *Extractor) ExtractBasicInfo(ctx context.Context, text string) *BasicInfo {
	info := extractByRegex(text)

	fields := map[string]*string{
		"project_name":     &info.ProjectName,
		"project_number":   &info.ProjectNumber,
		"tenderer":         &info.Tenderer,
		"agency":           &info.Agency,
		"bidding_method":   &info.BiddingMethod,
		"bidding_location": &info.BiddingLocation,
		"bidding_time":     &info.BiddingTime,
		"winner_count":     &info.WinnerCount,
		"budget":           &info.Budget,
	}
	needLLM := false
	for name, value := range fields {
		if poorQuality(name, *value) {
			needLLM = true
			break
		}
	}
	if !needLLM || e.client == nil {
		return info
	}

	scope := text
	if runes := []rune(scope); len(runes) > 6000 {
		scope = string(runes[:6000])
	}
	resp, err := e.client.Call(ctx, fmt.Sprintf(basicInfoPrompt, scope), llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "basic_info",
	})
	if err != nil {
		slog.Warn("基本信息模型补齐失败，沿用规则结果", "error", err)
		return info
	}

	var fromLLM BasicInfo
	if err := llmclient.DecodeJSON(resp, &fromLLM); err != nil {
		slog.Warn("基本信息应答解析失败", "error", err)
		return info
	}

	merge := map[string]struct{ dst *string; src string }{
		"project_name":     {&info.ProjectName, fromLLM.ProjectName},
		"project_number":   {&info.ProjectNumber, fromLLM.ProjectNumber},
		"tenderer":         {&info.Tenderer, fromLLM.Tenderer},
		"agency":           {&info.Agency, fromLLM.Agency},
		"bidding_method":   {&info.BiddingMethod, fromLLM.BiddingMethod},
		"bidding_location": {&info.BiddingLocation, fromLLM.BiddingLocation},
		"bidding_time":     {&info.BiddingTime, NormalizeTime(fromLLM.BiddingTime)},
		"winner_count":     {&info.WinnerCount, fromLLM.WinnerCount},
		"budget":           {&info.Budget, fromLLM.Budget},
	}
	for name, f := range merge {
		if poorQuality(name, *f.dst) && strings.TrimSpace(f.src) != "" {
			*f.dst = strings.TrimSpace(f.src)
		}
	}
	return info
}
