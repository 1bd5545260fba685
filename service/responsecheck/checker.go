package responsecheck

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"tender-agent-backend/service/llmclient"
	"time"
)

const (
	StatusPass    = "符合"
	StatusFail    = "不符合"
	StatusUnknown = "无法判断"
	StatusPending = "待检查"

	minAge = 18
	maxAge = 80

	// 实体抽取完成后的进度基线与每类别步长
	progressBase = 15
	progressStep = 8
)

//go:embed prompts/completeness.txt
var completenessPrompt string

//go:embed prompts/seals.txt
var sealsPrompt string

type CheckItem struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Location   string `json:"location,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type CheckCategory struct {
	Name    string      `json:"name"`
	Items   []CheckItem `json:"items"`
	Pass    int         `json:"pass"`
	Fail    int         `json:"fail"`
	Unknown int         `json:"unknown"`
}

// Report 28项检查的完整结果。任何输入下类别列表都是完整的，
// 无法核实的项标为无法判断而不是缺失。
type Report struct {
	Categories   []CheckCategory `json:"categories"`
	TotalItems   int             `json:"total_items"`
	PassCount    int             `json:"pass_count"`
	FailCount    int             `json:"fail_count"`
	UnknownCount int             `json:"unknown_count"`
	Entities     *Entities       `json:"entities"`
}

// ProgressFunc 类别完成回调，percent 取 23..95 的固定档位；
// completed 为截至当前已完成的类别
type ProgressFunc func(percent int, category string, completed []CheckCategory)

// Checker 响应文件合规检查。client 为 nil 时模型类检查全部降级为无法判断。
type Checker struct {
	client *llmclient.Client

	// 检出最高限价时校验报价不超限
	MaxLimit float64

	now func() time.Time
}

func NewChecker(client *llmclient.Client) *Checker {
	return &Checker{client: client, now: time.Now}
}

// Check 按固定顺序跑10个类别，progress 可为 nil
func (c *Checker) Check(ctx context.Context, text string, progress ProgressFunc) *Report {
	entities := ExtractEntities(ctx, c.client, text)

	checks := []struct {
		name string
		run  func(ctx context.Context, text string, e *Entities) CheckCategory
	}{
		{"完整性检查", c.checkCompleteness},
		{"盖章签字检查", c.checkSeals},
		{"页码检查", c.checkPageNumbers},
		{"索引表检查", c.checkIndexTable},
		{"法人身份证检查", c.checkLegalPersonID},
		{"被授权人身份证检查", c.checkAuthorizedPersonID},
		{"营业执照检查", c.checkLicense},
		{"响应日期检查", c.checkResponseDates},
		{"报价检查", c.checkPrice},
		{"业绩材料检查", c.checkPerformance},
	}

	report := &Report{Entities: entities}
	for i, check := range checks {
		category := check.run(ctx, text, entities)
		category.Name = check.name
		tally(&category)
		report.Categories = append(report.Categories, category)

		report.TotalItems += len(category.Items)
		report.PassCount += category.Pass
		report.FailCount += category.Fail
		report.UnknownCount += category.Unknown

		if progress != nil {
			progress(progressBase+progressStep*(i+1), check.name, report.Categories)
		}
	}

	slog.Info("响应文件检查完成",
		"total", report.TotalItems, "pass", report.PassCount,
		"fail", report.FailCount, "unknown", report.UnknownCount)
	return report
}

func tally(c *CheckCategory) {
	c.Pass, c.Fail, c.Unknown = 0, 0, 0
	for i := range c.Items {
		switch c.Items[i].Status {
		case StatusPass:
			c.Pass++
		case StatusFail:
			c.Fail++
		default:
			c.Items[i].Status = StatusUnknown
			c.Unknown++
		}
	}
}

// llmItems 模型类检查的公共路径：格式错误或模型不可用时整类降级
func (c *Checker) llmItems(ctx context.Context, prompt string, names []string) []CheckItem {
	fallback := make([]CheckItem, len(names))
	for i, name := range names {
		fallback[i] = CheckItem{
			Name:       name,
			Status:     StatusUnknown,
			Suggestion: "请人工核对该项",
		}
	}
	if c.client == nil {
		return fallback
	}

	resp, err := c.client.Call(ctx, prompt, llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "response_check",
	})
	if err != nil {
		slog.Warn("模型检查失败，降级为无法判断", "error", err)
		return fallback
	}

	var decoded struct {
		Items []CheckItem `json:"items"`
	}
	if err := llmclient.DecodeJSON(resp, &decoded); err != nil || len(decoded.Items) == 0 {
		return fallback
	}

	// 以固定项名为准，模型缺项的保持无法判断
	byName := make(map[string]CheckItem, len(decoded.Items))
	for _, item := range decoded.Items {
		byName[item.Name] = item
	}
	items := make([]CheckItem, len(names))
	for i, name := range names {
		if item, ok := byName[name]; ok {
			item.Name = name
			items[i] = item
		} else {
			items[i] = fallback[i]
		}
	}
	return items
}

func truncateForPrompt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

func (c *Checker) checkCompleteness(ctx context.Context, text string, _ *Entities) CheckCategory {
	names := []string{"表单字段填写完整", "无空白未填项", "选项勾选完整"}
	prompt := fmt.Sprintf(completenessPrompt, truncateForPrompt(text, 8000))
	return CheckCategory{Items: c.llmItems(ctx, prompt, names)}
}

func (c *Checker) checkSeals(ctx context.Context, text string, _ *Entities) CheckCategory {
	names := []string{"投标函盖章签字", "授权委托书盖章签字", "报价表盖章签字"}
	prompt := fmt.Sprintf(sealsPrompt, truncateForPrompt(text, 8000))
	return CheckCategory{Items: c.llmItems(ctx, prompt, names)}
}

var pageMarkerNumRegex = regexp.MustCompile(`第\s*(\d+)\s*页`)

func (c *Checker) checkPageNumbers(_ context.Context, text string, _ *Entities) CheckCategory {
	toc := CheckItem{Name: "目录存在", Status: StatusFail,
		Suggestion: "请补充目录页"}
	if strings.Contains(text, "目录") || strings.Contains(text, "目　录") {
		toc.Status = StatusPass
		toc.Suggestion = ""
	}

	monotonic := CheckItem{Name: "页码连续递增", Status: StatusUnknown,
		Suggestion: "请人工核对页码"}
	matches := pageMarkerNumRegex.FindAllStringSubmatch(text, -1)
	if len(matches) >= 2 {
		monotonic.Status = StatusPass
		monotonic.Suggestion = ""
		prev := 0
		for _, m := range matches {
			n, _ := strconv.Atoi(m[1])
			if n <= prev {
				monotonic.Status = StatusFail
				monotonic.Location = "第" + m[1] + "页"
				monotonic.Suggestion = "页码出现回退或重复，请重新编页"
				break
			}
			prev = n
		}
	}
	return CheckCategory{Items: []CheckItem{toc, monotonic}}
}

// 目录行：标题 + 点线/空白 + 页码
var indexEntryRegex = regexp.MustCompile(`(?m)^(.{2,40}?)[\s.…·]{2,}(\d{1,4})\s*$`)

func (c *Checker) checkIndexTable(_ context.Context, text string, _ *Entities) CheckCategory {
	entries := indexEntryRegex.FindAllStringSubmatch(text, -1)

	exists := CheckItem{Name: "索引表存在", Status: StatusFail,
		Suggestion: "请补充带页码的索引表"}
	consistent := CheckItem{Name: "索引页码与正文一致", Status: StatusUnknown,
		Suggestion: "请人工核对索引页码"}

	if len(entries) >= 2 {
		exists.Status = StatusPass
		exists.Suggestion = ""

		bodyPages := make(map[int]bool)
		for _, m := range pageMarkerNumRegex.FindAllStringSubmatch(text, -1) {
			n, _ := strconv.Atoi(m[1])
			bodyPages[n] = true
		}
		if len(bodyPages) > 0 {
			consistent.Status = StatusPass
			consistent.Suggestion = ""
			for _, entry := range entries {
				n, _ := strconv.Atoi(entry[2])
				if !bodyPages[n] {
					consistent.Status = StatusFail
					consistent.Location = strings.TrimSpace(entry[1])
					consistent.Suggestion = "索引页码在正文中不存在，请更新索引"
					break
				}
			}
		}
	}
	return CheckCategory{Items: []CheckItem{exists, consistent}}
}

// idChecks 法人与被授权人共用的三项证件检查。
// 身份证有效期无法从号码推断，文本未明示时该项保持无法判断。
func (c *Checker) idChecks(text, id, name, role string) []CheckItem {
	expiry := CheckItem{Name: role + "证件在有效期内", Status: StatusUnknown,
		Suggestion: "文本中未见证件有效期，请人工核对"}

	nameConsistent := CheckItem{Name: role + "姓名一致", Status: StatusUnknown,
		Suggestion: "请人工核对姓名"}
	if name != "" {
		if strings.Count(text, name) >= 2 {
			nameConsistent.Status = StatusPass
			nameConsistent.Suggestion = ""
		} else {
			nameConsistent.Status = StatusFail
			nameConsistent.Suggestion = "姓名仅出现一次，请核对各处署名是否一致"
		}
	}

	age := CheckItem{Name: role + "年龄在合理范围", Status: StatusUnknown,
		Suggestion: "未识别到身份证号，请人工核对"}
	if id != "" {
		years, err := IDAge(id, c.now())
		if err == nil {
			birth, _ := IDBirthDate(id)
			age.Detail = "出生日期" + FormatBirthDate(birth) + "，" + strconv.Itoa(years) + "周岁"
			if years >= minAge && years <= maxAge {
				age.Status = StatusPass
				age.Suggestion = ""
			} else {
				age.Status = StatusFail
				age.Suggestion = "年龄超出18~80周岁范围，请核实证件号"
			}
		} else {
			age.Suggestion = "身份证号格式异常，请人工核对"
		}
	}
	return []CheckItem{expiry, nameConsistent, age}
}

func (c *Checker) checkLegalPersonID(_ context.Context, text string, e *Entities) CheckCategory {
	return CheckCategory{Items: c.idChecks(text, e.LegalPersonID, e.LegalPersonName, "法人")}
}

func (c *Checker) checkAuthorizedPersonID(_ context.Context, text string, e *Entities) CheckCategory {
	if !e.HasAuthorization {
		// 无授权委托时整类直接通过
		items := make([]CheckItem, 0, 3)
		for _, name := range []string{"被授权人证件在有效期内", "被授权人姓名一致", "被授权人年龄在合理范围"} {
			items = append(items, CheckItem{Name: name, Status: StatusPass, Detail: "无授权委托"})
		}
		return CheckCategory{Items: items}
	}
	return CheckCategory{Items: c.idChecks(text, e.AuthorizedPersonID, e.AuthorizedPersonName, "被授权人")}
}

func (c *Checker) checkLicense(_ context.Context, text string, e *Entities) CheckCategory {
	expiry := CheckItem{Name: "营业执照未过期", Status: StatusUnknown,
		Suggestion: "未识别到营业期限，请人工核对"}
	if e.LicenseLongTerm {
		expiry.Status = StatusPass
		expiry.Detail = "营业期限为长期"
		expiry.Suggestion = ""
	} else if e.LicenseExpiry != "" {
		if t, err := ParseDate(e.LicenseExpiry); err == nil {
			expiry.Detail = "营业期限至" + t.Format("2006年01月02日")
			if t.After(c.now()) {
				expiry.Status = StatusPass
				expiry.Suggestion = ""
			} else {
				expiry.Status = StatusFail
				expiry.Suggestion = "营业执照已过期，请更换有效证照"
			}
		}
	}

	nameConsistent := CheckItem{Name: "公司名称一致", Status: StatusUnknown,
		Suggestion: "请人工核对公司名称"}
	if e.CompanyName != "" {
		if strings.Count(text, e.CompanyName) >= 2 {
			nameConsistent.Status = StatusPass
			nameConsistent.Suggestion = ""
		} else {
			nameConsistent.Status = StatusFail
			nameConsistent.Suggestion = "公司名称仅出现一次，请核对各处名称是否一致"
		}
	}

	codeConsistent := CheckItem{Name: "统一社会信用代码一致", Status: StatusUnknown,
		Suggestion: "未识别到统一社会信用代码，请人工核对"}
	if e.CreditCode != "" {
		if strings.Count(text, e.CreditCode) >= 2 {
			codeConsistent.Status = StatusPass
			codeConsistent.Suggestion = ""
		} else {
			codeConsistent.Status = StatusFail
			codeConsistent.Location = e.CreditCode
			codeConsistent.Suggestion = "信用代码仅出现一次，请核对各处代码是否一致"
		}
	}
	return CheckCategory{Items: []CheckItem{expiry, nameConsistent, codeConsistent}}
}

func (c *Checker) checkResponseDates(_ context.Context, _ string, e *Entities) CheckCategory {
	identical := CheckItem{Name: "响应日期一致", Status: StatusUnknown,
		Suggestion: "未识别到响应日期，请人工核对"}
	if len(e.ResponseDates) > 0 {
		distinct := make(map[string]bool)
		for _, d := range e.ResponseDates {
			if t, err := ParseDate(d); err == nil {
				distinct[t.Format("2006-01-02")] = true
			}
		}
		switch len(distinct) {
		case 0:
		case 1:
			identical.Status = StatusPass
			identical.Suggestion = ""
		default:
			identical.Status = StatusFail
			identical.Suggestion = "文中出现多个不同日期，请统一各处响应日期"
		}
	}

	covers := CheckItem{Name: "授权有效期覆盖投标截止日", Status: StatusUnknown,
		Suggestion: "请人工核对授权有效期"}
	if !e.HasAuthorization {
		covers.Status = StatusPass
		covers.Detail = "无授权委托"
		covers.Suggestion = ""
	} else if e.AuthValidityDays > 0 && e.BidDeadline != "" && len(e.ResponseDates) > 0 {
		deadline, err1 := ParseDate(e.BidDeadline)
		signed, err2 := ParseDate(e.ResponseDates[0])
		if err1 == nil && err2 == nil {
			if !signed.AddDate(0, 0, e.AuthValidityDays).Before(deadline) {
				covers.Status = StatusPass
				covers.Suggestion = ""
			} else {
				covers.Status = StatusFail
				covers.Suggestion = "授权有效期早于投标截止日，请延长授权期限"
			}
		}
	}
	return CheckCategory{Items: []CheckItem{identical, covers}}
}

var (
	unitPriceRegex = regexp.MustCompile(`单价[：:¥￥\s]*([0-9][0-9,，]*(?:\.[0-9]{1,2})?)[^\n]*?数量[：:\s]*([0-9]+)`)
	maxLimitRegex  = regexp.MustCompile(`最高限价[：:¥￥\s]*([0-9][0-9,，]*(?:\.[0-9]{1,2})?)`)
)

func (c *Checker) checkPrice(_ context.Context, text string, e *Entities) CheckCategory {
	upperLower := CheckItem{Name: "大小写金额一致", Status: StatusUnknown,
		Suggestion: "未同时识别到大写与数字金额，请人工核对"}
	if len(e.UpperAmounts) > 0 && len(e.LowerAmounts) > 0 {
		result, err := CheckAmountConsistency(e.UpperAmounts[0], e.LowerAmounts[0])
		if err == nil {
			if result.IsConsistent {
				upperLower.Status = StatusPass
				upperLower.Suggestion = ""
			} else {
				upperLower.Status = StatusFail
				upperLower.Detail = fmt.Sprintf("大写金额%.2f元，数字金额%.2f元，相差%.2f元",
					result.UpperValue, result.LowerValue, result.Difference)
				upperLower.Suggestion = "大小写金额不一致，请修正报价表"
			}
		}
	}

	sum := CheckItem{Name: "分项合计与总价一致", Status: StatusUnknown,
		Suggestion: "未识别到分项报价，请人工核对"}
	items := unitPriceRegex.FindAllStringSubmatch(text, -1)
	if len(items) > 0 && len(e.LowerAmounts) > 0 {
		var subtotal float64
		ok := true
		for _, m := range items {
			price, err := strconv.ParseFloat(strings.NewReplacer(",", "", "，", "").Replace(m[1]), 64)
			qty, err2 := strconv.Atoi(m[2])
			if err != nil || err2 != nil {
				ok = false
				break
			}
			subtotal += price * float64(qty)
		}
		if ok {
			total := e.LowerAmounts[len(e.LowerAmounts)-1]
			for _, v := range e.LowerAmounts {
				if v > total {
					total = v
				}
			}
			diff := subtotal - total
			if diff < 0 {
				diff = -diff
			}
			if diff <= amountTolerance {
				sum.Status = StatusPass
				sum.Suggestion = ""
			} else {
				sum.Status = StatusFail
				sum.Detail = fmt.Sprintf("分项合计%.2f元与总价%.2f元不符", subtotal, total)
				sum.Suggestion = "请核对分项单价与数量"
			}
		}
	}

	ceiling := CheckItem{Name: "报价不超过最高限价", Status: StatusUnknown,
		Suggestion: "未检出最高限价，请人工核对"}
	limit := c.MaxLimit
	if m := maxLimitRegex.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.NewReplacer(",", "", "，", "").Replace(m[1]), 64); err == nil {
			limit = v
		}
	}
	if limit > 0 && len(e.LowerAmounts) > 0 {
		total := e.LowerAmounts[0]
		for _, v := range e.LowerAmounts {
			if v > total {
				total = v
			}
		}
		if total <= limit {
			ceiling.Status = StatusPass
			ceiling.Suggestion = ""
		} else {
			ceiling.Status = StatusFail
			ceiling.Detail = fmt.Sprintf("报价%.2f元超过最高限价%.2f元", total, limit)
			ceiling.Suggestion = "报价超限将被否决，请调整报价"
		}
	}
	return CheckCategory{Items: []CheckItem{upperLower, sum, ceiling}}
}

func (c *Checker) checkPerformance(_ context.Context, text string, _ *Entities) CheckCategory {
	pages := []struct {
		name     string
		keywords []string
	}{
		{"业绩合同封面", []string{"合同"}},
		{"业绩合同盖章页", []string{"盖章", "签章", "公章"}},
		{"业绩合同日期页", []string{"签订日期", "签订时间", "合同日期"}},
		{"业绩合同当事人信息页", []string{"甲方", "乙方"}},
	}

	hasPerformance := strings.Contains(text, "业绩")
	items := make([]CheckItem, 0, len(pages))
	for _, page := range pages {
		item := CheckItem{Name: page.name, Status: StatusUnknown,
			Suggestion: "请人工核对业绩材料"}
		if hasPerformance {
			found := false
			for _, kw := range page.keywords {
				if strings.Contains(text, kw) {
					found = true
					break
				}
			}
			if found {
				item.Status = StatusPass
				item.Suggestion = ""
			} else {
				item.Status = StatusFail
				item.Suggestion = "业绩材料缺少" + page.name + "，请补充"
			}
		}
		items = append(items, item)
	}
	return CheckCategory{Items: items}
}
