package responsecheck

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"tender-agent-backend/apperr"
	"tender-agent-backend/service/llmclient"
	"time"
)

//go:embed prompts/entities.txt
var entitiesPrompt string

var (
	idCardRegex      = regexp.MustCompile(`\b\d{17}[\dXx]\b`)
	creditCodeRegex  = regexp.MustCompile(`\b[0-9A-HJ-NPQRTUWXY]{18}\b`)
	amountLowerRegex = regexp.MustCompile(`[¥￥]?\s*([0-9][0-9,，]*(?:\.[0-9]{1,2})?)\s*元`)
	amountUpperRegex = regexp.MustCompile(`[零壹贰叁肆伍陆柒捌玖拾佰仟万亿]+元[零壹贰叁肆伍陆柒捌玖角分整正]*`)

	dateRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`),
		regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
		regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
		regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`),
	}

	longTermRegex = regexp.MustCompile(`营业期限[^。\n]*长期`)

	// 营业期限截止日：营业期限…至<日期>
	licenseExpiryRegex = regexp.MustCompile(
		`营业期限[^。\n]*?至\s*(\d{4}年\d{1,2}月\d{1,2}日|\d{4}[-/.]\d{1,2}[-/.]\d{1,2})`)
)

// Entities 响应文件中抽出的关键实体
type Entities struct {
	CompanyName          string    `json:"company_name"`
	LegalPersonName      string    `json:"legal_person_name"`
	LegalPersonID        string    `json:"legal_person_id"`
	AuthorizedPersonName string    `json:"authorized_person_name"`
	AuthorizedPersonID   string    `json:"authorized_person_id"`
	CreditCode           string    `json:"credit_code"`
	LicenseLongTerm      bool      `json:"license_long_term"`
	LicenseExpiry        string    `json:"license_expiry"`
	HasAuthorization     bool      `json:"has_authorization"`
	AuthValidityDays     int       `json:"auth_validity_days"`
	UpperAmounts         []string  `json:"upper_amounts"`
	LowerAmounts         []float64 `json:"lower_amounts"`
	ResponseDates        []string  `json:"response_dates"`
	BidDeadline          string    `json:"bid_deadline"`
}

// ParseDate 支持四种常见写法，非法日期在这里拒绝
func ParseDate(s string) (time.Time, error) {
	for _, re := range dateRegexes {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		if t.Year() != year || int(t.Month()) != month || t.Day() != day {
			return time.Time{}, apperr.Validation("invalid date: "+s, nil)
		}
		return t, nil
	}
	return time.Time{}, apperr.Validation("unrecognized date: "+s, nil)
}

// IDBirthDate 从18位身份证号第7..14位取出生日期
func IDBirthDate(id string) (time.Time, error) {
	if !idCardRegex.MatchString(id) {
		return time.Time{}, apperr.Validation("not an 18-digit id: "+id, nil)
	}
	birth := id[6:14]
	t, err := time.ParseInLocation("20060102", birth, time.Local)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid birth date in id: "+birth, err)
	}
	return t, nil
}

// IDAge 按出生日期折算到now的周岁
func IDAge(id string, now time.Time) (int, error) {
	birth, err := IDBirthDate(id)
	if err != nil {
		return 0, err
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age, nil
}

// FormatBirthDate 身份证出生日期的展示形式 YYYY年MM月DD日
func FormatBirthDate(t time.Time) string {
	return t.Format("2006年01月02日")
}

// extractByRegex 纯规则抽取，LLM不可用时也有基础结果
func extractByRegex(text string) *Entities {
	e := &Entities{}

	ids := idCardRegex.FindAllString(text, -1)
	if len(ids) > 0 {
		e.LegalPersonID = ids[0]
	}
	if len(ids) > 1 && ids[1] != ids[0] {
		e.AuthorizedPersonID = ids[1]
	}

	for _, code := range creditCodeRegex.FindAllString(text, -1) {
		// 统一社会信用代码与身份证号都可能命中18位规则，区分字母
		if strings.IndexFunc(code, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
			e.CreditCode = code
			break
		}
	}

	e.UpperAmounts = amountUpperRegex.FindAllString(text, -1)
	for _, m := range amountLowerRegex.FindAllStringSubmatch(text, -1) {
		raw := strings.NewReplacer(",", "", "，", "").Replace(m[1])
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			e.LowerAmounts = append(e.LowerAmounts, v)
		}
	}

	for _, re := range dateRegexes {
		e.ResponseDates = append(e.ResponseDates, re.FindAllString(text, -1)...)
	}

	e.HasAuthorization = strings.Contains(text, "授权委托") || strings.Contains(text, "委托代理人")
	e.LicenseLongTerm = longTermRegex.MatchString(text)
	if !e.LicenseLongTerm {
		if m := licenseExpiryRegex.FindStringSubmatch(text); m != nil {
			e.LicenseExpiry = m[1]
		}
	}
	return e
}

// ExtractEntities 规则先行，模型补齐姓名、公司名等规则难以定位的字段。
// 模型不可用或失败时返回规则结果。
func ExtractEntities(ctx context.Context, client *llmclient.Client, text string) *Entities {
	e := extractByRegex(text)
	if client == nil {
		return e
	}

	scope := text
	if runes := []rune(scope); len(runes) > 6000 {
		scope = string(runes[:6000])
	}

	resp, err := client.Call(ctx, fmt.Sprintf(entitiesPrompt, scope), llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "entity_extract",
	})
	if err != nil {
		return e
	}

	var llmEnt struct {
		CompanyName          string `json:"company_name"`
		LegalPersonName      string `json:"legal_person_name"`
		AuthorizedPersonName string `json:"authorized_person_name"`
		BidDeadline          string `json:"bid_deadline"`
		AuthValidityDays     int    `json:"auth_validity_days"`
	}
	if err := llmclient.DecodeJSON(resp, &llmEnt); err != nil {
		return e
	}

	e.CompanyName = llmEnt.CompanyName
	e.LegalPersonName = llmEnt.LegalPersonName
	e.AuthorizedPersonName = llmEnt.AuthorizedPersonName
	e.BidDeadline = llmEnt.BidDeadline
	e.AuthValidityDays = llmEnt.AuthValidityDays
	return e
}
