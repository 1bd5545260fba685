package infoextract

import (
	"regexp"
	"strings"
	"tender-agent-backend/model"

	"github.com/google/uuid"
)

// checklistEntry 固定资质清单项，纯关键词匹配，不走模型
type checklistEntry struct {
	Code    string
	Name    string
	pattern *regexp.Regexp
}

// 标准政采/招标资质清单，共19项
var qualificationChecklist = []checklistEntry{
	{"business_license", "营业执照", regexp.MustCompile(`营业执照`)},
	{"legal_person_cert", "法定代表人身份证明", regexp.MustCompile(`法定代表人(身份证明|证明书|身份证)`)},
	{"authorization_letter", "法定代表人授权委托书", regexp.MustCompile(`授权委托书|法人授权书|授权书`)},
	{"taxpayer_status", "纳税人资格证明", regexp.MustCompile(`一般纳税人|小规模纳税人|纳税人资格`)},
	{"tax_payment", "依法缴纳税收证明", regexp.MustCompile(`缴纳税收|纳税证明|完税证明`)},
	{"social_security", "社会保险缴纳证明", regexp.MustCompile(`社会保险|社保缴纳|社会保障资金`)},
	{"audited_financials", "财务审计报告", regexp.MustCompile(`审计报告|财务报告|财务报表`)},
	{"performance", "类似项目业绩", regexp.MustCompile(`类似(项目)?业绩|项目业绩|业绩证明`)},
	{"credit_china", "信用中国查询记录", regexp.MustCompile(`信用中国|信用记录|失信被?执行人`)},
	{"commitment_letter", "投标承诺函", regexp.MustCompile(`承诺函|承诺书`)},
	{"no_illegal_record", "无重大违法记录声明", regexp.MustCompile(`重大违法记录|无违法记录声明`)},
	{"labor_contract", "劳动合同", regexp.MustCompile(`劳动合同`)},
	{"quality_cert", "质量管理体系认证", regexp.MustCompile(`质量管理体系|ISO9001|ISO 9001`)},
	{"bid_bond", "保证金缴纳证明", regexp.MustCompile(`(投标|磋商|谈判)?保证金`)},
	{"industry_cert", "行业资质证书", regexp.MustCompile(`资质证书|资质等级|行业资质`)},
	{"bank_account", "开户许可证", regexp.MustCompile(`开户许可证|基本存款账户`)},
	{"consortium", "联合体协议", regexp.MustCompile(`联合体(协议|投标)`)},
	{"sme_declaration", "中小企业声明函", regexp.MustCompile(`中小企业声明|小微企业声明`)},
	{"test_report", "产品检测报告", regexp.MustCompile(`检测报告|检验报告|测试报告`)},
}

// ChecklistResult 单个资质项的匹配结果
type ChecklistResult struct {
	Code          string   `json:"code"`
	ChecklistName string   `json:"checklist_name"`
	Found         bool     `json:"found"`
	Requirements  []string `json:"requirements"`
}

var sentenceSplitRegex = regexp.MustCompile(`[。；;！!？?\n]`)

// MatchQualifications 对全文跑固定清单，每项最多保留3条命中语句
func MatchQualifications(text string) []ChecklistResult {
	sentences := sentenceSplitRegex.Split(text, -1)

	results := make([]ChecklistResult, 0, len(qualificationChecklist))
	for _, entry := range qualificationChecklist {
		result := ChecklistResult{Code: entry.Code, ChecklistName: entry.Name}
		for _, s := range sentences {
			s = strings.TrimSpace(s)
			if s == "" || !entry.pattern.MatchString(s) {
				continue
			}
			result.Requirements = append(result.Requirements, truncateRunes(s, 200))
			if len(result.Requirements) >= 3 {
				break
			}
		}
		result.Found = len(result.Requirements) > 0
		results = append(results, result)
	}
	return results
}

// QualificationRequirements 将命中的清单项转为资质类需求行
func QualificationRequirements(projectID string, results []ChecklistResult) []model.TenderRequirement {
	var reqs []model.TenderRequirement
	for _, r := range results {
		if !r.Found {
			continue
		}
		reqs = append(reqs, model.TenderRequirement{
			RequirementID:        uuid.NewString(),
			ProjectID:            projectID,
			ConstraintType:       model.ConstraintMandatory,
			Category:             model.CategoryQualification,
			Subcategory:          r.Code,
			Detail:               strings.Join(r.Requirements, "；"),
			Summary:              r.ChecklistName,
			Priority:             model.PriorityHigh,
			ExtractionConfidence: 1.0,
		})
	}
	return reqs
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
