package infoextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025t08g28e14e30", "2025年08月28日14时30分"},
		{"2025x8y28z9w05", "2025年08月28日09时05分"},
		{"2025年8月28日14时30分", "2025年08月28日14时30分"},
		{"2025年08月28日 14:30", "2025年08月28日14时30分"},
		{"2025年8月28日9点05分", "2025年08月28日09时05分"},
		{"上午九时", "上午九时"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTime(tc.in), tc.in)
	}
}

func TestPoorQuality(t *testing.T) {
	assert.True(t, poorQuality("project_name", ""))
	assert.True(t, poorQuality("project_number", "A12"))
	assert.True(t, poorQuality("project_number", "编号ZB2025"))
	assert.False(t, poorQuality("project_number", "ZB-2025-001"))
	assert.False(t, poorQuality("tenderer", "某某市人民医院"))
}

func TestExtractByRegex(t *testing.T) {
	text := `项目名称：医院信息化升级采购项目
项目编号：ZB-2025-0828
采购人：某某市人民医院
招标代理机构：某某工程咨询有限公司
本项目采用公开招标方式。
开标地点：某某市公共资源交易中心三楼开标室
开标时间：2025年8月28日14时30分
中标人数量：1名
预算金额：人民币1,234,560元`

	info := extractByRegex(text)
	assert.Equal(t, "医院信息化升级采购项目", info.ProjectName)
	assert.Equal(t, "ZB-2025-0828", info.ProjectNumber)
	assert.Equal(t, "某某市人民医院", info.Tenderer)
	assert.Equal(t, "某某工程咨询有限公司", info.Agency)
	assert.Equal(t, "公开招标", info.BiddingMethod)
	assert.Equal(t, "某某市公共资源交易中心三楼开标室", info.BiddingLocation)
	assert.Equal(t, "2025年08月28日14时30分", info.BiddingTime)
	assert.Equal(t, "1", info.WinnerCount)
	assert.Equal(t, "1,234,560元", info.Budget)
}

func TestExtractBasicInfoWithoutModel(t *testing.T) {
	// 无模型时返回规则结果，低质量字段保持原样
	e := NewExtractor(nil)
	info := e.ExtractBasicInfo(context.Background(), "项目名称：测试项目\n项目编号：A1")
	assert.Equal(t, "测试项目", info.ProjectName)
	assert.Equal(t, "A1", info.ProjectNumber)
}

func TestMatchQualifications(t *testing.T) {
	text := `投标人须提供有效的营业执照副本复印件。
须提供法定代表人授权委托书原件。
投标人应提供近三年类似项目业绩证明材料。
须提供信用中国网站查询记录截图。
投标人须按规定缴纳投标保证金。`

	results := MatchQualifications(text)
	require.Len(t, results, 19)

	byCode := make(map[string]ChecklistResult, len(results))
	for _, r := range results {
		byCode[r.Code] = r
	}

	assert.True(t, byCode["business_license"].Found)
	assert.True(t, byCode["authorization_letter"].Found)
	assert.True(t, byCode["performance"].Found)
	assert.True(t, byCode["credit_china"].Found)
	assert.True(t, byCode["bid_bond"].Found)
	assert.False(t, byCode["social_security"].Found)
	assert.False(t, byCode["consortium"].Found)

	require.NotEmpty(t, byCode["business_license"].Requirements)
	assert.Contains(t, byCode["business_license"].Requirements[0], "营业执照")
}

func TestMatchQualificationsCapsAtThreeSentences(t *testing.T) {
	text := `须提供营业执照。营业执照须在有效期内。营业执照经营范围须覆盖本项目。投标时携带营业执照原件。`
	results := MatchQualifications(text)
	for _, r := range results {
		if r.Code == "business_license" {
			assert.Len(t, r.Requirements, 3)
		}
	}
}

func TestQualificationRequirements(t *testing.T) {
	results := []ChecklistResult{
		{Code: "business_license", ChecklistName: "营业执照", Found: true,
			Requirements: []string{"须提供营业执照副本", "营业执照须在有效期内"}},
		{Code: "consortium", ChecklistName: "联合体协议", Found: false},
	}
	reqs := QualificationRequirements("proj-1", results)
	require.Len(t, reqs, 1)

	r := reqs[0]
	assert.Equal(t, "proj-1", r.ProjectID)
	assert.Equal(t, "qualification", string(r.Category))
	assert.Equal(t, "mandatory", string(r.ConstraintType))
	assert.Equal(t, "business_license", r.Subcategory)
	assert.Equal(t, "营业执照", r.Summary)
	assert.Contains(t, r.Detail, "须提供营业执照副本")
	assert.NotEmpty(t, r.RequirementID)
}
