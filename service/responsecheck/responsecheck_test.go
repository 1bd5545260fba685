package responsecheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpperAmount(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"壹佰贰拾叁万肆仟伍佰陆拾元整", 1234560},
		{"壹佰万元", 1000000},
		{"伍仟元整", 5000},
		{"拾伍元", 15},
		{"壹亿贰仟万元", 120000000},
		{"叁佰元伍角", 300.5},
		{"贰拾元叁角柒分", 20.37},
		{"人民币壹仟零伍拾元整", 1050},
	}
	for _, tc := range cases {
		got, err := ParseUpperAmount(tc.text)
		require.NoError(t, err, tc.text)
		assert.InDelta(t, tc.want, got, 0.001, tc.text)
	}
}

func TestParseUpperAmountRejectsGarbage(t *testing.T) {
	_, err := ParseUpperAmount("")
	assert.Error(t, err)
	_, err = ParseUpperAmount("不是金额")
	assert.Error(t, err)
}

func TestCheckAmountConsistency(t *testing.T) {
	r, err := CheckAmountConsistency("壹佰贰拾叁万肆仟伍佰陆拾元整", 1234560.00)
	require.NoError(t, err)
	assert.True(t, r.IsConsistent)

	r, err = CheckAmountConsistency("壹佰万元", 1000500)
	require.NoError(t, err)
	assert.False(t, r.IsConsistent)
	assert.InDelta(t, 500, r.Difference, 0.001)

	// ±1元误差容忍
	r, err = CheckAmountConsistency("壹佰万元", 1000000.80)
	require.NoError(t, err)
	assert.True(t, r.IsConsistent)
}

func TestIDBirthDateAndAge(t *testing.T) {
	id := "110101199001011234"
	birth, err := IDBirthDate(id)
	require.NoError(t, err)
	assert.Equal(t, "1990年01月01日", FormatBirthDate(birth))

	age, err := IDAge(id, time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, 36, age)

	// 生日未到则少一岁
	age, err = IDAge("110101199012311234", time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, 35, age)

	_, err = IDBirthDate("12345")
	assert.Error(t, err)
}

func TestParseDateFormats(t *testing.T) {
	for _, s := range []string{"2025年8月28日", "2025-8-28", "2025/08/28", "2025.8.28"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Date(2025, 8, 28, 0, 0, 0, 0, time.Local), d)
	}

	_, err := ParseDate("2025年2月30日")
	assert.Error(t, err)
	_, err = ParseDate("某年某月")
	assert.Error(t, err)
}

func TestExtractByRegex(t *testing.T) {
	text := `投标单位：示例科技有限公司
统一社会信用代码：91110108MA01ABCD23
法定代表人身份证号：110101199001011234
授权委托书 被授权人身份证号：110101198505054321
投标总价：人民币壹佰贰拾叁万肆仟伍佰陆拾元整（¥1,234,560.00元）
营业期限：2010年1月1日至长期
日期：2025年8月28日`

	e := extractByRegex(text)
	assert.Equal(t, "110101199001011234", e.LegalPersonID)
	assert.Equal(t, "110101198505054321", e.AuthorizedPersonID)
	assert.Equal(t, "91110108MA01ABCD23", e.CreditCode)
	assert.True(t, e.HasAuthorization)
	assert.True(t, e.LicenseLongTerm)
	require.NotEmpty(t, e.UpperAmounts)
	assert.Contains(t, e.UpperAmounts[0], "壹佰贰拾叁万")
	require.NotEmpty(t, e.LowerAmounts)
	assert.InDelta(t, 1234560.0, e.LowerAmounts[0], 0.001)
	assert.NotEmpty(t, e.ResponseDates)
}

func TestCheckAlwaysReturnsFullCategoryList(t *testing.T) {
	// 无模型时跑全量检查：类别齐全，模型类项全部无法判断
	c := NewChecker(nil)
	report := c.Check(context.Background(), "目录\n第1页\n第2页\n业绩 合同 盖章 签订日期 甲方 乙方", nil)

	require.Len(t, report.Categories, 10)
	total := 0
	for _, cat := range report.Categories {
		assert.NotEmpty(t, cat.Name)
		total += len(cat.Items)
		for _, item := range cat.Items {
			assert.Contains(t, []string{StatusPass, StatusFail, StatusUnknown}, item.Status)
		}
	}
	assert.Equal(t, 28, total)
	assert.Equal(t, 28, report.TotalItems)
	assert.Equal(t, report.TotalItems, report.PassCount+report.FailCount+report.UnknownCount)
}

func TestCheckProgressStages(t *testing.T) {
	c := NewChecker(nil)
	var stages []int
	c.Check(context.Background(), "内容", func(percent int, category string, completed []CheckCategory) {
		stages = append(stages, percent)
		assert.NotEmpty(t, category)
		assert.Len(t, completed, len(stages))
	})
	assert.Equal(t, []int{23, 31, 39, 47, 55, 63, 71, 79, 87, 95}, stages)
}

func TestCheckPageNumbersMonotonic(t *testing.T) {
	c := NewChecker(nil)

	cat := c.checkPageNumbers(context.Background(), "目录\n第1页\n第2页\n第3页", nil)
	assert.Equal(t, StatusPass, cat.Items[0].Status)
	assert.Equal(t, StatusPass, cat.Items[1].Status)

	cat = c.checkPageNumbers(context.Background(), "第3页\n第2页", nil)
	assert.Equal(t, StatusFail, cat.Items[1].Status)
}

func TestCheckAuthorizedShortCircuit(t *testing.T) {
	c := NewChecker(nil)
	cat := c.checkAuthorizedPersonID(context.Background(), "无委托内容", &Entities{HasAuthorization: false})
	require.Len(t, cat.Items, 3)
	for _, item := range cat.Items {
		assert.Equal(t, StatusPass, item.Status)
		assert.Equal(t, "无授权委托", item.Detail)
	}
}

func TestCheckPriceCeiling(t *testing.T) {
	c := NewChecker(nil)
	text := "最高限价：1,000,000元 投标总价：1,200,000.00元"
	e := extractByRegex(text)
	cat := c.checkPrice(context.Background(), text, e)

	ceiling := cat.Items[2]
	assert.Equal(t, "报价不超过最高限价", ceiling.Name)
	assert.Equal(t, StatusFail, ceiling.Status)
}

func TestExtractLicenseExpiry(t *testing.T) {
	e := extractByRegex("营业期限：2010年1月1日至2030年12月31日")
	assert.False(t, e.LicenseLongTerm)
	assert.Equal(t, "2030年12月31日", e.LicenseExpiry)

	// 长期执照不再找截止日
	e = extractByRegex("营业期限：2010年1月1日至长期")
	assert.True(t, e.LicenseLongTerm)
	assert.Empty(t, e.LicenseExpiry)
}

func TestCheckLicenseExpiry(t *testing.T) {
	c := NewChecker(nil)
	c.now = func() time.Time { return time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local) }

	cat := c.checkLicense(context.Background(), "", &Entities{LicenseExpiry: "2030年12月31日"})
	assert.Equal(t, StatusPass, cat.Items[0].Status)
	assert.Contains(t, cat.Items[0].Detail, "2030年12月31日")

	cat = c.checkLicense(context.Background(), "", &Entities{LicenseExpiry: "2020年1月1日"})
	assert.Equal(t, StatusFail, cat.Items[0].Status)

	cat = c.checkLicense(context.Background(), "", &Entities{LicenseLongTerm: true})
	assert.Equal(t, StatusPass, cat.Items[0].Status)
	assert.Equal(t, "营业期限为长期", cat.Items[0].Detail)
}

func TestCheckAgeOutOfRange(t *testing.T) {
	c := NewChecker(nil)
	c.now = func() time.Time { return time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local) }

	// 2012年出生，检查时14岁
	items := c.idChecks("张三 张三", "110101201201011234", "张三", "法人")
	age := items[2]
	assert.Equal(t, StatusFail, age.Status)
	assert.Contains(t, age.Detail, "2012年01月01日")
}
