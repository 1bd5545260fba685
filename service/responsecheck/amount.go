package responsecheck

import (
	"math"
	"strings"
	"tender-agent-backend/apperr"
)

// 金额比对允许±1元误差
const amountTolerance = 1.0

var upperDigits = map[rune]float64{
	'零': 0, '壹': 1, '贰': 2, '叁': 3, '肆': 4,
	'伍': 5, '陆': 6, '柒': 7, '捌': 8, '玖': 9,
}

var upperUnits = map[rune]float64{
	'拾': 10, '佰': 100, '仟': 1000,
}

// ParseUpperAmount 解析中文大写金额（元为单位）。
// 拾佰仟在节内累加，万为节进位，亿为乘法进位；角分为小数位。
func ParseUpperAmount(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperr.Validation("empty amount text", nil)
	}

	var total, section, num float64
	var decimal float64
	inDecimal := false
	seen := false

	for _, r := range text {
		switch {
		case upperDigits[r] != 0 || r == '零':
			num = upperDigits[r]
			seen = true
		case upperUnits[r] != 0:
			if inDecimal {
				return 0, apperr.Validation("unit after decimal point: "+string(r), nil)
			}
			unit := upperUnits[r]
			if num == 0 && unit == 10 {
				// 拾伍 写法
				section += 10
			} else {
				section += num * unit
			}
			num = 0
			seen = true
		case r == '万':
			section = (section + num) * 10000
			total += section
			section, num = 0, 0
			seen = true
		case r == '亿':
			total = (total + section + num) * 1e8
			section, num = 0, 0
			seen = true
		case r == '元' || r == '圆':
			total += section + num
			section, num = 0, 0
			inDecimal = true
		case r == '角':
			decimal += num * 0.1
			num = 0
		case r == '分':
			decimal += num * 0.01
			num = 0
		case r == '整' || r == '正':
			// 结束符
		case r == '人' || r == '民' || r == '币' || r == '：' || r == ':' || r == ' ':
			// 前缀与分隔
		default:
			return 0, apperr.Validation("unexpected rune in amount: "+string(r), nil)
		}
	}
	if !seen {
		return 0, apperr.Validation("no digits in amount text", nil)
	}
	if !inDecimal {
		total += section + num
	}
	return total + decimal, nil
}

// AmountConsistency 大小写金额比对结果
type AmountConsistency struct {
	Upper        string  `json:"upper"`
	UpperValue   float64 `json:"upper_value"`
	LowerValue   float64 `json:"lower_value"`
	IsConsistent bool    `json:"is_consistent"`
	Difference   float64 `json:"difference"`
}

// CheckAmountConsistency 大写金额与数字金额比对，容差±1元
func CheckAmountConsistency(upper string, lower float64) (*AmountConsistency, error) {
	value, err := ParseUpperAmount(upper)
	if err != nil {
		return nil, err
	}
	diff := math.Abs(value - lower)
	return &AmountConsistency{
		Upper:        upper,
		UpperValue:   value,
		LowerValue:   lower,
		IsConsistent: diff <= amountTolerance,
		Difference:   diff,
	}, nil
}
