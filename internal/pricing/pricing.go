package pricing

import (
	"math"
	"strconv"
	"strings"

	"app/internal/apperr"
)

// ParsePriceToCents はユーザー入力の金額文字列をセント（最小通貨単位）に変換する。
// 区切り文字は「.」「,」どちらも受け付ける:
//   - 両方含む場合は「.」を桁区切り、「,」を小数点として扱う（1.450,75 → 1450.75）
//   - 「,」だけの場合は小数点として扱う（145,50 → 145.50）
func ParsePriceToCents(value string) (int64, error) {
	raw := strings.TrimSpace(value)

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	if strings.Contains(normalized, ",") && strings.Contains(normalized, ".") {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
	} else if strings.Contains(normalized, ",") {
		normalized = strings.Replace(normalized, ",", ".", 1)
	}

	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, apperr.Validation("invalid_price", "invalid price")
	}

	return int64(math.Round(amount * 100)), nil
}

// FormatCentsToNumber は表示用の2桁小数に変換する。表示専用で計算には使わない。
func FormatCentsToNumber(cents int64) float64 {
	return float64(cents) / 100
}

// NormalizeQuantity は数量を1以上の整数に寄せる（0以下は1扱い）。
func NormalizeQuantity(q int64) int64 {
	if q < 1 {
		return 1
	}
	return q
}
