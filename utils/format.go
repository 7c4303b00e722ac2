package utils

import (
	"math"
	"strconv"
)

// FormatPercent 把 0..1 的比例格式化为百分数，保留 digits 位小数，.5 向上进位
func FormatPercent(v float64, digits int) string {
	pow := math.Pow(10, float64(digits))
	// 先消除二进制误差，例如 0.0625*100*10 = 62.49999...
	scaled := math.Round(v*100*pow*1e6) / 1e6
	return strconv.FormatFloat(math.Floor(scaled+0.5)/pow, 'f', digits, 64)
}
