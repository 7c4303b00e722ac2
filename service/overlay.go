package service

import (
	"fmt"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
)

// ClassColor 类别编号、标签和颜色
type ClassColor struct {
	ID    int
	Label string
	Color string
}

// ClassPalette 已知的 13 个类别，顺序即兜底调色板顺序
var ClassPalette = []ClassColor{
	{0, "Durian Leaf Blight Disease", "#ef4444"},
	{1, "Durian Leaf Rust Disease", "#f97316"},
	{2, "Durian Leaf Spot Disease", "#eab308"},
	{3, "Leaf scorch", "#a855f7"},
	{4, "Longkong-Rust-Spot-Disease", "#06b6d4"},
	{5, "Mangosteen black spot disease", "#2563eb"},
	{6, "Mangosteen-Leaf-Drying", "#16a34a"},
	{7, "Mangosteen-Leaf-Spot-Disease", "#15803d"},
	{8, "Mealybug", "#f43f5e"},
	{9, "Powdery mildew of Rumbutan", "#ec4899"},
	{10, "Rambutan Leaf Blight Disease", "#8b5cf6"},
	{11, "Rambutan-Algal-Spot-Disease", "#dc2626"},
	{12, "non-disease", "#0ea5e9"},
}

var (
	colorByID    = make(map[int]string, len(ClassPalette))
	colorByLabel = make(map[string]string, len(ClassPalette))
)

func init() {
	for _, c := range ClassPalette {
		colorByID[c.ID] = c.Color
		colorByLabel[c.Label] = c.Color
	}
}

// FallbackColor 按 |classId| mod 13 取色
func FallbackColor(id model.ClassID) string {
	if !id.Valid {
		return ClassPalette[0].Color
	}
	v := id.Value
	if v < 0 {
		v = -v
	}
	return ClassPalette[v%len(ClassPalette)].Color
}

// PickColor 先按编号，再按标签，最后使用兜底调色板
func PickColor(p model.Prediction) string {
	if p.ClassID.Valid {
		if c, ok := colorByID[p.ClassID.Value]; ok {
			return c
		}
	}
	if p.Label != "" {
		if c, ok := colorByLabel[p.Label]; ok {
			return c
		}
	}
	return FallbackColor(p.ClassID)
}

// BoxLabel 框上显示的文字，例如 "Mealybug (87.5%)"
func BoxLabel(p model.Prediction) string {
	return fmt.Sprintf("%s (%s%%)", p.Label, utils.FormatPercent(p.Confidence, 1))
}

