package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Prediction 检测服务返回的单个检测区域
type Prediction struct {
	ClassID    ClassID `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	IsDisease  bool    `json:"is_disease"`
	Advice     *Advice `json:"advice,omitempty"`
}

// Box 原始图像像素坐标系下的边界框，不保证 x1<x2、y1<y2
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Advice 病害处理建议
type Advice struct {
	ThaiName  string   `json:"thai_name"`
	Treatment []string `json:"treatment"`
	Control   []string `json:"control"`
}

// ImageInfo 检测服务解码后的图像尺寸
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type LabelStat struct {
	Count   int     `json:"count"`
	MaxConf float64 `json:"max_conf"`
}

type Summary struct {
	TopLabel *string              `json:"top_label"`
	ByLabel  map[string]LabelStat `json:"by_label"`
}

// PredictResponse POST /predict 的响应体
type PredictResponse struct {
	Image       *ImageInfo   `json:"image,omitempty"`
	Predictions []Prediction `json:"predictions"`
	Summary     *Summary     `json:"summary,omitempty"`
	ElapsedMS   int64        `json:"elapsed_ms,omitempty"`
}

// ClassID 可能为空或格式错误的类别编号。
// 无法解析为整数的值不会导致解码失败，只是 Valid 为 false。
type ClassID struct {
	Value int
	Valid bool
}

func NewClassID(v int) ClassID {
	return ClassID{Value: v, Valid: true}
}

func (c *ClassID) UnmarshalJSON(data []byte) error {
	*c = ClassID{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	// 超出 int 范围的值无法取模，MinInt 取绝对值会溢出
	if f >= math.MaxInt || f <= math.MinInt {
		return nil
	}

	*c = NewClassID(int(f))
	return nil
}

func (c ClassID) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

func (c ClassID) String() string {
	if !c.Valid {
		return "null"
	}
	return strconv.Itoa(c.Value)
}
