package model

// Size 像素尺寸，图片加载完成前为零
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// DisplayDimensions 图像的原始尺寸和当前渲染尺寸
type DisplayDimensions struct {
	Natural   Size `json:"natural"`
	Displayed Size `json:"displayed"`
}

// OverlayBox 映射到显示坐标系后的矩形，宽高可能为负
type OverlayBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
	Text   string  `json:"text"`
	Title  string  `json:"title"`
}

// DiseaseCard 按病害标签聚合后的建议卡片
type DiseaseCard struct {
	Label         string  `json:"label"`
	MaxConfidence float64 `json:"max_confidence"`
	Advice        *Advice `json:"advice,omitempty"`
}

var emptyAdvice = []string{"—"}

// DisplayName 优先显示泰文名
func (d DiseaseCard) DisplayName() string {
	if d.Advice != nil && d.Advice.ThaiName != "" {
		return d.Advice.ThaiName
	}
	return d.Label
}

func (d DiseaseCard) HasThaiName() bool {
	return d.Advice != nil && d.Advice.ThaiName != ""
}

func (d DiseaseCard) Treatment() []string {
	if d.Advice == nil || d.Advice.Treatment == nil {
		return emptyAdvice
	}
	return d.Advice.Treatment
}

func (d DiseaseCard) Control() []string {
	if d.Advice == nil || d.Advice.Control == nil {
		return emptyAdvice
	}
	return d.Advice.Control
}
