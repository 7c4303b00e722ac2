package model

import "math"

// APIStatus 检测服务可达性，三态
type APIStatus int

const (
	APIUnknown APIStatus = iota
	APIOnline
	APIOffline
)

func (s APIStatus) String() string {
	switch s {
	case APIOnline:
		return "online"
	case APIOffline:
		return "offline"
	default:
		return "unknown"
	}
}

func (s APIStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *APIStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "online":
		*s = APIOnline
	case "offline":
		*s = APIOffline
	default:
		*s = APIUnknown
	}
	return nil
}

const (
	DefaultConfidence = 0.25
	MinConfidence     = 0.1
	MaxConfidence     = 0.9
	ConfidenceStep    = 0.05
)

// ImageFile 用户选择的图片
type ImageFile struct {
	Name        string
	ContentType string
	Content     []byte
}

func (f *ImageFile) Size() int64 {
	return int64(len(f.Content))
}

// ViewState 单个浏览器会话的界面状态。
// 所有转换方法都是值接收者，返回新状态，不修改原状态。
type ViewState struct {
	File        *ImageFile
	PreviewID   string
	Natural     Size
	Displayed   Size
	Predictions []Prediction
	Loading     bool
	API         APIStatus
	Confidence  float64
	ShowGuide   bool
	Error       string

	// 最近一次成功分析的附加信息
	Image     *ImageInfo
	Summary   *Summary
	ElapsedMS int64
}

func NewViewState() ViewState {
	return ViewState{
		Confidence: DefaultConfidence,
		ShowGuide:  true,
	}
}

// SelectFile 替换文件并重置预测和尺寸，覆盖层在新图片上报尺寸前保持隐藏
func (s ViewState) SelectFile(file *ImageFile, previewID string) ViewState {
	s.File = file
	s.PreviewID = previewID
	s.Predictions = nil
	s.Image = nil
	s.Summary = nil
	s.ElapsedMS = 0
	s.ShowGuide = false
	s.Natural = Size{}
	s.Displayed = Size{}
	s.Error = ""
	return s
}

// ImageLoaded 记录图片加载完成后的原始尺寸和显示尺寸
func (s ViewState) ImageLoaded(natural, displayed Size) ViewState {
	s.Natural = natural
	s.Displayed = displayed
	return s
}

// Resized 窗口变化只更新显示尺寸
func (s ViewState) Resized(displayed Size) ViewState {
	s.Displayed = displayed
	return s
}

func (s ViewState) SetConfidence(v float64) ViewState {
	s.Confidence = ClampConfidence(v)
	return s
}

func (s ViewState) SetAPIStatus(status APIStatus) ViewState {
	s.API = status
	return s
}

func (s ViewState) BeginAnalysis() ViewState {
	s.Loading = true
	s.Error = ""
	return s
}

func (s ViewState) AnalysisSucceeded(resp *PredictResponse) ViewState {
	s.Loading = false
	s.Predictions = []Prediction{}
	s.Image = nil
	s.Summary = nil
	s.ElapsedMS = 0
	if resp != nil {
		if resp.Predictions != nil {
			s.Predictions = resp.Predictions
		}
		s.Image = resp.Image
		s.Summary = resp.Summary
		s.ElapsedMS = resp.ElapsedMS
	}
	return s
}

func (s ViewState) AnalysisFailed(message string) ViewState {
	s.Loading = false
	s.Error = message
	return s
}

func (s ViewState) Dimensions() DisplayDimensions {
	return DisplayDimensions{Natural: s.Natural, Displayed: s.Displayed}
}

// CanAnalyze 与页面上分析按钮的可用状态一致
func (s ViewState) CanAnalyze() bool {
	return s.File != nil && !s.Loading
}

// ClampConfidence 限制在 [0.1, 0.9] 并对齐到 0.05 步长
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultConfidence
	}
	v = math.Max(MinConfidence, math.Min(MaxConfidence, v))
	steps := math.Round((v - MinConfidence) / ConfidenceStep)
	return math.Round((MinConfidence+steps*ConfidenceStep)*100) / 100
}
