package model

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// StateResponse 页面轮询的视图状态
type StateResponse struct {
	Success     bool              `json:"success"`
	FileName    string            `json:"file_name,omitempty"`
	PreviewURL  string            `json:"preview_url,omitempty"`
	Dimensions  DisplayDimensions `json:"dimensions"`
	Loading     bool              `json:"loading"`
	API         APIStatus         `json:"api"`
	Confidence  float64           `json:"confidence"`
	ShowGuide   bool              `json:"show_guide"`
	CanAnalyze  bool              `json:"can_analyze"`
	Error       string            `json:"error,omitempty"`
	Boxes       []OverlayBox      `json:"boxes"`
	Cards       []DiseaseCard     `json:"cards"`
	Predictions []Prediction      `json:"predictions"`
	Image       *ImageInfo        `json:"image,omitempty"`
	Summary     *Summary          `json:"summary,omitempty"`
	ElapsedMS   int64             `json:"elapsed_ms,omitempty"`
}

// DimensionsRequest 图片 onload 时上报
type DimensionsRequest struct {
	Natural   Size `json:"natural"`
	Displayed Size `json:"displayed"`
}

// ResizeRequest 窗口 resize 时上报
type ResizeRequest struct {
	Displayed Size `json:"displayed"`
}

type ConfidenceRequest struct {
	Confidence float64 `json:"confidence"`
}

// ClassesResponse GET /classes 的响应体
type ClassesResponse struct {
	Classes    map[string]string `json:"classes"`
	AdviceKeys []string          `json:"advice_keys"`
}
