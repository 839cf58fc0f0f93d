package layout

// 该文件定义布局结果与资源描述，供自适应文本、渲染与调试 JSON 共用。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]Color        `json:"colors"`
	Styles map[string]Style        `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径、embed:<name> 或 built-in:<name>。
type FontResource struct {
	Name     string `json:"name"`
	Src      string `json:"src"`
	Style    string `json:"style"`
	Family   string `json:"family"` // 渲染器使用的 Family 名称
	Fallback string `json:"fallback,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DefaultTextColor 是未指定颜色时的文本颜色。
var DefaultTextColor = Color{R: 30, G: 30, B: 30}

// Page 记录页面尺寸、边距与最终可以直接渲染的元素（单位：mm）。
type Page struct {
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Margin  Margin   `json:"margin"`
	Boxes   []FitBox `json:"boxes"`
	Lines   []Line   `json:"lines,omitempty"`
	Rects   []Rect   `json:"rects,omitempty"`
	Circles []Circle `json:"circles,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// FitBox 是一个已经定位、且字号已收敛的自适应文本框。
type FitBox struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Frame Frame   `json:"frame"`
	Block *Block  `json:"block"`
	Fit   FitInfo `json:"fit"`
}

// Frame 描述容器的装饰：背景、边框与内边距（mm）。
type Frame struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Padding     float64 `json:"padding,omitempty"`
	Background  *Color  `json:"background,omitempty"`
	BorderColor *Color  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
}

// FitInfo 记录收缩循环的诊断信息，仅用于调试输出。
type FitInfo struct {
	Target Length `json:"target"`
	Final  Length `json:"final"`
	Passes int    `json:"passes"`
	State  string `json:"state"`
}

// Block 是排版服务一次测量/绘制的结果：可见行、字号与溢出状态。
// 坐标相对于文本区域左上角，单位均为 mm。
type Block struct {
	Text          RichText   `json:"text"`
	Style         TextStyle  `json:"style"`
	FontSize      Length     `json:"fontSize"`
	LineHeight    float64    `json:"lineHeight"`
	Width         float64    `json:"width"`
	Height        float64    `json:"height"`
	Align         string     `json:"align,omitempty"`
	Overflow      string     `json:"overflow,omitempty"`
	Lines         []TextLine `json:"lines"`
	TotalLines    int        `json:"totalLines"`
	OverflowWidth bool       `json:"overflowWidth,omitempty"`
	Truncated     bool       `json:"truncated,omitempty"`
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content    string    `json:"content"`
	Runs       []TextRun `json:"runs,omitempty"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	GapBefore  float64   `json:"gapBefore,omitempty"`
	Ellipsized bool      `json:"ellipsized,omitempty"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Circle 表示一个圆。
type Circle struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"`
}

// Style 用于描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
