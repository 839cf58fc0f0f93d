package layout

// 折行策略。
const (
	WrapAnywhere  = "anywhere"   // 优先在空白处分割，超过限制时在词内拆分
	WrapBreakWord = "break-word" // 忽略空白机会，纯按宽度切分
	WrapNone      = "nowrap"     // 仅按显式换行划分
)

// NormalizeWrap 规范化 DSL 中的折行取值，未知值按 anywhere 处理。
func NormalizeWrap(v string) string {
	switch v {
	case "break-word", "word-break:break-word":
		return WrapBreakWord
	case "nowrap", "no-wrap":
		return WrapNone
	default:
		return WrapAnywhere
	}
}

// TextRequest 描述一次排版请求。所有长度均为毫米（mm）。
type TextRequest struct {
	Text          RichText
	Width         float64 // <=0 表示不限宽度
	FontSize      float64
	LineHeight    float64
	LetterSpacing float64
	Style         TextStyle
	Font          FontResource
	Fonts         map[string]FontResource // span 中按名称引用的字体
	Wrap          string
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// 返回的每一行 Width 为实际测量宽度，可能大于请求宽度（例如 nowrap 或单个字形过宽）。
type Typesetter interface {
	LayoutLines(req TextRequest) ([]TextLine, error)
}
