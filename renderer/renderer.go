package renderer

import "github.com/ByLCY/shrinktext/layout"

// Renderer 将布局结果输出为最终文件，例如 PDF 或纯文本预览。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Backend 同时负责测量与输出：收缩循环用它排版，排版结果再交给它渲染。
type Backend interface {
	Renderer
	layout.Typesetter
}
