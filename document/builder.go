// Package document turns a parsed DSL document into a layout.Result whose
// text boxes have been shrunk to fit. A Builder keeps one fit.Text per box
// between builds, so a rebuild only re-measures what changed.
package document

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ByLCY/shrinktext/binding"
	"github.com/ByLCY/shrinktext/dsl"
	"github.com/ByLCY/shrinktext/fit"
	"github.com/ByLCY/shrinktext/layout"
)

const (
	defaultFont  = "Body"
	blockSpacing = 3.0
	maxUseDepth  = 8
)

var defaultSize = layout.Pt(12)

// Options configures a Builder. Guards left at zero are applied only when a
// box sets them itself.
type Options struct {
	Typesetter   layout.Typesetter
	ShrinkFactor float64
	MinSize      layout.Length
	MaxPasses    int
	Logger       *slog.Logger
	// OnPass 在每个文本框的每一轮测量后调用。
	OnPass func(box string, p fit.Pass)
}

// Builder lays documents out. It is safe for concurrent use; builds are serialized.
type Builder struct {
	opts   Options
	log    *slog.Logger
	engine *fit.TypesetterEngine

	mu    sync.Mutex
	texts map[string]*cachedText
}

type cachedText struct {
	text   *fit.Text
	config fit.Options
}

// NewBuilder validates the options and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("document: 缺少排版后端 Typesetter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		opts:   opts,
		log:    logger,
		engine: &fit.TypesetterEngine{Typesetter: opts.Typesetter},
		texts:  map[string]*cachedText{},
	}, nil
}

// Build 根据 DSL AST 生成页面与文本框的布局结果。
// 有文本框在保护参数内未能收敛时，仍返回完整结果，同时返回包装了 fit.ErrNotConverged 的错误。
func (b *Builder) Build(doc *dsl.Document, data any) (*layout.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	b.engine.Fonts = res.Fonts

	pageSets := map[string]*dsl.Block{}
	for _, section := range doc.Sections {
		if section.PageSet != nil {
			pageSets[section.PageSet.Name] = section.PageSet.Block
		}
	}

	run := &buildRun{
		b:        b,
		res:      res,
		data:     data,
		pageSets: pageSets,
		seen:     map[string]bool{},
	}
	result := &layout.Result{Resources: res, Meta: collectMeta(doc, data)}
	for _, section := range doc.Sections {
		if section.Page == nil {
			continue
		}
		page, err := run.page(len(result.Pages), section.Page)
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, page)
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}

	for key := range b.texts {
		if !run.seen[key] {
			delete(b.texts, key)
		}
	}
	return result, errors.Join(run.unconverged...)
}

// buildRun 保存一次 Build 的中间状态。
type buildRun struct {
	b           *Builder
	res         layout.ResourceSet
	data        any
	pageSets    map[string]*dsl.Block
	seen        map[string]bool
	unconverged []error
}

type pageContext struct {
	index   int
	page    *layout.Page
	cursorY float64
	count   int
	names   map[string]bool
}

func (r *buildRun) page(index int, section *dsl.PageSection) (layout.Page, error) {
	width, height, err := resolvePageSize(section.Spec)
	if err != nil {
		return layout.Page{}, err
	}
	margin := resolveMargin(section.Spec.Params)
	page := layout.Page{Width: width, Height: height, Margin: margin}
	ctx := &pageContext{index: index, page: &page, cursorY: margin.Top, names: map[string]bool{}}
	if err := r.block(section.Block, ctx, 0); err != nil {
		return layout.Page{}, fmt.Errorf("第 %d 页: %w", index+1, err)
	}
	return page, nil
}

func (r *buildRun) block(block *dsl.Block, ctx *pageContext, depth int) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		switch cmd.Name {
		case "use":
			if len(cmd.Args) == 0 {
				return fmt.Errorf("use 缺少 page-set 名称")
			}
			set, ok := r.pageSets[cmd.Args[0].Value]
			if !ok {
				return fmt.Errorf("page-set %s 未定义", cmd.Args[0].Value)
			}
			if depth >= maxUseDepth {
				return fmt.Errorf("page-set %s 嵌套过深", cmd.Args[0].Value)
			}
			if err := r.block(set, ctx, depth+1); err != nil {
				return err
			}
		case "fit":
			if err := r.fitBox(cmd, ctx); err != nil {
				return err
			}
		case "line":
			if ln, ok := parseLineShape(parseAttrs(cmd.Args), r.res); ok {
				ctx.page.Lines = append(ctx.page.Lines, ln)
			}
		case "rect":
			if rc, ok := parseRectShape(parseAttrs(cmd.Args), r.res); ok {
				ctx.page.Rects = append(ctx.page.Rects, rc)
			}
		case "circle":
			if c, ok := parseCircleShape(parseAttrs(cmd.Args), r.res); ok {
				ctx.page.Circles = append(ctx.page.Circles, c)
			}
		default:
			r.b.log.Debug("忽略未知指令", "command", cmd.Name, "line", cmd.Pos.Line)
		}
	}
	return nil
}

// fitBox 解析一个 fit 指令并运行收缩循环。x/y 相对于页边距内的内容区域。
func (r *buildRun) fitBox(cmd *dsl.Command, ctx *pageContext) error {
	attrs := r.fitAttributes(cmd)
	ctx.count++
	name := attrs["name"]
	if name == "" {
		name = fmt.Sprintf("fit%d", ctx.count)
	}
	if ctx.names[name] {
		return fmt.Errorf("文本框名称重复：%s", name)
	}
	ctx.names[name] = true

	page := ctx.page
	contentWidth := page.Width - page.Margin.Left - page.Margin.Right
	contentHeight := page.Height - page.Margin.Top - page.Margin.Bottom

	x := page.Margin.Left + dimension(attrs["x"], contentWidth)
	y := ctx.cursorY
	if v := attrs["y"]; v != "" {
		y = page.Margin.Top + dimension(v, contentHeight)
	}
	width := dimension(attrs["width"], contentWidth)
	if attrs["width"] == "" {
		width = page.Margin.Left + contentWidth - x
	}
	height := dimension(attrs["height"], contentHeight)
	padding := mm(attrs["padding"])

	opts, err := r.fitOptions(name, attrs)
	if err != nil {
		return fmt.Errorf("文本框 %s: %w", name, err)
	}
	opts.Box = fit.Box{Width: width - 2*padding}
	if height > 0 {
		opts.Box.Height = height - 2*padding
	}

	var rich layout.RichTextBuilder
	r.richText(cmd.Block, layout.SpanStyle{}, &rich)

	key := fmt.Sprintf("%d/%s", ctx.index, name)
	r.seen[key] = true
	text, err := r.b.text(key, rich.RichText(), opts)
	if err != nil {
		return fmt.Errorf("文本框 %s: %w", name, err)
	}
	block, err := text.Render()
	switch {
	case errors.Is(err, fit.ErrNotConverged):
		r.unconverged = append(r.unconverged, fmt.Errorf("文本框 %s: %w", key, err))
	case err != nil:
		return fmt.Errorf("文本框 %s: %w", name, err)
	}

	frame := layout.Frame{
		Width:       width,
		Height:      height,
		Padding:     padding,
		BorderWidth: mm(attrs["border-width"]),
	}
	if frame.Height <= 0 && block != nil {
		frame.Height = block.Height + 2*padding
	}
	if c, ok := resolveColor(attrs["background"], r.res); ok {
		frame.Background = &c
	}
	if c, ok := resolveColor(attrs["border"], r.res); ok {
		frame.BorderColor = &c
	}

	page.Boxes = append(page.Boxes, layout.FitBox{
		Name:  name,
		X:     x,
		Y:     y,
		Frame: frame,
		Block: block,
		Fit: layout.FitInfo{
			Target: text.Target(),
			Final:  text.Size(),
			Passes: text.Passes(),
			State:  text.State().String(),
		},
	})
	ctx.cursorY = y + frame.Height + blockSpacing
	return nil
}

// fitAttributes 合并样式、行内参数与块内赋值，后者优先。
func (r *buildRun) fitAttributes(cmd *dsl.Command) map[string]string {
	args := cmd.Args
	style := ""
	if len(args) > 0 && args[0].Type == "Ident" {
		if _, ok := r.res.Styles[args[0].Value]; ok {
			style = args[0].Value
			args = args[1:]
		}
	}
	attrs := map[string]string{}
	if s, ok := r.res.Styles[style]; ok {
		for k, v := range s.Props {
			attrs[k] = v
		}
	}
	for k, v := range parseAttrs(args) {
		attrs[k] = v
	}
	for k, v := range cmd.Block.Assignments() {
		attrs[k] = v
	}
	return attrs
}

func (r *buildRun) fitOptions(name string, attrs map[string]string) (fit.Options, error) {
	style, err := r.textStyle(attrs)
	if err != nil {
		return fit.Options{}, err
	}
	opts := fit.Options{
		Style:        style,
		TargetSize:   style.Size,
		Align:        strings.ToLower(attrs["align"]),
		Overflow:     fit.ParseOverflow(attrs["overflow"]),
		ShrinkFactor: r.b.opts.ShrinkFactor,
		MinSize:      r.b.opts.MinSize,
		MaxPasses:    r.b.opts.MaxPasses,
		Logger:       r.b.log.With("box", name),
	}
	soft := true
	if v := attrs["soft-wrap"]; v != "" {
		soft = truthy(v)
	}
	opts.Wrap = layout.NormalizeWrap(attrs["wrap"])
	if opts.Wrap == layout.WrapNone {
		soft = false
	}
	opts.SoftWrap = &soft

	if opts.MaxLines, err = intAttr(attrs, "max-lines"); err != nil {
		return opts, err
	}
	if opts.MinLines, err = intAttr(attrs, "min-lines"); err != nil {
		return opts, err
	}
	if attrs["max-passes"] != "" {
		if opts.MaxPasses, err = intAttr(attrs, "max-passes"); err != nil {
			return opts, err
		}
	}
	if v := attrs["shrink"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("shrink 无法解析 %q: %w", v, err)
		}
		opts.ShrinkFactor = f
	}
	if v := attrs["min-size"]; v != "" {
		l, err := fontLength(v)
		if err != nil {
			return opts, err
		}
		opts.MinSize = l
	}
	if hook := r.b.opts.OnPass; hook != nil {
		opts.OnPass = func(p fit.Pass) { hook(name, p) }
	}
	return opts, nil
}

func (r *buildRun) textStyle(attrs map[string]string) (layout.TextStyle, error) {
	style := layout.TextStyle{
		Font:       attrs["font"],
		Weight:     attrs["weight"],
		Italic:     truthy(attrs["italic"]),
		Color:      layout.DefaultTextColor,
		Size:       defaultSize,
		Decoration: layout.ParseDecoration(attrs["decoration"]),
	}
	if style.Font == "" {
		style.Font = defaultFont
	}
	if c, ok := resolveColor(attrs["color"], r.res); ok {
		style.Color = c
	}
	if v := attrs["size"]; v != "" {
		l, err := fontLength(v)
		if err != nil {
			return style, err
		}
		style.Size = l
	}
	if v := attrs["line-height"]; v != "" {
		lh, err := layout.ParseLineHeight(v)
		if err != nil {
			return style, err
		}
		style.LineHeight = lh
	}
	if v := attrs["letter-spacing"]; v != "" {
		l, err := fontLength(v)
		if err != nil {
			return style, err
		}
		style.LetterSpacing = l
	}
	return style, nil
}

// richText 按顺序收集字符串字面量、span 与 br，span 可以嵌套。
func (r *buildRun) richText(block *dsl.Block, inherited layout.SpanStyle, out *layout.RichTextBuilder) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			out.Append(binding.Interpolate(string(stmt.Text.Value), r.data), inherited)
		case stmt.Command != nil && stmt.Command.Name == "span":
			style := r.spanStyle(inherited, parseAttrs(stmt.Command.Args))
			r.richText(stmt.Command.Block, style, out)
		case stmt.Command != nil && stmt.Command.Name == "br":
			out.Append("\n", inherited)
		}
	}
}

func (r *buildRun) spanStyle(base layout.SpanStyle, attrs map[string]string) layout.SpanStyle {
	if v := attrs["font"]; v != "" {
		base.Font = v
	}
	if v := attrs["weight"]; v != "" {
		base.Weight = v
	}
	if v := attrs["italic"]; v != "" {
		base.Italic = layout.Bool(truthy(v))
	}
	if c, ok := resolveColor(attrs["color"], r.res); ok {
		base.Color = &c
	}
	if d := layout.ParseDecoration(attrs["decoration"]); d != layout.DecorationNone {
		base.Decoration = d
	}
	return base
}

// text 返回缓存的 fit.Text；配置不变时只更新文本、起始字号与盒子。
func (b *Builder) text(key string, rich layout.RichText, opts fit.Options) (*fit.Text, error) {
	if cached, ok := b.texts[key]; ok && sameConfig(cached.config, opts) {
		cached.text.SetRichText(rich)
		cached.text.SetTargetSize(opts.TargetSize)
		cached.text.Resize(opts.Box)
		return cached.text, nil
	}
	text, err := fit.NewRichText(rich, opts, b.engine)
	if err != nil {
		return nil, err
	}
	b.texts[key] = &cachedText{text: text, config: opts}
	return text, nil
}

// sameConfig 比较除文本、起始字号与盒子之外的配置。
func sameConfig(a, b fit.Options) bool {
	as, bs := a.Style, b.Style
	as.Size, bs.Size = layout.Length{}, layout.Length{}
	return as == bs &&
		a.Align == b.Align &&
		softWrap(a) == softWrap(b) &&
		a.Wrap == b.Wrap &&
		a.MaxLines == b.MaxLines &&
		a.MinLines == b.MinLines &&
		a.Overflow == b.Overflow &&
		a.ShrinkFactor == b.ShrinkFactor &&
		a.MinSize == b.MinSize &&
		a.MaxPasses == b.MaxPasses
}

func softWrap(o fit.Options) bool { return o.SoftWrap == nil || *o.SoftWrap }

// flags 是可以不带值出现的参数：{属性, 开启值, 关闭值}，关闭值为空表示忽略。
var flags = map[string][3]string{
	"bold":         {"weight", "bold", ""},
	"italic":       {"italic", "true", "false"},
	"underline":    {"decoration", "underline", ""},
	"line-through": {"decoration", "line-through", ""},
	"nowrap":       {"soft-wrap", "false", "true"},
}

// parseAttrs 将 `key value` 参数对解析为属性表，布尔开关可以单独出现。
func parseAttrs(args []*dsl.Lexeme) map[string]string {
	attrs := map[string]string{}
	for i := 0; i < len(args); i++ {
		key := args[i].Value
		if flag, ok := flags[key]; ok {
			if i+1 < len(args) && isBool(args[i+1].Value) {
				if truthy(args[i+1].Value) {
					attrs[flag[0]] = flag[1]
				} else if flag[2] != "" {
					attrs[flag[0]] = flag[2]
				}
				i++
				continue
			}
			attrs[flag[0]] = flag[1]
			continue
		}
		if i+1 >= len(args) {
			break
		}
		attrs[key] = args[i+1].Value
		i++
	}
	return attrs
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no", "on", "off":
		return true
	}
	return false
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1", "italic":
		return true
	}
	return false
}

func intAttr(attrs map[string]string, key string) (int, error) {
	v := attrs[key]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s 需要整数，实际 %q", key, v)
	}
	return n, nil
}

// fontLength 解析字号类长度，无单位时按 pt。
func fontLength(v string) (layout.Length, error) {
	l, err := layout.ParseLength(v)
	if err != nil {
		return layout.Length{}, err
	}
	if l.Unit == layout.UnitNone {
		l.Unit = layout.UnitPT
	}
	return l, nil
}
