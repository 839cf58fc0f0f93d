package document

import (
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ByLCY/shrinktext/binding"
	"github.com/ByLCY/shrinktext/dsl"
	"github.com/ByLCY/shrinktext/fonts"
	"github.com/ByLCY/shrinktext/layout"
)

func collectResources(doc *dsl.Document) (layout.ResourceSet, error) {
	res := layout.ResourceSet{
		Fonts:  map[string]layout.FontResource{},
		Colors: map[string]layout.Color{},
		Styles: map[string]layout.Style{},
	}
	rawStyles := map[string]layout.Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("color %s: %w", name, err)
				}
				res.Colors[name] = c
			case "style":
				style := parseStyleResource(stmt.Command)
				if style.Name != "" {
					rawStyles[style.Name] = style
				}
			}
		}
	}

	if _, ok := res.Fonts[defaultFont]; !ok {
		res.Fonts[defaultFont] = layout.FontResource{
			Name:   defaultFont,
			Src:    "embed:" + fonts.Default,
			Family: defaultFont,
		}
	}

	resolvedStyles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolvedStyles
	return res, nil
}

func collectMeta(doc *dsl.Document, data any) layout.DocumentMeta {
	meta := layout.DocumentMeta{
		Creator: "shrinktext",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			value := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = binding.Interpolate(value.Text(), data)
			case "author":
				meta.Author = binding.Interpolate(value.Text(), data)
			case "subject":
				meta.Subject = binding.Interpolate(value.Text(), data)
			case "creator":
				meta.Creator = value.Text()
			case "keywords":
				meta.Keywords = value.Strings()
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) layout.FontResource {
	if len(cmd.Args) == 0 {
		return layout.FontResource{}
	}
	font := layout.FontResource{
		Name:   cmd.Args[0].Value,
		Family: cmd.Args[0].Value,
	}
	props := cmd.Block.Assignments()
	font.Src = props["src"]
	font.Style = props["style"]
	font.Fallback = props["fallback"]
	if family := props["family"]; family != "" {
		font.Family = family
	}
	return font
}

func parseStyleResource(cmd *dsl.Command) layout.Style {
	if len(cmd.Args) == 0 {
		return layout.Style{}
	}
	style := layout.Style{
		Name:  cmd.Args[0].Value,
		Props: cmd.Block.Assignments(),
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	return style
}

// resolveStyles 展开 extends 链，子样式的属性覆盖父样式。
func resolveStyles(styles map[string]layout.Style) (map[string]layout.Style, error) {
	sr := styleResolver{raw: styles, done: map[string]layout.Style{}}
	for name := range styles {
		if _, err := sr.resolve(name, nil); err != nil {
			return nil, err
		}
	}
	return sr.done, nil
}

type styleResolver struct {
	raw  map[string]layout.Style
	done map[string]layout.Style
}

// chain 是当前正在展开的继承路径，用于报告循环。
func (sr *styleResolver) resolve(name string, chain []string) (layout.Style, error) {
	if style, ok := sr.done[name]; ok {
		return style, nil
	}
	if slices.Contains(chain, name) {
		return layout.Style{}, fmt.Errorf("style 继承存在循环：%s", strings.Join(append(chain, name), " -> "))
	}
	style, ok := sr.raw[name]
	if !ok {
		return layout.Style{}, fmt.Errorf("style %s 未定义", name)
	}

	props := map[string]string{}
	if style.Extends != "" {
		parent, err := sr.resolve(style.Extends, append(chain, name))
		if err != nil {
			return layout.Style{}, err
		}
		maps.Copy(props, parent.Props)
	}
	maps.Copy(props, style.Props)
	style.Props = props
	sr.done[name] = style
	return style, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

// resolveColor 先查颜色资源，再按十六进制解析；ok 为 false 表示未指定或无法识别。
func resolveColor(value string, res layout.ResourceSet) (layout.Color, bool) {
	if value == "" {
		return layout.Color{}, false
	}
	if c, ok := res.Colors[value]; ok {
		return c, true
	}
	if strings.HasPrefix(value, "#") {
		if c, err := parseColor(value); err == nil {
			return c, true
		}
	}
	return layout.Color{}, false
}

// parseColor 解析 #RGB、#RRGGBB 与 #RRGGBBAA；透明度通道被忽略。
func parseColor(value string) (layout.Color, error) {
	digits := strings.TrimPrefix(value, "#")
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	if len(digits) != 6 && len(digits) != 8 {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	rgb, err := hex.DecodeString(digits[:6])
	if err != nil {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return layout.Color{R: int(rgb[0]), G: int(rgb[1]), B: int(rgb[2])}, nil
}
