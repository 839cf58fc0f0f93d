package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定或无法加载字体时使用的内置字体。
const Default = "goregular"

var builtin = map[string][]byte{
	"goregular":    goregular.TTF,
	"gobold":       gobold.TTF,
	"goitalic":     goitalic.TTF,
	"gobolditalic": gobolditalic.TTF,
	"gomedium":     gomedium.TTF,
	"gomono":       gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:gobold" 或直接 "gobold"，忽略大小写与 .ttf 后缀。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "embed:")))
	key = strings.TrimSuffix(key, ".ttf")
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可选值为 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 按字母顺序列出内置字体。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForStyle 按字重与斜体选择最接近的内置字体名。
func ForStyle(weight string, italic bool) string {
	bold := strings.Contains(strings.ToLower(weight), "bold")
	switch {
	case bold && italic:
		return "gobolditalic"
	case bold:
		return "gobold"
	case italic:
		return "goitalic"
	case strings.EqualFold(weight, "medium"):
		return "gomedium"
	default:
		return Default
	}
}
