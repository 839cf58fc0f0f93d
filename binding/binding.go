// Package binding fills `${path}` placeholders in document text from JSON or
// YAML data.
package binding

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// ${path|fallback} 在路径不存在时使用 fallback；没有 fallback 时保留原占位符。
func Interpolate(text string, data any) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[2 : len(match)-1]
		path, fallback, hasFallback := strings.Cut(inner, "|")
		if val, ok := Lookup(data, strings.TrimSpace(path)); ok && val != nil {
			return fmt.Sprint(val)
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Lookup 按 `a.b[0].c` 形式的路径取值。
func Lookup(data any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	steps, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	current := data
	for _, st := range steps {
		if current, ok = st.apply(current); !ok {
			return nil, false
		}
	}
	return current, true
}

// step 是路径中的一级：map 键或数组下标。
type step struct {
	key   string
	index int
	isIdx bool
}

func (s step) apply(current any) (any, bool) {
	if s.isIdx {
		list, ok := current.([]any)
		if !ok || s.index < 0 || s.index >= len(list) {
			return nil, false
		}
		return list[s.index], true
	}
	switch m := current.(type) {
	case map[string]any:
		v, ok := m[s.key]
		return v, ok
	case map[any]any:
		v, ok := m[s.key]
		return v, ok
	}
	return nil, false
}

func splitPath(path string) ([]step, bool) {
	var steps []step
	for _, segment := range strings.Split(path, ".") {
		key, rest, _ := strings.Cut(segment, "[")
		if key != "" {
			steps = append(steps, step{key: key})
		}
		if rest == "" {
			continue
		}
		// rest 形如 `0]` 或 `0][1]`
		for _, part := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, false
			}
			steps = append(steps, step{index: idx, isIdx: true})
		}
	}
	return steps, len(steps) > 0
}

// Decode 解析 JSON 或 YAML 数据（JSON 是 YAML 的子集）。
func Decode(raw []byte) (any, error) {
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析绑定数据失败: %w", err)
	}
	return data, nil
}

// LoadFile 读取 .json/.yaml/.yml 数据文件。
func LoadFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取绑定数据 %s 失败: %w", path, err)
	}
	return Decode(raw)
}
