package canvasrenderer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shrinktext/fonts"
	"github.com/ByLCY/shrinktext/layout"
)

// fontStore 按 (字体资源, 字重/斜体) 缓存已加载的字体家族。
// 加载失败时依次尝试资源上的 fallback 与内置 Go 字体。
type fontStore struct {
	baseDir string
	blobs   map[string][]byte
	log     *slog.Logger

	mu       sync.Mutex
	families map[string]loadedFamily
	builtin  *canvas.FontFamily
}

type loadedFamily struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

func newFontStore(baseDir string, injected map[string]Resource, log *slog.Logger) *fontStore {
	s := &fontStore{
		baseDir:  baseDir,
		blobs:    map[string][]byte{},
		log:      log,
		families: map[string]loadedFamily{},
	}
	for name, res := range injected {
		switch {
		case name == "":
		case len(res.Bytes) > 0:
			s.blobs[name] = res.Bytes
		case res.Path != "":
			data, err := os.ReadFile(res.Path)
			if err != nil {
				// 使用时再报错
				log.Warn("读取注入字体失败", "name", name, "path", res.Path, "err", err)
				continue
			}
			s.blobs[name] = data
		}
	}
	return s
}

func (s *fontStore) face(font layout.FontResource, weight string, italic bool, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	style := parseFontStyle(font.Style)
	if weight != "" {
		style = parseFontStyle(weight) | style&canvas.FontItalic
	}
	if italic {
		style |= canvas.FontItalic
	}
	fam, err := s.family(font, style)
	if err != nil {
		return nil, err
	}
	return fam.family.Face(sizePt, toColor(col), fam.style, canvas.FontNormal), nil
}

func (s *fontStore) family(font layout.FontResource, style canvas.FontStyle) (loadedFamily, error) {
	key := fmt.Sprintf("%s|%s|%d", font.Name, font.Src, style)
	s.mu.Lock()
	defer s.mu.Unlock()
	if fam, ok := s.families[key]; ok {
		return fam, nil
	}

	name := font.Family
	if name == "" {
		name = font.Name
	}
	family := canvas.NewFontFamily(name)
	err := s.loadInto(family, font.Src, style)
	if err != nil && font.Fallback != "" {
		s.log.Warn("字体加载失败，尝试 fallback", "font", font.Name, "fallback", font.Fallback, "err", err)
		err = s.loadInto(family, font.Fallback, style)
	}
	if err != nil {
		builtin, bErr := s.builtinFamily()
		if bErr != nil {
			return loadedFamily{}, err
		}
		s.log.Warn("字体加载失败，使用内置字体", "font", font.Name, "src", font.Src, "err", err)
		fam := loadedFamily{family: builtin, style: canvas.FontRegular}
		s.families[key] = fam
		return fam, nil
	}
	fam := loadedFamily{family: family, style: style}
	s.families[key] = fam
	return fam, nil
}

func (s *fontStore) loadInto(family *canvas.FontFamily, src string, style canvas.FontStyle) error {
	data, err := s.read(src, style)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

// read 支持三种来源：built-in:<注入名>、embed:<Go 字体名> 与文件路径。
func (s *fontStore) read(src string, style canvas.FontStyle) ([]byte, error) {
	scheme, name, found := strings.Cut(src, ":")
	if !found || len(scheme) == 1 {
		// 没有前缀，或是 Windows 盘符
		scheme, name = "", src
	}
	switch scheme {
	case "built-in", "builtin":
		if blob, ok := s.blobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	case "embed":
		// Go 字体家族按字重与斜体选择对应文件
		if strings.EqualFold(name, fonts.Default) {
			name = fonts.ForStyle(weightName(style), style&canvas.FontItalic != 0)
		}
		return fonts.Load(name)
	case "":
		if name == "" {
			return nil, fmt.Errorf("字体缺少 src")
		}
		if filepath.IsAbs(name) {
			return os.ReadFile(name)
		}
		if s.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对字体路径：%s（请改用 built-in: 或 embed:）", name)
		}
		return os.ReadFile(filepath.Join(s.baseDir, name))
	}
	return nil, fmt.Errorf("未知的字体来源 %q", src)
}

func (s *fontStore) builtinFamily() (*canvas.FontFamily, error) {
	if s.builtin != nil {
		return s.builtin, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("shrinktext-builtin")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	s.builtin = family
	return family, nil
}

// resolveFontResource 找不到时依次退回 Body、任意已声明字体与内置字体。
func resolveFontResource(name string, fontMap map[string]layout.FontResource) layout.FontResource {
	if font, ok := fontMap[name]; ok {
		return font
	}
	if font, ok := fontMap["Body"]; ok {
		return font
	}
	for _, font := range fontMap {
		return font
	}
	return layout.FontResource{Name: "Body", Src: "embed:" + fonts.Default}
}

// 较长的关键字在前，semibold 不会被识别为 bold。
var weightKeywords = []struct {
	word  string
	style canvas.FontStyle
}{
	{"extrabold", canvas.FontExtraBold},
	{"semibold", canvas.FontSemiBold},
	{"demibold", canvas.FontSemiBold},
	{"black", canvas.FontBlack},
	{"bold", canvas.FontBold},
	{"medium", canvas.FontMedium},
	{"light", canvas.FontLight},
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	for _, kw := range weightKeywords {
		if strings.Contains(s, kw.word) {
			result = kw.style
			break
		}
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

// weightName 只用于挑选 Go 字体文件。
func weightName(style canvas.FontStyle) string {
	switch style &^ canvas.FontItalic {
	case canvas.FontBold, canvas.FontSemiBold, canvas.FontExtraBold, canvas.FontBlack:
		return "bold"
	case canvas.FontMedium:
		return "medium"
	}
	return ""
}
