// Package config loads shrinktext settings from YAML (or JSON) files and the
// environment. Command-line flags are applied on top by the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/shrinktext/layout"
)

// Config 是 CLI 的全部配置。
type Config struct {
	Fit    FitConfig    `json:"fit" yaml:"fit"`
	Render RenderConfig `json:"render" yaml:"render"`
	Log    LogConfig    `json:"log" yaml:"log"`
	Watch  WatchConfig  `json:"watch" yaml:"watch"`
}

// FitConfig 是收缩循环的默认参数，文本框上的属性优先。
type FitConfig struct {
	ShrinkFactor float64 `json:"shrink_factor" yaml:"shrink_factor"`
	// MinSize 为空表示不设下限。
	MinSize   string `json:"min_size" yaml:"min_size"`
	MaxPasses int    `json:"max_passes" yaml:"max_passes"`
	// Strict 为 true 时，未收敛的文本框让命令失败。
	Strict bool `json:"strict" yaml:"strict"`
}

type RenderConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Out     string `json:"out" yaml:"out"`
	Debug   string `json:"debug" yaml:"debug"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

const (
	BackendCanvas = "canvas"
	BackendMono   = "mono"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Fit: FitConfig{
			ShrinkFactor: 0.9,
			MinSize:      "4pt",
			MaxPasses:    64,
		},
		Render: RenderConfig{
			Backend: BackendCanvas,
			Out:     "output/out.pdf",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Load 从默认值开始，依次合并配置文件与 SHRINKTEXT_* 环境变量，最后校验。
// path 为空或文件不存在时只使用默认值。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}
	loadEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("%s 既不是合法的 YAML 也不是合法的 JSON: %v; %w", path, err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("SHRINKTEXT_SHRINK_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Fit.ShrinkFactor = f
		}
	}
	if v := os.Getenv("SHRINKTEXT_MIN_SIZE"); v != "" {
		cfg.Fit.MinSize = v
	}
	if v := os.Getenv("SHRINKTEXT_MAX_PASSES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Fit.MaxPasses = i
		}
	}
	if v := os.Getenv("SHRINKTEXT_BACKEND"); v != "" {
		cfg.Render.Backend = v
	}
	if v := os.Getenv("SHRINKTEXT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SHRINKTEXT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate checks value ranges; it does not touch the filesystem.
func (c Config) Validate() error {
	if c.Fit.ShrinkFactor <= 0 || c.Fit.ShrinkFactor >= 1 {
		return fmt.Errorf("shrink_factor 必须在 (0,1) 之间，实际 %g", c.Fit.ShrinkFactor)
	}
	if _, err := c.MinSize(); err != nil {
		return err
	}
	if c.Fit.MaxPasses < 0 {
		return fmt.Errorf("max_passes 不能为负")
	}
	switch c.Render.Backend {
	case BackendCanvas, BackendMono:
	default:
		return fmt.Errorf("未知的 backend %q（可选 canvas、mono）", c.Render.Backend)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("未知的日志格式 %q（可选 text、json）", c.Log.Format)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce 不能为负")
	}
	return nil
}

// MinSize 解析字号下限，无单位时按 pt；空字符串返回零值。
func (c Config) MinSize() (layout.Length, error) {
	if strings.TrimSpace(c.Fit.MinSize) == "" {
		return layout.Length{}, nil
	}
	l, err := layout.ParseLength(c.Fit.MinSize)
	if err != nil {
		return layout.Length{}, fmt.Errorf("min_size: %w", err)
	}
	if l.Value < 0 {
		return layout.Length{}, fmt.Errorf("min_size 不能为负")
	}
	if l.Unit == layout.UnitNone {
		l.Unit = layout.UnitPT
	}
	return l, nil
}

// Logger 按日志配置构造根 logger。
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("未知的日志级别 %q", s)
}
