package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/shrinktext/binding"
	"github.com/ByLCY/shrinktext/config"
	"github.com/ByLCY/shrinktext/document"
	"github.com/ByLCY/shrinktext/dsl"
	"github.com/ByLCY/shrinktext/fit"
	"github.com/ByLCY/shrinktext/layout"
	"github.com/ByLCY/shrinktext/renderer"
	canvasrenderer "github.com/ByLCY/shrinktext/renderer/canvas"
	"github.com/ByLCY/shrinktext/renderer/mono"
	"github.com/ByLCY/shrinktext/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath string
	in         string
	out        string
	data       string
	debug      string
	backend    string
	strict     bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "shrinktext",
		Short:         "把 DSL 文档排版为 PDF，文本框内的文字自动缩小以适应盒子",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "配置文件路径（YAML 或 JSON）")
	flags.StringVar(&opts.in, "in", "examples/card.st", "DSL 文件路径")
	flags.StringVar(&opts.out, "out", "", "输出路径，默认取配置中的 render.out")
	flags.StringVar(&opts.data, "data", "", "绑定到 DSL 的 JSON/YAML 数据文件")
	flags.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	flags.StringVar(&opts.backend, "backend", "", "排版与渲染后端：canvas 或 mono")
	flags.BoolVar(&opts.strict, "strict", false, "有文本框未收敛时返回错误")
	flags.StringVar(&opts.logLevel, "log-level", "", "日志级别：debug、info、warn、error")

	root.AddCommand(newRenderCmd(opts), newWatchCmd(opts))
	return root
}

func newRenderCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "渲染一次并退出",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout())
		},
	}
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "监听 DSL 与数据文件，变更后重新渲染",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return s.watch(ctx, cmd.OutOrStdout())
		},
	}
}

// session 在多次渲染间复用同一个 Builder，未变化的文本框保留收敛后的字号。
type session struct {
	cfg     config.Config
	log     *slog.Logger
	backend renderer.Backend
	builder *document.Builder

	in, out, data, debug string
	strict               bool
}

func newSession(cmd *cobra.Command, opts *cliOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Render.Backend = opts.backend
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("strict") {
		cfg.Fit.Strict = opts.strict
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	minSize, err := cfg.MinSize()
	if err != nil {
		return nil, err
	}

	var backend renderer.Backend
	out := cfg.Render.Out
	if opts.out != "" {
		out = opts.out
	}
	switch cfg.Render.Backend {
	case config.BackendMono:
		backend = mono.NewRenderer()
		if opts.out == "" {
			out = strings.TrimSuffix(out, filepath.Ext(out)) + ".txt"
		}
	default:
		backend = canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			BaseDir: filepath.Dir(opts.in),
			Logger:  logger,
		})
	}

	builder, err := document.NewBuilder(document.Options{
		Typesetter:   backend,
		ShrinkFactor: cfg.Fit.ShrinkFactor,
		MinSize:      minSize,
		MaxPasses:    cfg.Fit.MaxPasses,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	debug := cfg.Render.Debug
	if opts.debug != "" {
		debug = opts.debug
	}
	return &session{
		cfg:     cfg,
		log:     logger,
		backend: backend,
		builder: builder,
		in:      opts.in,
		out:     out,
		data:    opts.data,
		debug:   debug,
		strict:  cfg.Fit.Strict,
	}, nil
}

// render 串联解析、布局与渲染。
func (s *session) render(stdout io.Writer) error {
	doc, err := dsl.ParseFile(s.in)
	if err != nil {
		return err
	}

	var data any
	if s.data != "" {
		if data, err = binding.LoadFile(s.data); err != nil {
			return err
		}
	}

	result, err := s.builder.Build(doc, data)
	switch {
	case errors.Is(err, fit.ErrNotConverged) && result != nil:
		if s.strict {
			return fmt.Errorf("布局未收敛: %w", err)
		}
		s.log.Warn("部分文本框未收敛，按当前字号输出", "err", err)
	case err != nil:
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if s.debug != "" {
		if err := layout.WriteDebugJSON(result, s.debug); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.out), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	payload, err := s.backend.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(s.out, payload, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	s.log.Info("渲染完成", "out", s.out, "pages", len(result.Pages), "boxes", countBoxes(result))
	fmt.Fprintf(stdout, "已生成：%s\n", s.out)
	return nil
}

// watch 只监听 DSL 与数据文件；配置在启动时读取一次。
func (s *session) watch(ctx context.Context, stdout io.Writer) error {
	if err := s.render(stdout); err != nil {
		s.log.Error("渲染失败", "err", err)
	}
	w, err := watch.New([]string{s.in, s.data}, func(changed []string) {
		s.log.Info("检测到变更，重新渲染", "files", changed)
		if err := s.render(stdout); err != nil {
			s.log.Error("渲染失败", "err", err)
		}
	}, watch.Options{Debounce: s.cfg.Watch.Debounce, Logger: s.log})
	if err != nil {
		return err
	}
	defer w.Close()
	s.log.Info("开始监听", "files", w.Files())
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func countBoxes(res *layout.Result) int {
	n := 0
	for _, p := range res.Pages {
		n += len(p.Boxes)
	}
	return n
}
