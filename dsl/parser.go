// Package dsl parses shrinktext documents into an AST with participle.
package dsl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		// 颜色必须先于 # 注释匹配
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:|]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	symbols = dslLexer.Symbols()
	names   = func() map[lexer.TokenType]string {
		out := make(map[lexer.TokenType]string, len(symbols))
		for name, tt := range symbols {
			out[tt] = name
		}
		return out
	}()

	tokNewline = symbols["Newline"]
	tokLBrace  = symbols["LBrace"]
	tokRBrace  = symbols["RBrace"]
	tokSymbol  = symbols["Symbol"]
	tokString  = symbols["String"]

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// ParseError 是带位置信息的语法错误。
type ParseError struct {
	Pos lexer.Position
	Msg string
}

func (e *ParseError) Error() string {
	if e.Pos.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return fmt.Sprintf("第 %d 行第 %d 列: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

func positioned(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return &ParseError{Pos: perr.Position(), Msg: perr.Message()}
	}
	return err
}

// Parse parses a document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse("", r)
	if err != nil {
		return nil, positioned(err)
	}
	return doc, nil
}

// ParseString parses a document held in memory.
func ParseString(input string) (*Document, error) {
	doc, err := documentParser.ParseString("", input)
	if err != nil {
		return nil, positioned(err)
	}
	return doc, nil
}

// ParseFile parses a document file; error positions carry the file name.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 DSL 文件 %s: %w", path, err)
	}
	doc, err := documentParser.ParseBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", positioned(err))
	}
	return doc, nil
}

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return errors.New("字符串字面量为空")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 读取一个指令参数；遇到换行、花括号或分号时让出。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok.EOF() || endsArgs(tok) {
		return participle.NextMatch
	}
	lexeme, err := newLexeme(lex.Next())
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

func endsArgs(tok *lexer.Token) bool {
	switch tok.Type {
	case tokNewline, tokLBrace, tokRBrace:
		return true
	case tokSymbol:
		return tok.Value == ";"
	}
	return false
}

// Parse 收集记号直到当前嵌套层级结束，括号内允许换行与逗号。
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var n nesting
	for {
		tok := lex.Peek()
		if tok.EOF() || n.closes(tok) {
			break
		}
		lexeme, err := newLexeme(lex.Next())
		if err != nil {
			return err
		}
		n.track(lexeme.Raw)
		e.Parts = append(e.Parts, &lexeme)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

type nesting struct{ paren, bracket int }

func (n *nesting) track(raw string) {
	switch raw {
	case "(":
		n.paren++
	case ")":
		n.paren = max(n.paren-1, 0)
	case "[":
		n.bracket++
	case "]":
		n.bracket = max(n.bracket-1, 0)
	}
}

func (n nesting) closes(tok *lexer.Token) bool {
	top := n.paren == 0 && n.bracket == 0
	switch tok.Type {
	case tokNewline, tokLBrace, tokRBrace:
		return top
	case tokSymbol:
		switch tok.Value {
		case ";", ",":
			return top
		case "]":
			// 数组元素以 ] 结束
			return n.bracket == 0
		}
	}
	return false
}

func newLexeme(tok *lexer.Token) (Lexeme, error) {
	name, ok := names[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if tok.Type == tokString {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf("字符串 %s 无法解析", tok.Value)}
		}
		val = unquoted
	}
	return Lexeme{Type: name, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}
