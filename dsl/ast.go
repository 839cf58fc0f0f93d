package dsl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Document 是一份 shrinktext 文档：`doc <名称> <版本> { ... }`。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是顶层段落，四者只会出现一个。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	PageSet   *PageSetSection   `parser:"| @@"`
	Page      *PageSection      `parser:"| @@"`
}

// Kind returns the section keyword, or "unknown".
func (s *Section) Kind() string {
	switch {
	case s == nil:
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.PageSet != nil:
		return "page-set"
	case s.Page != nil:
		return "page"
	}
	return "unknown"
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// PageSetSection 是可复用的页面片段，页面里用 `use <名称>` 引入。
type PageSetSection struct {
	Name  string `parser:"'page-set' @Ident"`
	Block *Block `parser:"@@"`
}

type PageSection struct {
	Spec  PageSpec `parser:"'page' @@"`
	Block *Block   `parser:"@@"`
}

// PageSpec 是 page 关键字后的纸张与参数，如 `A6 landscape margin 5mm`。
type PageSpec struct {
	Size   string    `parser:"@Ident"`
	Params []*Lexeme `parser:"@@*"`
}

// Block 是花括号内的语句，语句之间用换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 是赋值、指令或字符串字面量之一。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment 形如 `key: value`。
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command 是 fit、span、rect 等指令：名称、参数与可选的子块。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是赋值的右侧。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Expression 保存未求值的原始记号，例如 `data.meta.subject`。
type Expression struct {
	Parts []*Lexeme
}

// Lexeme 是单个记号；Type 为词法规则名（Ident、Number、Color 等）。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// StringLiteral 在捕获时去掉引号并处理转义。
type StringLiteral string

// Text flattens a value to its textual form. Arrays yield an empty string;
// use Strings for them.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch {
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		var builder strings.Builder
		for _, part := range v.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	}
	return ""
}

// Strings returns the non-empty items of an array value, or the value itself.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.Array != nil {
		out := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			if s := item.Text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.Text(); s != "" {
		return []string{s}
	}
	return nil
}

// Assignments collects `key: value` statements of a block; later keys win.
func (b *Block) Assignments() map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	for _, stmt := range b.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := stmt.Assignment.Value.Text(); val != "" {
			out[stmt.Assignment.Key] = val
		}
	}
	return out
}

// Commands returns the commands with the given name, in order.
func (b *Block) Commands(name string) []*Command {
	if b == nil {
		return nil
	}
	var out []*Command
	for _, stmt := range b.Statements {
		if stmt.Command != nil && stmt.Command.Name == name {
			out = append(out, stmt.Command)
		}
	}
	return out
}

// Text concatenates the string literals directly inside a block.
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range b.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}
