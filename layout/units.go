package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for length and line-height.

// Unit represents the original unit of a length value as specified in DSL.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit. Font sizes travel through
// the fit loop as Length so that shrinking keeps the author's unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Pt 与 Mm 是常用的构造函数。
func Pt(v float64) Length { return Length{Value: v, Unit: UnitPT} }
func Mm(v float64) Length { return Length{Value: v, Unit: UnitMM} }

func (l Length) IsZero() bool { return l.Value == 0 }

// Scale multiplies the magnitude and keeps the unit.
func (l Length) Scale(f float64) Length {
	return Length{Value: l.Value * f, Unit: l.Unit}
}

// Less compares two lengths after converting both to millimeters.
func (l Length) Less(o Length) bool { return l.ToMM() < o.ToMM() }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// To converts this length to target unit. UnitNone as target means millimeters.
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitPT:
		if target == UnitPT {
			return l.Value
		}
		mm = l.Value * PtToMm
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * 25.4
	case UnitMM:
		mm = l.Value
	default:
		// 无单位时按调用方的目标单位原样解释
		return l.Value
	}
	switch target {
	case UnitPT:
		return mm * MmToPt
	case UnitCM:
		return mm / 10
	case UnitIN:
		return mm / 25.4
	default:
		return mm
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// ParseLength parses a DSL length string preserving its unit.
// Unit-less numbers keep UnitNone so callers can pick a default.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec preserves original author intent: either a factor (e.g., 1.2x) or an absolute length (e.g., 18pt).
// The zero value means "normal" (1.4x).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// DefaultLineHeightFactor 是未指定行高时的倍数。
const DefaultLineHeightFactor = 1.4

// Resolve computes the absolute line height in target unit using the given fontSize (which carries its unit).
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	switch {
	case s.Kind == LineHeightAbsolute && s.Len.Value > 0:
		return s.Len.To(target)
	case s.Kind == LineHeightFactor && s.Factor > 0:
		return fontSize.To(target) * s.Factor
	default:
		return fontSize.To(target) * DefaultLineHeightFactor
	}
}

// ParseLineHeight accepts "1.2x" / "1.2" factors or absolute lengths such as "18pt".
func ParseLineHeight(value string) (LineHeightSpec, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" || v == "normal" {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: DefaultLineHeightFactor}, nil
	}
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 {
			return LineHeightSpec{}, fmt.Errorf("无法解析行高倍数 %q", value)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return LineHeightSpec{}, err
	}
	if l.Unit == UnitNone {
		if l.Value <= 0 {
			return LineHeightSpec{}, fmt.Errorf("行高必须为正数: %q", value)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, nil
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, nil
}
