package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/geometry"
)

// Strict decimal syntax: no hex, no inf/nan, no digit separators.
var (
	decimalRE = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
	integerRE = regexp.MustCompile(`^[+-]?[0-9]+$`)
)

func parseDecimal(s string) (float64, error) {
	if !decimalRE.MatchString(s) {
		return 0, fmt.Errorf("not a decimal number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("out of range")
	}
	return f, nil
}

func parseInteger(s string, bits int) (int64, error) {
	if !integerRE.MatchString(s) {
		return 0, fmt.Errorf("not an integer")
	}
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("out of range")
	}
	return n, nil
}

func parseUnsigned(s string, bits int) (uint64, error) {
	if !integerRE.MatchString(s) || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("out of range")
	}
	return n, nil
}

func parseID(s string) (int64, error) {
	n, err := parseInteger(s, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("id must be positive")
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("expected 0 or 1")
}

// parseFloats splits s on whitespace into exactly n decimals.
func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := parseDecimal(f)
		if err != nil {
			return nil, fmt.Errorf("component %d %q: %w", i+1, f, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseVec3 parses "x y z".
func parseVec3(s string) (geometry.Vec3, error) {
	f, err := parseFloats(s, 3)
	if err != nil {
		return geometry.Vec3{}, err
	}
	return geometry.V(f[0], f[1], f[2]), nil
}

// parsePlane parses "(x y z) (x y z) (x y z)".
func parsePlane(s string) (Plane, error) {
	var p Plane
	rest := strings.TrimSpace(s)
	for i := 0; i < 3; i++ {
		if !strings.HasPrefix(rest, "(") {
			return Plane{}, fmt.Errorf("point %d: expected '('", i+1)
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return Plane{}, fmt.Errorf("point %d: missing ')'", i+1)
		}
		v, err := parseVec3(rest[1:end])
		if err != nil {
			return Plane{}, fmt.Errorf("point %d: %w", i+1, err)
		}
		p.Points[i] = v
		rest = strings.TrimSpace(rest[end+1:])
	}
	if rest != "" {
		return Plane{}, fmt.Errorf("unexpected trailing text %q", rest)
	}
	return p, nil
}

// parseAxis parses "[x y z shift] scale".
func parseAxis(s string) (TextureAxis, error) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "[") {
		return TextureAxis{}, fmt.Errorf("expected '['")
	}
	end := strings.IndexByte(t, ']')
	if end < 0 {
		return TextureAxis{}, fmt.Errorf("missing ']'")
	}
	f, err := parseFloats(t[1:end], 4)
	if err != nil {
		return TextureAxis{}, err
	}
	scale, err := parseDecimal(strings.TrimSpace(t[end+1:]))
	if err != nil {
		return TextureAxis{}, fmt.Errorf("scale: %w", err)
	}
	return TextureAxis{Axis: geometry.V(f[0], f[1], f[2]), Shift: f[3], Scale: scale}, nil
}

// parseColor parses "r g b" with each channel in 0..255.
func parseColor(s string) (Color, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Color{}, fmt.Errorf("expected 3 channels, got %d", len(fields))
	}
	var ch [3]uint8
	for i, f := range fields {
		n, err := parseUnsigned(f, 8)
		if err != nil {
			return Color{}, fmt.Errorf("channel %d %q: must be 0-255", i+1, f)
		}
		ch[i] = uint8(n)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// Strings render values back into VMF syntax.

func (p Plane) String() string {
	return fmt.Sprintf("(%s) (%s) (%s)", p.Points[0], p.Points[1], p.Points[2])
}

func (a TextureAxis) String() string {
	return fmt.Sprintf("[%s %s] %s", a.Axis, geometry.FormatFloat(a.Shift), geometry.FormatFloat(a.Scale))
}

func (c Color) String() string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}
