package expression

import (
	"fmt"
	"strings"
)

type segment struct {
	text string
	expr bool
}

// parseTemplate splits s into literal text and ${...} expressions. Braces and quotes inside an
// expression are balanced, so map literals and strings containing } are allowed.
func parseTemplate(s string) ([]segment, error) {
	var segs []segment

	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			segs = append(segs, segment{text: s[i:]})
			break
		}

		if start > 0 {
			segs = append(segs, segment{text: s[i : i+start]})
		}

		begin := i + start + 2
		end := -1
		depth := 1
		var quote byte

	scan:
		for j := begin; j < len(s); j++ {
			c := s[j]

			if quote != 0 {
				switch c {
				case '\\':
					j++
				case quote:
					quote = 0
				}
				continue
			}

			switch c {
			case '"', '\'':
				quote = c
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = j
					break scan
				}
			}
		}

		if end < 0 {
			return nil, fmt.Errorf("unterminated expression in %q", s)
		}

		segs = append(segs, segment{text: s[begin:end], expr: true})
		i = end + 1
	}

	return segs, nil
}

type templatePart struct {
	literal string
	program *Program
}

// Template is a string with embedded ${...} expressions.
type Template struct {
	source string
	parts  []templatePart
}

// CompileTemplate compiles every expression embedded in s.
func (e *Evaluator) CompileTemplate(s string) (*Template, error) {
	segs, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}

	t := &Template{source: s}
	for _, seg := range segs {
		if !seg.expr {
			t.parts = append(t.parts, templatePart{literal: seg.text})
			continue
		}

		p, err := e.Compile(seg.text)
		if err != nil {
			return nil, err
		}

		t.parts = append(t.parts, templatePart{program: p})
	}

	return t, nil
}

func (t *Template) String() string {
	return t.source
}

// Constant reports whether the template contains no expression.
func (t *Template) Constant() bool {
	for _, p := range t.parts {
		if p.program != nil {
			return false
		}
	}

	return true
}

// Render evaluates the template. A template made of a single expression yields the expression's
// value unchanged, anything else is rendered to a string.
func (t *Template) Render(vars map[string]any) (any, error) {
	if len(t.parts) == 1 && t.parts[0].program != nil {
		return t.parts[0].program.Eval(vars)
	}

	var b strings.Builder
	for _, p := range t.parts {
		if p.program == nil {
			b.WriteString(p.literal)
			continue
		}

		v, err := p.program.Eval(vars)
		if err != nil {
			return nil, err
		}

		if v != nil {
			fmt.Fprint(&b, v)
		}
	}

	return b.String(), nil
}

// RenderString renders the template and formats non string results.
func (t *Template) RenderString(vars map[string]any) (string, error) {
	v, err := t.Render(vars)
	if err != nil {
		return "", err
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(s), nil
	}
}
