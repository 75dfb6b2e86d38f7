// Package expression evaluates workflow conditions and ${...} templates with CEL. Activity ids are
// exposed as variables holding the activity outputs, workflow variables are exposed as
// "variables".
package expression

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
)

// VariablesIdentifier is the identifier under which workflow variables are visible.
const VariablesIdentifier = "variables"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true,
	"as": true, "break": true, "const": true, "continue": true, "else": true,
	"for": true, "function": true, "if": true, "import": true, "let": true,
	"loop": true, "package": true, "namespace": true, "return": true,
	"var": true, "void": true, "while": true,
	VariablesIdentifier: true,
}

// ValidIdentifier reports whether id can be used as an activity id inside expressions.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id) && !reserved[id]
}

// Evaluator compiles expressions for one workflow definition.
type Evaluator struct {
	env *cel.Env
	ids []string
}

func New(activityIDs []string) (*Evaluator, error) {
	opts := []cel.EnvOption{
		cel.Variable(VariablesIdentifier, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	}

	for _, id := range activityIDs {
		if !ValidIdentifier(id) {
			return nil, fmt.Errorf("invalid identifier %q", id)
		}

		opts = append(opts, cel.Variable(id, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating expression environment: %w", err)
	}

	return &Evaluator{
		env: env,
		ids: append([]string(nil), activityIDs...),
	}, nil
}

// Identifiers returns the activity ids known to the evaluator.
func (e *Evaluator) Identifiers() []string {
	return e.ids
}

// Program is a compiled expression.
type Program struct {
	source string
	prg    cel.Program
}

func (p *Program) String() string {
	return p.source
}

// Compile compiles a single expression. A surrounding ${} is accepted and stripped.
func (e *Evaluator) Compile(expr string) (*Program, error) {
	source := unwrap(expr)
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}

	ast, iss := e.env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", source, iss.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building program for %q: %w", source, err)
	}

	return &Program{source: source, prg: prg}, nil
}

// CompileCondition compiles expr and checks it can yield a bool.
func (e *Evaluator) CompileCondition(expr string) (*Program, error) {
	source := unwrap(expr)

	ast, iss := e.env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", source, iss.Err())
	}

	switch ast.OutputType().Kind() {
	case types.BoolKind, types.DynKind, types.AnyKind:
	default:
		return nil, fmt.Errorf("condition %q evaluates to %s, not bool", source, ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building program for %q: %w", source, err)
	}

	return &Program{source: source, prg: prg}, nil
}

// Eval evaluates the program and converts the result to plain Go values: maps become
// map[string]any and lists []any.
func (p *Program) Eval(vars map[string]any) (any, error) {
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", p.source, err)
	}

	return native(out), nil
}

func (p *Program) EvalBool(vars map[string]any) (bool, error) {
	v, err := p.Eval(vars)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, not bool", p.source, v)
	}

	return b, nil
}

// unwrap strips a ${} wrapping the whole expression.
func unwrap(expr string) string {
	s := strings.TrimSpace(expr)

	segs, err := parseTemplate(s)
	if err == nil && len(segs) == 1 && segs[0].expr {
		return strings.TrimSpace(segs[0].text)
	}

	return s
}

func native(v ref.Val) any {
	switch t := v.(type) {
	case types.Null:
		return nil
	case traits.Mapper:
		m := make(map[string]any)
		for it := t.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			m[fmt.Sprint(k.Value())] = native(t.Get(k))
		}
		return m
	case traits.Lister:
		var l []any
		for it := t.Iterator(); it.HasNext() == types.True; {
			l = append(l, native(it.Next()))
		}
		return l
	}

	return v.Value()
}
