package expression

import "fmt"

// Params is a compiled parameter tree. Strings anywhere in nested maps and lists are templates.
type Params struct {
	root map[string]node
}

type node interface {
	render(vars map[string]any) (any, error)
}

type constNode struct{ v any }

func (n constNode) render(map[string]any) (any, error) { return n.v, nil }

type templateNode struct{ t *Template }

func (n templateNode) render(vars map[string]any) (any, error) { return n.t.Render(vars) }

type mapNode map[string]node

func (n mapNode) render(vars map[string]any) (any, error) {
	m := make(map[string]any, len(n))
	for k, c := range n {
		v, err := c.render(vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m[k] = v
	}

	return m, nil
}

type listNode []node

func (n listNode) render(vars map[string]any) (any, error) {
	l := make([]any, len(n))
	for i, c := range n {
		v, err := c.render(vars)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		l[i] = v
	}

	return l, nil
}

func (e *Evaluator) CompileParams(params map[string]any) (*Params, error) {
	root := make(map[string]node, len(params))
	for k, v := range params {
		n, err := e.compileNode(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		root[k] = n
	}

	return &Params{root: root}, nil
}

func (e *Evaluator) compileNode(v any) (node, error) {
	switch t := v.(type) {
	case string:
		tpl, err := e.CompileTemplate(t)
		if err != nil {
			return nil, err
		}
		if tpl.Constant() {
			return constNode{t}, nil
		}
		return templateNode{tpl}, nil

	case map[string]any:
		m := make(mapNode, len(t))
		for k, c := range t {
			n, err := e.compileNode(c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = n
		}
		return m, nil

	case []any:
		l := make(listNode, len(t))
		for i, c := range t {
			n, err := e.compileNode(c)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = n
		}
		return l, nil

	case []string:
		l := make(listNode, len(t))
		for i, c := range t {
			n, err := e.compileNode(c)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = n
		}
		return l, nil
	}

	return constNode{v}, nil
}

// Render evaluates every template in the tree.
func (p *Params) Render(vars map[string]any) (map[string]any, error) {
	if p == nil {
		return map[string]any{}, nil
	}

	v, err := mapNode(p.root).render(vars)
	if err != nil {
		return nil, err
	}

	return v.(map[string]any), nil
}
