package expression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()

	e, err := New([]string{"init", "sendForm", "waitReply"})
	require.NoError(t, err)

	return e
}

func vars() map[string]any {
	return map[string]any{
		"init":      map[string]any{"text": "/go"},
		"sendForm":  map[string]any{"msgId": "m1", "count": 2},
		"waitReply": map[string]any{"ticker": "GOOG", "tags": []any{"a", "b"}},
		"variables": map[string]any{"limit": 3, "owner": "alice"},
	}
}

func TestValidIdentifier(t *testing.T) {
	require.True(t, ValidIdentifier("sendForm"))
	require.True(t, ValidIdentifier("_a1"))
	require.False(t, ValidIdentifier("1a"))
	require.False(t, ValidIdentifier("send-form"))
	require.False(t, ValidIdentifier("in"))
	require.False(t, ValidIdentifier(VariablesIdentifier))
	require.False(t, ValidIdentifier(""))
}

func TestNew_InvalidIdentifier(t *testing.T) {
	_, err := New([]string{"send-form"})
	require.Error(t, err)
}

func TestProgram_EvalBool(t *testing.T) {
	e := newEvaluator(t)

	tests := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{expr: `waitReply.ticker == "GOOG"`, want: true},
		{expr: `${waitReply.ticker == "GOOGLE"}`, want: false},
		{expr: `sendForm.count < variables.limit`, want: true},
		{expr: `sendForm.count == 2.0`, want: true},
		{expr: `has(init.missing)`, want: false},
		{expr: `"b" in waitReply.tags`, want: true},
		{expr: `init.missing == "x"`, wantErr: true},
		{expr: `waitReply.ticker`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := e.CompileCondition(tt.expr)
			require.NoError(t, err)

			got, err := p.EvalBool(vars())
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompileCondition_Errors(t *testing.T) {
	e := newEvaluator(t)

	for _, expr := range []string{
		`unknown.ticker == "GOOG"`,
		`waitReply.ticker ==`,
		`"a" + "b"`,
		`${}`,
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := e.CompileCondition(expr)
			require.Error(t, err)
		})
	}
}

func TestTemplate_Render(t *testing.T) {
	e := newEvaluator(t)

	tests := []struct {
		name string
		tpl  string
		want any
	}{
		{name: "literal", tpl: "hello", want: "hello"},
		{name: "single expression keeps type", tpl: "${sendForm.count}", want: int64(2)},
		{name: "single expression map", tpl: "${{'a': 1}}", want: map[string]any{"a": int64(1)}},
		{name: "single expression list", tpl: "${waitReply.tags}", want: []any{"a", "b"}},
		{name: "mixed", tpl: "Ticker ${waitReply.ticker} by ${variables.owner}", want: "Ticker GOOG by alice"},
		{name: "brace in string", tpl: "${'}' + waitReply.ticker}!", want: "}GOOG!"},
		{name: "null renders empty", tpl: "x${null}y", want: "xy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := e.CompileTemplate(tt.tpl)
			require.NoError(t, err)

			got, err := tpl.Render(vars())
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_Errors(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.CompileTemplate("${waitReply.ticker")
	require.Error(t, err)

	_, err = e.CompileTemplate("${unknown.x}")
	require.Error(t, err)

	tpl, err := e.CompileTemplate("${sendForm.missing}")
	require.NoError(t, err)
	_, err = tpl.Render(vars())
	require.Error(t, err)
}

func TestTemplate_RenderString(t *testing.T) {
	e := newEvaluator(t)

	tpl, err := e.CompileTemplate("${sendForm.msgId}")
	require.NoError(t, err)
	s, err := tpl.RenderString(vars())
	require.NoError(t, err)
	require.Equal(t, "m1", s)

	tpl, err = e.CompileTemplate("${sendForm.count}")
	require.NoError(t, err)
	s, err = tpl.RenderString(vars())
	require.NoError(t, err)
	require.Equal(t, "2", s)

	require.True(t, mustTemplate(t, e, "plain").Constant())
	require.False(t, tpl.Constant())
}

func mustTemplate(t *testing.T, e *Evaluator, s string) *Template {
	tpl, err := e.CompileTemplate(s)
	require.NoError(t, err)
	return tpl
}

func TestParams_Render(t *testing.T) {
	e := newEvaluator(t)

	p, err := e.CompileParams(map[string]any{
		"to":      "${init.text}",
		"content": "<messageML>${waitReply.ticker}</messageML>",
		"nested": map[string]any{
			"list": []any{"${sendForm.msgId}", 1, true},
		},
		"names": []string{"${variables.owner}"},
		"count": 4,
	})
	require.NoError(t, err)

	got, err := p.Render(vars())
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"to":      "/go",
		"content": "<messageML>GOOG</messageML>",
		"nested": map[string]any{
			"list": []any{"m1", 1, true},
		},
		"names": []any{"alice"},
		"count": 4,
	}, got)
}

func TestParams_CompileError(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.CompileParams(map[string]any{
		"nested": map[string]any{"bad": "${unknown.x}"},
	})
	require.ErrorContains(t, err, "parameter nested: bad")
}

func TestParams_Nil(t *testing.T) {
	var p *Params

	got, err := p.Render(nil)
	require.NoError(t, err)
	require.Empty(t, got)
}
