// Package msgfilter selects fetched channel messages with a CEL expression.
//
// Variables available to the expression:
//
//	text      string  payload as text
//	json      dyn     payload parsed as JSON (null when it is not JSON)
//	size      int     payload size in bytes
//	seq       int     channel-wide commit position
//	linkId    string  anchorage the message extends
//	msgId     string  message id
//	publicKey string  hex key of the author
//	ts_ms     int     node timestamp in milliseconds
//
// Example: `linkId == "bafk..." && json.kind == "invoice" && size < 4096`
package msgfilter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
)

// Filter wraps a compiled CEL program. The zero value and filters built from an
// empty expression match every message.
type Filter struct {
	expr    string
	prog    cel.Program
	enabled bool
}

// New compiles expr. The expression must evaluate to a bool.
func New(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("size", cel.IntType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("linkId", cel.StringType),
		cel.Variable("msgId", cel.StringType),
		cel.Variable("publicKey", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("invalid filter %q: result is %s, want bool", expr, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prog: prog, enabled: true}, nil
}

func (f *Filter) String() string { return f.expr }

// Match evaluates the filter against r. Evaluation errors (e.g. a missing JSON field)
// count as no match.
func (f *Filter) Match(r *anchors.FetchResult) bool {
	ok, err := f.Eval(r)
	return err == nil && ok
}

// Eval evaluates the filter against r and reports evaluation errors.
func (f *Filter) Eval(r *anchors.FetchResult) (bool, error) {
	if f == nil || !f.enabled {
		return true, nil
	}
	if r == nil {
		return false, nil
	}

	var jsonObj any
	_ = json.Unmarshal(r.Message, &jsonObj)

	var ts int64
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UnixMilli()
	}

	out, _, err := f.prog.Eval(map[string]any{
		"text":      string(r.Message),
		"json":      jsonObj,
		"size":      int64(len(r.Message)),
		"seq":       int64(r.Seq),
		"linkId":    r.AnchorageID,
		"msgId":     r.MessageID,
		"publicKey": r.PublicKey,
		"ts_ms":     ts,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expr, out.Value())
	}
	return b, nil
}
