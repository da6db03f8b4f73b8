// Package query compiles text expressions into entity predicates usable with
// store.Get and store.GetSingle.
//
// An entity is exposed to the expression as its JSON object: every member is
// a top-level variable, so a contact encoded as {"name":"Ada","age":36} can
// be matched with `name == "Ada" && age > 30`. Numbers are float64.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Engine names an expression language.
type Engine string

const (
	EngineExpr Engine = "expr" // github.com/expr-lang/expr
	EngineCEL  Engine = "cel"  // github.com/google/cel-go
	EngineJS   Engine = "js"   // github.com/dop251/goja
)

// ErrUnknownEngine is returned for engine names other than the constants above.
var ErrUnknownEngine = errors.New("unknown query engine")

// Engines returns the supported engines.
func Engines() []Engine {
	return []Engine{EngineExpr, EngineCEL, EngineJS}
}

// ParseEngine resolves name to an Engine. An empty name selects EngineExpr.
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case "", EngineExpr:
		return EngineExpr, nil
	case EngineCEL:
		return EngineCEL, nil
	case EngineJS, "javascript":
		return EngineJS, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEngine, name)
}

// Error reports a compile or evaluation failure together with the engine and
// expression that produced it.
type Error struct {
	Engine     Engine
	Expression string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("query: %s expression %q: %v", e.Engine, e.Expression, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// program evaluates a compiled expression against one entity's variables.
// Implementations must be safe for concurrent use.
type program interface {
	eval(vars map[string]any) (bool, error)
}

// Predicate is a compiled expression over entities of type T. Match is safe
// for concurrent use.
type Predicate[T any] struct {
	engine     Engine
	expression string
	program    program

	mu       sync.Mutex
	lastErr  error
	failures int
}

// Compile parses expression for engine. Syntax errors surface here as
// *Error; references to members an entity lacks surface at match time.
func Compile[T any](engine Engine, expression string) (*Predicate[T], error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &Error{Engine: engine, Expression: expression, Err: errors.New("expression must not be empty")}
	}

	var (
		prog program
		err  error
	)
	switch engine {
	case EngineExpr:
		prog, err = compileExpr(expression)
	case EngineCEL:
		prog, err = compileCEL(expression)
	case EngineJS:
		prog, err = compileJS(expression)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	if err != nil {
		return nil, &Error{Engine: engine, Expression: expression, Err: err}
	}

	return &Predicate[T]{
		engine:     engine,
		expression: expression,
		program:    prog,
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile[T any](engine Engine, expression string) *Predicate[T] {
	p, err := Compile[T](engine, expression)
	if err != nil {
		panic(err)
	}
	return p
}

// Engine returns the engine the predicate was compiled for.
func (p *Predicate[T]) Engine() Engine { return p.engine }

// String returns the source expression.
func (p *Predicate[T]) String() string { return p.expression }

// Match reports whether v satisfies the expression. Evaluation errors and
// non-boolean results count as no match and are recorded for Err.
func (p *Predicate[T]) Match(v T) bool {
	vars, err := variables(v)
	if err == nil {
		var ok bool
		ok, err = p.program.eval(vars)
		if err == nil {
			return ok
		}
	}

	p.mu.Lock()
	p.lastErr = &Error{Engine: p.engine, Expression: p.expression, Err: err}
	p.failures++
	p.mu.Unlock()
	return false
}

// Err returns the most recent evaluation error, or nil.
func (p *Predicate[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Failures returns how many evaluations have failed.
func (p *Predicate[T]) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func variables(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	var vars map[string]any
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("entity is not an object: %w", err)
	}
	if vars == nil {
		return nil, errors.New("entity is null")
	}
	return vars, nil
}

func asBool(result any) (bool, error) {
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("result %v (%T) is not a boolean", result, result)
	}
	return b, nil
}
