package query

import (
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/puzpuzpuz/xsync/v3"
)

// celProgram type-checks the expression against the member names of the
// entities it sees. Programs are cached per distinct set of names.
type celProgram struct {
	expression string
	programs   *xsync.MapOf[string, cel.Program]
}

func compileCEL(expression string) (program, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, err
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return &celProgram{
		expression: expression,
		programs:   xsync.NewMapOf[string, cel.Program](),
	}, nil
}

func (p *celProgram) eval(vars map[string]any) (bool, error) {
	prg, err := p.load(vars)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	return asBool(out.Value())
}

func (p *celProgram) load(vars map[string]any) (cel.Program, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	signature := strings.Join(names, "\x00")

	if prg, ok := p.programs.Load(signature); ok {
		return prg, nil
	}

	opts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(p.expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	prg, _ = p.programs.LoadOrStore(signature, prg)
	return prg, nil
}
