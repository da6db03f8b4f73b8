package query

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type exprProgram struct {
	program *vm.Program
}

func compileExpr(expression string) (program, error) {
	prog, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return &exprProgram{program: prog}, nil
}

func (p *exprProgram) eval(vars map[string]any) (bool, error) {
	result, err := expr.Run(p.program, vars)
	if err != nil {
		return false, err
	}
	return asBool(result)
}
