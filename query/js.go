package query

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsProgram runs one compiled script per match in a fresh runtime, since a
// goja.Runtime is not safe for concurrent use.
type jsProgram struct {
	program *goja.Program
}

func compileJS(expression string) (program, error) {
	prog, err := goja.Compile("", wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	return &jsProgram{program: prog}, nil
}

func (p *jsProgram) eval(vars map[string]any) (bool, error) {
	vm := goja.New()
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return false, err
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return false, err
	}
	return asBool(value.Export())
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}
