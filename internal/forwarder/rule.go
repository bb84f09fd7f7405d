package forwarder

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// ruleEvaluator 编译并缓存 placement 的 forward_rule 表达式
type ruleEvaluator struct {
	env      *cel.Env
	programs sync.Map // expr -> cel.Program
}

func newRuleEvaluator() (*ruleEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("status", cel.StringType),
		cel.Variable("payout", cel.IntType),
		cel.Variable("points", cel.IntType),
		cel.Variable("offer_id", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("placement_id", cel.StringType),
		cel.Variable("fraud_status", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &ruleEvaluator{env: env}, nil
}

func (e *ruleEvaluator) program(expr string) (cel.Program, error) {
	if p, ok := e.programs.Load(expr); ok {
		return p.(cel.Program), nil
	}
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule must return bool, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programs.Store(expr, prg)
	return prg, nil
}

// Eval 执行规则表达式
func (e *ruleEvaluator) Eval(expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("rule returned %T", out.Value())
	}
	return ok, nil
}
