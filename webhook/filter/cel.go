package filter

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/webhook"
)

// CelFormat is the filter format tag owned by the CEL evaluator
const CelFormat = "cel"

// defaultCacheSize bounds the compiled-program cache
const defaultCacheSize = 512

/* CelEvaluator compiles filter expressions with the Common Expression
 * Language and evaluates them against the serialized webhook
 * Compiled programs are cached keyed by (evaluator type, expression text)
 * so repeated evaluations for the same subscription pay compilation cost
 * once, across goroutines
 */
type CelEvaluator struct {
	env      *cel.Env
	programs *lru.Cache[string, cel.Program]
	compiles atomic.Int64
}

// NewCelEvaluator creates a CEL evaluator with a bounded program cache
func NewCelEvaluator() (*CelEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("eventType", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("subscriptionId", cel.StringType),
		cel.Variable("timeStamp", cel.StringType),
		cel.Variable("data", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	programs, err := lru.New[string, cel.Program](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating program cache: %w", err)
	}

	return &CelEvaluator{
		env:      env,
		programs: programs,
	}, nil
}

// Format returns the filter format tag this evaluator owns
func (e *CelEvaluator) Format() string {
	return CelFormat
}

// Matches evaluates the filters against the webhook, AND-joining multiple
// expressions into one compiled predicate
func (e *CelEvaluator) Matches(ctx context.Context, filters []subscription.Filter, wh webhook.Webhook) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	expressions := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.Format != CelFormat {
			return false, fmt.Errorf("filter format not supported: %s", f.Format)
		}
		if f.Wildcard() {
			return true, nil
		}
		expressions = append(expressions, "("+f.Expression+")")
	}

	expression := strings.Join(expressions, " && ")

	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := program.ContextEval(ctx, serialize(wh))
	if err != nil {
		return false, fmt.Errorf("evaluating filter expression: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression %q is not a boolean predicate", expression)
	}
	return matched, nil
}

// Compilations returns how many expressions have been compiled, used to
// observe cache effectiveness
func (e *CelEvaluator) Compilations() int64 {
	return e.compiles.Load()
}

// program returns the compiled predicate for an expression, compiling
// lazily on first use
func (e *CelEvaluator) program(expression string) (cel.Program, error) {
	key := fmt.Sprintf("%T|%s", e, expression)

	if program, ok := e.programs.Get(key); ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling filter expression %q: %w", expression, issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building filter program: %w", err)
	}

	e.compiles.Add(1)
	// Insert-if-absent: a concurrent compile of the same key is harmless,
	// both programs are equivalent
	e.programs.ContainsOrAdd(key, program)

	return program, nil
}

// serialize turns the webhook into the generic structure expressions
// evaluate against
func serialize(wh webhook.Webhook) map[string]any {
	data := wh.Data
	if data == nil {
		data = map[string]any{}
	}

	return map[string]any{
		"id":             wh.ID,
		"eventType":      wh.EventType,
		"name":           wh.Name,
		"subscriptionId": wh.SubscriptionID,
		"timeStamp":      wh.Timestamp.UTC().Format(time.RFC3339),
		"data":           data,
	}
}
