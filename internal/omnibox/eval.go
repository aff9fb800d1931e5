package omnibox

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const evalTimeout = 50 * time.Millisecond

// Eval computes a math expression in a throwaway goja runtime. Only finite
// numeric results are returned; anything else reports false.
func Eval(expr string) (string, bool) {
	if !IsMathExpr(expr) {
		return "", false
	}
	src := strings.NewReplacer("√", "Math.sqrt", "^", "**").Replace(strings.TrimSpace(expr))

	vm := goja.New()
	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt("execution timeout exceeded")
	})
	defer timer.Stop()

	val, err := vm.RunString(`"use strict";(` + src + `)`)
	if err != nil {
		slog.Debug("math eval failed", "expr", expr, "error", err)
		return "", false
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return "", false
	}

	switch n := val.Export().(type) {
	case int64:
		return val.String(), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", false
		}
		return val.String(), true
	default:
		return "", false
	}
}
