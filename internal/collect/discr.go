package collect

import (
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
)

// evalDiscriminants assigns every variant of an enum its discriminant bit
// pattern. An explicit setting is constant-evaluated against the enum's
// representation type; an implicit one is the previous value plus one, with
// wraparound diagnosed. The first variant defaults to zero.
func (c *Context) evalDiscriminants(en *ast.EnumDecl) {
	repr := en.Repr
	var prev uint64
	have := false

	for _, vid := range en.Variants {
		v := c.Store.Variant(vid)
		var disr uint64
		switch {
		case v.Discr.IsValid():
			val, ok := c.evalExplicitDiscr(v.Discr, repr)
			if ok {
				disr = val
			} else if have {
				disr = wrapIncr(prev, repr)
			}
		case have:
			if prev == repr.MaxValue() {
				next := wrapIncr(prev, repr)
				diag.ReportError(c.Reporter, diag.TyDiscrOverflow, c.Store.Span(vid),
					fmt.Sprintf("enum discriminant overflowed on value after %s: %s; set explicitly via %s = %s if that is desired outcome",
						repr.Render(prev), repr, c.declName(vid), repr.Render(next))).Emit()
			}
			disr = wrapIncr(prev, repr)
		}
		c.discrs[vid] = disr
		prev, have = disr, true
	}
}

func wrapIncr(prev uint64, repr ast.IntRepr) uint64 {
	return (prev + 1) & repr.Mask()
}

// evalExplicitDiscr evaluates an explicit discriminant expression. A failed
// evaluation, a sign mismatch, or a value outside the representation's range
// is diagnosed here; the caller falls back to the wrapped increment.
func (c *Context) evalExplicitDiscr(expr ast.ExprID, repr ast.IntRepr) (uint64, bool) {
	span := c.Store.Expr(expr).Span
	e := &discrEval{c: c, visited: make(map[ast.ExprID]bool)}
	neg, mag, err := e.eval(expr)
	if err != nil {
		diag.ReportError(c.Reporter, diag.TyDiscrEvalFailed, span,
			"constant evaluation error: "+err.Error()).Emit()
		return 0, false
	}
	if neg && !repr.Signed {
		diag.ReportError(c.Reporter, diag.TyDiscrNotInteger, span,
			"expected unsigned integer constant").Emit()
		return 0, false
	}
	// A signed repr admits one more negative magnitude than positive
	// (i8 spans -128..127).
	limit := repr.MaxValue()
	if neg {
		limit++
	}
	if mag > limit {
		rendered := fmt.Sprintf("%d", mag)
		if neg {
			rendered = "-" + rendered
		}
		diag.ReportError(c.Reporter, diag.TyDiscrEvalFailed, span,
			fmt.Sprintf("constant evaluation error: %s is out of range for %s", rendered, repr)).Emit()
		return 0, false
	}
	bits := mag
	if neg {
		bits = ^mag + 1
	}
	return bits & repr.Mask(), true
}

// discrEval evaluates the restricted constant-expression grammar allowed in
// discriminant position. Values are a sign plus a magnitude so that range
// checks against either representation stay exact.
type discrEval struct {
	c       *Context
	visited map[ast.ExprID]bool
}

func (e *discrEval) eval(id ast.ExprID) (neg bool, mag uint64, err error) {
	if e.visited[id] {
		return false, 0, fmt.Errorf("recursive constant")
	}
	e.visited[id] = true

	x := e.c.Store.Expr(id)
	switch x.Kind {
	case ast.ExprInt:
		return false, x.IntVal, nil

	case ast.ExprUnary:
		if x.Op != ast.OpNeg {
			return false, 0, fmt.Errorf("unsupported unary operator in constant")
		}
		n, m, err := e.eval(x.Lhs)
		if err != nil {
			return false, 0, err
		}
		if m == 0 {
			return false, 0, nil
		}
		return !n, m, nil

	case ast.ExprBinary:
		ln, lm, err := e.eval(x.Lhs)
		if err != nil {
			return false, 0, err
		}
		rn, rm, err := e.eval(x.Rhs)
		if err != nil {
			return false, 0, err
		}
		switch x.Op {
		case ast.OpAdd:
			return signedAdd(ln, lm, rn, rm)
		case ast.OpSub:
			return signedAdd(ln, lm, !rn, rm)
		case ast.OpMul:
			if lm != 0 && rm != 0 && lm*rm/lm != rm {
				return false, 0, fmt.Errorf("attempt to multiply with overflow")
			}
			m := lm * rm
			return ln != rn && m != 0, m, nil
		case ast.OpShl:
			if ln || rn {
				return false, 0, fmt.Errorf("shift of or by a negative value")
			}
			if rm >= 64 {
				return false, 0, fmt.Errorf("attempt to shift left with overflow")
			}
			return false, lm << rm, nil
		case ast.OpBitOr:
			if ln || rn {
				return false, 0, fmt.Errorf("bitwise operation on a negative value")
			}
			return false, lm | rm, nil
		default:
			return false, 0, fmt.Errorf("unsupported binary operator in constant")
		}

	case ast.ExprConstRef:
		if e.c.Store.Kind(x.Decl) != ast.DeclConst {
			return false, 0, fmt.Errorf("`%s` is not a constant", e.c.declName(x.Decl))
		}
		value := e.c.Store.Const(x.Decl).Value
		if !value.IsValid() {
			return false, 0, fmt.Errorf("constant `%s` has no value", e.c.declName(x.Decl))
		}
		return e.eval(value)

	default:
		return false, 0, fmt.Errorf("unsupported expression in constant")
	}
}

// signedAdd adds two sign-and-magnitude values with overflow detection.
func signedAdd(ln bool, lm uint64, rn bool, rm uint64) (bool, uint64, error) {
	if ln == rn {
		m := lm + rm
		if m < lm {
			return false, 0, fmt.Errorf("attempt to add with overflow")
		}
		return ln && m != 0, m, nil
	}
	if lm >= rm {
		m := lm - rm
		return ln && m != 0, m, nil
	}
	return rn, rm - lm, nil
}
