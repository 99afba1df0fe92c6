package collect

import (
	"fmt"

	"ferrite/internal/ast"
	"ferrite/internal/diag"
	"ferrite/internal/source"
)

// requestKind tags one in-flight computation on the cycle stack.
type requestKind uint8

const (
	reqScheme requestKind = iota
	reqTraitDef
	reqSuperPredicates
	reqParamBounds
)

// request identifies one fact being computed. Two requests are the same
// computation exactly when both fields match.
type request struct {
	kind requestKind
	decl ast.DeclID
}

// cycleCheck pushes the request, runs body, and pops. If an equal request is
// already anywhere on the stack the chain from its first occurrence is a
// dependency cycle: it is reported once and body is not run.
func (c *Context) cycleCheck(span source.Span, req request, body func() error) error {
	for i, r := range c.stack {
		if r == req {
			c.reportCycle(span, c.stack[i:])
			return errReported
		}
	}
	c.stack = append(c.stack, req)
	err := body()
	c.stack = c.stack[:len(c.stack)-1]
	return err
}

// reportCycle narrates the chain from the first occurrence to the top of the
// stack in one diagnostic.
func (c *Context) reportCycle(span source.Span, cycle []request) {
	if len(cycle) == 0 {
		panic("collect: empty cycle")
	}
	b := diag.ReportError(c.Reporter, diag.TyCycle, span,
		"unsupported cyclic reference between types detected")
	b.WithNote(c.requestSpan(cycle[0]),
		fmt.Sprintf("the cycle begins when %s...", c.describeRequest(cycle[0])))
	for _, req := range cycle[1:] {
		b.WithNote(c.requestSpan(req),
			fmt.Sprintf("...which then requires %s...", c.describeRequest(req)))
	}
	b.WithNote(c.requestSpan(cycle[0]),
		fmt.Sprintf("...which then again requires %s, completing the cycle",
			c.describeRequest(cycle[0])))
	b.Emit()
}

func (c *Context) describeRequest(req request) string {
	switch req.kind {
	case reqScheme, reqTraitDef:
		return fmt.Sprintf("processing `%s`", c.declName(req.decl))
	case reqSuperPredicates:
		return fmt.Sprintf("computing the supertraits of `%s`", c.declName(req.decl))
	case reqParamBounds:
		return fmt.Sprintf("computing the bounds for type parameter `%s`", c.declName(req.decl))
	default:
		panic(fmt.Sprintf("collect: bad request kind %d", req.kind))
	}
}

func (c *Context) requestSpan(req request) source.Span {
	return c.Store.Span(req.decl)
}
