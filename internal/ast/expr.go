package ast

import "ferrite/internal/source"

// ExprKind is the small constant-expression language accepted for enum
// discriminants.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprInt
	ExprUnary
	ExprBinary
	ExprConstRef // reference to a const declaration
	ExprOther    // anything richer; the evaluator reports it as non-constant
)

// ExprOp enumerates the supported operators.
type ExprOp uint8

const (
	OpNone ExprOp = iota
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpShl
	OpBitOr
)

// Expr is one constant-expression node.
type Expr struct {
	Kind   ExprKind
	Span   source.Span
	IntVal uint64 // ExprInt magnitude
	Op     ExprOp
	Lhs    ExprID
	Rhs    ExprID // unary ops use Lhs only
	Decl   DeclID // ExprConstRef target
}
