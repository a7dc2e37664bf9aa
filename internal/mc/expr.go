/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mc

import (
	"fmt"
	"strings"

	"github.com/chenzhuoyu/iasm/expr"
	"github.com/pkg/errors"
)

// Symbol is a named label inside an expression. It never evaluates.
type Symbol struct {
	Name string
}

func (self *Symbol) Free() {}

func (self *Symbol) Evaluate() (int64, error) {
	return 0, errors.Errorf("mc: symbol %s is not a constant", self.Name)
}

// Variant is a relocation-variant term wrapping a sub-expression.
type Variant struct {
	Kind VariantKind
	Sub  Expr
}

func (self *Variant) Free() {}

func (self *Variant) Evaluate() (int64, error) {
	return 0, errors.Errorf("mc: %s is a relocation, not a constant", self.Kind)
}

// Expr is an immutable expression tree. The zero value is not a valid
// expression.
type Expr struct {
	x *expr.Expr
}

func Const(v int64) Expr {
	return Expr{expr.Int(v)}
}

func Sym(name string) Expr {
	return Expr{expr.Ref(&Symbol{Name: name})}
}

// Wrap builds a variant expression without any PIC adjustment. Parsers should
// go through Context.Variant instead.
func Wrap(kind VariantKind, sub Expr) Expr {
	if !sub.IsValid() {
		panic("mc: wrapping an invalid expression")
	} else {
		return Expr{expr.Ref(&Variant{Kind: kind, Sub: sub})}
	}
}

// Binary combines two expressions. Only the operators the assembler can spell
// are accepted.
func Binary(op expr.Operator, a Expr, b Expr) Expr {
	switch op {
	case expr.ADD:
		return Expr{a.x.Add(b.x)}
	case expr.SUB:
		return Expr{a.x.Sub(b.x)}
	case expr.MUL:
		return Expr{a.x.Mul(b.x)}
	case expr.DIV:
		return Expr{a.x.Div(b.x)}
	case expr.MOD:
		return Expr{a.x.Mod(b.x)}
	case expr.AND:
		return Expr{a.x.And(b.x)}
	case expr.OR:
		return Expr{a.x.Or(b.x)}
	case expr.XOR:
		return Expr{a.x.Xor(b.x)}
	case expr.SHL:
		return Expr{a.x.Shl(b.x)}
	case expr.SHR:
		return Expr{a.x.Shr(b.x)}
	default:
		panic("mc: invalid binary operator: " + op.String())
	}
}

func Unary(op expr.Operator, a Expr) Expr {
	switch op {
	case expr.NEG:
		return Expr{a.x.Neg()}
	case expr.NOT:
		return Expr{a.x.Not()}
	default:
		panic("mc: invalid unary operator: " + op.String())
	}
}

func (self Expr) IsValid() bool {
	return self.x != nil
}

// Raw exposes the underlying iasm expression.
func (self Expr) Raw() *expr.Expr {
	return self.x
}

// Evaluate folds the expression. It fails for anything referencing a symbol
// or a relocation variant, and for arithmetic faults such as division by zero.
func (self Expr) Evaluate() (int64, bool) {
	if v, err := self.x.Evaluate(); err != nil {
		return 0, false
	} else {
		return v, true
	}
}

// Fold returns a constant expression when the tree evaluates, the tree itself
// otherwise.
func (self Expr) Fold() Expr {
	if self.x.Type == expr.CONST {
		return self
	} else if v, ok := self.Evaluate(); ok {
		return Const(v)
	} else {
		return self
	}
}

// Variant returns the top-level relocation variant, if any.
func (self Expr) Variant() (*Variant, bool) {
	if self.x.Type != expr.TERM {
		return nil, false
	} else {
		v, ok := self.x.Term.(*Variant)
		return v, ok
	}
}

// Symbol returns the symbol of a plain symbol reference.
func (self Expr) Symbol() (*Symbol, bool) {
	if self.x.Type != expr.TERM {
		return nil, false
	} else {
		v, ok := self.x.Term.(*Symbol)
		return v, ok
	}
}

// HasSymbol reports whether name is referenced anywhere in the tree,
// including inside relocation variants.
func (self Expr) HasSymbol(name string) bool {
	return hasSymbol(self.x, name)
}

func hasSymbol(x *expr.Expr, name string) bool {
	switch x.Type {
	case expr.CONST:
		return false
	case expr.EXPR:
		return hasSymbol(x.Left, name) || (x.Right != nil && hasSymbol(x.Right, name))
	}

	/* terms */
	switch t := x.Term.(type) {
	case *Symbol:
		return t.Name == name
	case *Variant:
		return t.Sub.HasSymbol(name)
	default:
		return false
	}
}

// Equal compares two expressions structurally.
func Equal(a Expr, b Expr) bool {
	if a.x == nil || b.x == nil {
		return a.x == b.x
	} else {
		return equalExpr(a.x, b.x)
	}
}

func equalExpr(a *expr.Expr, b *expr.Expr) bool {
	if a == nil || b == nil {
		return a == b
	} else if a.Type != b.Type {
		return false
	}

	/* compare by node type */
	switch a.Type {
	case expr.CONST:
		return a.Const == b.Const
	case expr.EXPR:
		return a.Op == b.Op && equalExpr(a.Left, b.Left) && equalExpr(a.Right, b.Right)
	}

	/* terms */
	switch ta := a.Term.(type) {
	case *Symbol:
		tb, ok := b.Term.(*Symbol)
		return ok && ta.Name == tb.Name
	case *Variant:
		tb, ok := b.Term.(*Variant)
		return ok && ta.Kind == tb.Kind && Equal(ta.Sub, tb.Sub)
	default:
		return a.Term == b.Term
	}
}

var opSymbols = map[expr.Operator]string{
	expr.ADD: "+",
	expr.SUB: "-",
	expr.MUL: "*",
	expr.DIV: "/",
	expr.MOD: "%",
	expr.AND: "&",
	expr.OR:  "|",
	expr.XOR: "^",
	expr.SHL: "<<",
	expr.SHR: ">>",
}

func (self Expr) String() string {
	if self.x == nil {
		return "<invalid>"
	} else {
		sb := new(strings.Builder)
		printExpr(sb, self.x, false)
		return sb.String()
	}
}

func printExpr(sb *strings.Builder, x *expr.Expr, nested bool) {
	switch x.Type {
	case expr.CONST:
		fmt.Fprintf(sb, "%d", x.Const)
	case expr.TERM:
		printTerm(sb, x.Term)
	case expr.EXPR:
		printOp(sb, x, nested)
	}
}

func printOp(sb *strings.Builder, x *expr.Expr, nested bool) {
	switch x.Op {
	case expr.NEG:
		sb.WriteByte('-')
		printExpr(sb, x.Left, true)
	case expr.NOT:
		sb.WriteByte('~')
		printExpr(sb, x.Left, true)
	default:
		if nested {
			sb.WriteByte('(')
		}
		printExpr(sb, x.Left, true)
		sb.WriteString(opSymbols[x.Op])
		printExpr(sb, x.Right, true)
		if nested {
			sb.WriteByte(')')
		}
	}
}

func printTerm(sb *strings.Builder, t expr.Term) {
	switch v := t.(type) {
	case *Symbol:
		sb.WriteString(v.Name)
	case *Variant:
		if name := v.Kind.Name(); name == "" {
			printExpr(sb, v.Sub.x, false)
		} else {
			sb.WriteString("%" + name + "(")
			printExpr(sb, v.Sub.x, false)
			sb.WriteByte(')')
		}
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}
