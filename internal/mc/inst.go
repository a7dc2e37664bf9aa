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

	"github.com/cloudwego/tinygpu/internal/regs"
)

// Loc is a source location. The zero value means unknown.
type Loc struct {
	Line int
	Col  int
}

func (self Loc) IsValid() bool {
	return self.Line > 0
}

func (self Loc) String() string {
	return fmt.Sprintf("%d:%d", self.Line, self.Col)
}

type OperandKind uint8

const (
	KindInvalid OperandKind = iota
	KindReg
	KindImm
	KindExpr
)

var operandKindNames = [...]string{
	KindInvalid: "invalid",
	KindReg:     "reg",
	KindImm:     "imm",
	KindExpr:    "expr",
}

func (self OperandKind) String() string {
	if int(self) < len(operandKindNames) {
		return operandKindNames[self]
	} else {
		return fmt.Sprintf("OperandKind(%d)", self)
	}
}

// Operand is one MC operand: a register, an immediate or an expression.
type Operand struct {
	kind OperandKind
	reg  regs.Reg
	imm  int64
	expr Expr
}

func RegOp(r regs.Reg) Operand {
	return Operand{kind: KindReg, reg: r}
}

func ImmOp(v int64) Operand {
	return Operand{kind: KindImm, imm: v}
}

func ExprOp(e Expr) Operand {
	return Operand{kind: KindExpr, expr: e}
}

func (self Operand) Kind() OperandKind { return self.kind }
func (self Operand) IsReg() bool       { return self.kind == KindReg }
func (self Operand) IsImm() bool       { return self.kind == KindImm }
func (self Operand) IsExpr() bool      { return self.kind == KindExpr }

func (self Operand) must(kind OperandKind) {
	if self.kind != kind {
		panic(fmt.Sprintf("mc: operand is %s, not %s", self.kind, kind))
	}
}

func (self Operand) Reg() regs.Reg {
	self.must(KindReg)
	return self.reg
}

func (self Operand) Imm() int64 {
	self.must(KindImm)
	return self.imm
}

func (self Operand) Expr() Expr {
	self.must(KindExpr)
	return self.expr
}

// Equal compares two operands by kind and payload.
func (self Operand) Equal(other Operand) bool {
	if self.kind != other.kind {
		return false
	}

	/* compare the payload */
	switch self.kind {
	case KindReg:
		return self.reg == other.reg
	case KindImm:
		return self.imm == other.imm
	case KindExpr:
		return Equal(self.expr, other.expr)
	default:
		return true
	}
}

func (self Operand) String() string {
	switch self.kind {
	case KindReg:
		return self.reg.String()
	case KindImm:
		return fmt.Sprintf("%d", self.imm)
	case KindExpr:
		return self.expr.String()
	default:
		return "<invalid>"
	}
}

// Inst is an MC instruction. Operands are in encoding order, which is not
// necessarily the order they are written in.
type Inst struct {
	Op       Opcode
	Operands []Operand
	Loc      Loc
}

func NewInst(op Opcode, ops ...Operand) *Inst {
	return &Inst{Op: op, Operands: ops}
}

func (self *Inst) At(loc Loc) *Inst {
	self.Loc = loc
	return self
}

// Equal compares opcode and operands, ignoring locations.
func (self *Inst) Equal(other *Inst) bool {
	if self.Op != other.Op || len(self.Operands) != len(other.Operands) {
		return false
	}
	for i, v := range self.Operands {
		if !v.Equal(other.Operands[i]) {
			return false
		}
	}
	return true
}

// Dump renders the instruction in encoding order, for diagnostics.
func (self *Inst) Dump() string {
	ops := make([]string, 0, len(self.Operands))
	for _, v := range self.Operands {
		ops = append(ops, v.String())
	}
	return fmt.Sprintf("<%s %s>", self.Op, strings.Join(ops, ", "))
}

func (self *Inst) String() string {
	return Print(self)
}
