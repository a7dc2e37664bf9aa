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

package asm

import (
	"fmt"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

type OperandKind uint8

const (
	K_Token OperandKind = iota + 1
	K_Register
	K_Immediate
	K_MemoryReg
	K_MemoryImm
	K_ASITag
	K_PrefetchTag
	K_TailRelocSym
)

var operandKindNames = [...]string{
	K_Token:        "token",
	K_Register:     "register",
	K_Immediate:    "immediate",
	K_MemoryReg:    "memory (reg+reg)",
	K_MemoryImm:    "memory (reg+imm)",
	K_ASITag:       "ASI tag",
	K_PrefetchTag:  "prefetch tag",
	K_TailRelocSym: "tail relocation",
}

func (self OperandKind) String() string {
	if int(self) < len(operandKindNames) && operandKindNames[self] != "" {
		return operandKindNames[self]
	} else {
		return fmt.Sprintf("OperandKind(%d)", self)
	}
}

// Operand is one parsed text operand. Only the fields of its kind are
// meaningful.
type Operand struct {
	Kind  OperandKind
	Start mc.Loc
	End   mc.Loc
	tok   string
	reg   regs.Reg
	rkind regs.Kind
	off   regs.Reg
	imm   mc.Expr
	tag   uint8
}

func NewToken(s string, loc mc.Loc) *Operand {
	return &Operand{Kind: K_Token, tok: s, Start: loc, End: loc}
}

func NewReg(r regs.Reg, kind regs.Kind, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_Register, reg: r, rkind: kind, Start: start, End: end}
}

func NewImm(x mc.Expr, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_Immediate, imm: x, Start: start, End: end}
}

func NewMEMrr(base regs.Reg, off regs.Reg, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_MemoryReg, reg: base, off: off, Start: start, End: end}
}

func NewMEMri(base regs.Reg, off mc.Expr, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_MemoryImm, reg: base, imm: off, Start: start, End: end}
}

func NewASITag(v uint8, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_ASITag, tag: v, Start: start, End: end}
}

func NewPrefetchTag(v uint8, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_PrefetchTag, tag: v, Start: start, End: end}
}

func NewTailReloc(x mc.Expr, start mc.Loc, end mc.Loc) *Operand {
	return &Operand{Kind: K_TailRelocSym, imm: x, Start: start, End: end}
}

func (self *Operand) must(kinds ...OperandKind) {
	for _, k := range kinds {
		if self.Kind == k {
			return
		}
	}
	panic(fmt.Sprintf("asm: operand is %s, not %s", self.Kind, kinds[0]))
}

func (self *Operand) IsToken(s string) bool {
	return self.Kind == K_Token && self.tok == s
}

func (self *Operand) Token() string {
	self.must(K_Token)
	return self.tok
}

func (self *Operand) Reg() regs.Reg {
	self.must(K_Register)
	return self.reg
}

func (self *Operand) RegKind() regs.Kind {
	self.must(K_Register)
	return self.rkind
}

func (self *Operand) Imm() mc.Expr {
	self.must(K_Immediate)
	return self.imm
}

func (self *Operand) MemBase() regs.Reg {
	self.must(K_MemoryReg, K_MemoryImm)
	return self.reg
}

func (self *Operand) MemOffsetReg() regs.Reg {
	self.must(K_MemoryReg)
	return self.off
}

func (self *Operand) MemOff() mc.Expr {
	self.must(K_MemoryImm)
	return self.imm
}

func (self *Operand) ASITag() uint8 {
	self.must(K_ASITag)
	return self.tag
}

func (self *Operand) PrefetchTag() uint8 {
	self.must(K_PrefetchTag)
	return self.tag
}

func (self *Operand) TailRelocSym() mc.Expr {
	self.must(K_TailRelocSym)
	return self.imm
}

// MorphToMEMri turns a register+register memory operand whose offset is %r0
// into the equivalent register+immediate form.
func MorphToMEMri(op *Operand) (*Operand, bool) {
	op.must(K_MemoryReg)
	if op.off != regs.R0 {
		return op, false
	} else {
		return NewMEMri(op.reg, mc.Const(0), op.Start, op.End), true
	}
}

// MorphToMEMrr turns a register+immediate memory operand with a zero offset
// into the register+register form.
func MorphToMEMrr(op *Operand) (*Operand, bool) {
	op.must(K_MemoryImm)
	if v, ok := op.imm.Evaluate(); !ok || v != 0 {
		return op, false
	} else {
		return NewMEMrr(op.reg, regs.R0, op.Start, op.End), true
	}
}

// morphReg replaces the register of a register operand with the result of fn.
func morphReg(op *Operand, fn func(regs.Reg) (regs.Reg, regs.Kind, bool)) (*Operand, bool) {
	if r, k, ok := fn(op.Reg()); !ok {
		return op, false
	} else {
		return NewReg(r, k, op.Start, op.End), true
	}
}

func (self *Operand) String() string {
	switch self.Kind {
	case K_Token:
		return self.tok
	case K_Register:
		return self.reg.String()
	case K_Immediate, K_TailRelocSym:
		return self.imm.String()
	case K_MemoryReg:
		return fmt.Sprintf("[%s+%s]", self.reg, self.off)
	case K_MemoryImm:
		return fmt.Sprintf("[%s+%s]", self.reg, self.imm)
	case K_ASITag, K_PrefetchTag:
		return fmt.Sprintf("%d", self.tag)
	default:
		return "<invalid>"
	}
}
