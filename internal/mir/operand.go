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

package mir

import (
	"fmt"
	"strings"

	"github.com/cloudwego/tinygpu/internal/regs"
)

type OperandKind uint8

const (
	OpNone OperandKind = iota
	OpReg
	OpImm
	OpFrameIndex
	OpMBB
	OpGlobal
	OpBlockAddress
	OpSymbol
	OpCPI
	OpJTI
	OpRegMask
)

var operandKindNames = [...]string{
	OpNone:         "none",
	OpReg:          "reg",
	OpImm:          "imm",
	OpFrameIndex:   "fi",
	OpMBB:          "mbb",
	OpGlobal:       "global",
	OpBlockAddress: "blockaddress",
	OpSymbol:       "symbol",
	OpCPI:          "cpi",
	OpJTI:          "jti",
	OpRegMask:      "regmask",
}

func (self OperandKind) String() string {
	if int(self) < len(operandKindNames) {
		return operandKindNames[self]
	} else {
		return fmt.Sprintf("OperandKind(%d)", self)
	}
}

// Operand is a machine operand. Reg is meaningful for register operands,
// Imm holds the value of immediates and the offset of symbolic operands.
type Operand struct {
	Kind     OperandKind
	Reg      regs.Reg
	Imm      int64
	Index    int
	Sym      string
	Func     string
	Mask     []regs.Reg
	Def      bool
	Implicit bool
}

func Reg(r regs.Reg) Operand {
	return Operand{Kind: OpReg, Reg: r}
}

func Def(r regs.Reg) Operand {
	return Operand{Kind: OpReg, Reg: r, Def: true}
}

func ImplicitUse(r regs.Reg) Operand {
	return Operand{Kind: OpReg, Reg: r, Implicit: true}
}

func ImplicitDef(r regs.Reg) Operand {
	return Operand{Kind: OpReg, Reg: r, Def: true, Implicit: true}
}

func Imm(v int64) Operand {
	return Operand{Kind: OpImm, Imm: v}
}

func FrameIndex(i int) Operand {
	return Operand{Kind: OpFrameIndex, Index: i}
}

func MBB(name string) Operand {
	return Operand{Kind: OpMBB, Sym: name}
}

func Global(name string, off int64) Operand {
	return Operand{Kind: OpGlobal, Sym: name, Imm: off}
}

func BlockAddress(fn string, bb string) Operand {
	return Operand{Kind: OpBlockAddress, Func: fn, Sym: bb}
}

func Symbol(name string) Operand {
	return Operand{Kind: OpSymbol, Sym: name}
}

func CPI(i int) Operand {
	return Operand{Kind: OpCPI, Index: i}
}

func JTI(i int) Operand {
	return Operand{Kind: OpJTI, Index: i}
}

// RegMask lists the registers preserved across a call.
func RegMask(preserved []regs.Reg) Operand {
	return Operand{Kind: OpRegMask, Mask: preserved}
}

func (self Operand) IsReg() bool {
	return self.Kind == OpReg
}

// Preserves reports whether a register mask keeps r intact.
func (self Operand) Preserves(r regs.Reg) bool {
	for _, v := range self.Mask {
		if v == r {
			return true
		}
	}
	return false
}

func (self Operand) String() string {
	switch self.Kind {
	case OpReg:
		s := self.Reg.String()
		if self.Implicit {
			s = "implicit " + s
		}
		if self.Def {
			s += "<def>"
		}
		return s
	case OpImm:
		return fmt.Sprint(self.Imm)
	case OpFrameIndex:
		return fmt.Sprintf("%%stack.%d", self.Index)
	case OpMBB:
		return "%bb." + self.Sym
	case OpGlobal:
		if self.Imm != 0 {
			return fmt.Sprintf("@%s+%d", self.Sym, self.Imm)
		} else {
			return "@" + self.Sym
		}
	case OpBlockAddress:
		return fmt.Sprintf("blockaddress(@%s, %%%s)", self.Func, self.Sym)
	case OpSymbol:
		return "&" + self.Sym
	case OpCPI:
		return fmt.Sprintf("%%const.%d", self.Index)
	case OpJTI:
		return fmt.Sprintf("%%jump-table.%d", self.Index)
	case OpRegMask:
		names := make([]string, 0, len(self.Mask))
		for _, r := range self.Mask {
			names = append(names, r.String())
		}
		return "regmask(" + strings.Join(names, " ") + ")"
	default:
		return "<none>"
	}
}
