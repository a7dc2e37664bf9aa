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

package emit

import (
	"fmt"

	"github.com/chenzhuoyu/iasm/expr"
	"github.com/golang/glog"

	"github.com/cloudwego/tinygpu/internal/asm"
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// BlockLabel is the assembly label of a basic block.
func BlockLabel(fn string, bb string) string {
	return fmt.Sprintf(".LBB%s_%s", fn, bb)
}

// AsmPrinter lowers allocated machine functions into MC instructions and
// assembly text.
type AsmPrinter struct {
	Ctx *mc.Context
	fn  string
}

func NewAsmPrinter(ctx *mc.Context) *AsmPrinter {
	if ctx == nil {
		ctx = new(mc.Context)
	}
	return &AsmPrinter{Ctx: ctx}
}

/* one pseudo instruction into real ones */
type _Expander func(p *AsmPrinter, ins *mir.Instr) []*mc.Inst

var expanders map[mc.Opcode]_Expander

func init() {
	expanders = map[mc.Opcode]_Expander{
		mc.CONST:      (*AsmPrinter).expandConst,
		mc.COPY:       (*AsmPrinter).expandCopy,
		mc.LA:         (*AsmPrinter).expandLA,
		mc.CALLpseudo: (*AsmPrinter).expandCall,
		mc.RETpseudo:  (*AsmPrinter).expandRet,
	}
}

func isSImm13(v int64) bool {
	return v >= -4096 && v < 4096
}

func physical(op mir.Operand) regs.Reg {
	if !op.IsReg() {
		panic("emit: expected a register operand, got " + op.String())
	} else if op.Reg.IsVirtual() {
		panic("emit: virtual register " + op.Reg.String() + " after allocation")
	} else {
		return op.Reg
	}
}

func (self *AsmPrinter) expandConst(ins *mir.Instr) []*mc.Inst {
	rd := mc.RegOp(physical(ins.Operands[0]))
	val := ins.Operands[1].Imm

	/* small constants fit in an or */
	if isSImm13(val) {
		return []*mc.Inst{mc.NewInst(mc.ORri, rd, mc.RegOp(regs.R0), mc.ImmOp(val))}
	}

	/* movl, then movh for the upper half */
	lo := val & 0xffff
	hi := (val >> 16) & 0xffff
	ret := []*mc.Inst{mc.NewInst(mc.MOVL, rd, mc.ImmOp(lo))}
	if hi != 0 {
		ret = append(ret, mc.NewInst(mc.MOVH, rd, mc.ImmOp(hi)))
	}
	return ret
}

func (self *AsmPrinter) expandCopy(ins *mir.Instr) []*mc.Inst {
	rd := physical(ins.Operands[0])
	rs := physical(ins.Operands[1])

	/* special registers are read with rd */
	if rs.Class() == regs.SpecialRegs {
		return []*mc.Inst{mc.NewInst(mc.RDSR, mc.RegOp(rd), mc.RegOp(rs))}
	} else {
		return []*mc.Inst{mc.NewInst(mc.MOVrr, mc.RegOp(rd), mc.RegOp(rs))}
	}
}

func (self *AsmPrinter) expandLA(ins *mir.Instr) []*mc.Inst {
	rd := mc.RegOp(physical(ins.Operands[0]))
	sym, ok := self.LowerOperand(ins.Operands[1])
	if !ok || !sym.IsExpr() {
		panic("emit: LA without a symbol: " + ins.String())
	}

	/* sethi %hi(sym), rd; or rd, %lo(sym), rd */
	return []*mc.Inst{
		mc.NewInst(mc.SETHIi, rd, mc.ExprOp(self.Ctx.Variant(mc.VK_HI, sym.Expr()))),
		mc.NewInst(mc.ORri, rd, rd, mc.ExprOp(self.Ctx.Variant(mc.VK_LO, sym.Expr()))),
	}
}

func (self *AsmPrinter) expandCall(ins *mir.Instr) []*mc.Inst {
	sym, ok := self.LowerOperand(ins.Operands[0])
	if !ok || !sym.IsExpr() {
		panic("emit: call without a symbol: " + ins.String())
	}

	/* through the PLT in PIC mode */
	kind := mc.VK_WDISP30
	if self.Ctx.PIC {
		kind = mc.VK_WPLT30
	}
	return []*mc.Inst{mc.NewInst(mc.CALL, mc.ExprOp(mc.Wrap(kind, sym.Expr())))}
}

func (self *AsmPrinter) expandRet(_ *mir.Instr) []*mc.Inst {
	return []*mc.Inst{mc.NewInst(mc.RETL)}
}

func symbolRef(name string, off int64) mc.Operand {
	if off == 0 {
		return mc.ExprOp(mc.Sym(name))
	} else {
		return mc.ExprOp(mc.Binary(expr.ADD, mc.Sym(name), mc.Const(off)))
	}
}

// LowerOperand converts one machine operand. The result is false for the
// operands that have no spelling, implicit registers and register masks.
func (self *AsmPrinter) LowerOperand(op mir.Operand) (mc.Operand, bool) {
	switch op.Kind {
	case mir.OpReg:
		if op.Implicit {
			return mc.Operand{}, false
		} else {
			return mc.RegOp(physical(op)), true
		}
	case mir.OpImm:
		return mc.ImmOp(op.Imm), true
	case mir.OpMBB:
		return symbolRef(BlockLabel(self.fn, op.Sym), 0), true
	case mir.OpGlobal, mir.OpSymbol:
		return symbolRef(op.Sym, op.Imm), true
	case mir.OpBlockAddress:
		return symbolRef(BlockLabel(op.Func, op.Sym), op.Imm), true
	case mir.OpCPI:
		return symbolRef(fmt.Sprintf(".LCPI%s_%d", self.fn, op.Index), op.Imm), true
	case mir.OpJTI:
		return symbolRef(fmt.Sprintf(".LJTI%s_%d", self.fn, op.Index), 0), true
	case mir.OpRegMask:
		return mc.Operand{}, false
	default:
		utils.Fatal("emit: unknown operand type")
		return mc.Operand{}, false
	}
}

// Lower turns one machine instruction into MC instructions, expanding the
// codegen pseudos.
func (self *AsmPrinter) Lower(ins *mir.Instr) []*mc.Inst {
	if fn, ok := expanders[ins.Op]; ok {
		return fn(self, ins)
	}

	/* other pseudos must be gone by now */
	if ins.Op.Desc().Pseudo {
		panic("emit: pseudo instruction left after lowering: " + ins.String())
	}

	/* operands one by one */
	ops := make([]mc.Operand, 0, len(ins.Operands))
	for _, v := range ins.Operands {
		if op, ok := self.LowerOperand(v); ok {
			ops = append(ops, op)
		}
	}
	return []*mc.Inst{mc.NewInst(ins.Op, ops...)}
}

// EmitFunction prints mf as an assembler program: section and symbol
// directives, the function label, then every block.
func (self *AsmPrinter) EmitFunction(mf *mir.Function) *asm.Program {
	self.fn = mf.Name
	prog := &asm.Program{Name: mf.Name}

	/* header */
	prog.Items = append(prog.Items,
		&asm.Directive{Name: ".text"},
		&asm.Directive{Name: ".globl", Args: []string{mf.Name}},
		&asm.Directive{Name: ".align", Args: []string{"4"}},
		&asm.Label{Name: mf.Name},
	)

	/* the entry block is the function label */
	for i, bb := range mf.Blocks {
		if i != 0 {
			prog.Items = append(prog.Items, &asm.Label{Name: BlockLabel(mf.Name, bb.Name)})
		}
		for _, ins := range bb.Instrs {
			for _, v := range self.Lower(ins) {
				prog.Items = append(prog.Items, &asm.Instruction{Inst: v})
			}
		}
	}

	/* done */
	if glog.V(3) {
		glog.Infof("emit: %s:\n%s", mf.Name, prog)
	}
	return prog
}
