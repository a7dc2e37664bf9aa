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
	"github.com/pkg/errors"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

// Expander rewrites one matched pseudo instruction into real instructions.
// It must not keep any state between calls.
type Expander func(env ExpandEnv, inst *mc.Inst) ([]*mc.Inst, error)

// ExpandEnv is what an expansion may depend on besides the instruction.
type ExpandEnv struct {
	Ctx      *mc.Context
	Features mc.Feature
}

func (self ExpandEnv) is64Bit() bool {
	return self.Features.Has(mc.Feature64Bit)
}

// Expanders holds the assembler pseudo instructions.
var Expanders = map[mc.Opcode]Expander{
	mc.SET:  ExpandSET,
	mc.SETX: ExpandSETX,
}

// Expand expands inst if it is a pseudo, or returns it unchanged.
func Expand(env ExpandEnv, inst *mc.Inst) ([]*mc.Inst, error) {
	if fn, ok := Expanders[inst.Op]; !ok {
		return []*mc.Inst{inst}, nil
	} else {
		return fn(env, inst)
	}
}

func isInt13(v int64) bool {
	return v >= -4096 && v < 4096
}

func isUInt32(v int64) bool {
	return v >= 0 && v <= 0xffffffff
}

// bareValue drops the default relocation the parser attaches to symbolic
// operands, so the expansion wraps the bare value exactly once.
func bareValue(op mc.Operand) mc.Expr {
	x := op.Expr()
	if v, ok := x.Variant(); !ok {
		return x
	} else if v.Kind == mc.VK_13 || v.Kind == mc.VK_GOT13 || v.Kind == mc.VK_WPLT30 {
		return v.Sub
	} else {
		return x
	}
}

func located(loc mc.Loc, insts ...*mc.Inst) []*mc.Inst {
	for _, v := range insts {
		v.At(loc)
	}
	return insts
}

// ExpandSET loads a 32-bit value into a register with at most a sethi and
// an or.
func ExpandSET(env ExpandEnv, inst *mc.Inst) ([]*mc.Inst, error) {
	var val mc.Expr
	var imm int32

	/* the value is either a constant or a relocatable expression */
	rd := inst.Operands[0]
	src := inst.Operands[1]
	isImm := src.IsImm()

	/* constants must fit in 32 bits, signed or not */
	if isImm {
		if v := src.Imm(); v < -2147483648 || v > 4294967295 {
			return nil, errors.New(errSetRange)
		} else {
			imm = int32(v)
			val = mc.Const(int64(imm))
		}
	} else {
		val = bareValue(src)
	}

	/* on 64-bit an or with a negative operand would sign extend */
	lo := int32(-4096)
	if env.is64Bit() {
		lo = 0
	}

	/* sethi unless the value fits in the or */
	var ret []*mc.Inst
	prev := mc.RegOp(regs.R0)
	imm13 := isImm && imm >= lo && imm < 4096
	if !imm13 {
		ret = append(ret, mc.NewInst(mc.SETHIi, rd, mc.ExprOp(env.Ctx.Variant(mc.VK_HI, val))))
		prev = rd
	}

	/* the low bits need an or unless sethi cleared only zeros */
	if !isImm || imm13 || imm&0x3ff != 0 {
		if imm13 {
			ret = append(ret, mc.NewInst(mc.ORri, rd, prev, mc.ImmOp(int64(imm))))
		} else {
			ret = append(ret, mc.NewInst(mc.ORri, rd, prev, mc.ExprOp(env.Ctx.Variant(mc.VK_LO, val))))
		}
	}
	return located(inst.Loc, ret...), nil
}

// ExpandSETX loads a 64-bit value, using tmp for the upper half when the
// value does not fit in 32 bits.
func ExpandSETX(env ExpandEnv, inst *mc.Inst) ([]*mc.Inst, error) {
	var val mc.Expr
	rd, src, tmp := inst.Operands[0], inst.Operands[1], inst.Operands[2]

	/* very small constants fit in a single or */
	if src.IsImm() {
		if v := src.Imm(); isInt13(v) {
			return located(inst.Loc, mc.NewInst(mc.ORri, rd, mc.RegOp(regs.R0), mc.ImmOp(v))), nil
		} else {
			val = mc.Const(v)
		}
	} else {
		val = bareValue(src)
	}

	/* the lower half */
	ret := []*mc.Inst{
		mc.NewInst(mc.SETHIi, rd, mc.ExprOp(env.Ctx.Variant(mc.VK_HI, val))),
		mc.NewInst(mc.ORri, rd, rd, mc.ExprOp(env.Ctx.Variant(mc.VK_LO, val))),
	}

	/* done if the upper half is known to be zero */
	if src.IsImm() && isUInt32(src.Imm()) {
		return located(inst.Loc, ret...), nil
	}

	/* build the upper half in tmp, then shift and merge */
	ret = append(ret,
		mc.NewInst(mc.SETHIi, tmp, mc.ExprOp(env.Ctx.Variant(mc.VK_HH, val))),
		mc.NewInst(mc.ORri, tmp, tmp, mc.ExprOp(env.Ctx.Variant(mc.VK_HM, val))),
		mc.NewInst(mc.SLLXri, tmp, tmp, mc.ImmOp(32)),
		mc.NewInst(mc.ORrr, rd, tmp, rd),
	)
	return located(inst.Loc, ret...), nil
}
