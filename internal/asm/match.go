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
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

type MatchCode uint8

const (
	Match_Success MatchCode = iota
	Match_MissingFeature
	Match_MnemonicFail
	Match_InvalidOperand
)

var matchCodeNames = [...]string{
	Match_Success:        "Success",
	Match_MissingFeature: "MissingFeature",
	Match_MnemonicFail:   "MnemonicFail",
	Match_InvalidOperand: "InvalidOperand",
}

func (self MatchCode) String() string {
	return matchCodeNames[self]
}

// MatchResult is the outcome of matching an operand list. Index is the
// offending position in the operand list (the mnemonic is at 0) when Code is
// Match_InvalidOperand. An index past the end means too few operands.
type MatchResult struct {
	Code  MatchCode
	Index int
}

// MnemonicIsValid checks that some form of name exists and that at least one
// of them is available under features.
func MnemonicIsValid(name string, features mc.Feature) MatchCode {
	forms := mc.FormsOf(name)
	if len(forms) == 0 {
		return Match_MnemonicFail
	}

	/* any enabled form will do */
	for _, op := range forms {
		if features.Has(op.Desc().Features) {
			return Match_Success
		}
	}
	return Match_MissingFeature
}

// MnemonicSpellCheck suggests available mnemonics close to name.
func MnemonicSpellCheck(name string, features mc.Feature) string {
	var cands []string
	src := []rune(name)

	/* substitutions cost two, so only insertions and deletions count */
	for _, m := range mc.Mnemonics(features) {
		if levenshtein.DistanceForStrings(src, []rune(m), levenshtein.DefaultOptions) <= 2 {
			cands = append(cands, m)
		}
	}

	/* format the suggestion */
	if len(cands) == 0 {
		return ""
	} else {
		return ", did you mean: " + strings.Join(cands, ", ") + "?"
	}
}

// MatchInstruction selects the first enabled form of the mnemonic in ops[0]
// whose operand classes accept ops, and converts the operands into an MC
// instruction.
func MatchInstruction(ops []*Operand, features mc.Feature) (*mc.Inst, MatchResult) {
	args := ops[1:]
	forms := mc.FormsOf(ops[0].Token())
	if len(forms) == 0 {
		return nil, MatchResult{Code: Match_MnemonicFail}
	}

	/* try every form in table order */
	idx := -1
	missing := false
	for _, op := range forms {
		desc := op.Desc()
		matched, bad := matchForm(desc, args)

		/* remember the furthest failing operand */
		if bad >= 0 {
			if bad+1 > idx {
				idx = bad + 1
			}
			continue
		}

		/* operands matched, check the features */
		if !features.Has(desc.Features) {
			missing = true
			continue
		}

		/* build the instruction */
		return buildInst(op, desc, matched), MatchResult{Code: Match_Success}
	}

	/* a form with the right operands but missing a feature takes priority */
	if missing {
		return nil, MatchResult{Code: Match_MissingFeature}
	} else {
		return nil, MatchResult{Code: Match_InvalidOperand, Index: idx}
	}
}

// matchForm validates args against the form and returns the (possibly
// morphed) operands, or the index of the first operand that does not fit.
func matchForm(desc *mc.Desc, args []*Operand) ([]*Operand, int) {
	ret := make([]*Operand, len(desc.Operands))
	for i, cls := range desc.Operands {
		if i >= len(args) {
			return nil, len(args)
		} else if op, ok := ValidateOperandClass(args[i], cls); !ok {
			return nil, i
		} else {
			ret[i] = op
		}
	}

	/* extra operands */
	if len(args) > len(desc.Operands) {
		return nil, len(desc.Operands)
	} else {
		return ret, -1
	}
}

// ValidateOperandClass checks op against cls. Single-width registers are
// widened into pairs when the class requires it.
func ValidateOperandClass(op *Operand, cls mc.OperandClass) (*Operand, bool) {
	switch cls.Kind {
	case mc.ClsToken:
		return op, op.IsToken(cls.Tok)
	case mc.ClsIntRegs:
		return op, isRegKind(op, regs.IntReg)
	case mc.ClsFPRegs:
		return op, isRegKind(op, regs.FloatReg)
	case mc.ClsCoprocRegs:
		return op, isRegKind(op, regs.CoprocReg)
	case mc.ClsSpecial:
		return op, isRegKind(op, regs.Special)
	case mc.ClsIntPair:
		return widen(op, regs.IntPairReg, regs.MorphToIntPair, regs.IntReg)
	case mc.ClsDFPRegs:
		return widen(op, regs.DoubleReg, regs.MorphToDouble, regs.FloatReg)
	case mc.ClsQFPRegs:
		return widen(op, regs.QuadReg, regs.MorphToQuad, regs.FloatReg, regs.DoubleReg)
	case mc.ClsCoprocPair:
		return widen(op, regs.CoprocPairReg, regs.MorphToCoprocPair, regs.CoprocReg)
	case mc.ClsImm, mc.ClsCallTarget, mc.ClsBrTarget:
		return op, op.Kind == K_Immediate
	case mc.ClsSImm13:
		return op, isImmInRange(op, -4096, 4095)
	case mc.ClsImm16:
		return op, isImmInRange(op, 0, 0xffff)
	case mc.ClsShiftImm5:
		return op, isConstInRange(op, 0, 31)
	case mc.ClsShiftImm6:
		return op, isConstInRange(op, 0, 63)
	case mc.ClsMembarTag:
		return op, isConstInRange(op, 0, 127)
	case mc.ClsMEMrr:
		return op, op.Kind == K_MemoryReg
	case mc.ClsMEMri:
		return op, op.Kind == K_MemoryImm
	case mc.ClsASITag:
		return op, op.Kind == K_ASITag
	case mc.ClsPrefetchTag:
		return op, op.Kind == K_PrefetchTag
	case mc.ClsTailReloc:
		return op, isTailReloc(op, cls.Reloc)
	default:
		return op, false
	}
}

func isRegKind(op *Operand, kind regs.Kind) bool {
	return op.Kind == K_Register && op.RegKind() == kind
}

func widen(op *Operand, kind regs.Kind, fn func(regs.Reg) (regs.Reg, regs.Kind, bool), from ...regs.Kind) (*Operand, bool) {
	if op.Kind != K_Register {
		return op, false
	} else if op.RegKind() == kind {
		return op, true
	}

	/* only the listed kinds can be widened */
	for _, k := range from {
		if op.RegKind() == k {
			return morphReg(op, fn)
		}
	}
	return op, false
}

// isImmInRange accepts relocatable expressions and constants within range.
func isImmInRange(op *Operand, lo int64, hi int64) bool {
	if op.Kind != K_Immediate {
		return false
	} else if v, ok := op.Imm().Evaluate(); !ok {
		return true
	} else {
		return v >= lo && v <= hi
	}
}

func isConstInRange(op *Operand, lo int64, hi int64) bool {
	if op.Kind != K_Immediate {
		return false
	} else if v, ok := op.Imm().Evaluate(); !ok {
		return false
	} else {
		return v >= lo && v <= hi
	}
}

func isTailReloc(op *Operand, kind mc.TailRelocKind) bool {
	if op.Kind != K_TailRelocSym {
		return false
	} else if v, ok := op.TailRelocSym().Variant(); !ok {
		return false
	} else {
		return kind.Accepts(v.Kind)
	}
}

func buildInst(opc mc.Opcode, desc *mc.Desc, args []*Operand) *mc.Inst {
	ret := make([]mc.Operand, 0, desc.NumOperands())
	for _, t := range desc.Order {
		ret = appendOperands(ret, args[t])
	}
	return mc.NewInst(opc, ret...)
}

func appendOperands(buf []mc.Operand, op *Operand) []mc.Operand {
	switch op.Kind {
	case K_Register:
		return append(buf, mc.RegOp(op.Reg()))
	case K_Immediate:
		return append(buf, valueOp(op.Imm()))
	case K_MemoryReg:
		return append(buf, mc.RegOp(op.MemBase()), mc.RegOp(op.MemOffsetReg()))
	case K_MemoryImm:
		return append(buf, mc.RegOp(op.MemBase()), valueOp(op.MemOff()))
	case K_ASITag:
		return append(buf, mc.ImmOp(int64(op.ASITag())))
	case K_PrefetchTag:
		return append(buf, mc.ImmOp(int64(op.PrefetchTag())))
	case K_TailRelocSym:
		return append(buf, mc.ExprOp(op.TailRelocSym()))
	default:
		panic("asm: operand " + op.Kind.String() + " has no MC form")
	}
}

// valueOp turns constants into immediates and keeps everything else as an
// expression.
func valueOp(x mc.Expr) mc.Operand {
	if v, ok := x.Evaluate(); ok {
		return mc.ImmOp(v)
	} else {
		return mc.ExprOp(x)
	}
}
