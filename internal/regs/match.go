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

package regs

import (
	"fmt"
	"strconv"
	"strings"
)

type _Entry struct {
	reg  Reg
	kind Kind
}

var (
	names   [NumRegs]string
	aliases = map[string]_Entry{}
)

var abiNames = [NumIntRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var specialNames = map[Reg]string{
	ICC:       "icc",
	FCC0:      "fcc0",
	FCC1:      "fcc1",
	FCC2:      "fcc2",
	FCC3:      "fcc3",
	Y:         "y",
	PSR:       "psr",
	WIM:       "wim",
	TBR:       "tbr",
	PC:        "pc",
	TICK:      "tick",
	ASI:       "asi",
	BLOCKIDX:  "blockidx",
	BLOCKDIM:  "blockdim",
	THREADIDX: "threadidx",
}

/* JPS1 ancillary state register aliases */
var asrAliases = map[string]int{
	"pcr":           16,
	"pic":           17,
	"dcr":           18,
	"gsr":           19,
	"set_softint":   20,
	"clear_softint": 21,
	"softint":       22,
	"tick_cmpr":     23,
	"stick":         24,
	"sys_tick":      24,
	"stick_cmpr":    25,
	"sys_tick_cmpr": 25,
}

func init() {
	for i := 0; i < NumIntRegs; i++ {
		names[Int(i)] = fmt.Sprintf("r%d", i)
		addAlias(names[Int(i)], Int(i), IntReg)
		addAlias(abiNames[i], Int(i), IntReg)
	}

	/* frame pointer */
	addAlias("fp", FP, IntReg)

	/* pairs spell as their even half */
	for i := 0; i < NumIntPairs; i++ {
		names[Pair(i)] = names[Int(i*2)]
		addAlias(fmt.Sprintf("r%d_r%d", i*2, i*2+1), Pair(i), IntPairReg)
	}

	for i := 0; i < NumFloatRegs; i++ {
		names[Float(i)] = fmt.Sprintf("f%d", i)
		addAlias(names[Float(i)], Float(i), FloatReg)
	}

	/* D16..D31 also answer to the wide float spelling %f32..%f62 */
	for i := 0; i < NumDoubleRegs; i++ {
		names[Double(i)] = fmt.Sprintf("d%d", i)
		addAlias(names[Double(i)], Double(i), DoubleReg)
		if i >= NumDoubleRegs/2 {
			addAlias(fmt.Sprintf("f%d", i*2), Double(i), DoubleReg)
		}
	}

	/* quads only spell as their first float, %f0, %f4 .. %f60 */
	for i := 0; i < NumQuadRegs; i++ {
		names[Quad(i)] = fmt.Sprintf("f%d", i*4)
	}

	for i := 0; i < NumCoprocRegs; i++ {
		names[Coproc(i)] = fmt.Sprintf("c%d", i)
		addAlias(names[Coproc(i)], Coproc(i), CoprocReg)
	}

	for i := 0; i < NumCoprocPairs; i++ {
		names[CoprocPairOf(i)] = names[Coproc(i*2)]
		addAlias(fmt.Sprintf("c%d_c%d", i*2, i*2+1), CoprocPairOf(i), CoprocPairReg)
	}

	for r, n := range specialNames {
		names[r] = n
		addAlias(n, r, Special)
	}

	for i := 0; i < NumASRs; i++ {
		names[ASR(i)] = fmt.Sprintf("asr%d", i)
		addAlias(names[ASR(i)], ASR(i), Special)
	}

	for n, i := range asrAliases {
		addAlias(n, ASR(i), Special)
	}

	/* xcc is the 64-bit view of the integer condition codes */
	addAlias("xcc", ICC, Special)
}

func addAlias(name string, reg Reg, kind Kind) {
	if _, ok := aliases[name]; ok {
		panic("regs: duplicated register name: " + name)
	} else {
		aliases[name] = _Entry{reg: reg, kind: kind}
	}
}

// Name returns the canonical spelling of a register, without the leading '%'.
func Name(reg Reg) string {
	if !reg.IsValid() {
		panic(fmt.Sprintf("regs: invalid register %d", reg))
	} else {
		return names[reg]
	}
}

// Match looks up a register by any of its spellings. The returned register is
// always canonical: pair spellings resolve to their even half and the
// overlapping doubles D0..D15 resolve to their even float register.
func Match(name string) (Reg, Kind, bool) {
	name = strings.ToLower(name)
	ent, ok := aliases[name]

	/* %rN is accepted for any valid integer register number */
	if !ok {
		if n, ok := matchNumbered(name, "r"); ok && n < NumIntRegs {
			return Int(n), IntReg, true
		} else {
			return NoReg, KindNone, false
		}
	}

	/* narrow down pairs and the low doubles */
	switch ent.kind {
	case IntPairReg:
		return Canonical(ent.reg), IntReg, true
	case CoprocPairReg:
		return Canonical(ent.reg), CoprocReg, true
	case DoubleReg:
		if c := Canonical(ent.reg); c != ent.reg {
			return c, FloatReg, true
		} else {
			return c, DoubleReg, true
		}
	default:
		return ent.reg, ent.kind, true
	}
}

func matchNumbered(name string, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	} else if n, err := strconv.Atoi(name[len(prefix):]); err != nil || n < 0 {
		return 0, false
	} else {
		return n, true
	}
}

// Canonical maps a register to the single identifier the parser produces for
// it. Canonical(Canonical(r)) == Canonical(r) for every valid register.
func Canonical(reg Reg) Reg {
	switch reg.Class() {
	case IntPair, CoprocPair:
		lo, _ := reg.SubRegs()
		return lo
	case DFPRegs:
		if lo, _ := reg.SubRegs(); lo != NoReg {
			return lo
		} else {
			return reg
		}
	default:
		return reg
	}
}

// KindOf returns the operand kind a canonical register carries.
func KindOf(reg Reg) Kind {
	switch reg.Class() {
	case IntRegs:
		return IntReg
	case IntPair:
		return IntPairReg
	case FPRegs:
		return FloatReg
	case DFPRegs:
		return DoubleReg
	case QFPRegs:
		return QuadReg
	case CoprocRegs:
		return CoprocReg
	case CoprocPair:
		return CoprocPairReg
	case SpecialRegs:
		return Special
	default:
		return KindNone
	}
}

// Aliases returns every spelling known for registers, mapped to the register
// it names before canonicalization.
func Aliases() map[string]Reg {
	ret := make(map[string]Reg, len(aliases))
	for k, v := range aliases {
		ret[k] = v.reg
	}
	return ret
}
