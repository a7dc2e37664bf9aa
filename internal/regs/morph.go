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
)

func mustClass(reg Reg, op string, cc ...Class) {
	for _, c := range cc {
		if reg.Class() == c {
			return
		}
	}
	panic(fmt.Sprintf("regs: %s: unexpected register %s of class %s", op, reg, reg.Class()))
}

// IntIndex returns the index of an integer register.
func IntIndex(reg Reg) int {
	mustClass(reg, "IntIndex", IntRegs)
	return reg.Index()
}

// FloatIndex returns the index of a single-precision float register.
func FloatIndex(reg Reg) int {
	mustClass(reg, "FloatIndex", FPRegs)
	return reg.Index()
}

// DoubleIndex returns the index of a double-precision float register.
func DoubleIndex(reg Reg) int {
	mustClass(reg, "DoubleIndex", DFPRegs)
	return reg.Index()
}

// CoprocIndex returns the index of a coprocessor register.
func CoprocIndex(reg Reg) int {
	mustClass(reg, "CoprocIndex", CoprocRegs)
	return reg.Index()
}

// MorphToIntPair widens an integer register into the pair it starts.
// Only even registers start a pair.
func MorphToIntPair(reg Reg) (Reg, Kind, bool) {
	mustClass(reg, "MorphToIntPair", IntRegs)
	if i := reg.Index(); i%2 != 0 || i > 31 {
		return reg, IntReg, false
	} else {
		return Pair(i / 2), IntPairReg, true
	}
}

// MorphToDouble widens an even float register into its double.
func MorphToDouble(reg Reg) (Reg, Kind, bool) {
	mustClass(reg, "MorphToDouble", FPRegs)
	if i := reg.Index(); i%2 != 0 || i > 31 {
		return reg, FloatReg, false
	} else {
		return Double(i / 2), DoubleReg, true
	}
}

// MorphToQuad widens a float or double register into its quad. Floats must be
// 4-aligned, doubles 2-aligned.
func MorphToQuad(reg Reg) (Reg, Kind, bool) {
	mustClass(reg, "MorphToQuad", FPRegs, DFPRegs)

	/* float registers */
	if reg.Class() == FPRegs {
		if i := reg.Index(); i%4 != 0 || i > 31 {
			return reg, FloatReg, false
		} else {
			return Quad(i / 4), QuadReg, true
		}
	}

	/* double registers */
	if i := reg.Index(); i%2 != 0 || i > 31 {
		return reg, DoubleReg, false
	} else {
		return Quad(i / 2), QuadReg, true
	}
}

// MorphToCoprocPair widens an even coprocessor register into its pair.
func MorphToCoprocPair(reg Reg) (Reg, Kind, bool) {
	mustClass(reg, "MorphToCoprocPair", CoprocRegs)
	if i := reg.Index(); i%2 != 0 || i > 31 {
		return reg, CoprocReg, false
	} else {
		return CoprocPairOf(i / 2), CoprocPairReg, true
	}
}
