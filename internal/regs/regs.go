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

// Reg is an index into the physical register table. NoReg is the zero value.
type Reg uint16

const (
	NoReg Reg = 0
)

const (
	NumIntRegs     = 32
	NumIntPairs    = 16
	NumFloatRegs   = 32
	NumDoubleRegs  = 32
	NumQuadRegs    = 16
	NumCoprocRegs  = 32
	NumCoprocPairs = 16
	NumASRs        = 32
)

/* class bases, laid out back to back */
const (
	R0          Reg = 1
	IntPair0        = R0 + NumIntRegs
	F0              = IntPair0 + NumIntPairs
	D0              = F0 + NumFloatRegs
	Q0              = D0 + NumDoubleRegs
	C0              = Q0 + NumQuadRegs
	CoprocPair0     = C0 + NumCoprocRegs
	specialBase     = CoprocPair0 + NumCoprocPairs
)

const (
	ICC Reg = specialBase + iota
	FCC0
	FCC1
	FCC2
	FCC3
	Y
	PSR
	WIM
	TBR
	PC
	TICK
	ASI
	BLOCKIDX
	BLOCKDIM
	THREADIDX
	ASR0
	asrEnd = ASR0 + NumASRs
)

// NumRegs is one past the last valid register.
const NumRegs = int(asrEnd)

// VirtBase is the first virtual register. Virtual registers only exist
// between instruction selection and register allocation.
const VirtBase Reg = 1 << 15

/* ABI spellings of the integer registers */
const (
	Zero = R0 + 0
	RA   = R0 + 1
	SP   = R0 + 2
	GP   = R0 + 3
	TP   = R0 + 4
	T0   = R0 + 5
	T1   = R0 + 6
	T2   = R0 + 7
	S0   = R0 + 8
	FP   = S0
	S1   = R0 + 9
	A0   = R0 + 10
	A1   = R0 + 11
	A2   = R0 + 12
	A3   = R0 + 13
	A4   = R0 + 14
	A5   = R0 + 15
	A6   = R0 + 16
	A7   = R0 + 17
	S2   = R0 + 18
	S11  = R0 + 27
	T3   = R0 + 28
	T6   = R0 + 31
)

// Class is a register class.
type Class uint8

const (
	ClassNone Class = iota
	IntRegs
	IntPair
	FPRegs
	DFPRegs
	QFPRegs
	CoprocRegs
	CoprocPair
	SpecialRegs
)

var classNames = [...]string{
	ClassNone:   "none",
	IntRegs:     "IntRegs",
	IntPair:     "IntPair",
	FPRegs:      "FPRegs",
	DFPRegs:     "DFPRegs",
	QFPRegs:     "QFPRegs",
	CoprocRegs:  "CoprocRegs",
	CoprocPair:  "CoprocPair",
	SpecialRegs: "SpecialRegs",
}

func (self Class) String() string {
	if int(self) < len(classNames) {
		return classNames[self]
	} else {
		return fmt.Sprintf("Class(%d)", self)
	}
}

// Kind is the operand-level register kind the parser attaches to a register.
type Kind uint8

const (
	KindNone Kind = iota
	IntReg
	IntPairReg
	FloatReg
	DoubleReg
	QuadReg
	CoprocReg
	CoprocPairReg
	Special
)

var kindNames = [...]string{
	KindNone:      "none",
	IntReg:        "int",
	IntPairReg:    "intpair",
	FloatReg:      "float",
	DoubleReg:     "double",
	QuadReg:       "quad",
	CoprocReg:     "coproc",
	CoprocPairReg: "coprocpair",
	Special:       "special",
}

func (self Kind) String() string {
	if int(self) < len(kindNames) {
		return kindNames[self]
	} else {
		return fmt.Sprintf("Kind(%d)", self)
	}
}

func Int(i int) Reg          { return checked(R0, i, NumIntRegs) }
func Float(i int) Reg        { return checked(F0, i, NumFloatRegs) }
func Double(i int) Reg       { return checked(D0, i, NumDoubleRegs) }
func Quad(i int) Reg         { return checked(Q0, i, NumQuadRegs) }
func Coproc(i int) Reg       { return checked(C0, i, NumCoprocRegs) }
func Pair(i int) Reg         { return checked(IntPair0, i, NumIntPairs) }
func CoprocPairOf(i int) Reg { return checked(CoprocPair0, i, NumCoprocPairs) }
func ASR(i int) Reg          { return checked(ASR0, i, NumASRs) }

func Virt(i int) Reg {
	if i < 0 || i >= int(^Reg(0)-VirtBase) {
		panic(fmt.Sprintf("regs: virtual register index %d out of range", i))
	} else {
		return VirtBase + Reg(i)
	}
}

func (self Reg) IsVirtual() bool {
	return self >= VirtBase
}

func (self Reg) IsPhysical() bool {
	return self.IsValid()
}

func (self Reg) VirtIndex() int {
	if !self.IsVirtual() {
		panic(fmt.Sprintf("regs: %s is not a virtual register", self))
	} else {
		return int(self - VirtBase)
	}
}

func checked(base Reg, i int, n int) Reg {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("regs: register index %d out of range [0, %d)", i, n))
	} else {
		return base + Reg(i)
	}
}

// Class returns the class that owns the register.
func (self Reg) Class() Class {
	switch {
	case self >= R0 && self < IntPair0:
		return IntRegs
	case self >= IntPair0 && self < F0:
		return IntPair
	case self >= F0 && self < D0:
		return FPRegs
	case self >= D0 && self < Q0:
		return DFPRegs
	case self >= Q0 && self < C0:
		return QFPRegs
	case self >= C0 && self < CoprocPair0:
		return CoprocRegs
	case self >= CoprocPair0 && self < specialBase:
		return CoprocPair
	case self >= specialBase && self < asrEnd:
		return SpecialRegs
	default:
		return ClassNone
	}
}

var classBases = [...]Reg{
	IntRegs:     R0,
	IntPair:     IntPair0,
	FPRegs:      F0,
	DFPRegs:     D0,
	QFPRegs:     Q0,
	CoprocRegs:  C0,
	CoprocPair:  CoprocPair0,
	SpecialRegs: specialBase,
}

// Index is the position of the register inside its class.
func (self Reg) Index() int {
	if c := self.Class(); c == ClassNone {
		panic(fmt.Sprintf("regs: invalid register %d", self))
	} else {
		return int(self - classBases[c])
	}
}

// IsValid reports whether the register exists in the table.
func (self Reg) IsValid() bool {
	return self != NoReg && int(self) < NumRegs
}

// SubRegs returns the even and odd halves of a wide register, or NoReg for
// registers without sub-registers. D16..D31 have none.
func (self Reg) SubRegs() (Reg, Reg) {
	switch self.Class() {
	case IntPair:
		i := self.Index()
		return Int(i * 2), Int(i*2 + 1)
	case CoprocPair:
		i := self.Index()
		return Coproc(i * 2), Coproc(i*2 + 1)
	case DFPRegs:
		if i := self.Index(); i < NumDoubleRegs/2 {
			return Float(i * 2), Float(i*2 + 1)
		}
	case QFPRegs:
		i := self.Index()
		return Double(i * 2), Double(i*2 + 1)
	}
	return NoReg, NoReg
}

func (self Reg) String() string {
	if self.IsVirtual() {
		return fmt.Sprintf("%%v%d", self-VirtBase)
	} else if !self.IsValid() {
		return fmt.Sprintf("Reg(%d)", self)
	} else {
		return "%" + Name(self)
	}
}
