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
	"strings"
)

var (
	cI   = OperandClass{Kind: ClsIntRegs}
	cP   = OperandClass{Kind: ClsIntPair}
	cF   = OperandClass{Kind: ClsFPRegs}
	cD   = OperandClass{Kind: ClsDFPRegs}
	cQ   = OperandClass{Kind: ClsQFPRegs}
	cC   = OperandClass{Kind: ClsCoprocRegs}
	cCP  = OperandClass{Kind: ClsCoprocPair}
	cSR  = OperandClass{Kind: ClsSpecial}
	cS13 = OperandClass{Kind: ClsSImm13}
	cImm = OperandClass{Kind: ClsImm}
	cI16 = OperandClass{Kind: ClsImm16}
	cSh5 = OperandClass{Kind: ClsShiftImm5}
	cSh6 = OperandClass{Kind: ClsShiftImm6}
	cMrr = OperandClass{Kind: ClsMEMrr}
	cMri = OperandClass{Kind: ClsMEMri}
	cASI = OperandClass{Kind: ClsASITag}
	cPF  = OperandClass{Kind: ClsPrefetchTag}
	cMB  = OperandClass{Kind: ClsMembarTag}
	cCT  = OperandClass{Kind: ClsCallTarget}
	cBT  = OperandClass{Kind: ClsBrTarget}
)

var (
	tL  = Tok("[")
	tR  = Tok("]")
	tA  = Tok("a")
	tP  = Tok("+")
	tAS = Tok("%asi")
)

type _TableBuilder struct {
	tab []Desc
}

func (self *_TableBuilder) add(name string, mnem string, feat Feature, order []int, ops ...OperandClass) {
	self.tab = append(self.tab, Desc{
		Name:     name,
		Mnemonic: mnem,
		Operands: ops,
		Order:    order,
		Features: feat,
	})
}

func (self *_TableBuilder) pseudo(names ...string) {
	for _, name := range names {
		self.tab = append(self.tab, Desc{Name: name, Pseudo: true})
	}
}

type _MemOp struct {
	mnem string
	cls  OperandClass
	feat Feature
}

var (
	aluOps   = []string{"add", "sub", "and", "andn", "or", "orn", "xor", "xnor", "mul", "udiv", "sdiv", "slt", "sltu"}
	branches = []string{"ba", "bn", "bne", "be", "bg", "ble", "bge", "bl", "bgu", "bleu", "bcc", "bcs", "bpos", "bneg", "bvc", "bvs"}
)

var loadOps = []_MemOp{
	{"ldr", cI, 0},
	{"ld", cI, 0},
	{"ldub", cI, 0},
	{"ldsb", cI, 0},
	{"lduh", cI, 0},
	{"ldsh", cI, 0},
	{"ldd", cP, 0},
	{"ldf", cF, 0},
	{"lddf", cD, 0},
	{"ldqf", cQ, 0},
	{"ldc", cC, FeatureCoproc},
	{"lddc", cCP, FeatureCoproc},
	{"ldx", cI, Feature64Bit},
}

var storeOps = []_MemOp{
	{"str", cI, 0},
	{"st", cI, 0},
	{"stb", cI, 0},
	{"sth", cI, 0},
	{"std", cP, 0},
	{"stf", cF, 0},
	{"stdf", cD, 0},
	{"stqf", cQ, 0},
	{"stc", cC, FeatureCoproc},
	{"stdc", cCP, FeatureCoproc},
	{"stx", cI, Feature64Bit},
}

func buildTable() []Desc {
	b := &_TableBuilder{tab: []Desc{{Name: "INVALID"}}}

	/* arithmetic and logic: op rs1, rs2|simm13, rd */
	for _, m := range aluOps {
		b.add(strings.ToUpper(m)+"rr", m, 0, []int{2, 0, 1}, cI, cI, cI)
		b.add(strings.ToUpper(m)+"ri", m, 0, []int{2, 0, 1}, cI, cS13, cI)
	}

	/* shifts */
	for _, m := range []string{"sll", "srl", "sra"} {
		b.add(strings.ToUpper(m)+"rr", m, 0, []int{2, 0, 1}, cI, cI, cI)
		b.add(strings.ToUpper(m)+"ri", m, 0, []int{2, 0, 1}, cI, cSh5, cI)
	}
	for _, m := range []string{"sllx", "srlx", "srax"} {
		b.add(strings.ToUpper(m)+"rr", m, Feature64Bit, []int{2, 0, 1}, cI, cI, cI)
		b.add(strings.ToUpper(m)+"ri", m, Feature64Bit, []int{2, 0, 1}, cI, cSh6, cI)
	}

	/* moves and constants */
	b.add("MAD", "mad", 0, []int{3, 0, 1, 2}, cI, cI, cI, cI)
	b.add("SETHIi", "sethi", 0, []int{1, 0}, cImm, cI)
	b.add("NOP", "nop", 0, nil)
	b.add("MOVrr", "mov", 0, []int{1, 0}, cI, cI)
	b.add("MOVri", "mov", 0, []int{1, 0}, cS13, cI)
	b.add("MOVL", "movl", 0, []int{1, 0}, cI16, cI)
	b.add("MOVH", "movh", 0, []int{1, 0}, cI16, cI)
	b.add("SEL", "sel", 0, []int{3, 0, 1, 2}, cI, cI, cI, cI)

	/* loads: op [addr], rd */
	for _, v := range loadOps {
		name := strings.ToUpper(v.mnem)
		b.add(name+"rr", v.mnem, v.feat, []int{3, 1}, tL, cMrr, tR, v.cls)
		b.add(name+"ri", v.mnem, v.feat, []int{3, 1}, tL, cMri, tR, v.cls)
	}

	/* stores: op rd, [addr] */
	for _, v := range storeOps {
		name := strings.ToUpper(v.mnem)
		b.add(name+"rr", v.mnem, v.feat, []int{2, 0}, v.cls, tL, cMrr, tR)
		b.add(name+"ri", v.mnem, v.feat, []int{2, 0}, v.cls, tL, cMri, tR)
	}

	/* alternate address space loads */
	for _, v := range []_MemOp{{"lda", cI, 0}, {"ldda", cP, 0}} {
		name := strings.ToUpper(v.mnem)
		b.add(name+"rr", v.mnem, v.feat, []int{4, 1, 3}, tL, cMrr, tR, cASI, v.cls)
		b.add(name+"ri", v.mnem, v.feat|Feature64Bit, []int{4, 1}, tL, cMri, tR, tAS, v.cls)
	}

	/* compare and swap: op [rs1], rs2, rd */
	for _, m := range []string{"cas", "casl", "casx", "casxl"} {
		b.add(strings.ToUpper(m), m, Feature64Bit, []int{4, 1, 3}, tL, cI, tR, cI, cI)
	}
	for _, m := range []string{"casa", "casxa"} {
		b.add(strings.ToUpper(m)+"asi", m, Feature64Bit, []int{5, 1, 4, 3}, tL, cI, tR, cASI, cI, cI)
		b.add(strings.ToUpper(m)+"reg", m, Feature64Bit, []int{5, 1, 4}, tL, cI, tR, tAS, cI, cI)
	}

	/* prefetch and barriers */
	b.add("PREFETCHrr", "prefetch", 0, []int{1, 3}, tL, cMrr, tR, cPF)
	b.add("PREFETCHri", "prefetch", 0, []int{1, 3}, tL, cMri, tR, cPF)
	b.add("MEMBAR", "membar", 0, []int{0}, cMB)

	/* calls */
	b.add("CALL", "call", 0, []int{0}, cCT)
	b.add("CALLtls", "call", 0, []int{0, 1}, cCT, TailReloc(RelocCallTLS))

	/* loads and adds carrying a trailing relocation */
	for _, m := range []string{"ldr", "ld"} {
		name := strings.ToUpper(m)
		b.add(name+"rrGOT", m, 0, []int{3, 1, 4}, tL, cMrr, tR, cI, TailReloc(RelocLoadGOT))
		b.add(name+"riGOT", m, 0, []int{3, 1, 4}, tL, cMri, tR, cI, TailReloc(RelocLoadGOT))
		b.add(name+"rrTLS", m, 0, []int{3, 1, 4}, tL, cMrr, tR, cI, TailReloc(RelocLoadTLS))
		b.add(name+"riTLS", m, 0, []int{3, 1, 4}, tL, cMri, tR, cI, TailReloc(RelocLoadTLS))
	}
	b.add("LDXrrGOT", "ldx", Feature64Bit, []int{3, 1, 4}, tL, cMrr, tR, cI, TailReloc(RelocLoadGOT))
	b.add("LDXriGOT", "ldx", Feature64Bit, []int{3, 1, 4}, tL, cMri, tR, cI, TailReloc(RelocLoadGOT))
	b.add("LDXrrTLS", "ldx", Feature64Bit, []int{3, 1, 4}, tL, cMrr, tR, cI, TailReloc(RelocLoadTLS))
	b.add("LDXriTLS", "ldx", Feature64Bit, []int{3, 1, 4}, tL, cMri, tR, cI, TailReloc(RelocLoadTLS))
	b.add("ADDrrTLS", "add", 0, []int{2, 0, 1, 3}, cI, cI, cI, TailReloc(RelocAddTLS))

	/* branches, with and without the annul bit */
	for _, m := range branches {
		b.add(strings.ToUpper(m), m, 0, []int{0}, cBT)
		b.add(strings.ToUpper(m)+"a", m, 0, []int{1}, tA, cBT)
	}

	/* returns and jumps */
	b.add("RET", "ret", 0, nil)
	b.add("RETL", "retl", 0, nil)
	b.add("JMPr", "jmp", 0, []int{0}, cI)
	b.add("JMPri", "jmp", 0, []int{0, 2}, cI, tP, cS13)

	/* special registers */
	b.add("RDSR", "rd", 0, []int{1, 0}, cSR, cI)
	b.add("WRrr", "wr", 0, []int{2, 0, 1}, cI, cI, cSR)
	b.add("WRri", "wr", 0, []int{2, 0, 1}, cI, cS13, cSR)

	/* software traps */
	b.add("TAr", "ta", 0, []int{0}, cI)
	b.add("TAri", "ta", 0, []int{0, 2}, cI, tP, cS13)
	b.add("TAi", "ta", 0, []int{0}, cS13)

	/* constants, expanded by the assembler */
	b.add("SET", "set", 0, []int{1, 0}, cImm, cI)
	b.add("SETX", "setx", Feature64Bit, []int{2, 0, 1}, cImm, cI, cI)

	/* floating point */
	b.add("FADDS", "fadds", 0, []int{2, 0, 1}, cF, cF, cF)
	b.add("FADDD", "faddd", 0, []int{2, 0, 1}, cD, cD, cD)
	b.add("FADDQ", "faddq", 0, []int{2, 0, 1}, cQ, cQ, cQ)
	b.add("FMOVS", "fmovs", 0, []int{1, 0}, cF, cF)

	/* coprocessor state */
	b.add("LDCSRrr", "ldcsr", FeatureCoproc, []int{1}, tL, cMrr, tR)
	b.add("LDCSRri", "ldcsr", FeatureCoproc, []int{1}, tL, cMri, tR)

	/* codegen pseudos */
	b.pseudo("CONST", "COPY", "LA", "CALLpseudo", "RETpseudo", "ADJCALLSTACKDOWN", "ADJCALLSTACKUP")
	return b.tab
}

/* forms referenced by the code generator and the assembler */
var (
	ADDrr            = mustLookup("ADDrr")
	ADDri            = mustLookup("ADDri")
	SUBrr            = mustLookup("SUBrr")
	SUBri            = mustLookup("SUBri")
	ANDrr            = mustLookup("ANDrr")
	ANDri            = mustLookup("ANDri")
	ORrr             = mustLookup("ORrr")
	ORri             = mustLookup("ORri")
	XORrr            = mustLookup("XORrr")
	XORri            = mustLookup("XORri")
	MULrr            = mustLookup("MULrr")
	MULri            = mustLookup("MULri")
	UDIVrr           = mustLookup("UDIVrr")
	UDIVri           = mustLookup("UDIVri")
	SDIVrr           = mustLookup("SDIVrr")
	SDIVri           = mustLookup("SDIVri")
	SLTrr            = mustLookup("SLTrr")
	SLTri            = mustLookup("SLTri")
	SLTUrr           = mustLookup("SLTUrr")
	SLTUri           = mustLookup("SLTUri")
	SLLrr            = mustLookup("SLLrr")
	SLLri            = mustLookup("SLLri")
	SRLrr            = mustLookup("SRLrr")
	SRLri            = mustLookup("SRLri")
	SRArr            = mustLookup("SRArr")
	SRAri            = mustLookup("SRAri")
	SLLXri           = mustLookup("SLLXri")
	MAD              = mustLookup("MAD")
	SETHIi           = mustLookup("SETHIi")
	MOVrr            = mustLookup("MOVrr")
	MOVL             = mustLookup("MOVL")
	MOVH             = mustLookup("MOVH")
	SEL              = mustLookup("SEL")
	LDRrr            = mustLookup("LDRrr")
	LDRri            = mustLookup("LDRri")
	STRrr            = mustLookup("STRrr")
	STRri            = mustLookup("STRri")
	CALL             = mustLookup("CALL")
	RETL             = mustLookup("RETL")
	RDSR             = mustLookup("RDSR")
	SET              = mustLookup("SET")
	SETX             = mustLookup("SETX")
	CONST            = mustLookup("CONST")
	COPY             = mustLookup("COPY")
	LA               = mustLookup("LA")
	CALLpseudo       = mustLookup("CALLpseudo")
	RETpseudo        = mustLookup("RETpseudo")
	ADJCALLSTACKDOWN = mustLookup("ADJCALLSTACKDOWN")
	ADJCALLSTACKUP   = mustLookup("ADJCALLSTACKUP")
)
