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

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Feature is a set of subtarget features an instruction form requires.
type Feature uint8

const (
	Feature64Bit Feature = 1 << iota
	FeatureCoproc
)

// FeatureNames maps the feature-string spelling of every feature.
var FeatureNames = map[string]Feature{
	"64bit":  Feature64Bit,
	"coproc": FeatureCoproc,
}

func (self Feature) Has(f Feature) bool {
	return self&f == f
}

func (self Feature) String() string {
	return strings.Join(self.Names(), ",")
}

// Names lists the features in the set, sorted.
func (self Feature) Names() []string {
	ret := make([]string, 0, len(FeatureNames))
	for name, f := range FeatureNames {
		if self.Has(f) {
			ret = append(ret, name)
		}
	}
	slices.Sort(ret)
	return ret
}

// ClassKind is the kind of an operand class in the matching table.
type ClassKind uint8

const (
	ClsToken ClassKind = iota + 1
	ClsIntRegs
	ClsIntPair
	ClsFPRegs
	ClsDFPRegs
	ClsQFPRegs
	ClsCoprocRegs
	ClsCoprocPair
	ClsSpecial
	ClsSImm13
	ClsImm
	ClsImm16
	ClsShiftImm5
	ClsShiftImm6
	ClsMEMrr
	ClsMEMri
	ClsASITag
	ClsPrefetchTag
	ClsMembarTag
	ClsCallTarget
	ClsBrTarget
	ClsTailReloc
)

// TailRelocKind selects which relocation variants a trailing relocation
// operand may carry.
type TailRelocKind uint8

const (
	RelocLoadGOT TailRelocKind = iota + 1
	RelocAddTLS
	RelocLoadTLS
	RelocCallTLS
)

// Accepts reports whether vk may be used with this tail relocation.
func (self TailRelocKind) Accepts(vk VariantKind) bool {
	switch self {
	case RelocLoadGOT:
		return vk == VK_GOTDATA_OP
	case RelocAddTLS:
		return vk == VK_TLS_GD_ADD || vk == VK_TLS_IE_ADD || vk == VK_TLS_LDM_ADD || vk == VK_TLS_LDO_ADD
	case RelocLoadTLS:
		return vk == VK_TLS_IE_LD || vk == VK_TLS_IE_LDX
	case RelocCallTLS:
		return vk == VK_TLS_GD_CALL || vk == VK_TLS_LDM_CALL
	default:
		panic(fmt.Sprintf("mc: invalid tail relocation kind %d", self))
	}
}

// OperandClass describes one text operand of an instruction form.
type OperandClass struct {
	Kind  ClassKind
	Tok   string
	Reloc TailRelocKind
}

func Tok(s string) OperandClass {
	return OperandClass{Kind: ClsToken, Tok: s}
}

func TailReloc(k TailRelocKind) OperandClass {
	return OperandClass{Kind: ClsTailReloc, Reloc: k}
}

func (self OperandClass) IsTok(s string) bool {
	return self.Kind == ClsToken && self.Tok == s
}

// Width is the number of MC operands the class produces.
func (self OperandClass) Width() int {
	switch self.Kind {
	case ClsToken:
		return 0
	case ClsMEMrr, ClsMEMri:
		return 2
	default:
		return 1
	}
}

// Opcode is an index into Table.
type Opcode uint16

// Desc describes one matchable instruction form, or a codegen pseudo when
// Pseudo is set.
type Desc struct {
	Name     string
	Mnemonic string
	Operands []OperandClass
	Order    []int
	Features Feature
	Pseudo   bool
}

// Text returns, for each text operand, the MC operands it is made of.
func (self *Desc) Text(ops []Operand) [][]Operand {
	ret := make([][]Operand, len(self.Operands))
	idx := 0

	/* walk the MC operands in encoding order */
	for _, t := range self.Order {
		n := self.Operands[t].Width()
		if idx+n > len(ops) {
			panic(fmt.Sprintf("mc: %s: not enough operands", self.Name))
		}
		ret[t] = ops[idx : idx+n]
		idx += n
	}

	/* every operand should be consumed */
	if idx != len(ops) {
		panic(fmt.Sprintf("mc: %s: %d extra operands", self.Name, len(ops)-idx))
	}
	return ret
}

// NumOperands is the number of MC operands of the form.
func (self *Desc) NumOperands() int {
	n := 0
	for _, t := range self.Order {
		n += self.Operands[t].Width()
	}
	return n
}

var (
	Table       = buildTable()
	opcodeNames = indexNames(Table)
	mnemonics   = indexMnemonics(Table)
)

func (self Opcode) Desc() *Desc {
	if int(self) >= len(Table) || self == 0 {
		panic(fmt.Sprintf("mc: invalid opcode %d", self))
	} else {
		return &Table[self]
	}
}

func (self Opcode) String() string {
	if int(self) < len(Table) {
		return Table[self].Name
	} else {
		return fmt.Sprintf("Opcode(%d)", self)
	}
}

// Lookup finds an opcode by its form name.
func Lookup(name string) (Opcode, bool) {
	op, ok := opcodeNames[name]
	return op, ok
}

func mustLookup(name string) Opcode {
	if op, ok := Lookup(name); !ok {
		panic("mc: unknown opcode " + name)
	} else {
		return op
	}
}

// FormsOf returns every form of a mnemonic, in table order.
func FormsOf(mnemonic string) []Opcode {
	return mnemonics[mnemonic]
}

// Mnemonics returns the sorted list of mnemonics available under features.
func Mnemonics(features Feature) []string {
	ret := make([]string, 0, len(mnemonics))
	for _, m := range maps.Keys(mnemonics) {
		for _, op := range mnemonics[m] {
			if features.Has(op.Desc().Features) {
				ret = append(ret, m)
				break
			}
		}
	}
	slices.Sort(ret)
	return ret
}

func indexNames(tab []Desc) map[string]Opcode {
	ret := make(map[string]Opcode, len(tab))
	for i := 1; i < len(tab); i++ {
		if _, ok := ret[tab[i].Name]; ok {
			panic("mc: duplicated opcode " + tab[i].Name)
		}
		ret[tab[i].Name] = Opcode(i)
	}
	return ret
}

func indexMnemonics(tab []Desc) map[string][]Opcode {
	ret := make(map[string][]Opcode)
	for i := 1; i < len(tab); i++ {
		if m := tab[i].Mnemonic; m != "" {
			ret[m] = append(ret[m], Opcode(i))
		}
	}
	return ret
}
