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

package dag

import (
	"fmt"

	"github.com/cloudwego/tinygpu/internal/regs"
)

type Opcode uint16

const (
	OpInvalid Opcode = iota

	/* structure */
	EntryToken
	TokenFactor
	MergeValues

	/* leaves */
	Constant
	TargetConstant
	Register
	FrameIndex
	ValueTypeNode
	ExternalSymbol
	MCSymbol

	/* addresses */
	GlobalAddress
	TargetGlobalAddress
	BlockAddress
	TargetBlockAddress
	ConstantPool
	ReturnAddr

	/* registers */
	CopyFromReg
	CopyToReg

	/* arithmetic */
	Add
	Sub
	Mul
	SDiv
	UDiv
	And
	Or
	Xor
	Shl
	Srl
	Sra

	/* wide shifts */
	ShlParts
	SrlParts
	SraParts

	/* comparison and conversion */
	SetCC
	Select
	Bitcast
	Truncate
	AssertSext
	AssertZext
	SignExtend
	ZeroExtend

	/* memory */
	Load
	Store

	/* calls and returns */
	Call
	Return

	/* target nodes */
	TgtRet
	TgtBrDirect
	TgtMad
)

var opcodeNames = [...]string{
	OpInvalid:           "<invalid>",
	EntryToken:          "EntryToken",
	TokenFactor:         "TokenFactor",
	MergeValues:         "merge_values",
	Constant:            "Constant",
	TargetConstant:      "TargetConstant",
	Register:            "Register",
	FrameIndex:          "FrameIndex",
	ValueTypeNode:       "ValueType",
	ExternalSymbol:      "ExternalSymbol",
	MCSymbol:            "MCSymbol",
	GlobalAddress:       "GlobalAddress",
	TargetGlobalAddress: "TargetGlobalAddress",
	BlockAddress:        "BlockAddress",
	TargetBlockAddress:  "TargetBlockAddress",
	ConstantPool:        "ConstantPool",
	ReturnAddr:          "RETURNADDR",
	CopyFromReg:         "CopyFromReg",
	CopyToReg:           "CopyToReg",
	Add:                 "add",
	Sub:                 "sub",
	Mul:                 "mul",
	SDiv:                "sdiv",
	UDiv:                "udiv",
	And:                 "and",
	Or:                  "or",
	Xor:                 "xor",
	Shl:                 "shl",
	Srl:                 "srl",
	Sra:                 "sra",
	ShlParts:            "shl_parts",
	SrlParts:            "srl_parts",
	SraParts:            "sra_parts",
	SetCC:               "setcc",
	Select:              "select",
	Bitcast:             "bitcast",
	Truncate:            "truncate",
	AssertSext:          "AssertSext",
	AssertZext:          "AssertZext",
	SignExtend:          "sign_extend",
	ZeroExtend:          "zero_extend",
	Load:                "load",
	Store:               "store",
	Call:                "call",
	Return:              "return",
	TgtRet:              "tinygpu.Ret",
	TgtBrDirect:         "tinygpu.BrDirect",
	TgtMad:              "tinygpu.Mad",
}

func (self Opcode) String() string {
	if int(self) < len(opcodeNames) {
		return opcodeNames[self]
	} else {
		return fmt.Sprintf("Opcode(%d)", self)
	}
}

// IsBinary reports whether the opcode is a two-operand arithmetic node.
func (self Opcode) IsBinary() bool {
	return self >= Add && self <= Sra
}

// IsTarget reports whether the opcode only exists after lowering.
func (self Opcode) IsTarget() bool {
	return self >= TgtRet
}

// Attr holds the leaf attributes of a node. Only the fields relevant to the
// opcode are set.
type Attr struct {
	Const  int64
	Reg    regs.Reg
	Global *Global
	Sym    string
	Func   string
	Block  string
	Index  int
	CC     CondCode
	VT     ValueType
}

type Node struct {
	Attr
	Id  int
	Op  Opcode
	VTs []ValueType
	Ops []Value
}

// Value is one result of a node.
type Value struct {
	Node  *Node
	ResNo int
}

func (self *Node) Value(i int) Value {
	if i < 0 || i >= len(self.VTs) {
		panic(fmt.Sprintf("dag: result %d out of range for %s", i, self.Op))
	} else {
		return Value{Node: self, ResNo: i}
	}
}

// Glue returns the glue result of the node, if any.
func (self *Node) Glue() Value {
	for i, vt := range self.VTs {
		if vt == VT_Glue {
			return Value{Node: self, ResNo: i}
		}
	}
	return Value{}
}

// Chain returns the chain result of the node, if any.
func (self *Node) Chain() Value {
	for i, vt := range self.VTs {
		if vt == VT_Other {
			return Value{Node: self, ResNo: i}
		}
	}
	return Value{}
}

func (self *Node) IsConstant() bool {
	return self.Op == Constant || self.Op == TargetConstant
}

func (self *Node) String() string {
	return fmt.Sprintf("t%d", self.Id)
}

func (self Value) IsValid() bool {
	return self.Node != nil
}

func (self Value) Op() Opcode {
	return self.Node.Op
}

func (self Value) VT() ValueType {
	return self.Node.VTs[self.ResNo]
}

// ConstValue returns the value of a constant node.
func (self Value) ConstValue() (int64, bool) {
	if !self.IsValid() || !self.Node.IsConstant() {
		return 0, false
	} else {
		return self.Node.Const, true
	}
}

func (self Value) String() string {
	if !self.IsValid() {
		return "<null>"
	} else if self.ResNo == 0 {
		return self.Node.String()
	} else {
		return fmt.Sprintf("%s:%d", self.Node, self.ResNo)
	}
}
