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
	"strings"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

// Instr is a machine instruction. Explicit operands are in MC order,
// implicit operands and register masks follow them.
type Instr struct {
	Op       mc.Opcode
	Operands []Operand
}

func New(op mc.Opcode, ops ...Operand) *Instr {
	return &Instr{Op: op, Operands: ops}
}

func (self *Instr) refs(def bool) []*regs.Reg {
	var ret []*regs.Reg
	for i := range self.Operands {
		if p := &self.Operands[i]; p.Kind == OpReg && p.Def == def {
			ret = append(ret, &p.Reg)
		}
	}
	return ret
}

// Usages returns pointers to every register read by the instruction.
func (self *Instr) Usages() []*regs.Reg {
	return self.refs(false)
}

// Definitions returns pointers to every register written by the instruction.
func (self *Instr) Definitions() []*regs.Reg {
	return self.refs(true)
}

func (self *Instr) IsCall() bool {
	return self.Op == mc.CALLpseudo || self.Op == mc.CALL
}

func (self *Instr) IsReturn() bool {
	return self.Op == mc.RETpseudo || self.Op == mc.RETL
}

func (self *Instr) IsCallFramePseudo() bool {
	return self.Op == mc.ADJCALLSTACKDOWN || self.Op == mc.ADJCALLSTACKUP
}

// RegMask returns the register mask operand, if any.
func (self *Instr) RegMask() (Operand, bool) {
	for _, v := range self.Operands {
		if v.Kind == OpRegMask {
			return v, true
		}
	}
	return Operand{}, false
}

// FrameIndex returns the position of the first frame-index operand, or -1.
func (self *Instr) FrameIndex() int {
	for i, v := range self.Operands {
		if v.Kind == OpFrameIndex {
			return i
		}
	}
	return -1
}

// Refers reports whether the instruction reads or writes r.
func (self *Instr) Refers(r regs.Reg) bool {
	for _, v := range self.Operands {
		if v.Kind == OpReg && v.Reg == r {
			return true
		}
	}
	return false
}

func (self *Instr) String() string {
	ops := make([]string, 0, len(self.Operands))
	for _, v := range self.Operands {
		ops = append(ops, v.String())
	}
	if len(ops) == 0 {
		return self.Op.String()
	} else {
		return self.Op.String() + " " + strings.Join(ops, ", ")
	}
}
