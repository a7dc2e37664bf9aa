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
	"fmt"
	"strings"

	"github.com/cloudwego/tinygpu/internal/regs"
)

type Block struct {
	Name   string
	Instrs []*Instr
}

func (self *Block) Add(ins ...*Instr) {
	self.Instrs = append(self.Instrs, ins...)
}

// Insert inserts ins before position i.
func (self *Block) Insert(i int, ins ...*Instr) {
	tail := append(append([]*Instr(nil), ins...), self.Instrs[i:]...)
	self.Instrs = append(self.Instrs[:i], tail...)
}

func (self *Block) Remove(i int) {
	self.Instrs = append(self.Instrs[:i], self.Instrs[i+1:]...)
}

// Return returns the position of the final return, or -1.
func (self *Block) Return() int {
	if n := len(self.Instrs); n != 0 && self.Instrs[n-1].IsReturn() {
		return n - 1
	} else {
		return -1
	}
}

// LiveIn binds an incoming physical register to the virtual register that
// holds it inside the function.
type LiveIn struct {
	Phys regs.Reg
	Virt regs.Reg
}

type Function struct {
	Name    string
	Blocks  []*Block
	Frame   *FrameInfo
	LiveIns []LiveIn
	nvregs  int
}

func NewFunction(name string) *Function {
	return &Function{
		Name:  name,
		Frame: new(FrameInfo),
	}
}

func (self *Function) Entry() *Block {
	return self.Blocks[0]
}

func (self *Function) NewBlock(name string) *Block {
	bb := &Block{Name: name}
	self.Blocks = append(self.Blocks, bb)
	return bb
}

// InsertBlockAfter creates a block right after bb in layout order.
func (self *Function) InsertBlockAfter(bb *Block, name string) *Block {
	for i, v := range self.Blocks {
		if v == bb {
			nb := &Block{Name: name}
			tail := append([]*Block{nb}, self.Blocks[i+1:]...)
			self.Blocks = append(self.Blocks[:i+1], tail...)
			return nb
		}
	}
	panic("mir: block " + bb.Name + " does not belong to " + self.Name)
}

func (self *Function) NewVReg() regs.Reg {
	self.nvregs++
	return regs.Virt(self.nvregs - 1)
}

func (self *Function) NumVRegs() int {
	return self.nvregs
}

// AddLiveIn allocates the virtual register receiving phys on entry.
func (self *Function) AddLiveIn(phys regs.Reg) regs.Reg {
	for _, v := range self.LiveIns {
		if v.Phys == phys {
			return v.Virt
		}
	}
	vr := self.NewVReg()
	self.LiveIns = append(self.LiveIns, LiveIn{Phys: phys, Virt: vr})
	return vr
}

// ForEach calls fn on every instruction in layout order.
func (self *Function) ForEach(fn func(bb *Block, i int, ins *Instr)) {
	for _, bb := range self.Blocks {
		for i, ins := range bb.Instrs {
			fn(bb, i, ins)
		}
	}
}

// Dump renders the function for debugging.
func Dump(mf *Function) string {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "# Machine code for function %s:\n", mf.Name)

	/* frame objects */
	for i, v := range mf.Frame.Objects {
		fmt.Fprintf(sb, "  fi#%d: size=%d, align=%d, at location [SP+%d]\n", i, v.Size, v.Align, v.Offset)
	}

	/* live-ins */
	if len(mf.LiveIns) != 0 {
		ins := make([]string, 0, len(mf.LiveIns))
		for _, v := range mf.LiveIns {
			ins = append(ins, fmt.Sprintf("%s in %s", v.Phys, v.Virt))
		}
		fmt.Fprintf(sb, "Function Live Ins: %s\n", strings.Join(ins, ", "))
	}

	/* blocks */
	for _, bb := range mf.Blocks {
		fmt.Fprintf(sb, "\nbb.%s:\n", bb.Name)
		for _, ins := range bb.Instrs {
			fmt.Fprintf(sb, "  %s\n", ins)
		}
	}
	return sb.String()
}
