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

package frame

import (
	"golang.org/x/exp/slices"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

const (
	DefaultStackAlign = 4
	SlotSize          = 4
	MaxImmOffset      = 0xfff
)

// RoundUpToAlignment rounds v up to a multiple of a, which must be a power
// of 2.
func RoundUpToAlignment(v int, a int) int {
	return (v + a - 1) &^ (a - 1)
}

func isSImm13(v int64) bool {
	return v >= -4096 && v < 4096
}

// Lowering lays out the stack frame and emits the prologue and epilogue.
// The stack grows down and every object is addressed from SP.
type Lowering struct {
	StackAlign int
	Regs       RegisterInfo
}

func NewLowering(align int) *Lowering {
	if align == 0 {
		align = DefaultStackAlign
	}
	if align < 0 || align&(align-1) != 0 {
		panic("frame: stack alignment must be a power of 2")
	}
	return &Lowering{StackAlign: align}
}

func (self *Lowering) HasFP(_ *mir.Function) bool {
	return true
}

func (self *Lowering) HasReservedCallFrame(_ *mir.Function) bool {
	return true
}

// DetermineCalleeSaves returns the callee-saved registers written by the
// function, and RA when it makes calls.
func (self *Lowering) DetermineCalleeSaves(mf *mir.Function) []regs.Reg {
	used := make(map[regs.Reg]bool)
	mf.ForEach(func(_ *mir.Block, _ int, ins *mir.Instr) {
		for _, r := range ins.Definitions() {
			if self.Regs.IsCalleeSaved(*r) {
				used[*r] = true
			}
		}
	})

	/* calls overwrite the return address */
	if mf.Frame.HasCalls {
		used[regs.RA] = true
	}

	/* keep the register order */
	ret := make([]regs.Reg, 0, len(used))
	for r := range used {
		ret = append(ret, r)
	}
	slices.Sort(ret)
	return ret
}

// SpillCalleeSaves creates one save slot per register.
func (self *Lowering) SpillCalleeSaves(mf *mir.Function, saved []regs.Reg) {
	mf.Frame.CalleeSaved = mf.Frame.CalleeSaved[:0]
	for _, r := range saved {
		fi := mf.Frame.CreateSpillObject(SlotSize, SlotSize)
		mf.Frame.CalleeSaved = append(mf.Frame.CalleeSaved, mir.CalleeSavedInfo{Reg: r, FrameIndex: fi})
	}
}

// ComputeStackSize assigns the object offsets, save slots first, and
// returns the frame size rounded up to the stack alignment.
func (self *Lowering) ComputeStackSize(mf *mir.Function) int {
	off := 0
	fr := mf.Frame

	/* place one object */
	place := func(fi int) {
		obj := &fr.Objects[fi]
		off = RoundUpToAlignment(off, obj.Align)
		obj.Offset = off
		off += obj.Size
	}

	/* save slots, then everything else in creation order */
	for _, cs := range fr.CalleeSaved {
		place(cs.FrameIndex)
	}
	for i, obj := range fr.Objects {
		if !obj.Spill {
			place(i)
		}
	}

	/* round up the whole frame */
	align := self.StackAlign
	if a := fr.MaxAlign(); a > align {
		align = a
	}
	fr.StackSize = RoundUpToAlignment(off, align)
	return fr.StackSize
}

// MaterializeOffset makes off usable as an operand before instruction idx.
// It returns R0 when off fits in an immediate, or the scratch register now
// holding it.
func (self *Lowering) MaterializeOffset(mf *mir.Function, bb *mir.Block, idx int, off int) regs.Reg {
	if off <= MaxImmOffset {
		return regs.R0
	}

	/* load the value in halves */
	rd := self.Regs.Scavenge(mf, bb, idx)
	bb.Insert(idx, loadImm32(rd, int64(off))...)
	return rd
}

func loadImm32(rd regs.Reg, v int64) []*mir.Instr {
	lo := v & 0xffff
	hi := (v >> 16) & 0xffff
	ret := []*mir.Instr{mir.New(mc.MOVL, mir.Def(rd), mir.Imm(lo))}
	if hi != 0 {
		ret = append(ret, mir.New(mc.MOVH, mir.Def(rd), mir.Imm(hi), mir.ImplicitUse(rd)))
	}
	return ret
}

// EmitPrologue allocates the frame and saves the callee-saved registers at
// the top of the entry block.
func (self *Lowering) EmitPrologue(mf *mir.Function) {
	bb := mf.Entry()
	size := mf.Frame.StackSize
	var ins []*mir.Instr

	/* sub %sp, size, %sp */
	pos := 0
	if size != 0 {
		n := len(bb.Instrs)
		r := self.MaterializeOffset(mf, bb, 0, size)
		pos = len(bb.Instrs) - n
		if r == regs.R0 {
			ins = append(ins, mir.New(mc.SUBri, mir.Def(regs.SP), mir.Reg(regs.SP), mir.Imm(int64(size))))
		} else {
			ins = append(ins, mir.New(mc.SUBrr, mir.Def(regs.SP), mir.Reg(regs.SP), mir.Reg(r)))
		}
	}

	/* save registers */
	for _, cs := range mf.Frame.CalleeSaved {
		ins = append(ins, mir.New(mc.STRri, mir.FrameIndex(cs.FrameIndex), mir.Imm(0), mir.Reg(cs.Reg)))
	}

	/* right after the materialized size, if any */
	bb.Insert(pos, ins...)
}

// EmitEpilogue restores the callee-saved registers and releases the frame
// right before the return of bb.
func (self *Lowering) EmitEpilogue(mf *mir.Function, bb *mir.Block) {
	var ins []*mir.Instr
	pos := bb.Return()
	size := mf.Frame.StackSize

	/* not a returning block */
	if pos < 0 {
		return
	}

	/* restore registers */
	for _, cs := range mf.Frame.CalleeSaved {
		ins = append(ins, mir.New(mc.LDRri, mir.Def(cs.Reg), mir.FrameIndex(cs.FrameIndex), mir.Imm(0)))
	}

	/* insert before the return, then release the frame */
	bb.Insert(pos, ins...)
	pos += len(ins)

	/* add %sp, size, %sp */
	if size != 0 {
		if r := self.MaterializeOffset(mf, bb, pos, size); r == regs.R0 {
			bb.Insert(pos, mir.New(mc.ADDri, mir.Def(regs.SP), mir.Reg(regs.SP), mir.Imm(int64(size))))
		} else {
			bb.Insert(bb.Return(), mir.New(mc.ADDrr, mir.Def(regs.SP), mir.Reg(regs.SP), mir.Reg(r)))
		}
	}
}

// EliminateCallFramePseudo removes the call frame setup and destroy
// markers, the call frame being reserved in the prologue.
func (self *Lowering) EliminateCallFramePseudo(mf *mir.Function) {
	for _, bb := range mf.Blocks {
		ins := bb.Instrs[:0]
		for _, v := range bb.Instrs {
			if !v.IsCallFramePseudo() {
				ins = append(ins, v)
			}
		}
		bb.Instrs = ins
	}
}

// InsertPrologueEpilogue finalizes the frame of an allocated function.
func (self *Lowering) InsertPrologueEpilogue(mf *mir.Function) {
	self.SpillCalleeSaves(mf, self.DetermineCalleeSaves(mf))
	self.ComputeStackSize(mf)
	self.EmitPrologue(mf)

	/* every returning block */
	for _, bb := range mf.Blocks {
		self.EmitEpilogue(mf, bb)
	}

	/* the call frame is part of the fixed frame */
	if self.HasReservedCallFrame(mf) {
		self.EliminateCallFramePseudo(mf)
	}
}

// EliminateFrameIndex rewrites the frame-index operand at op of instruction
// idx into SP plus the object offset. Offsets that do not fit in an
// immediate go through a scavenged register.
func (self *Lowering) EliminateFrameIndex(mf *mir.Function, bb *mir.Block, idx int, op int) {
	ins := bb.Instrs[idx]
	if op+1 >= len(ins.Operands) || ins.Operands[op+1].Kind != mir.OpImm {
		utils.Fatalf("frame: frame index without an offset in %s", ins)
	}

	/* the final offset */
	fi := ins.Operands[op].Index
	off := int64(mf.Frame.ObjectOffset(fi)) + ins.Operands[op+1].Imm

	/* fits in the instruction */
	if isSImm13(off) {
		ins.Operands[op] = mir.Reg(self.Regs.FrameRegister())
		ins.Operands[op+1] = mir.Imm(off)
		return
	}

	/* movl/movh, then add %sp, scratch, scratch */
	rd := self.Regs.Scavenge(mf, bb, idx)
	seq := append(loadImm32(rd, off), mir.New(mc.ADDrr, mir.Def(rd), mir.Reg(self.Regs.FrameRegister()), mir.Reg(rd)))
	bb.Insert(idx, seq...)
	ins.Operands[op] = mir.Reg(rd)
	ins.Operands[op+1] = mir.Imm(0)
}

// EliminateFrameIndices rewrites every frame-index operand of the function.
func (self *Lowering) EliminateFrameIndices(mf *mir.Function) {
	for _, bb := range mf.Blocks {
		for i := 0; i < len(bb.Instrs); i++ {
			if op := bb.Instrs[i].FrameIndex(); op >= 0 {
				n := len(bb.Instrs)
				self.EliminateFrameIndex(mf, bb, i, op)
				i += len(bb.Instrs) - n
			}
		}
	}
}
