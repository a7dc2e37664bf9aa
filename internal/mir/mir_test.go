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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

func TestOperand_String(t *testing.T) {
	tests := []struct {
		op  Operand
		str string
	}{
		{Reg(regs.A0), "%r10"},
		{Def(regs.Virt(3)), "%v3<def>"},
		{ImplicitUse(regs.A1), "implicit %r11"},
		{ImplicitDef(regs.RA), "implicit %r1<def>"},
		{Imm(-12), "-12"},
		{FrameIndex(2), "%stack.2"},
		{MBB("loop"), "%bb.loop"},
		{Global("g", 0), "@g"},
		{Global("g", 8), "@g+8"},
		{BlockAddress("f", "exit"), "blockaddress(@f, %exit)"},
		{Symbol("L0"), "&L0"},
		{CPI(1), "%const.1"},
		{JTI(0), "%jump-table.0"},
		{RegMask([]regs.Reg{regs.S0, regs.S1}), "regmask(%r8 %r9)"},
		{Operand{}, "<none>"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.str, tc.op.String())
	}
}

func TestInstr_Registers(t *testing.T) {
	ins := New(mc.CALLpseudo,
		Global("f", 0),
		RegMask([]regs.Reg{regs.S0}),
		ImplicitUse(regs.A0),
		ImplicitDef(regs.RA),
		ImplicitDef(regs.A0),
	)
	require.Len(t, ins.Usages(), 1)
	require.Len(t, ins.Definitions(), 2)
	assert.True(t, ins.IsCall())
	assert.False(t, ins.IsReturn())
	assert.True(t, ins.Refers(regs.RA))
	assert.False(t, ins.Refers(regs.S0))
	assert.Equal(t, -1, ins.FrameIndex())

	/* the mask */
	mask, ok := ins.RegMask()
	require.True(t, ok)
	assert.True(t, mask.Preserves(regs.S0))
	assert.False(t, mask.Preserves(regs.A0))

	/* rewriting through the pointers */
	*ins.Usages()[0] = regs.A1
	assert.Equal(t, "CALLpseudo @f, regmask(%r8), implicit %r11, implicit %r1<def>, implicit %r10<def>", ins.String())
}

func TestInstr_FrameIndex(t *testing.T) {
	ins := New(mc.STRri, FrameIndex(1), Imm(0), Reg(regs.A0))
	assert.Equal(t, 0, ins.FrameIndex())
	assert.Equal(t, "STRri %stack.1, 0, %r10", ins.String())
	assert.Equal(t, "RETpseudo", New(mc.RETpseudo).String())
	assert.True(t, New(mc.ADJCALLSTACKUP, Imm(0), Imm(0)).IsCallFramePseudo())
}

func TestBlock_Edit(t *testing.T) {
	a := New(mc.COPY, Def(regs.A0), Reg(regs.A1))
	b := New(mc.ADDri, Def(regs.A0), Reg(regs.A0), Imm(1))
	r := New(mc.RETpseudo, ImplicitUse(regs.A0))
	bb := &Block{Name: "entry"}
	bb.Add(a, r)
	assert.Equal(t, 1, bb.Return())

	/* insert keeps the tail */
	bb.Insert(1, b)
	assert.Equal(t, []*Instr{a, b, r}, bb.Instrs)
	bb.Remove(0)
	assert.Equal(t, []*Instr{b, r}, bb.Instrs)
	bb.Remove(1)
	assert.Equal(t, -1, bb.Return())
}

func TestFunction_Blocks(t *testing.T) {
	mf := NewFunction("f")
	entry := mf.NewBlock("entry")
	exit := mf.NewBlock("exit")
	mid := mf.InsertBlockAfter(entry, "mid")
	assert.Equal(t, []*Block{entry, mid, exit}, mf.Blocks)
	assert.Same(t, entry, mf.Entry())
	assert.Panics(t, func() { mf.InsertBlockAfter(&Block{Name: "x"}, "y") })

	/* live-ins are unique */
	v0 := mf.AddLiveIn(regs.A0)
	v1 := mf.AddLiveIn(regs.A1)
	assert.Equal(t, v0, mf.AddLiveIn(regs.A0))
	assert.Equal(t, regs.Virt(0), v0)
	assert.Equal(t, regs.Virt(1), v1)
	assert.Equal(t, 2, mf.NumVRegs())
	assert.Equal(t, regs.Virt(2), mf.NewVReg())
}

func TestFunction_Dump(t *testing.T) {
	mf := NewFunction("f")
	mf.Frame.CreateStackObject(8, 4)
	mf.AddLiveIn(regs.A0)
	bb := mf.NewBlock("entry")
	bb.Add(New(mc.RETpseudo, ImplicitUse(regs.A0)))
	assert.Equal(t, strings.Join([]string{
		"# Machine code for function f:",
		"  fi#0: size=8, align=4, at location [SP+0]",
		"Function Live Ins: %r10 in %v0",
		"",
		"bb.entry:",
		"  RETpseudo implicit %r10",
		"",
	}, "\n"), Dump(mf))

	/* visits in layout order */
	var seen []string
	mf.ForEach(func(bb *Block, i int, ins *Instr) {
		seen = append(seen, bb.Name+":"+ins.Op.String())
	})
	assert.Equal(t, []string{"entry:RETpseudo"}, seen)
}

func TestFrameInfo_Objects(t *testing.T) {
	fi := new(FrameInfo)
	assert.Equal(t, 1, fi.MaxAlign())
	assert.Equal(t, 0, fi.CreateStackObject(4, 0))
	assert.Equal(t, 1, fi.CreateSpillObject(4, 8))
	assert.Equal(t, 1, fi.Objects[0].Align)
	assert.True(t, fi.Objects[1].Spill)
	assert.Equal(t, 8, fi.MaxAlign())
	fi.Objects[1].Offset = 12
	assert.Equal(t, 12, fi.ObjectOffset(1))
}
