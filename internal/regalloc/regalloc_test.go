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

package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

type fakeRegs struct {
	order []regs.Reg
	saved []regs.Reg
}

func (self fakeRegs) AllocationOrder() []regs.Reg {
	return self.order
}

func (self fakeRegs) IsCalleeSaved(r regs.Reg) bool {
	for _, v := range self.saved {
		if v == r {
			return true
		}
	}
	return false
}

func listing(mf *mir.Function) []string {
	var ret []string
	mf.ForEach(func(_ *mir.Block, _ int, ins *mir.Instr) {
		ret = append(ret, ins.String())
	})
	return ret
}

func allocate(mf *mir.Function, ri RegisterInfo) (err error) {
	defer utils.RecoverFatal(&err)
	Allocate(mf, ri)
	return
}

func addFunction() *mir.Function {
	mf := mir.NewFunction("add")
	v0 := mf.AddLiveIn(regs.A0)
	v1 := mf.AddLiveIn(regs.A1)
	v2 := mf.NewVReg()
	mf.NewBlock("entry").Add(
		mir.New(mc.COPY, mir.Def(v0), mir.Reg(regs.A0)),
		mir.New(mc.COPY, mir.Def(v1), mir.Reg(regs.A1)),
		mir.New(mc.ADDrr, mir.Def(v2), mir.Reg(v0), mir.Reg(v1)),
		mir.New(mc.COPY, mir.Def(regs.A0), mir.Reg(v2)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)
	return mf
}

func TestAllocate_Temporaries(t *testing.T) {
	mf := addFunction()
	require.NoError(t, allocate(mf, fakeRegs{order: []regs.Reg{regs.T0, regs.T1, regs.T2}}))
	assert.Equal(t, []string{
		"COPY %r5<def>, %r10",
		"COPY %r6<def>, %r11",
		"ADDrr %r5<def>, %r5, %r6",
		"COPY %r10<def>, %r5",
		"RETpseudo implicit %r10",
	}, listing(mf))
	assert.Equal(t, []mir.LiveIn{
		{Phys: regs.A0, Virt: regs.T0},
		{Phys: regs.A1, Virt: regs.T1},
	}, mf.LiveIns)
}

func TestAllocate_CoalescesCopies(t *testing.T) {
	mf := addFunction()
	require.NoError(t, allocate(mf, fakeRegs{order: []regs.Reg{regs.A0, regs.A1, regs.T0}}))
	assert.Equal(t, []string{
		"ADDrr %r10<def>, %r10, %r11",
		"RETpseudo implicit %r10",
	}, listing(mf))
}

func TestAllocate_PinnedRegisters(t *testing.T) {
	mf := mir.NewFunction("f")
	v0 := mf.NewVReg()
	mf.NewBlock("entry").Add(
		mir.New(mc.CONST, mir.Def(v0), mir.Imm(7)),
		mir.New(mc.ADDrr, mir.Def(regs.A1), mir.Reg(regs.A0), mir.Reg(v0)),
		mir.New(mc.COPY, mir.Def(regs.A0), mir.Reg(regs.A1)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)

	/* a0 is live on entry, a1 only from its write */
	require.NoError(t, allocate(mf, fakeRegs{order: []regs.Reg{regs.A0, regs.A1, regs.T0}}))
	assert.Equal(t, "CONST %r11<def>, 7", mf.Entry().Instrs[0].String())
	assert.Equal(t, "ADDrr %r11<def>, %r10, %r11", mf.Entry().Instrs[1].String())
}

func TestAllocate_AcrossCalls(t *testing.T) {
	mf := mir.NewFunction("f")
	v0 := mf.AddLiveIn(regs.A0)
	v1 := mf.NewVReg()
	mf.NewBlock("entry").Add(
		mir.New(mc.COPY, mir.Def(v0), mir.Reg(regs.A0)),
		mir.New(mc.CALLpseudo, mir.Global("g", 0), mir.RegMask([]regs.Reg{regs.S0, regs.S1}), mir.ImplicitDef(regs.RA), mir.ImplicitDef(regs.A0)),
		mir.New(mc.ADDrr, mir.Def(v1), mir.Reg(v0), mir.Reg(regs.A0)),
		mir.New(mc.COPY, mir.Def(regs.A0), mir.Reg(v1)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)
	ri := fakeRegs{
		order: []regs.Reg{regs.A0, regs.T0, regs.S0, regs.S1},
		saved: []regs.Reg{regs.S0, regs.S1},
	}
	require.NoError(t, allocate(mf, ri))
	assert.Equal(t, []string{
		"COPY %r8<def>, %r10",
		"CALLpseudo @g, regmask(%r8 %r9), implicit %r1<def>, implicit %r10<def>",
		"ADDrr %r10<def>, %r8, %r10",
		"RETpseudo implicit %r10",
	}, listing(mf))
}

func TestAllocate_OutOfRegisters(t *testing.T) {
	mf := mir.NewFunction("f")
	v0, v1 := mf.NewVReg(), mf.NewVReg()
	mf.NewBlock("entry").Add(
		mir.New(mc.CONST, mir.Def(v0), mir.Imm(1)),
		mir.New(mc.CONST, mir.Def(v1), mir.Imm(2)),
		mir.New(mc.ADDrr, mir.Def(regs.A0), mir.Reg(v0), mir.Reg(v1)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)
	err := allocate(mf, fakeRegs{order: []regs.Reg{regs.T0}})
	require.EqualError(t, err, "regalloc: out of registers")
}

func TestAllocate_NoCalleeSaved(t *testing.T) {
	mf := mir.NewFunction("f")
	v0 := mf.NewVReg()
	mf.NewBlock("entry").Add(
		mir.New(mc.CONST, mir.Def(v0), mir.Imm(1)),
		mir.New(mc.CALLpseudo, mir.Global("g", 0), mir.ImplicitDef(regs.RA)),
		mir.New(mc.COPY, mir.Def(regs.A0), mir.Reg(v0)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)
	err := allocate(mf, fakeRegs{order: []regs.Reg{regs.T0, regs.T1}})
	require.EqualError(t, err, "regalloc: out of registers")
}

func TestLiveAt(t *testing.T) {
	mf := mir.NewFunction("f")
	entry := mf.NewBlock("entry")
	entry.Add(
		mir.New(mc.COPY, mir.Def(regs.S0), mir.Reg(regs.A1)),
		mir.New(mc.CALLpseudo, mir.Global("g", 0), mir.RegMask([]regs.Reg{regs.S0}), mir.ImplicitUse(regs.A0), mir.ImplicitDef(regs.RA), mir.ImplicitDef(regs.A0)),
	)
	after := mf.NewBlock("entry.afterCall")
	after.Add(
		mir.New(mc.ADDrr, mir.Def(regs.A0), mir.Reg(regs.S0), mir.Reg(regs.R0)),
		mir.New(mc.RETpseudo, mir.ImplicitUse(regs.A0)),
	)
	set := func(rs ...regs.Reg) map[regs.Reg]bool {
		ret := make(map[regs.Reg]bool)
		for _, r := range rs {
			ret[r] = true
		}
		return ret
	}
	assert.Equal(t, set(regs.A0), LiveAt(mf, after, 1))
	assert.Equal(t, set(regs.S0), LiveAt(mf, after, 0))
	assert.Equal(t, set(regs.S0, regs.A0), LiveAt(mf, entry, 1))
	assert.Equal(t, set(regs.A0, regs.A1), LiveAt(mf, entry, 0))
	assert.Equal(t, set(), LiveAt(mf, after, 2))
}
