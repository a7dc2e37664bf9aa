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

package isel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/regs"
)

func TestCCState_Arguments(t *testing.T) {
	cc := NewCCState()
	ok := cc.AnalyzeFormalArguments([]dag.Param{
		{VT: dag.VT_i8},
		{VT: dag.VT_i1},
		{VT: dag.VT_i16, Flags: dag.FlagZExt},
		{VT: dag.VT_f32},
		{VT: dag.VT_i32},
		{VT: dag.VT_i1, Flags: dag.FlagSExt},
	})
	require.True(t, ok)
	require.Len(t, cc.Locs, 6)
	expect := []CCValAssign{
		{ValNo: 0, ValVT: dag.VT_i8, LocVT: dag.VT_i32, LocInfo: SExt, Reg: regs.A0},
		{ValNo: 1, ValVT: dag.VT_i1, LocVT: dag.VT_i32, LocInfo: ZExt, Reg: regs.A1},
		{ValNo: 2, ValVT: dag.VT_i16, LocVT: dag.VT_i32, LocInfo: ZExt, Reg: regs.A2},
		{ValNo: 3, ValVT: dag.VT_f32, LocVT: dag.VT_i32, LocInfo: BCvt, Reg: regs.A3},
		{ValNo: 4, ValVT: dag.VT_i32, LocVT: dag.VT_i32, LocInfo: Full, IsMem: true, MemOffset: 0},
		{ValNo: 5, ValVT: dag.VT_i1, LocVT: dag.VT_i32, LocInfo: SExt, IsMem: true, MemOffset: 4},
	}
	assert.Equal(t, expect, cc.Locs)
	assert.Equal(t, 8, cc.StackSize())
	assert.False(t, cc.Locs[4].IsRegLoc())
	assert.Equal(t, "#0 i8->i32(SExt) %r10", cc.Locs[0].String())
	assert.Equal(t, "#4 i32->i32(Full) mem+0", cc.Locs[4].String())
}

func TestCCState_Return(t *testing.T) {
	cc := NewCCState()
	require.True(t, cc.AnalyzeReturn([]dag.Param{{VT: dag.VT_i16}}))
	assert.Equal(t, []CCValAssign{{ValVT: dag.VT_i16, LocVT: dag.VT_i32, LocInfo: SExt, Reg: regs.A0}}, cc.Locs)
	assert.True(t, CheckReturn(nil))
	assert.True(t, CheckReturn([]dag.Param{{VT: dag.VT_f32}}))
	assert.False(t, CheckReturn([]dag.Param{{VT: dag.VT_i32}, {VT: dag.VT_i32}}))
	assert.False(t, CheckReturn([]dag.Param{{VT: dag.VT_i64}}))
}
