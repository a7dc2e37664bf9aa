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
	"pgregory.net/rapid"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/regs"
)

func shiftArgs(g *dag.Graph) (dag.Value, dag.Value, dag.Value) {
	lo := g.CopyFromReg(g.Entry(), regs.A0, dag.VT_i32, dag.Value{})
	hi := g.CopyFromReg(lo.Chain(), regs.A1, dag.VT_i32, lo.Glue())
	amt := g.CopyFromReg(hi.Chain(), regs.A2, dag.VT_i32, hi.Glue())
	return lo.Value(0), hi.Value(0), amt.Value(0)
}

func wideShift(a uint32, b uint32, amt uint32, op dag.Opcode) (uint32, uint32) {
	var r uint64
	x := uint64(b)<<32 | uint64(a)
	switch op {
	case dag.ShlParts:
		r = x << amt
	case dag.SrlParts:
		r = x >> amt
	default:
		r = uint64(int64(x) >> amt)
	}
	return uint32(r), uint32(r >> 32)
}

func TestLowering_ShiftParts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		low := newLowering("f")
		g := low.Graph
		lo, hi, amt := shiftArgs(g)
		op := rapid.SampledFrom([]dag.Opcode{dag.ShlParts, dag.SrlParts, dag.SraParts}).Draw(t, "op")
		n := g.ShiftParts(op, lo, hi, amt)
		r := low.LowerOperation(n)
		require.Equal(t, dag.MergeValues, r.Op())

		/* edges around the word size are the interesting ones */
		env := map[regs.Reg]uint32{
			regs.A0: rapid.Uint32().Draw(t, "lo"),
			regs.A1: rapid.Uint32().Draw(t, "hi"),
			regs.A2: rapid.OneOf(rapid.SampledFrom([]uint32{0, 1, 31, 32, 33, 63}), rapid.Uint32Range(0, 63)).Draw(t, "amt"),
		}
		wlo, whi := wideShift(env[regs.A0], env[regs.A1], env[regs.A2], op)

		/* both halves */
		glo, err := dag.Eval(r.Node.Value(0), env)
		require.NoError(t, err)
		ghi, err := dag.Eval(r.Node.Value(1), env)
		require.NoError(t, err)
		require.Equal(t, wlo, glo, "lo of %s", op)
		require.Equal(t, whi, ghi, "hi of %s", op)
	})
}

func TestLowering_ShiftPartsBySignBit(t *testing.T) {
	low := newLowering("f")
	g := low.Graph
	lo, hi, amt := shiftArgs(g)
	r := low.LowerShrParts(g.ShiftParts(dag.SraParts, lo, hi, amt), true)
	env := map[regs.Reg]uint32{regs.A0: 0x12345678, regs.A1: 0x80000000, regs.A2: 40}
	glo, err := dag.Eval(r.Node.Value(0), env)
	require.NoError(t, err)
	ghi, err := dag.Eval(r.Node.Value(1), env)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xff800000), glo)
	assert.Equal(t, uint32(0xffffffff), ghi)
}

func TestLowering_Addresses(t *testing.T) {
	low := newLowering("f")
	g := low.Graph
	fn := dag.Func("callee")
	v := low.LowerOperation(g.GlobalAddress(fn, 8).Node)
	assert.Equal(t, dag.TargetGlobalAddress, v.Op())
	assert.Same(t, fn, v.Node.Global)
	assert.Equal(t, int64(8), v.Node.Const)

	/* a pointer to a label becomes the label */
	ptr := dag.Var("ptr", dag.ConstCast{Of: dag.ConstBlockAddress{Func: "f", Block: "loop"}})
	v = low.LowerOperation(g.GlobalAddress(ptr, 0).Node)
	assert.Equal(t, dag.MCSymbol, v.Op())
	assert.Equal(t, "loop", v.Node.Sym)

	/* other variables stay symbolic */
	num := dag.Var("num", dag.ConstInt{Value: 3})
	v = low.LowerOperation(g.GlobalAddress(num, 0).Node)
	assert.Equal(t, dag.TargetGlobalAddress, v.Op())

	/* block addresses */
	v = low.LowerOperation(g.BlockAddress("f", "exit").Node)
	assert.Equal(t, dag.TargetBlockAddress, v.Op())
	assert.Equal(t, "f", v.Node.Func)
	assert.Equal(t, "exit", v.Node.Block)
}

func TestLowering_OperationErrors(t *testing.T) {
	low := newLowering("f")
	g := low.Graph
	msg := fatal(t, func() { low.LowerOperation(g.ConstantPool(0).Node) })
	assert.Equal(t, "isel: Unsupported constant pool", msg)
	msg = fatal(t, func() { low.LowerOperation(g.Constant(1, dag.VT_i32).Node) })
	assert.Equal(t, "isel: unimplemented operand", msg)
	ra := g.Node(dag.ReturnAddr, []dag.ValueType{dag.VT_i32})
	assert.False(t, low.LowerOperation(ra.Node).IsValid())
}

func TestLowering_Operations(t *testing.T) {
	build := func() *Lowering {
		low := newLowering("f")
		g := low.Graph
		lo, hi, amt := shiftArgs(g)
		sh := g.ShiftParts(dag.ShlParts, lo, hi, amt)
		ga := g.GlobalAddress(dag.Var("x", nil), 0)
		g.SetRoot(g.MergeValues(sh.Value(0), sh.Value(1), ga).Value(0))
		return low
	}
	count := func(g *dag.Graph, op dag.Opcode) int {
		n := 0
		for _, v := range g.Nodes {
			if v.Op == op {
				n++
			}
		}
		return n
	}

	/* i64 is not legal */
	low := build()
	assert.Equal(t, 2, low.LowerOperations(func(bits int) bool { return bits <= WordBits }))
	assert.Zero(t, count(low.Graph, dag.ShlParts))
	assert.Zero(t, count(low.Graph, dag.GlobalAddress))
	assert.Equal(t, 1, count(low.Graph, dag.TargetGlobalAddress))
	assert.Equal(t, dag.TargetGlobalAddress, low.Graph.Root.Node.Ops[2].Op())

	/* i64 is legal */
	low = build()
	assert.Equal(t, 1, low.LowerOperations(func(bits int) bool { return bits <= 64 }))
	assert.Equal(t, 1, count(low.Graph, dag.ShlParts))
}
