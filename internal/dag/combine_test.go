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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cloudwego/tinygpu/internal/regs"
)

func retValue(g *Graph, v Value) *Node {
	ret := g.CopyToReg(g.Entry(), regs.A0, v, Value{})
	g.SetRoot(ret.Value(0))
	return ret
}

func TestCombine_Fold(t *testing.T) {
	g := newTestGraph()
	x := g.Binary(Mul, g.Binary(Add, g.Constant(2, VT_i32), g.Constant(3, VT_i32)), g.Constant(-4, VT_i32))
	ret := retValue(g, x)
	require.Equal(t, 2, Combine(g))
	v, ok := ret.Ops[2].ConstValue()
	require.True(t, ok)
	assert.Equal(t, int64(-20), v)
	assert.Len(t, g.Nodes, 4)
}

func TestCombine_FoldWraps(t *testing.T) {
	g := newTestGraph()
	ret := retValue(g, g.Binary(Add, g.Constant(0x7fffffff, VT_i32), g.Constant(1, VT_i32)))
	Combine(g)
	v, _ := ret.Ops[2].ConstValue()
	assert.Equal(t, int64(-0x80000000), v)
}

func TestCombine_DivisionByZero(t *testing.T) {
	g := newTestGraph()
	x := g.Binary(SDiv, g.Constant(1, VT_i32), g.Constant(0, VT_i32))
	ret := retValue(g, x)
	assert.Equal(t, 0, Combine(g))
	assert.Equal(t, x, ret.Ops[2])
}

func TestCombine_Identities(t *testing.T) {
	tests := []struct {
		op   Opcode
		c    int64
		left bool
	}{
		{Add, 0, false},
		{Add, 0, true},
		{Sub, 0, false},
		{Mul, 1, false},
		{Mul, 1, true},
		{UDiv, 1, false},
		{SDiv, 1, false},
		{And, -1, false},
		{And, 0xffffffff, false},
	}
	for _, tc := range tests {
		g := newTestGraph()
		a, _ := args(g)
		var x Value
		if tc.left {
			x = g.Binary(tc.op, g.Constant(tc.c, VT_i32), a)
		} else {
			x = g.Binary(tc.op, a, g.Constant(tc.c, VT_i32))
		}
		ret := retValue(g, x)
		assert.Equal(t, 1, Combine(g), tc.op.String())
		assert.Equal(t, a, ret.Ops[2], tc.op.String())
	}
}

func TestCombine_NotIdentities(t *testing.T) {
	for _, op := range []Opcode{Sub, UDiv, SDiv} {
		g := newTestGraph()
		a, _ := args(g)
		x := g.Binary(op, g.Constant(map[Opcode]int64{Sub: 0, UDiv: 1, SDiv: 1}[op], VT_i32), a)
		ret := retValue(g, x)
		assert.Equal(t, 0, Combine(g), op.String())
		assert.Equal(t, x, ret.Ops[2], op.String())
	}
}

func TestCombine_MulByTwo(t *testing.T) {
	g := newTestGraph()
	a, _ := args(g)
	ret := retValue(g, g.Binary(Mul, a, g.Constant(2, VT_i32)))
	assert.Equal(t, 1, Combine(g))
	x := ret.Ops[2]
	assert.Equal(t, Add, x.Op())
	assert.Equal(t, []Value{a, a}, x.Node.Ops)
}

func TestCombine_Prune(t *testing.T) {
	g := newTestGraph()
	a, b := args(g)
	g.Binary(Sub, a, b)
	dead := g.Binary(Xor, a, g.Constant(9, VT_i32))
	retValue(g, g.Binary(Add, a, b))
	assert.Equal(t, 0, Combine(g))
	for _, n := range g.Nodes {
		assert.NotEqual(t, Sub, n.Op)
		assert.NotSame(t, dead.Node, n)
	}
	assert.Equal(t, EntryToken, g.Nodes[0].Op)
	assert.NotEqual(t, dead, g.Binary(Xor, a, g.Constant(9, VT_i32)))
}

var combineOps = []Opcode{Add, Sub, Mul, And, Or, Xor, Shl, Srl, Sra, UDiv, SDiv}

func genExpr(t *rapid.T, g *Graph, leaves []Value, depth int) Value {
	if depth == 0 || rapid.IntRange(0, 3).Draw(t, "leaf") == 0 {
		if rapid.Bool().Draw(t, "const") {
			c := rapid.SampledFrom([]int64{-1, 0, 1, 2, 3, 31}).Draw(t, "c")
			return g.Constant(c, VT_i32)
		} else {
			return rapid.SampledFrom(leaves).Draw(t, "arg")
		}
	}
	op := rapid.SampledFrom(combineOps).Draw(t, "op")
	lhs := genExpr(t, g, leaves, depth-1)
	rhs := genExpr(t, g, leaves, depth-1)

	/* keep divisors away from zero */
	if op == UDiv || op == SDiv {
		rhs = g.Binary(Or, rhs, g.Constant(1, VT_i32))
	}
	return g.Binary(op, lhs, rhs)
}

func TestCombine_PreservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := newTestGraph()
		a, b := args(g)
		ret := retValue(g, genExpr(t, g, []Value{a, b}, 4))
		env := map[regs.Reg]uint32{
			regs.A0: rapid.Uint32().Draw(t, "a0"),
			regs.A1: rapid.Uint32().Draw(t, "a1"),
		}
		before, err := Eval(ret.Ops[2], env)
		require.NoError(t, err)
		Combine(g)
		after, err := Eval(ret.Ops[2], env)
		require.NoError(t, err)
		require.Equal(t, before, after)
		require.Equal(t, 0, Combine(g))
	})
}
