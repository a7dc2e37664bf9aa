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
	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// NeedsLowering reports whether LowerOperation handles op.
func NeedsLowering(op dag.Opcode) bool {
	switch op {
	case dag.GlobalAddress, dag.BlockAddress, dag.ConstantPool, dag.ReturnAddr:
		return true
	case dag.ShlParts, dag.SrlParts, dag.SraParts:
		return true
	default:
		return false
	}
}

// LowerOperation replaces a node the target cannot select directly. An
// empty result means the node is left as it is.
func (self *Lowering) LowerOperation(n *dag.Node) dag.Value {
	switch n.Op {
	case dag.GlobalAddress:
		return self.LowerGlobalAddress(n)
	case dag.BlockAddress:
		return self.LowerBlockAddress(n)
	case dag.ConstantPool:
		utils.Fatal("isel: Unsupported constant pool")
	case dag.ReturnAddr:
		return dag.Value{}
	case dag.ShlParts:
		return self.LowerShlParts(n)
	case dag.SrlParts:
		return self.LowerShrParts(n, false)
	case dag.SraParts:
		return self.LowerShrParts(n, true)
	default:
		utils.Fatal("isel: unimplemented operand")
	}
	return dag.Value{}
}

// LowerOperations runs LowerOperation over the graph. Wide shifts are only
// expanded when the double-word type is not legal.
func (self *Lowering) LowerOperations(legal func(bits int) bool) int {
	n := 0
	g := self.Graph
	g.Prune()

	/* lower a snapshot of the nodes */
	for _, v := range append([]*dag.Node(nil), g.Nodes...) {
		if !NeedsLowering(v.Op) {
			continue
		}

		/* wide shifts the target can do natively */
		switch v.Op {
		case dag.ShlParts, dag.SrlParts, dag.SraParts:
			if legal(2 * v.VTs[0].Bits()) {
				continue
			}
		}

		/* replace every result */
		r := self.LowerOperation(v)
		if !r.IsValid() {
			continue
		}
		for i := range v.VTs {
			g.ReplaceAllUsesWith(v.Value(i), r.Node.Value(r.ResNo+i))
		}
		n++
	}

	/* drop what became dead */
	g.Prune()
	return n
}

// LowerGlobalAddress turns a global into a symbol reference. A variable
// initialized with a block address refers to the block label directly.
func (self *Lowering) LowerGlobalAddress(n *dag.Node) dag.Value {
	gv := n.Global
	if !gv.IsFunction && gv.Initializer != nil {
		if ba, ok := dag.StripCasts(gv.Initializer).(dag.ConstBlockAddress); ok {
			return self.Graph.MCSymbol(ba.Block)
		}
	}
	return self.Graph.TargetGlobalAddress(gv, n.Const)
}

func (self *Lowering) LowerBlockAddress(n *dag.Node) dag.Value {
	return self.Graph.TargetBlockAddress(n.Func, n.Block)
}

type _Shift struct {
	g   *dag.Graph
	vt  dag.ValueType
	lo  dag.Value
	hi  dag.Value
	amt dag.Value
}

func newShift(g *dag.Graph, n *dag.Node) _Shift {
	return _Shift{
		g:   g,
		vt:  n.VTs[0],
		lo:  n.Ops[0],
		hi:  n.Ops[1],
		amt: n.Ops[2],
	}
}

func (self _Shift) imm(v int64) dag.Value {
	return self.g.Constant(v, self.amt.VT())
}

func (self _Shift) bin(op dag.Opcode, a dag.Value, b dag.Value) dag.Value {
	return self.g.Binary(op, a, b)
}

/* amount < W, given amount < 2W */
func (self _Shift) small() (dag.Value, dag.Value) {
	w := int64(self.vt.Bits())
	ext := self.bin(dag.Sub, self.amt, self.imm(w))
	return self.g.SetCC(self.vt, ext, self.imm(0), dag.SETLT), ext
}

// LowerShlParts expands a double-word shift left into word operations.
func (self *Lowering) LowerShlParts(n *dag.Node) dag.Value {
	s := newShift(self.Graph, n)
	w := int64(s.vt.Bits())
	cond, ext := s.small()
	zero := s.g.Constant(0, s.vt)

	/* the bits of lo that move into hi */
	inv := s.bin(dag.Sub, s.imm(w-1), s.amt)
	carry := s.bin(dag.Srl, s.bin(dag.Srl, s.lo, s.imm(1)), inv)

	/* amount < W */
	loSmall := s.bin(dag.Shl, s.lo, s.amt)
	hiSmall := s.bin(dag.Or, s.bin(dag.Shl, s.hi, s.amt), carry)

	/* amount >= W */
	hiLarge := s.bin(dag.Shl, s.lo, ext)
	lo := s.g.Select(cond, loSmall, zero)
	hi := s.g.Select(cond, hiSmall, hiLarge)
	return s.g.MergeValues(lo, hi).Value(0)
}

// LowerShrParts expands a double-word shift right, arithmetic or logical.
func (self *Lowering) LowerShrParts(n *dag.Node, arith bool) dag.Value {
	s := newShift(self.Graph, n)
	w := int64(s.vt.Bits())
	cond, ext := s.small()
	shr := dag.Srl

	/* the sign decides the incoming bits */
	if arith {
		shr = dag.Sra
	}

	/* the bits of hi that move into lo */
	inv := s.bin(dag.Sub, s.imm(w-1), s.amt)
	carry := s.bin(dag.Shl, s.bin(dag.Shl, s.hi, s.imm(1)), inv)

	/* amount < W */
	loSmall := s.bin(dag.Or, s.bin(dag.Srl, s.lo, s.amt), carry)
	hiSmall := s.bin(shr, s.hi, s.amt)

	/* amount >= W */
	var hiLarge dag.Value
	loLarge := s.bin(shr, s.hi, ext)
	if arith {
		hiLarge = s.bin(dag.Sra, s.hi, s.imm(w-1))
	} else {
		hiLarge = s.g.Constant(0, s.vt)
	}

	/* pick by amount */
	lo := s.g.Select(cond, loSmall, loLarge)
	hi := s.g.Select(cond, hiSmall, hiLarge)
	return s.g.MergeValues(lo, hi).Value(0)
}
