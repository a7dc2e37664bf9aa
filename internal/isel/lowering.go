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
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

const (
	WordBits = 32
)

// Arg is an outgoing value together with its extension flags.
type Arg struct {
	Value dag.Value
	Flags dag.ParamFlags
}

// Lowering turns the target-independent parts of a graph into TinyGPU
// nodes: arguments, calls, returns and the operations the target cannot
// select directly.
type Lowering struct {
	Graph *dag.Graph
	Func  *dag.Function
	MF    *mir.Function
}

func NewLowering(g *dag.Graph, mf *mir.Function) *Lowering {
	return &Lowering{
		Graph: g,
		Func:  g.Func,
		MF:    mf,
	}
}

var intrinsicRegs = map[string]regs.Reg{
	"__tinygpu_block_idx":  regs.BLOCKIDX,
	"__tinygpu_block_dim":  regs.BLOCKDIM,
	"__tinygpu_thread_idx": regs.THREADIDX,
}

const intrinsicGlobalIdx = "__tinygpu_global_idx"

// NodeName returns the printable name of a target node.
func NodeName(op dag.Opcode) string {
	switch op {
	case dag.TgtRet:
		return "TinyGPUISD::Ret"
	case dag.TgtBrDirect:
		return "TinyGPUISD::BR_DIRECT"
	case dag.TgtMad:
		return "TinyGPUISD::MAD"
	default:
		return ""
	}
}

func params(vals []Arg) []dag.Param {
	ret := make([]dag.Param, 0, len(vals))
	for _, v := range vals {
		ret = append(ret, dag.Param{VT: v.Value.VT(), Flags: v.Flags})
	}
	return ret
}

// LowerFormalArguments reads the incoming arguments of the function. Every
// argument register becomes a live-in of the machine function.
func (self *Lowering) LowerFormalArguments(chain dag.Value, ins []dag.Param) ([]dag.Value, dag.Value) {
	g := self.Graph
	cc := NewCCState()
	cc.AnalyzeFormalArguments(ins)

	/* one value per argument */
	ret := make([]dag.Value, 0, len(ins))
	for _, loc := range cc.Locs {
		if !loc.IsRegLoc() {
			utils.Fatal("isel: Cannot retrieve arguments from the stack")
		}

		/* copy out of the live-in */
		vr := self.MF.AddLiveIn(loc.Reg)
		cp := g.CopyFromReg(chain, vr, loc.LocVT, dag.Value{})
		chain = cp.Chain()
		val := cp.Value(0)

		/* undo the promotion */
		switch loc.LocInfo {
		case BCvt:
			val = g.Unary(dag.Bitcast, loc.ValVT, val)
		case SExt:
			val = g.Unary(dag.Truncate, loc.ValVT, g.Assert(dag.AssertSext, val, loc.ValVT))
		case ZExt:
			val = g.Unary(dag.Truncate, loc.ValVT, g.Assert(dag.AssertZext, val, loc.ValVT))
		}
		ret = append(ret, val)
	}
	return ret, chain
}

func (self *Lowering) promote(loc CCValAssign, val dag.Value) dag.Value {
	switch loc.LocInfo {
	case BCvt:
		return self.Graph.Unary(dag.Bitcast, loc.LocVT, val)
	case SExt:
		return self.Graph.Unary(dag.SignExtend, loc.LocVT, val)
	case ZExt:
		return self.Graph.Unary(dag.ZeroExtend, loc.LocVT, val)
	default:
		return val
	}
}

func (self *Lowering) lowerIntrinsic(chain dag.Value, name string, args []Arg, retVT dag.ValueType) (dag.Value, dag.Value, bool) {
	reg, isReg := intrinsicRegs[name]
	if !isReg && name != intrinsicGlobalIdx {
		return dag.Value{}, dag.Value{}, false
	}

	/* () -> i32 */
	if len(args) != 0 || retVT != dag.VT_i32 {
		utils.Fatal("isel: invalid intrinsic signature")
	}

	/* a single hardware register */
	g := self.Graph
	if isReg {
		cp := g.CopyFromReg(chain, reg, dag.VT_i32, dag.Value{})
		return cp.Chain(), cp.Value(0), true
	}

	/* blockidx * blockdim + threadidx */
	bi := g.CopyFromReg(chain, regs.BLOCKIDX, dag.VT_i32, dag.Value{})
	bd := g.CopyFromReg(bi.Chain(), regs.BLOCKDIM, dag.VT_i32, dag.Value{})
	ti := g.CopyFromReg(bd.Chain(), regs.THREADIDX, dag.VT_i32, dag.Value{})
	mad := g.Node(dag.TgtMad, []dag.ValueType{dag.VT_i32}, bi.Value(0), bd.Value(0), ti.Value(0))
	return ti.Chain(), mad, true
}

// LowerCall emits a call to callee. The result is the new chain and the
// returned value, which is empty for void calls.
func (self *Lowering) LowerCall(chain dag.Value, callee dag.Value, args []Arg, retVT dag.ValueType) (dag.Value, dag.Value) {
	var glue dag.Value
	var global *dag.Global
	g := self.Graph

	/* find the callee */
	switch callee.Op() {
	case dag.GlobalAddress, dag.TargetGlobalAddress:
		global = callee.Node.Global
	}

	/* hardware identity intrinsics */
	if global != nil {
		if ch, val, ok := self.lowerIntrinsic(chain, global.Name, args, retVT); ok {
			return ch, val
		}
	}

	/* assign the arguments */
	cc := NewCCState()
	cc.AnalyzeCallOperands(params(args))
	for _, loc := range cc.Locs {
		if !loc.IsRegLoc() {
			utils.Fatal("isel: Stack arguments not supported")
		}
	}

	/* only direct calls */
	if global == nil {
		utils.Fatal("isel: Indirect calls not supported")
	}

	/* copy the arguments, glued together */
	for _, loc := range cc.Locs {
		cp := g.CopyToReg(chain, loc.Reg, self.promote(loc, args[loc.ValNo].Value), glue)
		chain, glue = cp.Chain(), cp.Glue()
	}

	/* the call itself */
	ops := []dag.Value{chain, g.TargetGlobalAddress(global, callee.Node.Const)}
	if glue.IsValid() {
		ops = append(ops, glue)
	}

	/* chained and glued */
	call := g.NodeWith(dag.TgtBrDirect, []dag.ValueType{dag.VT_Other, dag.VT_Glue}, dag.Attr{}, ops...)
	chain, glue = call.Chain(), call.Glue()

	/* void calls have no result */
	if retVT == dag.VT_None {
		return chain, dag.Value{}
	}

	/* the result comes back in a0 */
	rc := NewCCState()
	if !rc.AnalyzeReturn([]dag.Param{{VT: retVT}}) {
		utils.Fatal("isel: invalid return type")
	}

	/* copy it out and undo the promotion */
	loc := rc.Locs[0]
	cp := g.CopyFromReg(chain, loc.Reg, loc.LocVT, glue)
	val := cp.Value(0)
	if loc.LocInfo != Full {
		val = g.Unary(dag.Truncate, loc.ValVT, val)
	}
	return cp.Chain(), val
}

// CanLowerReturn reports whether the values fit in the return registers.
func (self *Lowering) CanLowerReturn(outs []dag.Param) bool {
	return CheckReturn(outs)
}

// LowerReturn copies outs to the return registers and returns the final
// tinygpu.Ret node.
func (self *Lowering) LowerReturn(chain dag.Value, outs []Arg) dag.Value {
	var glue dag.Value
	g := self.Graph
	ps := params(outs)

	/* must fit */
	if !self.CanLowerReturn(ps) {
		utils.Fatal("isel: Unsupported return value")
	}

	/* assign the values */
	cc := NewCCState()
	cc.AnalyzeReturn(ps)
	ops := []dag.Value{chain}

	/* copy each of them */
	for _, loc := range cc.Locs {
		cp := g.CopyToReg(chain, loc.Reg, self.promote(loc, outs[loc.ValNo].Value), glue)
		chain, glue = cp.Chain(), cp.Glue()
		ops = append(ops, g.Register(loc.Reg, loc.LocVT))
	}

	/* update the chain */
	ops[0] = chain
	if glue.IsValid() {
		ops = append(ops, glue)
	}
	return g.NodeWith(dag.TgtRet, []dag.ValueType{dag.VT_Other}, dag.Attr{}, ops...).Value(0)
}
