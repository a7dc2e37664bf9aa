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
	"github.com/golang/glog"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/frame"
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

type _AluForms struct {
	rr mc.Opcode
	ri mc.Opcode
}

var aluForms = map[dag.Opcode]_AluForms{
	dag.Add:  {mc.ADDrr, mc.ADDri},
	dag.Sub:  {mc.SUBrr, mc.SUBri},
	dag.Mul:  {mc.MULrr, mc.MULri},
	dag.SDiv: {mc.SDIVrr, mc.SDIVri},
	dag.UDiv: {mc.UDIVrr, mc.UDIVri},
	dag.And:  {mc.ANDrr, mc.ANDri},
	dag.Or:   {mc.ORrr, mc.ORri},
	dag.Xor:  {mc.XORrr, mc.XORri},
	dag.Shl:  {mc.SLLrr, mc.SLLri},
	dag.Srl:  {mc.SRLrr, mc.SRLri},
	dag.Sra:  {mc.SRArr, mc.SRAri},
}

func isShift(op dag.Opcode) bool {
	return op == dag.Shl || op == dag.Srl || op == dag.Sra
}

func isSImm13(v int64) bool {
	return v >= -4096 && v < 4096
}

// Schedule orders the nodes reachable from the root so that every node
// comes after its operands, breaking ties by creation order.
func Schedule(g *dag.Graph) []*dag.Node {
	g.Prune()
	dg := simple.NewDirectedGraph()
	ids := make(map[int64]*dag.Node, len(g.Nodes))

	/* one vertex per node */
	for _, n := range g.Nodes {
		ids[int64(n.Id)] = n
		dg.AddNode(simple.Node(n.Id))
	}

	/* operand -> user */
	for _, n := range g.Nodes {
		for _, v := range n.Ops {
			if u := int64(v.Node.Id); u != int64(n.Id) && !dg.HasEdgeFromTo(u, int64(n.Id)) {
				dg.SetEdge(dg.NewEdge(simple.Node(u), simple.Node(n.Id)))
			}
		}
	}

	/* stable topological order */
	order, err := topo.SortStabilized(dg, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a graph.Node, b graph.Node) bool { return a.ID() < b.ID() })
	})
	if err != nil {
		panic("isel: cyclic selection graph: " + err.Error())
	}

	/* back to graph nodes */
	ret := make([]*dag.Node, 0, len(order))
	for _, v := range order {
		ret = append(ret, ids[v.ID()])
	}
	return ret
}

type _Selector struct {
	mf   *mir.Function
	bb   *mir.Block
	ri   frame.RegisterInfo
	vals map[dag.Value]regs.Reg
}

// Select turns the lowered graph into the entry block of mf. Arguments are
// copied out of their live-in registers first.
func Select(g *dag.Graph, mf *mir.Function) *mir.Block {
	sel := &_Selector{
		mf:   mf,
		bb:   mf.NewBlock(g.Func.EntryBlock()),
		vals: make(map[dag.Value]regs.Reg),
	}

	/* live-ins */
	for _, v := range mf.LiveIns {
		sel.emit(mc.COPY, mir.Def(v.Virt), mir.Reg(v.Phys))
	}

	/* every node in order */
	for _, n := range Schedule(g) {
		sel.node(n)
	}

	/* dump the result */
	if glog.V(3) {
		glog.Infof("isel: selected %s:\n%s", mf.Name, mir.Dump(mf))
	}
	return sel.bb
}

func (self *_Selector) emit(op mc.Opcode, ops ...mir.Operand) {
	self.bb.Add(mir.New(op, ops...))
}

func (self *_Selector) define(v dag.Value) regs.Reg {
	vd := self.mf.NewVReg()
	self.vals[v] = vd
	return vd
}

// reg returns the register holding v, materializing leaves on first use.
func (self *_Selector) reg(v dag.Value) regs.Reg {
	if r, ok := self.vals[v]; ok {
		return r
	}

	/* merged values are their operands */
	n := v.Node
	if n.Op == dag.MergeValues {
		return self.reg(n.Ops[v.ResNo])
	}

	/* leaves */
	switch n.Op {
	case dag.Constant, dag.TargetConstant:
		if vd := self.define(v); n.Const == 0 {
			self.emit(mc.COPY, mir.Def(vd), mir.Reg(regs.R0))
		} else {
			self.emit(mc.CONST, mir.Def(vd), mir.Imm(n.Const))
		}
	case dag.TargetGlobalAddress:
		self.emit(mc.LA, mir.Def(self.define(v)), mir.Global(n.Global.Name, n.Const))
	case dag.TargetBlockAddress:
		self.emit(mc.LA, mir.Def(self.define(v)), mir.BlockAddress(n.Func, n.Block))
	case dag.MCSymbol, dag.ExternalSymbol:
		self.emit(mc.LA, mir.Def(self.define(v)), mir.Symbol(n.Sym))
	case dag.FrameIndex:
		self.emit(mc.ADDri, mir.Def(self.define(v)), mir.FrameIndex(n.Index), mir.Imm(0))
	case dag.GlobalAddress, dag.BlockAddress, dag.ConstantPool:
		utils.Fatalf("isel: %s was not lowered", n.Op)
	default:
		utils.Fatalf("isel: %s is used before it is selected", v)
	}
	return self.vals[v]
}

func (self *_Selector) node(n *dag.Node) {
	switch n.Op {
	case dag.EntryToken, dag.TokenFactor, dag.MergeValues, dag.Register, dag.ValueTypeNode:
		return
	case dag.Constant, dag.TargetConstant, dag.FrameIndex, dag.MCSymbol, dag.ExternalSymbol:
		return
	case dag.TargetGlobalAddress, dag.TargetBlockAddress:
		return
	case dag.CopyFromReg:
		self.copyFromReg(n)
	case dag.CopyToReg:
		self.emit(mc.COPY, mir.Def(n.Ops[1].Node.Reg), mir.Reg(self.reg(n.Ops[2])))
	case dag.SetCC:
		self.setcc(n)
	case dag.Select:
		self.emit(mc.SEL, mir.Def(self.define(n.Value(0))), self.use(n.Ops[0]), self.use(n.Ops[1]), self.use(n.Ops[2]))
	case dag.TgtMad:
		self.emit(mc.MAD, mir.Def(self.define(n.Value(0))), self.use(n.Ops[0]), self.use(n.Ops[1]), self.use(n.Ops[2]))
	case dag.Truncate, dag.Bitcast, dag.AssertSext, dag.AssertZext, dag.SignExtend, dag.ZeroExtend:
		self.vals[n.Value(0)] = self.reg(n.Ops[0])
	case dag.Load:
		self.load(n)
	case dag.Store:
		self.store(n)
	case dag.TgtBrDirect:
		self.call(n)
	case dag.TgtRet:
		self.ret(n)
	case dag.ReturnAddr:
		utils.Fatal("isel: unsupported return address")
	default:
		if _, ok := aluForms[n.Op]; ok {
			self.binary(n)
		} else {
			utils.Fatalf("isel: cannot select %s", n.Op)
		}
	}
}

func (self *_Selector) use(v dag.Value) mir.Operand {
	return mir.Reg(self.reg(v))
}

func (self *_Selector) copyFromReg(n *dag.Node) {
	if r := n.Ops[1].Node.Reg; r.IsVirtual() {
		self.vals[n.Value(0)] = r
	} else {
		self.emit(mc.COPY, mir.Def(self.define(n.Value(0))), mir.Reg(r))
	}
}

func (self *_Selector) binary(n *dag.Node) {
	forms := aluForms[n.Op]
	lhs := self.use(n.Ops[0])

	/* register-immediate when the constant fits */
	if c, ok := n.Ops[1].ConstValue(); ok {
		if isShift(n.Op) && c >= 0 && c < 32 || !isShift(n.Op) && isSImm13(c) {
			self.emit(forms.ri, mir.Def(self.define(n.Value(0))), lhs, mir.Imm(c))
			return
		}
	}

	/* register-register */
	rhs := self.use(n.Ops[1])
	self.emit(forms.rr, mir.Def(self.define(n.Value(0))), lhs, rhs)
}

func (self *_Selector) setcc(n *dag.Node) {
	var ri, rr mc.Opcode
	lhs, rhs := n.Ops[0], n.Ops[1]

	/* only the "less than" forms exist */
	switch n.CC {
	case dag.SETLT:
		rr, ri = mc.SLTrr, mc.SLTri
	case dag.SETULT:
		rr, ri = mc.SLTUrr, mc.SLTUri
	case dag.SETGT:
		rr, ri, lhs, rhs = mc.SLTrr, mc.SLTri, rhs, lhs
	case dag.SETUGT:
		rr, ri, lhs, rhs = mc.SLTUrr, mc.SLTUri, rhs, lhs
	default:
		utils.Fatalf("isel: unsupported condition code %s", n.CC)
	}

	/* compare against an immediate */
	a := self.use(lhs)
	if c, ok := rhs.ConstValue(); ok && isSImm13(c) {
		self.emit(ri, mir.Def(self.define(n.Value(0))), a, mir.Imm(c))
	} else {
		self.emit(rr, mir.Def(self.define(n.Value(0))), a, self.use(rhs))
	}
}

func (self *_Selector) address(v dag.Value) mir.Operand {
	if v.Op() == dag.FrameIndex {
		return mir.FrameIndex(v.Node.Index)
	} else {
		return self.use(v)
	}
}

func (self *_Selector) load(n *dag.Node) {
	if n.VTs[0] != dag.VT_i32 {
		utils.Fatalf("isel: unsupported load of %s", n.VTs[0])
	}
	addr := self.address(n.Ops[1])
	self.emit(mc.LDRri, mir.Def(self.define(n.Value(0))), addr, mir.Imm(0))
}

func (self *_Selector) store(n *dag.Node) {
	if vt := n.Ops[1].VT(); vt != dag.VT_i32 {
		utils.Fatalf("isel: unsupported store of %s", vt)
	}
	val := self.use(n.Ops[1])
	self.emit(mc.STRri, self.address(n.Ops[2]), mir.Imm(0), val)
}

// gluedRegs collects the registers written by the copies glued to n.
func gluedRegs(n *dag.Node) []regs.Reg {
	var ret []regs.Reg
	for {
		var glue dag.Value
		for _, v := range n.Ops {
			if v.VT() == dag.VT_Glue {
				glue = v
			}
		}

		/* end of the glue chain */
		if !glue.IsValid() || glue.Op() != dag.CopyToReg {
			break
		}

		/* in program order */
		n = glue.Node
		ret = append([]regs.Reg{n.Ops[1].Node.Reg}, ret...)
	}
	return ret
}

func (self *_Selector) call(n *dag.Node) {
	callee := n.Ops[1]
	if callee.Op() != dag.TargetGlobalAddress {
		utils.Fatal("isel: Indirect calls not supported")
	}

	/* symbol and preserved registers */
	ops := []mir.Operand{
		mir.Global(callee.Node.Global.Name, callee.Node.Const),
		mir.RegMask(self.ri.CallPreservedMask()),
	}

	/* argument registers */
	for _, r := range gluedRegs(n) {
		ops = append(ops, mir.ImplicitUse(r))
	}

	/* clobbers */
	ops = append(ops, mir.ImplicitDef(regs.RA), mir.ImplicitDef(regs.A0))
	self.mf.Frame.HasCalls = true

	/* bracketed by the call frame markers */
	self.emit(mc.ADJCALLSTACKDOWN, mir.Imm(0), mir.Imm(0))
	self.emit(mc.CALLpseudo, ops...)
	self.emit(mc.ADJCALLSTACKUP, mir.Imm(0), mir.Imm(0))
}

func (self *_Selector) ret(n *dag.Node) {
	var ops []mir.Operand
	for _, v := range n.Ops[1:] {
		if v.Op() == dag.Register {
			ops = append(ops, mir.ImplicitUse(v.Node.Reg))
		}
	}
	self.emit(mc.RETpseudo, ops...)
}

// SplitAfterCalls starts a new block after every call that does not end
// its block.
func SplitAfterCalls(mf *mir.Function) int {
	n := 0
	for i := 0; i < len(mf.Blocks); i++ {
		bb := mf.Blocks[i]
		for j, ins := range bb.Instrs {
			if !ins.IsCall() {
				continue
			}

			/* keep the call frame marker with the call */
			end := j
			if end+1 < len(bb.Instrs) && bb.Instrs[end+1].Op == mc.ADJCALLSTACKUP {
				end++
			}

			/* move the rest into a new block */
			if end+1 < len(bb.Instrs) {
				nb := mf.InsertBlockAfter(bb, bb.Name+".afterCall")
				nb.Instrs = append(nb.Instrs, bb.Instrs[end+1:]...)
				bb.Instrs = bb.Instrs[:end+1]
				n++
			}
			break
		}
	}
	return n
}
