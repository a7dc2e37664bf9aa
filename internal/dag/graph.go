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
	"fmt"
	"strings"

	"github.com/cloudwego/tinygpu/internal/regs"
)

// Graph is the selection graph of one function. Nodes are created through
// the builder methods and are CSE'd unless they produce glue.
type Graph struct {
	Func  *Function
	Nodes []*Node
	Root  Value
	entry Value
	next  int
	cse   map[string]*Node
}

func NewGraph(fn *Function) *Graph {
	ret := &Graph{Func: fn, cse: make(map[string]*Node)}
	ret.entry = ret.NodeWith(EntryToken, []ValueType{VT_Other}, Attr{}).Value(0)
	ret.Root = ret.entry
	return ret
}

// Entry is the chain every side effect starts from.
func (self *Graph) Entry() Value {
	return self.entry
}

func (self *Graph) SetRoot(v Value) {
	self.Root = v
}

func nodeKey(op Opcode, vts []ValueType, attr Attr, ops []Value) string {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "%d|%v|%p|%+v|", op, vts, attr.Global, attr)
	for _, v := range ops {
		fmt.Fprintf(sb, "%d:%d,", v.Node.Id, v.ResNo)
	}
	return sb.String()
}

func isCSEable(op Opcode, vts []ValueType) bool {
	if op == EntryToken {
		return false
	}
	for _, vt := range vts {
		if vt == VT_Glue {
			return false
		}
	}
	return true
}

// NodeWith creates a node, or returns the existing identical one.
func (self *Graph) NodeWith(op Opcode, vts []ValueType, attr Attr, ops ...Value) *Node {
	for i, v := range ops {
		if !v.IsValid() {
			panic(fmt.Sprintf("dag: operand %d of %s is null", i, op))
		}
	}

	/* look for an identical node */
	key := ""
	if isCSEable(op, vts) {
		key = nodeKey(op, vts, attr, ops)
		if n, ok := self.cse[key]; ok {
			return n
		}
	}

	/* create a new one */
	n := &Node{
		Attr: attr,
		Id:   self.next,
		Op:   op,
		VTs:  append([]ValueType(nil), vts...),
		Ops:  append([]Value(nil), ops...),
	}

	/* remember it */
	self.next++
	if self.Nodes = append(self.Nodes, n); key != "" {
		self.cse[key] = n
	}
	return n
}

// Node creates a node with no attributes and returns its first result.
func (self *Graph) Node(op Opcode, vts []ValueType, ops ...Value) Value {
	return self.NodeWith(op, vts, Attr{}, ops...).Value(0)
}

func (self *Graph) Constant(v int64, vt ValueType) Value {
	return self.NodeWith(Constant, []ValueType{vt}, Attr{Const: sext(v, vt.Bits())}).Value(0)
}

func (self *Graph) TargetConstant(v int64, vt ValueType) Value {
	return self.NodeWith(TargetConstant, []ValueType{vt}, Attr{Const: sext(v, vt.Bits())}).Value(0)
}

func (self *Graph) Register(r regs.Reg, vt ValueType) Value {
	return self.NodeWith(Register, []ValueType{vt}, Attr{Reg: r}).Value(0)
}

func (self *Graph) FrameIndex(i int) Value {
	return self.NodeWith(FrameIndex, []ValueType{VT_i32}, Attr{Index: i}).Value(0)
}

func (self *Graph) ValueType(vt ValueType) Value {
	return self.NodeWith(ValueTypeNode, []ValueType{VT_Other}, Attr{VT: vt}).Value(0)
}

func (self *Graph) ExternalSymbol(name string) Value {
	return self.NodeWith(ExternalSymbol, []ValueType{VT_i32}, Attr{Sym: name}).Value(0)
}

func (self *Graph) MCSymbol(name string) Value {
	return self.NodeWith(MCSymbol, []ValueType{VT_i32}, Attr{Sym: name}).Value(0)
}

func (self *Graph) GlobalAddress(g *Global, off int64) Value {
	return self.NodeWith(GlobalAddress, []ValueType{VT_i32}, Attr{Global: g, Const: off}).Value(0)
}

func (self *Graph) TargetGlobalAddress(g *Global, off int64) Value {
	return self.NodeWith(TargetGlobalAddress, []ValueType{VT_i32}, Attr{Global: g, Const: off}).Value(0)
}

func (self *Graph) BlockAddress(fn string, bb string) Value {
	return self.NodeWith(BlockAddress, []ValueType{VT_i32}, Attr{Func: fn, Block: bb}).Value(0)
}

func (self *Graph) TargetBlockAddress(fn string, bb string) Value {
	return self.NodeWith(TargetBlockAddress, []ValueType{VT_i32}, Attr{Func: fn, Block: bb}).Value(0)
}

func (self *Graph) ConstantPool(idx int) Value {
	return self.NodeWith(ConstantPool, []ValueType{VT_i32}, Attr{Index: idx}).Value(0)
}

// CopyFromReg reads r. The results are the value, the chain and the glue.
func (self *Graph) CopyFromReg(chain Value, r regs.Reg, vt ValueType, glue Value) *Node {
	ops := []Value{chain, self.Register(r, vt)}
	if glue.IsValid() {
		ops = append(ops, glue)
	}
	return self.NodeWith(CopyFromReg, []ValueType{vt, VT_Other, VT_Glue}, Attr{}, ops...)
}

// CopyToReg writes val into r. The results are the chain and the glue.
func (self *Graph) CopyToReg(chain Value, r regs.Reg, val Value, glue Value) *Node {
	ops := []Value{chain, self.Register(r, val.VT()), val}
	if glue.IsValid() {
		ops = append(ops, glue)
	}
	return self.NodeWith(CopyToReg, []ValueType{VT_Other, VT_Glue}, Attr{}, ops...)
}

func (self *Graph) Binary(op Opcode, lhs Value, rhs Value) Value {
	if !op.IsBinary() {
		panic("dag: not a binary operator: " + op.String())
	} else {
		return self.Node(op, []ValueType{lhs.VT()}, lhs, rhs)
	}
}

// Unary builds a conversion node producing vt.
func (self *Graph) Unary(op Opcode, vt ValueType, v Value) Value {
	return self.Node(op, []ValueType{vt}, v)
}

// Assert builds an AssertSext or AssertZext node recording that v already
// holds an extended value of type from.
func (self *Graph) Assert(op Opcode, v Value, from ValueType) Value {
	return self.NodeWith(op, []ValueType{v.VT()}, Attr{}, v, self.ValueType(from)).Value(0)
}

func (self *Graph) SetCC(vt ValueType, lhs Value, rhs Value, cc CondCode) Value {
	return self.NodeWith(SetCC, []ValueType{vt}, Attr{CC: cc}, lhs, rhs).Value(0)
}

func (self *Graph) Select(cond Value, t Value, f Value) Value {
	return self.Node(Select, []ValueType{t.VT()}, cond, t, f)
}

func (self *Graph) MergeValues(vals ...Value) *Node {
	vts := make([]ValueType, 0, len(vals))
	for _, v := range vals {
		vts = append(vts, v.VT())
	}
	return self.NodeWith(MergeValues, vts, Attr{}, vals...)
}

func (self *Graph) TokenFactor(chains ...Value) Value {
	if len(chains) == 1 {
		return chains[0]
	} else {
		return self.Node(TokenFactor, []ValueType{VT_Other}, chains...)
	}
}

// Load reads vt from addr. The results are the value and the chain.
func (self *Graph) Load(chain Value, addr Value, vt ValueType) *Node {
	return self.NodeWith(Load, []ValueType{vt, VT_Other}, Attr{}, chain, addr)
}

// Store writes val to addr and returns the new chain.
func (self *Graph) Store(chain Value, val Value, addr Value) Value {
	return self.Node(Store, []ValueType{VT_Other}, chain, val, addr)
}

// ShiftParts builds one of the wide shift nodes over a (lo, hi) pair.
func (self *Graph) ShiftParts(op Opcode, lo Value, hi Value, amt Value) *Node {
	switch op {
	case ShlParts, SrlParts, SraParts:
		return self.NodeWith(op, []ValueType{lo.VT(), hi.VT()}, Attr{}, lo, hi, amt)
	default:
		panic("dag: not a wide shift: " + op.String())
	}
}

// ReplaceAllUsesWith redirects every use of from to to.
func (self *Graph) ReplaceAllUsesWith(from Value, to Value) {
	for _, n := range self.Nodes {
		for i, v := range n.Ops {
			if v == from {
				n.Ops[i] = to
			}
		}
	}

	/* the root may be the replaced value */
	if self.Root == from {
		self.Root = to
	}
	self.rehash()
}

// Users returns the nodes using any result of n.
func (self *Graph) Users(n *Node) []*Node {
	var ret []*Node
	for _, u := range self.Nodes {
		for _, v := range u.Ops {
			if v.Node == n {
				ret = append(ret, u)
				break
			}
		}
	}
	return ret
}

func (self *Graph) rehash() {
	self.cse = make(map[string]*Node, len(self.Nodes))
	for _, n := range self.Nodes {
		if isCSEable(n.Op, n.VTs) {
			key := nodeKey(n.Op, n.VTs, n.Attr, n.Ops)
			if _, ok := self.cse[key]; !ok {
				self.cse[key] = n
			}
		}
	}
}
