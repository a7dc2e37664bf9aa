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
	"github.com/oleiade/lane"
)

// Combine runs the peephole rewrites over the graph until nothing changes,
// and returns the number of rewrites applied.
func Combine(g *Graph) int {
	n := 0
	for {
		g.Prune()
		changed := 0

		/* rewrite a snapshot, new nodes are visited next round */
		for _, v := range append([]*Node(nil), g.Nodes...) {
			if combineNode(g, v) {
				changed++
			}
		}

		/* stop at the fixed point */
		if changed == 0 {
			return n
		}
		n += changed
	}
}

func combineNode(g *Graph, n *Node) bool {
	if !n.Op.IsBinary() {
		return false
	}

	/* fold two constants */
	x, y := n.Ops[0], n.Ops[1]
	cx, okx := x.ConstValue()
	cy, oky := y.ConstValue()
	if okx && oky {
		if r, ok := foldBinary(n.Op, cx, cy, n.VTs[0].Bits()); ok {
			g.ReplaceAllUsesWith(n.Value(0), g.Constant(r, n.VTs[0]))
			return true
		} else {
			return false
		}
	}

	/* mul x, 2 => add x, x */
	if n.Op == Mul && oky && cy == 2 {
		g.ReplaceAllUsesWith(n.Value(0), g.Binary(Add, x, x))
		return true
	}

	/* identities */
	if r, ok := identity(n.Op, x, y, okx, cx, oky, cy); ok {
		g.ReplaceAllUsesWith(n.Value(0), r)
		return true
	} else {
		return false
	}
}

func identity(op Opcode, x Value, y Value, okx bool, cx int64, oky bool, cy int64) (Value, bool) {
	switch {
	case op == Add && oky && cy == 0:
		return x, true
	case op == Add && okx && cx == 0:
		return y, true
	case op == Sub && oky && cy == 0:
		return x, true
	case op == Mul && oky && cy == 1:
		return x, true
	case op == Mul && okx && cx == 1:
		return y, true
	case (op == UDiv || op == SDiv) && oky && cy == 1:
		return x, true
	case op == And && oky && cy == -1:
		return x, true
	default:
		return Value{}, false
	}
}

// Prune drops every node unreachable from the root, keeping the entry token.
func (self *Graph) Prune() {
	q := lane.NewQueue()
	seen := map[*Node]bool{self.entry.Node: true}

	/* start from the root */
	if self.Root.IsValid() {
		seen[self.Root.Node] = true
		q.Enqueue(self.Root.Node)
	}

	/* walk the operands */
	for !q.Empty() {
		n := q.Dequeue().(*Node)
		for _, v := range n.Ops {
			if !seen[v.Node] {
				seen[v.Node] = true
				q.Enqueue(v.Node)
			}
		}
	}

	/* keep the live ones in creation order */
	nodes := self.Nodes[:0]
	for _, n := range self.Nodes {
		if seen[n] {
			nodes = append(nodes, n)
		}
	}

	/* clear the tail */
	for i := len(nodes); i < len(self.Nodes); i++ {
		self.Nodes[i] = nil
	}
	self.Nodes = nodes
	self.rehash()
}
