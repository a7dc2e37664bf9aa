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
)

func (self *Node) attrString() string {
	switch self.Op {
	case Constant, TargetConstant:
		return fmt.Sprintf("<%d>", self.Const)
	case Register:
		return " " + self.Reg.String()
	case FrameIndex, ConstantPool:
		return fmt.Sprintf("<%d>", self.Index)
	case ValueTypeNode:
		return ":" + self.VT.String()
	case ExternalSymbol, MCSymbol:
		return "'" + self.Sym + "'"
	case GlobalAddress, TargetGlobalAddress:
		if self.Const != 0 {
			return fmt.Sprintf("<@%s+%d>", self.Global.Name, self.Const)
		} else {
			return fmt.Sprintf("<@%s>", self.Global.Name)
		}
	case BlockAddress, TargetBlockAddress:
		return fmt.Sprintf("<%s, %%%s>", self.Func, self.Block)
	default:
		return ""
	}
}

// Format renders one node, such as `t5: i32 = add t3, t4`.
func (self *Node) Format() string {
	vts := make([]string, 0, len(self.VTs))
	ops := make([]string, 0, len(self.Ops)+1)

	/* result types */
	for _, vt := range self.VTs {
		vts = append(vts, vt.String())
	}

	/* operands, with the condition code last */
	for _, v := range self.Ops {
		ops = append(ops, v.String())
	}
	if self.Op == SetCC {
		ops = append(ops, self.CC.String())
	}

	/* join everything */
	ret := fmt.Sprintf("%s: %s = %s%s", self, strings.Join(vts, ","), self.Op, self.attrString())
	if len(ops) != 0 {
		ret += " " + strings.Join(ops, ", ")
	}
	return ret
}

// Dump prints every node of the graph in creation order.
func Dump(g *Graph) string {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "SelectionDAG for %s:\n", g.Func.Name)
	for _, n := range g.Nodes {
		sb.WriteString("  ")
		sb.WriteString(n.Format())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(sb, "  root: %s\n", g.Root)
	return sb.String()
}
