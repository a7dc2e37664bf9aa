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
	"fmt"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/regs"
)

// LocInfo tells how a value is converted to its location type.
type LocInfo uint8

const (
	Full LocInfo = iota
	SExt
	ZExt
	BCvt
)

func (self LocInfo) String() string {
	switch self {
	case Full:
		return "Full"
	case SExt:
		return "SExt"
	case ZExt:
		return "ZExt"
	case BCvt:
		return "BCvt"
	default:
		return fmt.Sprintf("LocInfo(%d)", self)
	}
}

// CCValAssign is where one value lives: a register, or a stack slot when
// IsMem is set.
type CCValAssign struct {
	ValNo     int
	ValVT     dag.ValueType
	LocVT     dag.ValueType
	LocInfo   LocInfo
	Reg       regs.Reg
	MemOffset int
	IsMem     bool
}

func (self CCValAssign) IsRegLoc() bool {
	return !self.IsMem
}

func (self CCValAssign) String() string {
	if self.IsMem {
		return fmt.Sprintf("#%d %s->%s(%s) mem+%d", self.ValNo, self.ValVT, self.LocVT, self.LocInfo, self.MemOffset)
	} else {
		return fmt.Sprintf("#%d %s->%s(%s) %s", self.ValNo, self.ValVT, self.LocVT, self.LocInfo, self.Reg)
	}
}

/* one rule of a calling convention, true when the value got a location */
type _CCRule func(st *CCState, loc *CCValAssign, flags dag.ParamFlags) bool

// ccPromote widens the narrow integers to i32.
func ccPromote(_ *CCState, loc *CCValAssign, flags dag.ParamFlags) bool {
	switch loc.LocVT {
	case dag.VT_i1, dag.VT_i8, dag.VT_i16:
		loc.LocVT = dag.VT_i32
		switch {
		case flags == dag.FlagSExt:
			loc.LocInfo = SExt
		case flags == dag.FlagZExt:
			loc.LocInfo = ZExt
		case loc.ValVT == dag.VT_i1:
			loc.LocInfo = ZExt
		default:
			loc.LocInfo = SExt
		}
	}
	return false
}

// ccBitcastFloat passes f32 in the integer registers.
func ccBitcastFloat(_ *CCState, loc *CCValAssign, _ dag.ParamFlags) bool {
	if loc.LocVT == dag.VT_f32 {
		loc.LocVT = dag.VT_i32
		loc.LocInfo = BCvt
	}
	return false
}

func ccAssignToReg(rs ...regs.Reg) _CCRule {
	return func(st *CCState, loc *CCValAssign, _ dag.ParamFlags) bool {
		if loc.LocVT != dag.VT_i32 {
			return false
		}
		for _, r := range rs {
			if !st.used[r] {
				st.used[r] = true
				loc.Reg = r
				return true
			}
		}
		return false
	}
}

func ccAssignToStack(size int, align int) _CCRule {
	return func(st *CCState, loc *CCValAssign, _ dag.ParamFlags) bool {
		st.stack = (st.stack + align - 1) &^ (align - 1)
		loc.IsMem = true
		loc.MemOffset = st.stack
		st.stack += size
		return true
	}
}

var (
	ccArgs = []_CCRule{
		ccPromote,
		ccBitcastFloat,
		ccAssignToReg(regs.A0, regs.A1, regs.A2, regs.A3),
		ccAssignToStack(4, 4),
	}
	ccRets = []_CCRule{
		ccPromote,
		ccBitcastFloat,
		ccAssignToReg(regs.A0),
	}
)

// CCState assigns locations to a list of values by walking a rule table.
type CCState struct {
	Locs  []CCValAssign
	used  map[regs.Reg]bool
	stack int
}

func NewCCState() *CCState {
	return &CCState{used: make(map[regs.Reg]bool)}
}

// StackSize is the size of the stack area used so far.
func (self *CCState) StackSize() int {
	return self.stack
}

func (self *CCState) analyze(rules []_CCRule, vals []dag.Param) bool {
	for i, v := range vals {
		loc := CCValAssign{ValNo: i, ValVT: v.VT, LocVT: v.VT, LocInfo: Full}
		ok := false

		/* first rule that assigns wins */
		for _, fn := range rules {
			if ok = fn(self, &loc, v.Flags); ok {
				break
			}
		}

		/* no rule applies */
		if !ok {
			return false
		}
		self.Locs = append(self.Locs, loc)
	}
	return true
}

func (self *CCState) AnalyzeFormalArguments(ins []dag.Param) bool {
	return self.analyze(ccArgs, ins)
}

func (self *CCState) AnalyzeCallOperands(outs []dag.Param) bool {
	return self.analyze(ccArgs, outs)
}

func (self *CCState) AnalyzeReturn(outs []dag.Param) bool {
	return self.analyze(ccRets, outs)
}

// CheckReturn reports whether every return value fits the convention.
func CheckReturn(outs []dag.Param) bool {
	return NewCCState().AnalyzeReturn(outs)
}
