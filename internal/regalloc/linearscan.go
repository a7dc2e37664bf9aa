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

package regalloc

import (
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/exp/slices"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// RegisterInfo is what the allocator needs to know about the target.
type RegisterInfo interface {
	AllocationOrder() []regs.Reg
	IsCalleeSaved(r regs.Reg) bool
}

/* every instruction reads at 2*i and writes at 2*i+1 */
type _LivePoint int

func usePoint(i int) _LivePoint { return _LivePoint(i * 2) }
func defPoint(i int) _LivePoint { return _LivePoint(i*2 + 1) }

type _LiveRange struct {
	start _LivePoint
	end   _LivePoint
}

func (self _LiveRange) String() string {
	return fmt.Sprintf("[%d, %d]", self.start, self.end)
}

func (self _LiveRange) overlaps(other _LiveRange) bool {
	return self.start <= other.end && other.start <= self.end
}

func (self *_LiveRange) extend(p _LivePoint) {
	if p < self.start {
		self.start = p
	}
	if p > self.end {
		self.end = p
	}
}

type _Interval struct {
	_LiveRange
	reg   regs.Reg
	phys  regs.Reg
	calls bool
}

type _Allocator struct {
	ri    RegisterInfo
	instr []*mir.Instr
	calls []int
	virt  map[regs.Reg]*_Interval
	fixed map[regs.Reg][]_LiveRange
}

// Allocate assigns a physical register to every virtual register of mf and
// rewrites the instructions. There is no spilling.
func Allocate(mf *mir.Function, ri RegisterInfo) {
	ra := &_Allocator{
		ri:    ri,
		virt:  make(map[regs.Reg]*_Interval),
		fixed: make(map[regs.Reg][]_LiveRange),
	}

	/* linearize the blocks */
	mf.ForEach(func(_ *mir.Block, _ int, ins *mir.Instr) {
		ra.instr = append(ra.instr, ins)
	})

	/* scan, assign and rewrite */
	ra.scan()
	ra.assign()
	ra.rewrite(mf)
}

func (self *_Allocator) scan() {
	open := make(map[regs.Reg]_LiveRange)
	for i, ins := range self.instr {
		if ins.IsCall() {
			self.calls = append(self.calls, i)
		}

		/* reads extend the ranges */
		for _, r := range ins.Usages() {
			self.mark(open, *r, usePoint(i), false)
		}

		/* writes start new physical segments */
		for _, r := range ins.Definitions() {
			self.mark(open, *r, defPoint(i), true)
		}
	}

	/* close the remaining physical segments */
	for r, lr := range open {
		self.fixed[r] = append(self.fixed[r], lr)
	}

	/* intervals live across a call */
	for _, iv := range self.virt {
		for _, c := range self.calls {
			if iv.start < usePoint(c) && iv.end > defPoint(c) {
				iv.calls = true
				break
			}
		}
	}
}

func (self *_Allocator) mark(open map[regs.Reg]_LiveRange, r regs.Reg, p _LivePoint, def bool) {
	switch {
	case r.IsVirtual():
		if iv, ok := self.virt[r]; ok {
			iv.extend(p)
		} else {
			self.virt[r] = &_Interval{_LiveRange: _LiveRange{p, p}, reg: r}
		}
	case r == regs.R0 || !r.IsPhysical():
		return
	case def:
		if lr, ok := open[r]; ok {
			self.fixed[r] = append(self.fixed[r], lr)
		}
		open[r] = _LiveRange{p, p}
	default:
		lr, ok := open[r]
		if !ok {
			lr = _LiveRange{0, p}
		}
		lr.extend(p)
		open[r] = lr
	}
}

func (self *_Allocator) available(iv *_Interval, r regs.Reg, active []*_Interval) bool {
	if iv.calls && !self.ri.IsCalleeSaved(r) {
		return false
	}

	/* held by an active interval */
	for _, v := range active {
		if v.phys == r {
			return false
		}
	}

	/* pinned by a physical use */
	for _, lr := range self.fixed[r] {
		if lr.overlaps(iv._LiveRange) {
			return false
		}
	}
	return true
}

func (self *_Allocator) assign() {
	var active []*_Interval
	ivs := make([]*_Interval, 0, len(self.virt))

	/* sort by start point */
	for _, v := range self.virt {
		ivs = append(ivs, v)
	}
	slices.SortFunc(ivs, func(a *_Interval, b *_Interval) bool {
		return a.start < b.start || (a.start == b.start && a.reg < b.reg)
	})

	/* scan the intervals */
	for _, iv := range ivs {
		n := 0
		for _, v := range active {
			if v.end >= iv.start {
				active[n] = v
				n++
			}
		}

		/* take the first free register */
		active = active[:n]
		for _, r := range self.ri.AllocationOrder() {
			if self.available(iv, r, active) {
				iv.phys = r
				break
			}
		}

		/* no spilling */
		if iv.phys == regs.NoReg {
			utils.Fatal("regalloc: out of registers")
		}

		/* add to the active set */
		active = append(active, iv)
		if glog.V(3) {
			glog.Infof("regalloc: %s%s -> %s", iv.reg, iv._LiveRange, iv.phys)
		}
	}
}

func (self *_Allocator) rewrite(mf *mir.Function) {
	for _, ins := range self.instr {
		for _, r := range append(ins.Usages(), ins.Definitions()...) {
			if iv, ok := self.virt[*r]; ok {
				*r = iv.phys
			}
		}
	}

	/* the live-ins now arrive in their assigned registers */
	for i, v := range mf.LiveIns {
		if iv, ok := self.virt[v.Virt]; ok {
			mf.LiveIns[i].Virt = iv.phys
		}
	}

	/* drop the copies that became no-ops */
	for _, bb := range mf.Blocks {
		ins := bb.Instrs[:0]
		for _, v := range bb.Instrs {
			if !isIdentityCopy(v) {
				ins = append(ins, v)
			}
		}
		bb.Instrs = ins
	}
}

func isIdentityCopy(ins *mir.Instr) bool {
	return ins.Op == mc.COPY &&
		len(ins.Operands) == 2 &&
		ins.Operands[0].Reg == ins.Operands[1].Reg
}
