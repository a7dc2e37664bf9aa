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

package target

import (
	"github.com/golang/glog"

	"github.com/cloudwego/tinygpu/internal/asm"
	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/emit"
	"github.com/cloudwego/tinygpu/internal/frame"
	"github.com/cloudwego/tinygpu/internal/isel"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regalloc"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// Unit is one function on its way from the selection graph to assembly.
type Unit struct {
	Func     *dag.Function
	Graph    *dag.Graph
	Lowering *isel.Lowering
	MF       *mir.Function
	Frame    *frame.Lowering
	Target   *Subtarget
	Machine  *TargetMachine
}

// NewUnit prepares fn for compilation. The stack objects of fn become the
// frame indices 0 to N-1.
func (self *TargetMachine) NewUnit(fn *dag.Function) (*Unit, error) {
	st, err := self.Subtarget(fn)
	if err != nil {
		return nil, err
	}

	/* machine function and its frame */
	mf := mir.NewFunction(fn.Name)
	for _, obj := range fn.StackObjects {
		mf.Frame.CreateStackObject(obj.Size, obj.Align)
	}

	/* graph and lowering */
	g := dag.NewGraph(fn)
	return &Unit{
		Func:     fn,
		Graph:    g,
		Lowering: isel.NewLowering(g, mf),
		MF:       mf,
		Frame:    frame.NewLowering(self.StackAlign),
		Target:   st,
		Machine:  self,
	}, nil
}

type Pass interface {
	Apply(*Unit)
}

type PassDescriptor struct {
	Pass Pass
	Name string
}

var Passes = [...]PassDescriptor{
	{Name: "Peephole Combine", Pass: new(Combine)},
	{Name: "Operation Lowering", Pass: new(LowerOperations)},
	{Name: "Instruction Selection", Pass: new(Select)},
	{Name: "Call Block Splitting", Pass: new(SplitCalls)},
	{Name: "Register Allocation", Pass: new(RegAlloc)},
	{Name: "Prologue/Epilogue Insertion", Pass: new(PrologEpilog)},
	{Name: "Frame Index Elimination", Pass: new(FrameIndices)},
}

// Run applies every pass in order.
func (self *Unit) Run() {
	for _, p := range Passes {
		if glog.V(2) {
			glog.Infof("target: %s: %s", self.Func.Name, p.Name)
		}
		p.Pass.Apply(self)
	}
}

// Emit prints the finished machine function. Instructions the subtarget
// cannot execute are fatal.
func (self *Unit) Emit() *asm.Program {
	prog := emit.NewAsmPrinter(self.Machine.Context()).EmitFunction(self.MF)
	for _, ins := range prog.Instructions() {
		if f := ins.Op.Desc().Features; !self.Target.Features.Has(f) {
			utils.Fatalf("emit: %s requires %s, not available on %s", ins.Op, f, self.Target)
		}
	}
	return prog
}

type Combine struct{}

func (Combine) Apply(u *Unit) {
	if u.Machine.Peephole {
		if n := dag.Combine(u.Graph); n != 0 && glog.V(2) {
			glog.Infof("target: %d peephole rewrites", n)
		}
	}
}

type LowerOperations struct{}

func (LowerOperations) Apply(u *Unit) {
	u.Lowering.LowerOperations(u.Machine.Layout.IsLegalInteger)
	if glog.V(3) {
		glog.Infof("target: lowered graph of %s:\n%s", u.Func.Name, dag.Dump(u.Graph))
	}
}

type Select struct{}

func (Select) Apply(u *Unit) {
	isel.Select(u.Graph, u.MF)
}

type SplitCalls struct{}

func (SplitCalls) Apply(u *Unit) {
	isel.SplitAfterCalls(u.MF)
}

type RegAlloc struct{}

func (RegAlloc) Apply(u *Unit) {
	regalloc.Allocate(u.MF, u.Frame.Regs)
}

type PrologEpilog struct{}

func (PrologEpilog) Apply(u *Unit) {
	u.Frame.InsertPrologueEpilogue(u.MF)
}

type FrameIndices struct{}

func (FrameIndices) Apply(u *Unit) {
	u.Frame.EliminateFrameIndices(u.MF)
	if glog.V(3) {
		glog.Infof("target: final code of %s:\n%s", u.Func.Name, mir.Dump(u.MF))
	}
}
