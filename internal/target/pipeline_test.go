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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/asm"
	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/isel"
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

func i32Func(name string, n int) *dag.Function {
	fn := &dag.Function{Name: name, Ret: []dag.Param{{VT: dag.VT_i32}}}
	for i := 0; i < n; i++ {
		fn.Params = append(fn.Params, dag.Param{VT: dag.VT_i32})
	}
	return fn
}

func compile(t *testing.T, tm *TargetMachine, fn *dag.Function, build func(low *isel.Lowering, g *dag.Graph)) (text string, err error) {
	u, err := tm.NewUnit(fn)
	require.NoError(t, err)
	defer utils.RecoverFatal(&err)
	build(u.Lowering, u.Graph)
	u.Run()
	return u.Emit().String(), nil
}

func mustCompile(t *testing.T, tm *TargetMachine, fn *dag.Function, build func(low *isel.Lowering, g *dag.Graph)) string {
	text, err := compile(t, tm, fn, build)
	require.NoError(t, err)

	/* the output always assembles back to itself */
	prog, err := (&asm.Assembler{Features: mc.Feature64Bit | mc.FeatureCoproc}).Assemble(fn.Name+".s", text)
	require.NoError(t, err)
	require.Equal(t, text, prog.String())
	return text
}

func newMachine(t *testing.T) *TargetMachine {
	tm, err := NewTargetMachine(testOptions())
	require.NoError(t, err)
	return tm
}

func TestPasses_Names(t *testing.T) {
	names := make([]string, 0, len(Passes))
	for _, p := range Passes {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"Peephole Combine",
		"Operation Lowering",
		"Instruction Selection",
		"Call Block Splitting",
		"Register Allocation",
		"Prologue/Epilogue Insertion",
		"Frame Index Elimination",
	}, names)
}

func TestPipeline_Add(t *testing.T) {
	text := mustCompile(t, newMachine(t), i32Func("add", 2), func(low *isel.Lowering, g *dag.Graph) {
		vals, chain := low.LowerFormalArguments(g.Entry(), low.Func.Params)
		g.SetRoot(low.LowerReturn(chain, []isel.Arg{{Value: g.Binary(dag.Add, vals[0], vals[1])}}))
	})
	assert.Equal(t, "\t.text\n"+
		"\t.globl add\n"+
		"\t.align 4\n"+
		"add:\n"+
		"\tmov %r10, %r5\n"+
		"\tmov %r11, %r6\n"+
		"\tadd %r5, %r6, %r5\n"+
		"\tmov %r5, %r10\n"+
		"\tretl\n", text)
}

func TestPipeline_Call(t *testing.T) {
	text := mustCompile(t, newMachine(t), i32Func("caller", 1), func(low *isel.Lowering, g *dag.Graph) {
		vals, chain := low.LowerFormalArguments(g.Entry(), low.Func.Params)
		callee := g.GlobalAddress(dag.Func("callee"), 0)
		chain, res := low.LowerCall(chain, callee, []isel.Arg{{Value: vals[0]}, {Value: g.Constant(1, dag.VT_i32)}}, dag.VT_i32)
		g.SetRoot(low.LowerReturn(chain, []isel.Arg{{Value: g.Binary(dag.Add, res, vals[0])}}))
	})

	/* ra and the register holding x across the call are saved */
	assert.Contains(t, text, "caller:\n"+
		"\tsub %r2, 8, %r2\n"+
		"\tstr %r1, [%r2+0]\n"+
		"\tstr %r8, [%r2+4]\n")
	assert.Contains(t, text, "\tcall callee\n.LBBcaller_entry.afterCall:\n")
	assert.Contains(t, text, "\tadd %r5, %r8, %r5\n")
	assert.Contains(t, text, "\tldr [%r2+0], %r1\n"+
		"\tldr [%r2+4], %r8\n"+
		"\tadd %r2, 8, %r2\n"+
		"\tretl\n")
	assert.NotContains(t, text, "ADJCALLSTACK")
}

func TestPipeline_StackObject(t *testing.T) {
	fn := i32Func("spill", 1)
	fn.StackObjects = []dag.StackObject{{Size: 4, Align: 4}}
	text := mustCompile(t, newMachine(t), fn, func(low *isel.Lowering, g *dag.Graph) {
		vals, chain := low.LowerFormalArguments(g.Entry(), low.Func.Params)
		fi := g.FrameIndex(0)
		ld := g.Load(g.Store(chain, vals[0], fi), fi, dag.VT_i32)
		g.SetRoot(low.LowerReturn(ld.Chain(), []isel.Arg{{Value: ld.Value(0)}}))
	})
	assert.Contains(t, text, "spill:\n"+
		"\tsub %r2, 4, %r2\n"+
		"\tmov %r10, %r5\n"+
		"\tstr %r5, [%r2+0]\n"+
		"\tldr [%r2+0], %r5\n"+
		"\tmov %r5, %r10\n"+
		"\tadd %r2, 4, %r2\n"+
		"\tretl\n")
}

func TestPipeline_Peephole(t *testing.T) {
	build := func(low *isel.Lowering, g *dag.Graph) {
		vals, chain := low.LowerFormalArguments(g.Entry(), low.Func.Params)
		g.SetRoot(low.LowerReturn(chain, []isel.Arg{{Value: g.Binary(dag.Sub, vals[0], g.Constant(0, dag.VT_i32))}}))
	}

	/* x - 0 is folded away */
	text := mustCompile(t, newMachine(t), i32Func("f", 1), build)
	assert.NotContains(t, text, "\tsub ")

	/* unless disabled */
	o := testOptions()
	o.Peephole = false
	tm, err := NewTargetMachine(o)
	require.NoError(t, err)
	text = mustCompile(t, tm, i32Func("f", 1), build)
	assert.Contains(t, text, "\tsub %r5, 0, %r5\n")
}

func TestPipeline_Errors(t *testing.T) {
	tm := newMachine(t)
	_, err := compile(t, tm, i32Func("f", 5), func(low *isel.Lowering, g *dag.Graph) {
		low.LowerFormalArguments(g.Entry(), low.Func.Params)
	})
	assert.EqualError(t, err, "isel: Cannot retrieve arguments from the stack")

	/* unknown function cpu */
	fn := i32Func("g", 0)
	fn.CPU = "v8"
	_, err = tm.NewUnit(fn)
	assert.Error(t, err)
}

func TestUnit_MissingFeature(t *testing.T) {
	tm := newMachine(t)
	u, err := tm.NewUnit(i32Func("f", 0))
	require.NoError(t, err)
	u.MF.NewBlock("entry").Add(
		mir.New(mc.SLLXri, mir.Def(regs.T0), mir.Reg(regs.T0), mir.Imm(32)),
		mir.New(mc.RETpseudo),
	)
	func() {
		defer utils.RecoverFatal(&err)
		u.Emit()
	}()
	assert.EqualError(t, err, "emit: SLLXri requires 64bit, not available on generic[coproc]")

	/* fine on a 64-bit subtarget */
	fn := i32Func("f", 0)
	fn.CPU = "tinygpu64"
	u, err = tm.NewUnit(fn)
	require.NoError(t, err)
	u.MF.NewBlock("entry").Add(mir.New(mc.SLLXri, mir.Def(regs.T0), mir.Reg(regs.T0), mir.Imm(32)))
	assert.Len(t, u.Emit().Instructions(), 1)
}
