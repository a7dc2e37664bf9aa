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

package tinygpu

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/isel"
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/opts"
)

func TestAssemble(t *testing.T) {
	prog, err := Assemble("f.s", "f:\n\tset 0x1001, %r1\n\tretl\n")
	require.NoError(t, err)
	assert.Equal(t, "f.s", prog.Name)
	assert.Equal(t, "f:\n\tsethi %hi(4097), %r1\n\tor %r1, %lo(4097), %r1\n\tretl\n", prog.String())
}

func TestAssemble_Options(t *testing.T) {
	prog, err := Assemble("", "set foo, %r1", WithPIC(true))
	require.NoError(t, err)
	assert.Contains(t, prog.String(), "%got22(foo)")

	/* pic is overridden by the reloc model */
	prog, err = Assemble("", "set foo, %r1", WithPIC(true), WithRelocModel("static"))
	require.NoError(t, err)
	assert.Contains(t, prog.String(), "%hi(foo)")

	/* 64-bit instructions */
	_, err = Assemble("", "sllx %r1, 32, %r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction requires a CPU feature not currently enabled")
	_, err = Assemble("", "sllx %r1, 32, %r1", WithCPU("tinygpu64"))
	assert.NoError(t, err)
	_, err = Assemble("", "sllx %r1, 32, %r1", WithFeatures("+64bit"))
	assert.NoError(t, err)
}

func TestAssemble_Diagnostics(t *testing.T) {
	_, err := Assemble("a.s", "foo\nnop\nadd %r1\n")
	diags := Diagnostics(err)
	require.Len(t, diags, 2)
	assert.Equal(t, "a.s:1:1: error: invalid instruction mnemonic", diags[0].Error())
	assert.Equal(t, mc.Loc{Line: 3, Col: 1}, diags[1].Loc)
	assert.False(t, IsFatal(err))

	/* capped */
	_, err = Assemble("", strings.Repeat("bogus\n", 10), WithMaxErrors(3))
	assert.Len(t, Diagnostics(err), 3)

	/* not diagnostics */
	assert.Nil(t, Diagnostics(nil))
	assert.Nil(t, Diagnostics(os.ErrNotExist))
	assert.Len(t, Diagnostics(&Diagnostic{Msg: "x"}), 1)
}

func addFunction(name string, n int) *dag.Function {
	fn := &dag.Function{Name: name, Ret: []dag.Param{{VT: dag.VT_i32}}}
	for i := 0; i < n; i++ {
		fn.Params = append(fn.Params, dag.Param{VT: dag.VT_i32})
	}
	return fn
}

func buildAdd(low *isel.Lowering, g *dag.Graph) {
	vals, chain := low.LowerFormalArguments(g.Entry(), low.Func.Params)
	sum := vals[0]
	for _, v := range vals[1:] {
		sum = g.Binary(dag.Add, sum, v)
	}
	g.SetRoot(low.LowerReturn(chain, []isel.Arg{{Value: sum}}))
}

func TestCompile(t *testing.T) {
	text, err := Compile(addFunction("add", 2), buildAdd)
	require.NoError(t, err)
	assert.Equal(t, "\t.text\n\t.globl add\n\t.align 4\nadd:\n"+
		"\tmov %r10, %r5\n"+
		"\tmov %r11, %r6\n"+
		"\tadd %r5, %r6, %r5\n"+
		"\tmov %r5, %r10\n"+
		"\tretl\n", text)

	/* the output assembles */
	prog, err := Assemble("add.s", text)
	require.NoError(t, err)
	assert.Equal(t, text, prog.String())
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(addFunction("f", 5), buildAdd)
	require.Error(t, err)
	assert.Equal(t, "compile f: isel: Cannot retrieve arguments from the stack", err.Error())
	assert.True(t, IsFatal(err))

	/* configuration errors are not fatal */
	fn := addFunction("g", 2)
	fn.CPU = "sparc"
	_, err = Compile(fn, buildAdd)
	require.Error(t, err)
	assert.False(t, IsFatal(err))
	var ce ConfigError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "cpu", ce.Key)
}

func TestOptions_Panics(t *testing.T) {
	assert.Panics(t, func() { WithCPU("v9") })
	assert.Panics(t, func() { WithFeatures("+vector") })
	assert.Panics(t, func() { WithRelocModel("ropi") })
	assert.Panics(t, func() { WithMaxErrors(-1) })
	assert.Panics(t, func() { WithStackAlign(12) })
	assert.NotPanics(t, func() { WithStackAlign(16) })
}

func TestOptions_Apply(t *testing.T) {
	o := newOptions([]Option{
		WithCPU("tinygpu64"),
		WithFeatures("-coproc"),
		WithStackAlign(8),
		WithPeephole(false),
	})
	assert.Equal(t, "tinygpu64", o.CPU)
	assert.Equal(t, "-coproc", o.Features)
	assert.Equal(t, 8, o.StackAlign)
	assert.False(t, o.Peephole)
	assert.Equal(t, opts.MaxErrors, o.MaxErrors)
}

func TestOptions_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinygpu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu: tinygpu64\nmax-errors: 2\n"), 0644))
	opt, err := WithConfigFile(path)
	require.NoError(t, err)

	/* later options win */
	o := newOptions([]Option{WithStackAlign(16), opt, WithMaxErrors(5)})
	assert.Equal(t, "tinygpu64", o.CPU)
	assert.Equal(t, 16, o.StackAlign)
	assert.Equal(t, 5, o.MaxErrors)

	/* bad files */
	_, err = WithConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(path, []byte("stack-align: 3\n"), 0644))
	_, err = WithConfigFile(path)
	assert.EqualError(t, err, path+": invalid stack-align: 3 is not a power of 2")
}

func TestSetDefaults(t *testing.T) {
	old := SetMaxErrors(7)
	defer SetMaxErrors(old)
	assert.Equal(t, 7, newOptions(nil).MaxErrors)
	cpu := SetDefaultCPU("tinygpu64")
	defer SetDefaultCPU(cpu)
	assert.Equal(t, "tinygpu64", newOptions(nil).CPU)
}
