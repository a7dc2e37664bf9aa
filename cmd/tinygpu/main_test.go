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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, string, error) {
	cmd := newTinyGPUCmd()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir string, name string, src string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestAsmCmd(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.s", "f:\n\tretl\n")
	b := writeFile(t, dir, "b.s", "g:\n  set 0x1000, %r1 ! comment\n")
	out, _, err := run("asm", "-j", "2", a, b)
	require.NoError(t, err)
	assert.Equal(t, "f:\n\tretl\ng:\n\tsethi %hi(4096), %r1\n", out)
}

func TestAsmCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.s", "f:\n\tretl\n")
	bad := writeFile(t, dir, "bad.s", "bogus\n")
	out, errOut, err := run("asm", a, bad, filepath.Join(dir, "missing.s"))
	require.EqualError(t, err, "2 of 3 files failed")
	assert.Equal(t, "f:\n\tretl\n", out)
	assert.Contains(t, errOut, bad+":1:1: error: invalid instruction mnemonic\n")
	assert.Contains(t, errOut, "missing.s")

	/* needs files */
	_, _, err = run("asm")
	assert.Error(t, err)
}

func TestExpandCmd(t *testing.T) {
	out, _, err := run("expand", "set", "0x1001")
	require.NoError(t, err)
	assert.Equal(t, "\tsethi %hi(4097), %r1\n\tor %r1, %lo(4097), %r1\n", out)

	/* setx is 64-bit only */
	out, _, err = run("expand", "setx", "5", "--cpu", "tinygpu64", "--rd", "%r3")
	require.NoError(t, err)
	assert.Equal(t, "\tor %r0, 5, %r3\n", out)
	_, errOut, err := run("expand", "setx", "5")
	assert.EqualError(t, err, "expansion failed")
	assert.Contains(t, errOut, "<expand>:1:1: error:")

	/* not a pseudo */
	_, _, err = run("expand", "add", "1")
	assert.EqualError(t, err, `unknown pseudo instruction "add", expected set or setx`)
}

func TestTargetCmd(t *testing.T) {
	out, _, err := run("target")
	require.NoError(t, err)
	assert.Contains(t, out, "data layout: e-m:e-p:32:32-i64:64-n32-S128\n")
	assert.Contains(t, out, "reloc model: static\n")
	assert.Contains(t, out, "cpus: generic, tinygpu64\n")
	assert.Contains(t, out, "define: __TINY_GPU__=1\n")
	assert.Contains(t, out, "  zero -> R0\n")
	assert.Contains(t, out, "  a5 -> R15\n")

	/* flags */
	out, _, err = run("target", "--pic", "--features", "+64bit")
	require.NoError(t, err)
	assert.Contains(t, out, "reloc model: pic\n")
	assert.Contains(t, out, "features: 64bit,coproc\n")
	_, _, err = run("target", "--cpu", "sparc")
	assert.EqualError(t, err, `default subtarget: invalid cpu "sparc": unknown cpu`)
}

func TestConfigFlag(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "tinygpu.yaml", "cpu: tinygpu64\nstack-align: 16\n")
	out, _, err := run("target", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "cpu: tinygpu64\n")
	assert.Contains(t, out, "stack align: 16\n")

	/* flags override the file */
	out, _, err = run("target", "--config", cfg, "--cpu", "generic")
	require.NoError(t, err)
	assert.Contains(t, out, "cpu: generic\n")

	/* bad file */
	_, _, err = run("target", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
