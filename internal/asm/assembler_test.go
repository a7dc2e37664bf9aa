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

package asm

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/mc"
)

func assembleText(t *testing.T, features mc.Feature, src string) string {
	prog, err := (&Assembler{Features: features}).Assemble("", src)
	require.NoError(t, err, "%s", src)
	return prog.String()
}

func TestAssembler_Labels(t *testing.T) {
	src := "main:\n\tretl\n.L1: nop\n"
	assert.Equal(t, "main:\n\tretl\n.L1:\n\tnop\n", assembleText(t, v8, src))
}

func TestAssembler_Directives(t *testing.T) {
	tests := []struct {
		feat mc.Feature
		src  string
		want string
	}{
		{v8, ".word 1, 2", "\t.4byte 1, 2\n"},
		{v8, ".half 0x10", "\t.2byte 16\n"},
		{v8, ".byte -128, 255", "\t.1byte -128, 255\n"},
		{v8, ".nword 5", "\t.4byte 5\n"},
		{v9, ".nword 5", "\t.8byte 5\n"},
		{v9, ".xword foo+4", "\t.8byte foo+4\n"},
		{v8, ".register %g2, #scratch", ""},
		{v8, ".text", "\t.text\n"},
		{v8, ".globl main", "\t.globl main\n"},
		{v8, ".section .rodata", "\t.section .rodata\n"},
		{v8, ".align 8", "\t.align 8\n"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, assembleText(t, tc.feat, tc.src), tc.src)
	}
}

func TestAssembler_DirectiveErrors(t *testing.T) {
	tests := []struct {
		feat mc.Feature
		src  string
		want string
	}{
		{v8, ".foo", "1:1: error: unknown directive"},
		{v8, ".xword 5", "1:1: error: unknown directive"},
		{v8, ".byte 256", "1:7: error: out of range literal value"},
		{v8, ".half -32769", "1:7: error: out of range literal value"},
		{v8, ".align 3", "1:8: error: alignment must be a power of 2"},
		{v8, ".align foo", "1:8: error: expected absolute expression"},
		{v8, ".globl 5", "1:8: error: expected identifier in directive"},
		{v8, ".text extra", "1:7: error: unexpected token in directive"},
		{v8, ".word 1 2", "1:9: error: unexpected token in directive"},
	}
	for _, tc := range tests {
		diag := diagnose(t, tc.feat, tc.src)
		assert.Equal(t, tc.want, diag.Error(), tc.src)
	}
}

func TestAssembler_StatementErrors(t *testing.T) {
	diag := diagnose(t, v8, "5 nop")
	assert.Equal(t, "1:1: error: unexpected token at start of statement", diag.Error())
	diag = diagnose(t, v8, "or %r0, 1 < 2, %r1")
	assert.Equal(t, "1:11: error: unexpected token", diag.Error())
}

func TestAssembler_Recovery(t *testing.T) {
	src := "foo\nnop\nadd %r1\nretl\n"
	prog, err := (&Assembler{Features: v8}).Assemble("a.s", src)
	require.Error(t, err)
	merr := err.(*multierror.Error)
	require.Len(t, merr.Errors, 2)
	assert.Equal(t, "a.s:1:1: error: invalid instruction mnemonic", merr.Errors[0].Error())
	assert.Equal(t, "a.s:3:1: error: too few operands for instruction", merr.Errors[1].Error())

	/* the good statements survive */
	assert.Equal(t, []string{"nop", "retl"}, printAll(prog.Instructions()))
}

func TestAssembler_MaxErrors(t *testing.T) {
	src := strings.Repeat("bogus\n", 10)
	_, err := (&Assembler{Features: v8, MaxErrors: 3}).Assemble("", src)
	require.Error(t, err)
	assert.Len(t, err.(*multierror.Error).Errors, 3)

	/* unlimited */
	_, err = (&Assembler{Features: v8}).Assemble("", src)
	require.Error(t, err)
	assert.Len(t, err.(*multierror.Error).Errors, 10)
}

func TestAssembler_RoundTrip(t *testing.T) {
	gofakeit.Seed(0)
	for i := 0; i < 20; i++ {
		sym := "sym_" + gofakeit.LetterN(8)
		src := strings.Join([]string{
			sym + ":",
			"call " + sym,
			"sethi %hi(" + sym + "), %r1",
			"or %r1, %lo(" + sym + "), %r1",
			"ldr [%r1+%lo(" + sym + ")], %r2",
			"str %r2, [%fp-8]",
			"lda [%r1] 128, %r3",
			"bne,a " + sym,
			"membar #Sync",
			".word " + sym,
		}, "\n")

		/* print, parse again, print again */
		text := assembleText(t, v8, src)
		again := assembleText(t, v8, text)
		require.Equal(t, text, again)

		/* same instructions */
		p1, err := (&Assembler{Features: v8}).Assemble("", src)
		require.NoError(t, err)
		p2, err := (&Assembler{Features: v8}).Assemble("", text)
		require.NoError(t, err)
		a, b := p1.Instructions(), p2.Instructions()
		require.Len(t, b, len(a))
		for j := range a {
			assert.True(t, a[j].Equal(b[j]), "%s != %s", mc.Print(a[j]), mc.Print(b[j]))
		}
	}
}
