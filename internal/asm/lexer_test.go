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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(src string) []Token {
	var ret []Token
	lex := NewLexer(src)
	for !lex.Is(T_EOF) {
		ret = append(ret, lex.Tok())
		lex.Lex()
	}
	return ret
}

func kindsOf(toks []Token) []TokenKind {
	ret := make([]TokenKind, 0, len(toks))
	for _, v := range toks {
		ret = append(ret, v.Kind)
	}
	return ret
}

func TestLexer_Memory(t *testing.T) {
	toks := lexAll("ldr [%fp+8], %r0 ! load\n")
	require.Equal(t, []TokenKind{
		T_Identifier, T_LBrac, T_Percent, T_Identifier, T_Plus, T_Integer, T_RBrac,
		T_Comma, T_Percent, T_Identifier, T_EndOfStatement,
	}, kindsOf(toks))
	assert.Equal(t, "ldr", toks[0].Str)
	assert.Equal(t, "fp", toks[3].Str)
	assert.Equal(t, int64(8), toks[5].Int)
	assert.Equal(t, 1, toks[1].Loc.Line)
	assert.Equal(t, 5, toks[1].Loc.Col)
}

func TestLexer_Integers(t *testing.T) {
	toks := lexAll("0x10 010 0b101 42 0xffffffffffffffff")
	require.Len(t, toks, 5)
	assert.Equal(t, int64(16), toks[0].Int)
	assert.Equal(t, int64(8), toks[1].Int)
	assert.Equal(t, int64(5), toks[2].Int)
	assert.Equal(t, int64(42), toks[3].Int)
	assert.Equal(t, int64(-1), toks[4].Int)
	assert.Equal(t, T_Error, lexAll("0x")[0].Kind)
}

func TestLexer_Punctuation(t *testing.T) {
	toks := lexAll("a << 2 >> 1 | ~b & c ^ d * e / f # g : . .L1")
	require.Equal(t, []TokenKind{
		T_Identifier, T_Shl, T_Integer, T_Shr, T_Integer, T_Pipe, T_Tilde, T_Identifier,
		T_Amp, T_Identifier, T_Caret, T_Identifier, T_Star, T_Identifier, T_Slash,
		T_Identifier, T_Hash, T_Identifier, T_Colon, T_Dot, T_Identifier,
	}, kindsOf(toks))
	assert.Equal(t, ".L1", toks[len(toks)-1].Str)
	assert.Equal(t, T_Error, lexAll("a < b")[1].Kind)
}

func TestLexer_Statements(t *testing.T) {
	toks := lexAll("# full line comment\n  # indented comment\nnop; retl\n")
	require.Equal(t, []TokenKind{
		T_EndOfStatement, T_EndOfStatement, T_Identifier, T_EndOfStatement,
		T_Identifier, T_EndOfStatement,
	}, kindsOf(toks))
	assert.Equal(t, 3, toks[2].Loc.Line)
	assert.Equal(t, 6, toks[4].Loc.Col)
}

func TestLexer_UnLex(t *testing.T) {
	lex := NewLexer("%lo(x)")
	pct := lex.Tok()
	require.True(t, pct.Is(T_Percent))
	require.Equal(t, "lo", lex.Lex().Str)
	lex.UnLex(pct)
	require.True(t, lex.Is(T_Percent))
	require.Equal(t, "lo", lex.Peek().Str)
	require.True(t, lex.Is(T_Percent))
	require.Equal(t, "lo", lex.Lex().Str)
	require.True(t, lex.Lex().Is(T_LParen))
}
