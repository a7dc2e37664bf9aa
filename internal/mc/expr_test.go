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

package mc

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/chenzhuoyu/iasm/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr_Evaluate(t *testing.T) {
	v, ok := Binary(expr.ADD, Const(3), Binary(expr.SHL, Const(1), Const(4))).Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(19), v)
	_, ok = Binary(expr.ADD, Sym("foo"), Const(1)).Evaluate()
	assert.False(t, ok)
	_, ok = Wrap(VK_LO, Const(1)).Evaluate()
	assert.False(t, ok)
	_, ok = Binary(expr.DIV, Const(1), Const(0)).Evaluate()
	assert.False(t, ok)
}

func TestExpr_Fold(t *testing.T) {
	e := Unary(expr.NEG, Binary(expr.MUL, Const(2), Const(3))).Fold()
	assert.Equal(t, "-6", e.String())
	s := Binary(expr.ADD, Sym("x"), Const(1))
	assert.True(t, Equal(s, s.Fold()))
}

func TestExpr_String(t *testing.T) {
	e := Binary(expr.MUL, Binary(expr.ADD, Sym("foo"), Const(4)), Const(2))
	assert.Equal(t, "(foo+4)*2", e.String())
	assert.Equal(t, "%hi(foo)", Wrap(VK_HI, Sym("foo")).String())
	assert.Equal(t, "%got13(foo)", Wrap(VK_GOT13, Sym("foo")).String())
	assert.Equal(t, "foo+4", Wrap(VK_13, Binary(expr.ADD, Sym("foo"), Const(4))).String())
	assert.Equal(t, "bar", Wrap(VK_WDISP30, Sym("bar")).String())
	assert.Equal(t, "bar", Wrap(VK_WPLT30, Sym("bar")).String())
	assert.Equal(t, "~x", Unary(expr.NOT, Sym("x")).String())
}

func TestExpr_HasSymbol(t *testing.T) {
	got := Binary(expr.SUB, Sym(GOTSymbol), Unary(expr.NEG, Sym("x")))
	assert.True(t, got.HasSymbol(GOTSymbol))
	assert.True(t, got.HasSymbol("x"))
	assert.True(t, Wrap(VK_LO, got).HasSymbol(GOTSymbol))
	assert.False(t, Const(1).HasSymbol(GOTSymbol))
}

func TestExpr_Equal(t *testing.T) {
	gofakeit.Seed(0)
	for i := 0; i < 100; i++ {
		name := gofakeit.Regex("[a-z_][a-z0-9_]{0,15}")
		a := Wrap(VK_LO, Binary(expr.ADD, Sym(name), Const(int64(i))))
		b := Wrap(VK_LO, Binary(expr.ADD, Sym(name), Const(int64(i))))
		require.True(t, Equal(a, b), name)
		require.False(t, Equal(a, Wrap(VK_HI, Binary(expr.ADD, Sym(name), Const(int64(i))))), name)
		require.False(t, Equal(a, Wrap(VK_LO, Binary(expr.ADD, Sym(name+"_"), Const(int64(i))))), name)
	}
}

func TestVariant_Parse(t *testing.T) {
	assert.Equal(t, VK_HH, ParseVariantKind("uhi"))
	assert.Equal(t, VK_HM, ParseVariantKind("ulo"))
	assert.Equal(t, VK_GOTDATA_OP, ParseVariantKind("gdop"))
	assert.Equal(t, VK_TLS_LE_LOX10, ParseVariantKind("tle_lox10"))
	assert.Equal(t, VK_None, ParseVariantKind("nope"))
	for vk := VK_LO; vk < _VK_Count; vk++ {
		if name := vk.Name(); name != "" {
			assert.Equal(t, vk, ParseVariantKind(name), name)
		}
	}
}

func TestVariant_AdjustPIC(t *testing.T) {
	sym := Sym("foo")
	got := Binary(expr.ADD, Sym(GOTSymbol), Const(4))
	assert.Equal(t, VK_LO, AdjustPIC(VK_LO, sym, false))
	assert.Equal(t, VK_GOT10, AdjustPIC(VK_LO, sym, true))
	assert.Equal(t, VK_GOT22, AdjustPIC(VK_HI, sym, true))
	assert.Equal(t, VK_PC10, AdjustPIC(VK_LO, got, true))
	assert.Equal(t, VK_PC22, AdjustPIC(VK_HI, got, true))
	assert.Equal(t, VK_HH, AdjustPIC(VK_HH, sym, true))

	ctx := &Context{PIC: true}
	v, ok := ctx.Variant(VK_HI, sym).Variant()
	require.True(t, ok)
	assert.Equal(t, VK_GOT22, v.Kind)
}
