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
)

// ValueType is the type of one result of a node.
type ValueType uint8

const (
	VT_None ValueType = iota
	VT_i1
	VT_i8
	VT_i16
	VT_i32
	VT_i64
	VT_f32
	VT_Other
	VT_Glue
)

var valueTypeNames = [...]string{
	VT_None:  "none",
	VT_i1:    "i1",
	VT_i8:    "i8",
	VT_i16:   "i16",
	VT_i32:   "i32",
	VT_i64:   "i64",
	VT_f32:   "f32",
	VT_Other: "ch",
	VT_Glue:  "glue",
}

func (self ValueType) String() string {
	if int(self) < len(valueTypeNames) {
		return valueTypeNames[self]
	} else {
		return fmt.Sprintf("ValueType(%d)", self)
	}
}

// Bits is the width of the type, 0 for the non-value types.
func (self ValueType) Bits() int {
	switch self {
	case VT_i1:
		return 1
	case VT_i8:
		return 8
	case VT_i16:
		return 16
	case VT_i32, VT_f32:
		return 32
	case VT_i64:
		return 64
	default:
		return 0
	}
}

func (self ValueType) IsInteger() bool {
	return self >= VT_i1 && self <= VT_i64
}

// CondCode is the predicate of a SetCC node.
type CondCode uint8

const (
	CC_None CondCode = iota
	SETEQ
	SETNE
	SETLT
	SETLE
	SETGT
	SETGE
	SETULT
	SETULE
	SETUGT
	SETUGE
)

var condCodeNames = [...]string{
	CC_None: "none",
	SETEQ:   "seteq",
	SETNE:   "setne",
	SETLT:   "setlt",
	SETLE:   "setle",
	SETGT:   "setgt",
	SETGE:   "setge",
	SETULT:  "setult",
	SETULE:  "setule",
	SETUGT:  "setugt",
	SETUGE:  "setuge",
}

func (self CondCode) String() string {
	if int(self) < len(condCodeNames) {
		return condCodeNames[self]
	} else {
		return fmt.Sprintf("CondCode(%d)", self)
	}
}

// sext sign-extends the low bits of v.
func sext(v int64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return v
	} else {
		return v << (64 - bits) >> (64 - bits)
	}
}

// zext zero-extends the low bits of v.
func zext(v int64, bits int) uint64 {
	if bits <= 0 || bits >= 64 {
		return uint64(v)
	} else {
		return uint64(v) & (1<<bits - 1)
	}
}

// compare evaluates cc over two values of the given width.
func compare(cc CondCode, a int64, b int64, bits int) bool {
	sa, sb := sext(a, bits), sext(b, bits)
	ua, ub := zext(a, bits), zext(b, bits)
	switch cc {
	case SETEQ:
		return ua == ub
	case SETNE:
		return ua != ub
	case SETLT:
		return sa < sb
	case SETLE:
		return sa <= sb
	case SETGT:
		return sa > sb
	case SETGE:
		return sa >= sb
	case SETULT:
		return ua < ub
	case SETULE:
		return ua <= ub
	case SETUGT:
		return ua > ub
	case SETUGE:
		return ua >= ub
	default:
		panic("dag: invalid condition code " + cc.String())
	}
}
