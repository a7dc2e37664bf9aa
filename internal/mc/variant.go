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
	"fmt"
	"strings"
)

// VariantKind tags an expression with the relocation it is encoded with.
type VariantKind uint8

const (
	VK_None VariantKind = iota
	VK_LO
	VK_HI
	VK_H44
	VK_M44
	VK_L44
	VK_HH
	VK_HM
	VK_LM
	VK_PC22
	VK_PC10
	VK_GOT22
	VK_GOT10
	VK_GOT13
	VK_13
	VK_WDISP30
	VK_WPLT30
	VK_R_DISP32
	VK_TLS_GD_HI22
	VK_TLS_GD_LO10
	VK_TLS_GD_ADD
	VK_TLS_GD_CALL
	VK_TLS_LDM_HI22
	VK_TLS_LDM_LO10
	VK_TLS_LDM_ADD
	VK_TLS_LDM_CALL
	VK_TLS_LDO_HIX22
	VK_TLS_LDO_LOX10
	VK_TLS_LDO_ADD
	VK_TLS_IE_HI22
	VK_TLS_IE_LO10
	VK_TLS_IE_LD
	VK_TLS_IE_LDX
	VK_TLS_IE_ADD
	VK_TLS_LE_HIX22
	VK_TLS_LE_LOX10
	VK_HIX22
	VK_LOX10
	VK_GOTDATA_HIX22
	VK_GOTDATA_LOX10
	VK_GOTDATA_OP
	_VK_Count
)

// modifier names, as written after '%' in assembly text
var variantNames = [_VK_Count]string{
	VK_LO:            "lo",
	VK_HI:            "hi",
	VK_H44:           "h44",
	VK_M44:           "m44",
	VK_L44:           "l44",
	VK_HH:            "hh",
	VK_HM:            "hm",
	VK_LM:            "lm",
	VK_PC22:          "pc22",
	VK_PC10:          "pc10",
	VK_GOT22:         "got22",
	VK_GOT10:         "got10",
	VK_GOT13:         "got13",
	VK_R_DISP32:      "r_disp32",
	VK_TLS_GD_HI22:   "tgd_hi22",
	VK_TLS_GD_LO10:   "tgd_lo10",
	VK_TLS_GD_ADD:    "tgd_add",
	VK_TLS_GD_CALL:   "tgd_call",
	VK_TLS_LDM_HI22:  "tldm_hi22",
	VK_TLS_LDM_LO10:  "tldm_lo10",
	VK_TLS_LDM_ADD:   "tldm_add",
	VK_TLS_LDM_CALL:  "tldm_call",
	VK_TLS_LDO_HIX22: "tldo_hix22",
	VK_TLS_LDO_LOX10: "tldo_lox10",
	VK_TLS_LDO_ADD:   "tldo_add",
	VK_TLS_IE_HI22:   "tie_hi22",
	VK_TLS_IE_LO10:   "tie_lo10",
	VK_TLS_IE_LD:     "tie_ld",
	VK_TLS_IE_LDX:    "tie_ldx",
	VK_TLS_IE_ADD:    "tie_add",
	VK_TLS_LE_HIX22:  "tle_hix22",
	VK_TLS_LE_LOX10:  "tle_lox10",
	VK_HIX22:         "hix",
	VK_LOX10:         "lox",
	VK_GOTDATA_HIX22: "gdop_hix22",
	VK_GOTDATA_LOX10: "gdop_lox10",
	VK_GOTDATA_OP:    "gdop",
}

var variantsByName = map[string]VariantKind{
	"uhi": VK_HH,
	"ulo": VK_HM,
}

func init() {
	for vk, name := range variantNames {
		if name != "" {
			variantsByName[name] = VariantKind(vk)
		}
	}
}

// ParseVariantKind maps a modifier name to its kind, VK_None when unknown.
func ParseVariantKind(name string) VariantKind {
	return variantsByName[name]
}

// Name returns the modifier spelling, empty for the kinds printed bare.
func (self VariantKind) Name() string {
	if self < _VK_Count {
		return variantNames[self]
	} else {
		return ""
	}
}

func (self VariantKind) String() string {
	switch {
	case self == VK_None:
		return "VK_None"
	case self == VK_13:
		return "VK_13"
	case self == VK_WDISP30:
		return "VK_WDISP30"
	case self == VK_WPLT30:
		return "VK_WPLT30"
	case self < _VK_Count:
		return "VK_" + strings.ToUpper(variantNames[self])
	default:
		return fmt.Sprintf("VariantKind(%d)", self)
	}
}

// IsTailReloc reports whether the kind may only appear as a trailing
// relocation operand and never inside a regular operand.
func (self VariantKind) IsTailReloc() bool {
	switch self {
	case VK_GOTDATA_OP:
		return true
	case VK_TLS_GD_ADD, VK_TLS_GD_CALL, VK_TLS_IE_ADD, VK_TLS_IE_LD, VK_TLS_IE_LDX:
		return true
	case VK_TLS_LDM_ADD, VK_TLS_LDM_CALL, VK_TLS_LDO_ADD:
		return true
	default:
		return false
	}
}

// GOTSymbol names the global offset table.
const GOTSymbol = "_GLOBAL_OFFSET_TABLE_"

// AdjustPIC rewrites %lo and %hi for position independent code. References to
// the global offset table become PC relative, everything else goes through it.
func AdjustPIC(kind VariantKind, sub Expr, pic bool) VariantKind {
	if !pic {
		return kind
	}

	/* only %lo and %hi are affected */
	switch kind {
	case VK_LO:
		if sub.HasSymbol(GOTSymbol) {
			return VK_PC10
		} else {
			return VK_GOT10
		}
	case VK_HI:
		if sub.HasSymbol(GOTSymbol) {
			return VK_PC22
		} else {
			return VK_GOT22
		}
	default:
		return kind
	}
}

// Context creates variant expressions for one assembly or compilation unit.
type Context struct {
	PIC bool
}

// Variant wraps sub with kind, applying the PIC adjustment exactly once.
func (self *Context) Variant(kind VariantKind, sub Expr) Expr {
	return Wrap(AdjustPIC(kind, sub, self.PIC), sub)
}
