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
	"fmt"

	"github.com/cloudwego/tinygpu/internal/mc"
)

// Diagnostic is a parse error attached to a source location.
type Diagnostic struct {
	File string
	Loc  mc.Loc
	Msg  string
}

func (self *Diagnostic) Error() string {
	if self.File == "" {
		return fmt.Sprintf("%s: error: %s", self.Loc, self.Msg)
	} else {
		return fmt.Sprintf("%s:%s: error: %s", self.File, self.Loc, self.Msg)
	}
}

const (
	errUnexpectedToken  = "unexpected token"
	errTooFewOperands   = "too few operands for instruction"
	errInvalidOperand   = "invalid operand for instruction"
	errMissingFeature   = "instruction requires a CPU feature not currently enabled"
	errInvalidMnemonic  = "invalid instruction mnemonic"
	errInvalidModifier  = "invalid operand modifier"
	errInvalidRegKind   = "invalid register kind for this operand"
	errExpectedLParen   = "expected '('"
	errExpectedConstant = "constant expression expected"
	errShiftOutOfRange  = "immediate shift value out of range"
	errASIPercent32     = "malformed ASI tag, must be a constant integer expression"
	errASIPercent       = "malformed ASI tag, must be %asi, a constant integer expression, or a named tag"
	errASIRange         = "invalid ASI number, must be between 0 and 255"
	errASIUnknown       = "unknown ASI tag"
	errPrefetchRange    = "invalid prefetch number, must be between 0 and 31"
	errPrefetchUnknown  = "unknown prefetch tag"
	errMembarRange      = "invalid membar mask number"
	errMembarUnknown    = "unknown membar tag"
	errModifierIdent    = "expected valid identifier for operand modifier"
	errSetRange         = "set: argument must be between -2147483648 and 4294967295"
	errUnknownDirective = "unknown directive"
	errExpectedRParen   = "expected ')' in parentheses expression"
	errUnknownExprToken = "unknown token in expression"
	errExpectedRegister = "expected register"
	errDirectiveToken   = "unexpected token in directive"
)
