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
	"strings"

	"github.com/cloudwego/tinygpu/internal/regs"
)

// Print renders an instruction as assembly text. Codegen pseudos have no
// spelling and are dumped instead.
func Print(inst *Inst) string {
	desc := inst.Op.Desc()
	if desc.Pseudo {
		return inst.Dump()
	}

	sb := new(strings.Builder)
	sb.WriteString(desc.Mnemonic)
	text := desc.Text(inst.Operands)
	prev := OperandClass{}
	first := true

	/* emit operands in text order */
	for i, cls := range desc.Operands {
		if i == 0 && cls.IsTok("a") {
			sb.WriteString(",a")
			continue
		}

		/* separator */
		switch {
		case first:
			sb.WriteByte(' ')
		case prev.IsTok("["), cls.IsTok("]"):
			/* tight */
		case prev.IsTok("+"), cls.IsTok("+"):
			sb.WriteByte(' ')
		case prev.IsTok("]") && (cls.Kind == ClsASITag || cls.IsTok("%asi")):
			sb.WriteByte(' ')
		default:
			sb.WriteString(", ")
		}

		/* operand body */
		switch cls.Kind {
		case ClsToken:
			sb.WriteString(cls.Tok)
		case ClsMEMrr:
			printMEMrr(sb, text[i])
		case ClsMEMri:
			printMEMri(sb, text[i])
		default:
			sb.WriteString(text[i][0].String())
		}

		prev = cls
		first = false
	}
	return sb.String()
}

func printMEMrr(sb *strings.Builder, ops []Operand) {
	sb.WriteString(ops[0].String())
	if off := ops[1].Reg(); off != regs.R0 {
		sb.WriteByte('+')
		sb.WriteString(off.String())
	}
}

func printMEMri(sb *strings.Builder, ops []Operand) {
	sb.WriteString(ops[0].String())
	if ops[1].IsImm() && ops[1].Imm() < 0 {
		sb.WriteString(ops[1].String())
	} else {
		sb.WriteByte('+')
		sb.WriteString(ops[1].String())
	}
}
