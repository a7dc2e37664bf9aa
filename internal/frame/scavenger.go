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

package frame

import (
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regalloc"
	"github.com/cloudwego/tinygpu/internal/regs"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// Scavenge finds a register that can be clobbered right before instruction
// idx of bb: one that is neither live there nor referenced by the
// instruction. Callee-saved registers are never handed out.
func (self RegisterInfo) Scavenge(mf *mir.Function, bb *mir.Block, idx int) regs.Reg {
	var ins *mir.Instr
	live := regalloc.LiveAt(mf, bb, idx)

	/* the instruction itself, if any */
	if idx < len(bb.Instrs) {
		ins = bb.Instrs[idx]
	}

	/* first usable register in allocation order */
	for _, r := range self.AllocationOrder() {
		if !live[r] && !self.IsCalleeSaved(r) && (ins == nil || !ins.Refers(r)) {
			return r
		}
	}

	/* everything is taken */
	utils.Fatal("frame: no register available for scavenging")
	return regs.NoReg
}
