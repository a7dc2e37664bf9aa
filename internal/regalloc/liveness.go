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

package regalloc

import (
	"github.com/oleiade/lane"

	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/regs"
)

type _InstrRef struct {
	bb *mir.Block
	i  int
}

// LiveAt returns the physical registers live right before instruction idx of
// bb, computed by a backward walk from the end of the function. Blocks fall
// through in layout order.
func LiveAt(mf *mir.Function, bb *mir.Block, idx int) map[regs.Reg]bool {
	st := lane.NewStack()
	live := make(map[regs.Reg]bool)

	/* push everything from the target instruction onwards */
	found := false
	for _, b := range mf.Blocks {
		for i := range b.Instrs {
			if b == bb && i == idx {
				found = true
			}
			if found {
				st.Push(_InstrRef{b, i})
			}
		}
	}

	/* before the end of a block, or an empty function */
	if !found {
		return live
	}

	/* walk backwards */
	for !st.Empty() {
		ref := st.Pop().(_InstrRef)
		transfer(live, ref.bb.Instrs[ref.i])
	}
	return live
}

func transfer(live map[regs.Reg]bool, ins *mir.Instr) {
	for _, r := range ins.Definitions() {
		delete(live, *r)
	}

	/* calls clobber everything the mask does not preserve */
	if mask, ok := ins.RegMask(); ok {
		for r := range live {
			if !mask.Preserves(r) {
				delete(live, r)
			}
		}
	}

	/* uses become live */
	for _, r := range ins.Usages() {
		if (*r).IsPhysical() && *r != regs.R0 {
			live[*r] = true
		}
	}
}
