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

package target

import (
	"fmt"

	"github.com/cloudwego/tinygpu/internal/regs"
)

// GCCRegAlias maps inline-assembly register spellings to a register name.
type GCCRegAlias struct {
	Aliases  []string
	Register string
}

const numGCCRegs = 16

var gccAliasNames = [numGCCRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
}

// GCCRegNames are the register names accepted in inline assembly.
var GCCRegNames = func() []string {
	ret := make([]string, numGCCRegs)
	for i := range ret {
		ret[i] = fmt.Sprintf("R%d", i)
	}
	return ret
}()

// GCCRegAliases resolves every ABI alias through the register table.
var GCCRegAliases = func() []GCCRegAlias {
	ret := make([]GCCRegAlias, 0, numGCCRegs)
	for _, name := range gccAliasNames {
		if r, kind, ok := regs.Match(name); !ok || kind != regs.IntReg {
			panic("target: invalid register alias " + name)
		} else {
			ret = append(ret, GCCRegAlias{Aliases: []string{name}, Register: GCCRegNames[r.Index()]})
		}
	}
	return ret
}()

// Defines returns the predefined macros of the target.
func Defines() map[string]string {
	return map[string]string{
		"__TINY_GPU__": "1",
	}
}
