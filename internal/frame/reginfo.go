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
	"github.com/cloudwego/tinygpu/internal/regs"
)

var (
	reservedRegs = []regs.Reg{
		regs.Zero,
		regs.SP,
		regs.GP,
		regs.TP,
	}
	calleeSavedRegs = []regs.Reg{
		regs.S0, regs.S1,
		regs.S2, regs.S2 + 1, regs.S2 + 2, regs.S2 + 3, regs.S2 + 4,
		regs.S2 + 5, regs.S2 + 6, regs.S2 + 7, regs.S2 + 8, regs.S11,
	}
	temporaryRegs = []regs.Reg{
		regs.T0, regs.T1, regs.T2,
		regs.T3, regs.T3 + 1, regs.T3 + 2, regs.T6,
	}
	argumentRegs = []regs.Reg{
		regs.A0, regs.A1, regs.A2, regs.A3,
		regs.A4, regs.A5, regs.A6, regs.A7,
	}
)

// RegisterInfo describes the integer register file to the allocator and the
// frame lowering.
type RegisterInfo struct{}

func (RegisterInfo) ReservedRegs() []regs.Reg {
	return append([]regs.Reg(nil), reservedRegs...)
}

func (RegisterInfo) IsReserved(r regs.Reg) bool {
	return contains(reservedRegs, r)
}

// AllocationOrder lists the temporaries, then the arguments, then the saved
// registers.
func (RegisterInfo) AllocationOrder() []regs.Reg {
	ret := make([]regs.Reg, 0, len(temporaryRegs)+len(argumentRegs)+len(calleeSavedRegs))
	ret = append(ret, temporaryRegs...)
	ret = append(ret, argumentRegs...)
	ret = append(ret, calleeSavedRegs...)
	return ret
}

func (RegisterInfo) CalleeSavedRegs() []regs.Reg {
	return append([]regs.Reg(nil), calleeSavedRegs...)
}

func (RegisterInfo) IsCalleeSaved(r regs.Reg) bool {
	return contains(calleeSavedRegs, r)
}

// CallPreservedMask is the set of registers a call leaves intact.
func (self RegisterInfo) CallPreservedMask() []regs.Reg {
	return self.CalleeSavedRegs()
}

func (RegisterInfo) FrameRegister() regs.Reg {
	return regs.SP
}

func (RegisterInfo) RequiresRegisterScavenging() bool              { return true }
func (RegisterInfo) RequiresFrameIndexScavenging() bool            { return true }
func (RegisterInfo) RequiresFrameIndexReplacementScavenging() bool { return true }
func (RegisterInfo) TrackLivenessAfterRegAlloc() bool              { return true }

func contains(rs []regs.Reg, r regs.Reg) bool {
	for _, v := range rs {
		if v == r {
			return true
		}
	}
	return false
}
