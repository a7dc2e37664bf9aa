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

package mir

import (
	"github.com/cloudwego/tinygpu/internal/regs"
)

// FrameObject is a stack object. Offset is relative to the stack pointer
// after the prologue, and is only valid once the frame has been laid out.
type FrameObject struct {
	Size   int
	Align  int
	Offset int
	Spill  bool
}

type CalleeSavedInfo struct {
	Reg        regs.Reg
	FrameIndex int
}

type FrameInfo struct {
	Objects     []FrameObject
	StackSize   int
	HasCalls    bool
	CalleeSaved []CalleeSavedInfo
}

func (self *FrameInfo) create(size int, align int, spill bool) int {
	if align <= 0 {
		align = 1
	}
	self.Objects = append(self.Objects, FrameObject{Size: size, Align: align, Spill: spill})
	return len(self.Objects) - 1
}

// CreateStackObject adds a local object and returns its frame index.
func (self *FrameInfo) CreateStackObject(size int, align int) int {
	return self.create(size, align, false)
}

// CreateSpillObject adds a register save slot and returns its frame index.
func (self *FrameInfo) CreateSpillObject(size int, align int) int {
	return self.create(size, align, true)
}

func (self *FrameInfo) ObjectOffset(fi int) int {
	return self.Objects[fi].Offset
}

func (self *FrameInfo) MaxAlign() int {
	ret := 1
	for _, v := range self.Objects {
		if v.Align > ret {
			ret = v.Align
		}
	}
	return ret
}
