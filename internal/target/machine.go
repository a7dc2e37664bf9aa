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
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/opts"
)

// TargetMachine holds the target-wide settings and a cache of subtargets
// keyed by CPU and feature string.
type TargetMachine struct {
	CPU        string
	FS         string
	Reloc      RelocModel
	Layout     *DataLayout
	StackAlign int
	Peephole   bool
	lock       sync.Mutex
	subtargets map[_SubtargetKey]*Subtarget
}

type _SubtargetKey struct {
	cpu string
	fs  string
}

func (self _SubtargetKey) String() string {
	if self.fs == "" {
		return self.cpu
	} else {
		return self.cpu + ":" + self.fs
	}
}

// NewTargetMachine creates a target machine and checks that its default
// subtarget exists.
func NewTargetMachine(o opts.Options) (*TargetMachine, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	/* relocation model */
	rm, err := ParseRelocModel(o.Reloc())
	if err != nil {
		return nil, err
	}

	/* the layout is fixed, it must always parse */
	dl, err := ParseDataLayout(ComputeDataLayout())
	if err != nil {
		panic("target: invalid data layout: " + err.Error())
	}

	/* create the machine */
	ret := &TargetMachine{
		CPU:        o.CPU,
		FS:         o.Features,
		Reloc:      rm,
		Layout:     dl,
		StackAlign: o.StackAlign,
		Peephole:   o.Peephole,
		subtargets: make(map[_SubtargetKey]*Subtarget),
	}

	/* check the default subtarget */
	if _, err = ret.SubtargetFor("", ""); err != nil {
		return nil, errors.Wrap(err, "default subtarget")
	} else {
		return ret, nil
	}
}

// SubtargetFor returns the subtarget for a function, creating it on first
// use. Empty values fall back to the machine defaults.
func (self *TargetMachine) SubtargetFor(cpu string, fs string) (*Subtarget, error) {
	if cpu == "" {
		cpu = self.CPU
	}
	if fs == "" {
		fs = self.FS
	}

	/* lookup the cache */
	key := _SubtargetKey{cpu, fs}
	self.lock.Lock()
	defer self.lock.Unlock()

	/* create if not exists */
	if st, ok := self.subtargets[key]; ok {
		return st, nil
	} else if st, err := NewSubtarget(cpu, fs); err != nil {
		return nil, err
	} else {
		if glog.V(2) {
			glog.Infof("target: new subtarget %s", st)
		}
		self.subtargets[key] = st
		return st, nil
	}
}

// Subtarget returns the subtarget selected by the function attributes.
func (self *TargetMachine) Subtarget(fn *dag.Function) (*Subtarget, error) {
	return self.SubtargetFor(fn.CPU, fn.Features)
}

// CachedSubtargets lists the keys of the subtarget cache, sorted.
func (self *TargetMachine) CachedSubtargets() []string {
	self.lock.Lock()
	defer self.lock.Unlock()
	ret := make([]string, 0, len(self.subtargets))
	for _, k := range maps.Keys(self.subtargets) {
		ret = append(ret, k.String())
	}
	slices.Sort(ret)
	return ret
}

// Context creates the MC context of one compilation unit.
func (self *TargetMachine) Context() *mc.Context {
	return &mc.Context{PIC: self.Reloc == PIC}
}
