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
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// RelocModel selects how symbol addresses are materialized.
type RelocModel uint8

const (
	Static RelocModel = iota
	PIC
)

func (self RelocModel) String() string {
	switch self {
	case Static:
		return "static"
	case PIC:
		return "pic"
	default:
		return "RelocModel(?)"
	}
}

// ParseRelocModel parses a relocation model name, an empty name being Static.
func ParseRelocModel(name string) (RelocModel, error) {
	switch strings.ToLower(name) {
	case "", "static":
		return Static, nil
	case "pic":
		return PIC, nil
	default:
		return 0, utils.EUnknown("reloc-model", name)
	}
}

const (
	DefaultCPU = "generic"
)

var cpuFeatures = map[string]mc.Feature{
	"generic":   mc.FeatureCoproc,
	"tinygpu64": mc.Feature64Bit | mc.FeatureCoproc,
}

// CPUs lists the known CPU names, sorted.
func CPUs() []string {
	ret := maps.Keys(cpuFeatures)
	slices.Sort(ret)
	return ret
}

// Subtarget is one CPU together with its effective feature set.
type Subtarget struct {
	CPU      string
	FS       string
	Features mc.Feature
}

// NewSubtarget resolves cpu and applies the feature string fs on top of the
// CPU defaults.
func NewSubtarget(cpu string, fs string) (*Subtarget, error) {
	if cpu == "" {
		cpu = DefaultCPU
	}

	/* CPU defaults */
	base, ok := cpuFeatures[cpu]
	if !ok {
		return nil, utils.EUnknown("cpu", cpu)
	}

	/* then the feature string */
	feat, err := ParseFeatures(base, fs)
	if err != nil {
		return nil, err
	}
	return &Subtarget{CPU: cpu, FS: fs, Features: feat}, nil
}

// ParseFeatures applies a "+f,-f" feature string to base.
func ParseFeatures(base mc.Feature, fs string) (mc.Feature, error) {
	for _, item := range strings.Split(fs, ",") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}

		/* must be signed */
		sign, name := item[0], strings.ToLower(item[1:])
		if sign != '+' && sign != '-' {
			return 0, utils.EConfig("feature", item, "must start with + or -")
		}

		/* must be known */
		f, ok := mc.FeatureNames[name]
		if !ok {
			return 0, utils.EUnknown("feature", name)
		}

		/* enable or disable */
		if sign == '+' {
			base |= f
		} else {
			base &^= f
		}
	}
	return base, nil
}

func (self *Subtarget) Is64Bit() bool {
	return self.Features.Has(mc.Feature64Bit)
}

func (self *Subtarget) HasCoproc() bool {
	return self.Features.Has(mc.FeatureCoproc)
}

func (self *Subtarget) String() string {
	return self.CPU + "[" + self.Features.String() + "]"
}
