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

package opts

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Options struct {
	CPU        string `yaml:"cpu"`
	Features   string `yaml:"features"`
	PIC        bool   `yaml:"pic"`
	RelocModel string `yaml:"reloc-model"`
	MaxErrors  int    `yaml:"max-errors"`
	StackAlign int    `yaml:"stack-align"`
	Peephole   bool   `yaml:"peephole"`
}

// Reloc is the effective relocation model name.
func (self *Options) Reloc() string {
	if self.RelocModel != "" {
		return self.RelocModel
	} else if self.PIC {
		return "pic"
	} else {
		return "static"
	}
}

// Validate checks the values that cannot be fixed up later.
func (self *Options) Validate() error {
	if self.MaxErrors < 0 {
		return errors.Errorf("invalid max-errors: %d", self.MaxErrors)
	} else if a := self.StackAlign; a <= 0 || a&(a-1) != 0 {
		return errors.Errorf("invalid stack-align: %d is not a power of 2", a)
	} else {
		return nil
	}
}

// Load overrides the options with the fields present in a YAML file.
// Fields missing from the file keep their current value.
func (self *Options) Load(path string) error {
	if buf, err := os.ReadFile(path); err != nil {
		return errors.Wrap(err, "load config")
	} else {
		return errors.WithMessage(self.Decode(buf), path)
	}
}

// Decode overrides the options with a YAML document.
func (self *Options) Decode(buf []byte) error {
	if err := yaml.Unmarshal(buf, self); err != nil {
		return errors.Wrap(err, "parse config")
	} else {
		return self.Validate()
	}
}

func GetDefaultOptions() Options {
	return Options{
		CPU:        CPU,
		Features:   Features,
		PIC:        PIC,
		MaxErrors:  MaxErrors,
		StackAlign: StackAlign,
		Peephole:   Peephole,
	}
}
