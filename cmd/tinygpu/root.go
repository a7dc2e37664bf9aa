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

package main

import (
	"flag"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudwego/tinygpu"
	"github.com/cloudwego/tinygpu/internal/opts"
)

type globalFlags struct {
	config    string
	cpu       string
	features  string
	pic       bool
	maxErrors int
	verbose   int
	cmd       *cobra.Command
}

// load merges the defaults, the config file and the flags given on the
// command line, in that order.
func (self *globalFlags) load() (opts.Options, error) {
	ret := opts.GetDefaultOptions()
	if self.config != "" {
		if err := ret.Load(self.config); err != nil {
			return ret, err
		}
	}

	/* explicit flags win */
	fs := self.cmd.PersistentFlags()
	if fs.Changed("cpu") {
		ret.CPU = self.cpu
	}
	if fs.Changed("features") {
		ret.Features = self.features
	}
	if fs.Changed("pic") {
		ret.PIC = self.pic
	}
	if fs.Changed("max-errors") {
		ret.MaxErrors = self.maxErrors
	}
	return ret, ret.Validate()
}

// options wraps the merged options for the tinygpu package.
func (self *globalFlags) options() ([]tinygpu.Option, error) {
	if o, err := self.load(); err != nil {
		return nil, err
	} else {
		return []tinygpu.Option{func(p *opts.Options) { *p = o }}, nil
	}
}

func newTinyGPUCmd() *cobra.Command {
	g := new(globalFlags)
	cmd := &cobra.Command{
		Use:          "tinygpu",
		Short:        "TinyGPU assembler and target tool",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose > 0 {
				_ = flag.Set("logtostderr", "true")
				_ = flag.Set("v", strconv.Itoa(g.verbose))
			}
		},
	}

	/* flags shared by every command */
	g.cmd = cmd
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "Load the target configuration from a YAML file")
	pf.StringVar(&g.cpu, "cpu", opts.CPU, "Target CPU (generic, tinygpu64)")
	pf.StringVar(&g.features, "features", opts.Features, "Target features, such as +64bit,-coproc")
	pf.BoolVar(&g.pic, "pic", opts.PIC, "Generate position-independent code")
	pf.IntVar(&g.maxErrors, "max-errors", opts.MaxErrors, "Stop after this many errors per file, 0 for no limit")
	pf.IntVarP(&g.verbose, "verbose", "v", 0, "Enable verbose logging (e.g., v=3)")

	/* sub-commands */
	cmd.AddCommand(newAsmCmd(g))
	cmd.AddCommand(newExpandCmd(g))
	cmd.AddCommand(newTargetCmd(g))
	return cmd
}
