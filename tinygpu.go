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

// Package tinygpu is a code generator for the TinyGPU architecture. It
// lowers selection graphs to TinyGPU assembly and parses TinyGPU assembly.
package tinygpu

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cloudwego/tinygpu/internal/asm"
	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/isel"
	"github.com/cloudwego/tinygpu/internal/target"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// Assemble parses the assembly source src. The returned error lists every
// diagnostic found, see Diagnostics.
func Assemble(name string, src string, options ...Option) (*asm.Program, error) {
	o := newOptions(options)
	tm, err := target.NewTargetMachine(o)
	if err != nil {
		return nil, err
	}

	/* the default subtarget always exists */
	st, err := tm.SubtargetFor("", "")
	if err != nil {
		return nil, err
	}

	/* parse the whole file */
	as := &asm.Assembler{
		Features:  st.Features,
		PIC:       tm.Reloc == target.PIC,
		MaxErrors: o.MaxErrors,
	}
	return as.Assemble(name, src)
}

// Compile generates the assembly of fn. The graph of fn is created empty and
// filled by build, which must set the graph root.
//
// Lowering failures are returned as errors, and no code is produced for fn.
func Compile(fn *dag.Function, build func(*isel.Lowering, *dag.Graph), options ...Option) (string, error) {
	tm, err := target.NewTargetMachine(newOptions(options))
	if err != nil {
		return "", err
	}

	/* compile the function */
	if text, err := compile(tm, fn, build); err != nil {
		return "", errors.Wrapf(err, "compile %s", fn.Name)
	} else {
		return text, nil
	}
}

func compile(tm *target.TargetMachine, fn *dag.Function, build func(*isel.Lowering, *dag.Graph)) (text string, err error) {
	u, err := tm.NewUnit(fn)
	if err != nil {
		return "", err
	}

	/* lowering errors panic until here */
	defer utils.RecoverFatal(&err)
	build(u.Lowering, u.Graph)
	u.Run()
	text = u.Emit().String()

	/* all done */
	if glog.V(1) {
		glog.Infof("tinygpu: compiled %s on %s, %d bytes of frame", fn.Name, u.Target, u.MF.Frame.StackSize)
	}
	return text, nil
}
