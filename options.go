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

package tinygpu

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/cloudwego/tinygpu/internal/opts"
	"github.com/cloudwego/tinygpu/internal/target"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithCPU selects the CPU, "generic" or "tinygpu64".
//
// The default value of this option is "generic".
func WithCPU(cpu string) Option {
	if _, err := target.NewSubtarget(cpu, ""); err != nil {
		panic("tinygpu: " + err.Error())
	} else {
		return func(o *opts.Options) { o.CPU = cpu }
	}
}

// WithFeatures sets the feature string applied on top of the CPU defaults,
// such as "+64bit,-coproc".
func WithFeatures(fs string) Option {
	if _, err := target.ParseFeatures(0, fs); err != nil {
		panic("tinygpu: " + err.Error())
	} else {
		return func(o *opts.Options) { o.Features = fs }
	}
}

// WithPIC selects position-independent code. An explicit relocation model
// set by WithRelocModel takes precedence.
func WithPIC(pic bool) Option {
	return func(o *opts.Options) { o.PIC = pic }
}

// WithRelocModel sets the relocation model, "static" or "pic".
func WithRelocModel(name string) Option {
	if _, err := target.ParseRelocModel(name); err != nil {
		panic("tinygpu: " + err.Error())
	} else {
		return func(o *opts.Options) { o.RelocModel = name }
	}
}

// WithMaxErrors sets how many diagnostics Assemble collects before giving
// up. Set this option to "0" to collect all of them.
//
// The default value of this option is "20".
func WithMaxErrors(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tinygpu: invalid error limit: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxErrors = n }
	}
}

// WithStackAlign sets the stack frame alignment in bytes.
//
// The default value of this option is "4".
func WithStackAlign(align int) Option {
	if align <= 0 || align&(align-1) != 0 {
		panic(fmt.Sprintf("tinygpu: invalid stack alignment: %d", align))
	} else {
		return func(o *opts.Options) { o.StackAlign = align }
	}
}

// WithPeephole enables or disables the peephole rewrites on the selection
// graph.
func WithPeephole(enabled bool) Option {
	return func(o *opts.Options) { o.Peephole = enabled }
}

// WithConfigFile reads a YAML configuration file. Only the fields present in
// the file override the other options, in the order the options are given.
func WithConfigFile(path string) (Option, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	/* check it once against the defaults */
	probe := opts.GetDefaultOptions()
	if err = probe.Decode(buf); err != nil {
		return nil, errors.WithMessage(err, path)
	}

	/* the document is known to be valid now */
	return func(o *opts.Options) { _ = o.Decode(buf) }, nil
}

// SetMaxErrors sets the default diagnostic limit from now on.
//
// This value can also be configured with the `TINYGPU_MAX_ERRORS`
// environment variable.
//
// Returns the old opts.MaxErrors value.
func SetMaxErrors(n int) int {
	n, opts.MaxErrors = opts.MaxErrors, n
	return n
}

// SetDefaultCPU sets the default CPU from now on.
//
// This value can also be configured with the `TINYGPU_CPU` environment
// variable.
//
// Returns the old opts.CPU value.
func SetDefaultCPU(cpu string) string {
	cpu, opts.CPU = opts.CPU, cpu
	return cpu
}

func newOptions(options []Option) opts.Options {
	ret := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&ret)
	}
	return ret
}
