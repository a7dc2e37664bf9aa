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
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/cloudwego/tinygpu/internal/asm"
	"github.com/cloudwego/tinygpu/internal/utils"
)

// Diagnostic is an assembly error at a source location.
type Diagnostic = asm.Diagnostic

// ConfigError occurs when an option names an unknown CPU, feature or
// relocation model, or has an invalid value.
type ConfigError = utils.ConfigError

// Diagnostics returns every diagnostic carried by an error from Assemble.
func Diagnostics(err error) []*Diagnostic {
	var me *multierror.Error
	var diag *Diagnostic

	/* a single diagnostic */
	if !errors.As(err, &me) {
		if errors.As(err, &diag) {
			return []*Diagnostic{diag}
		} else {
			return nil
		}
	}

	/* or a list of them */
	ret := make([]*Diagnostic, 0, me.Len())
	for _, e := range me.WrappedErrors() {
		if errors.As(e, &diag) {
			ret = append(ret, diag)
		}
	}
	return ret
}

// IsFatal reports whether err is a lowering failure returned by Compile.
func IsFatal(err error) bool {
	var fe *utils.FatalError
	return errors.As(err, &fe)
}
