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

package isel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/tinygpu/internal/dag"
	"github.com/cloudwego/tinygpu/internal/mir"
	"github.com/cloudwego/tinygpu/internal/utils"
)

func newLowering(name string, params ...dag.ValueType) *Lowering {
	fn := &dag.Function{Name: name}
	for _, vt := range params {
		fn.Params = append(fn.Params, dag.Param{VT: vt})
	}
	return NewLowering(dag.NewGraph(fn), mir.NewFunction(name))
}

func fatal(t *testing.T, fn func()) string {
	var err error
	func() {
		defer utils.RecoverFatal(&err)
		fn()
	}()
	require.Error(t, err)
	return err.Error()
}

func listing(bb *mir.Block) []string {
	ret := make([]string, 0, len(bb.Instrs))
	for _, v := range bb.Instrs {
		ret = append(ret, v.String())
	}
	return ret
}
