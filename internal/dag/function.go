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

package dag

// ParamFlags tells how a narrow argument is extended.
type ParamFlags uint8

const (
	FlagNone ParamFlags = iota
	FlagSExt
	FlagZExt
)

// Param describes one formal argument or return value.
type Param struct {
	VT    ValueType
	Flags ParamFlags
}

// StackObject is a fixed-size object in the frame of the function.
type StackObject struct {
	Size  int
	Align int
}

// Function is the signature and shape of the function being compiled.
// CPU and Features override the target defaults when not empty.
type Function struct {
	Name         string
	CPU          string
	Features     string
	Params       []Param
	Ret          []Param
	Blocks       []string
	StackObjects []StackObject
}

// EntryBlock returns the name of the first block.
func (self *Function) EntryBlock() string {
	if len(self.Blocks) == 0 {
		return "entry"
	} else {
		return self.Blocks[0]
	}
}

// Initializer is the constant value of a global.
type Initializer interface {
	isInitializer()
}

type (
	ConstInt struct {
		Value int64
	}

	// ConstCast is a bitcast-style constant expression that does not change
	// the value.
	ConstCast struct {
		Of Initializer
	}

	// ConstBlockAddress is the address of a block inside a function.
	ConstBlockAddress struct {
		Func  string
		Block string
	}
)

func (ConstInt) isInitializer()          {}
func (ConstCast) isInitializer()         {}
func (ConstBlockAddress) isInitializer() {}

// StripCasts unwraps every ConstCast around c.
func StripCasts(c Initializer) Initializer {
	for {
		if v, ok := c.(ConstCast); !ok {
			return c
		} else {
			c = v.Of
		}
	}
}

// Global is a global variable or function.
type Global struct {
	Name        string
	IsFunction  bool
	Initializer Initializer
}

// Func returns a global describing a function.
func Func(name string) *Global {
	return &Global{Name: name, IsFunction: true}
}

// Var returns a global variable with the given initializer.
func Var(name string, init Initializer) *Global {
	return &Global{Name: name, Initializer: init}
}
