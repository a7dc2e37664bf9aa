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
	"strconv"
)

const (
	_DefaultCPU        = "generic"
	_DefaultMaxErrors  = 20 // stop reporting after 20 diagnostics
	_DefaultStackAlign = 4
)

var (
	CPU        = stringOrDefault("TINYGPU_CPU", _DefaultCPU)
	Features   = stringOrDefault("TINYGPU_FEATURES", "")
	PIC        = boolOrDefault("TINYGPU_PIC", false)
	MaxErrors  = parseOrDefault("TINYGPU_MAX_ERRORS", _DefaultMaxErrors, 0)
	StackAlign = parseOrDefault("TINYGPU_STACK_ALIGN", _DefaultStackAlign, 1)
	Peephole   = boolOrDefault("TINYGPU_PEEPHOLE", true)
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("tinygpu: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("tinygpu: value too small for " + key)
	} else {
		return ret
	}
}

func boolOrDefault(key string, def bool) bool {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseBool(env); err != nil {
		panic("tinygpu: invalid value for " + key)
	} else {
		return val
	}
}

func stringOrDefault(key string, def string) string {
	if env, ok := os.LookupEnv(key); !ok {
		return def
	} else {
		return env
	}
}
