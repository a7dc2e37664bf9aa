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

package utils

import (
	"fmt"
)

// FatalError aborts the compilation of a function. It is raised with Fatal
// and only recovered at the function boundary.
type FatalError struct {
	Msg string
}

func (self *FatalError) Error() string {
	return self.Msg
}

// ConfigError occurs when a target configuration value cannot be used.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (self ConfigError) Error() string {
	if self.Value == "" {
		return fmt.Sprintf("invalid %s: %s", self.Key, self.Reason)
	} else {
		return fmt.Sprintf("invalid %s %q: %s", self.Key, self.Value, self.Reason)
	}
}

func Fatal(msg string) {
	panic(&FatalError{Msg: msg})
}

func Fatalf(format string, args ...interface{}) {
	panic(&FatalError{Msg: fmt.Sprintf(format, args...)})
}

// RecoverFatal must be deferred directly. It turns a FatalError panic into
// *err and re-raises anything else.
func RecoverFatal(err *error) {
	if v := recover(); v == nil {
		return
	} else if e, ok := v.(*FatalError); ok {
		*err = e
	} else {
		panic(v)
	}
}

func EConfig(key string, value string, reason string) ConfigError {
	return ConfigError{
		Key:    key,
		Value:  value,
		Reason: reason,
	}
}

func EUnknown(key string, value string) ConfigError {
	return EConfig(key, value, "unknown "+key)
}
