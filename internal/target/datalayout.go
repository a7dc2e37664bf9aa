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
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DataLayout is the parsed form of a data layout string.
type DataLayout struct {
	LittleEndian   bool
	Mangling       string
	PointerBits    int
	PointerAlign   int
	IntAligns      map[int]int
	NativeWidths   []int
	StackAlignBits int
}

// ComputeDataLayout builds the layout string of the target.
func ComputeDataLayout() string {
	ret := "e"        // little endian
	ret += "-m:e"     // ELF mangling
	ret += "-p:32:32" // 32-bit pointers
	ret += "-i64:64"  // 64-bit integers aligned to 64 bits
	ret += "-n32"     // registers are 32 bits wide
	ret += "-S128"    // natural stack alignment
	return ret
}

func atoi(spec string, s string) (int, error) {
	if v, err := strconv.Atoi(s); err != nil || v <= 0 {
		return 0, errors.Errorf("invalid number %q in layout spec %q", s, spec)
	} else {
		return v, nil
	}
}

func atoiList(spec string, s string) ([]int, error) {
	var ret []int
	for _, v := range strings.Split(s, ":") {
		if n, err := atoi(spec, v); err != nil {
			return nil, err
		} else {
			ret = append(ret, n)
		}
	}
	return ret, nil
}

// ParseDataLayout parses a layout string. Unknown specifications are errors.
func ParseDataLayout(s string) (*DataLayout, error) {
	ret := &DataLayout{
		LittleEndian: true,
		PointerBits:  64,
		PointerAlign: 64,
		IntAligns:    map[int]int{},
	}

	/* empty layout is the default one */
	if s == "" {
		return ret, nil
	}

	/* one specification at a time */
	for _, spec := range strings.Split(s, "-") {
		if spec == "" {
			return nil, errors.Errorf("empty layout spec in %q", s)
		}

		/* the specs without values */
		switch spec {
		case "e":
			ret.LittleEndian = true
			continue
		case "E":
			ret.LittleEndian = false
			continue
		}

		/* the rest are keyed by their first letter */
		switch body := spec[1:]; spec[0] {
		case 'm':
			if len(body) != 2 || body[0] != ':' {
				return nil, errors.Errorf("invalid mangling spec %q", spec)
			}
			ret.Mangling = body[1:]
		case 'p':
			vals, err := atoiList(spec, strings.TrimPrefix(body, ":"))
			if err != nil {
				return nil, err
			} else if len(vals) < 2 {
				return nil, errors.Errorf("missing pointer alignment in %q", spec)
			}
			ret.PointerBits, ret.PointerAlign = vals[0], vals[1]
		case 'i':
			vals, err := atoiList(spec, body)
			if err != nil {
				return nil, err
			} else if len(vals) < 2 {
				return nil, errors.Errorf("missing integer alignment in %q", spec)
			}
			ret.IntAligns[vals[0]] = vals[1]
		case 'n':
			vals, err := atoiList(spec, body)
			if err != nil {
				return nil, err
			}
			ret.NativeWidths = vals
		case 'S':
			val, err := atoi(spec, body)
			if err != nil {
				return nil, err
			} else if val%8 != 0 {
				return nil, errors.Errorf("stack alignment is not a whole number of bytes in %q", spec)
			}
			ret.StackAlignBits = val
		default:
			return nil, errors.Errorf("unknown layout spec %q", spec)
		}
	}
	return ret, nil
}

// IsLegalInteger reports whether integers of the given width fit a native
// register.
func (self *DataLayout) IsLegalInteger(bits int) bool {
	return slices.Contains(self.NativeWidths, bits)
}

// StackAlign is the natural stack alignment in bytes, or 0 when unknown.
func (self *DataLayout) StackAlign() int {
	return self.StackAlignBits / 8
}

func (self *DataLayout) String() string {
	var specs []string
	if self.LittleEndian {
		specs = append(specs, "e")
	} else {
		specs = append(specs, "E")
	}

	/* optional parts */
	if self.Mangling != "" {
		specs = append(specs, "m:"+self.Mangling)
	}
	specs = append(specs, "p:"+strconv.Itoa(self.PointerBits)+":"+strconv.Itoa(self.PointerAlign))

	/* integer alignments, narrowest first */
	keys := maps.Keys(self.IntAligns)
	slices.Sort(keys)
	for _, k := range keys {
		specs = append(specs, "i"+strconv.Itoa(k)+":"+strconv.Itoa(self.IntAligns[k]))
	}

	/* native widths */
	if len(self.NativeWidths) != 0 {
		ws := make([]string, 0, len(self.NativeWidths))
		for _, w := range self.NativeWidths {
			ws = append(ws, strconv.Itoa(w))
		}
		specs = append(specs, "n"+strings.Join(ws, ":"))
	}

	/* stack alignment */
	if self.StackAlignBits != 0 {
		specs = append(specs, "S"+strconv.Itoa(self.StackAlignBits))
	}
	return strings.Join(specs, "-")
}
