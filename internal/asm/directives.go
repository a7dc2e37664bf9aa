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

package asm

import (
	"fmt"
	"strings"

	"github.com/cloudwego/tinygpu/internal/mc"
)

// Label defines a symbol at the current position.
type Label struct {
	Name string
	Loc  mc.Loc
}

// Data is a list of values emitted Size bytes each.
type Data struct {
	Size   int
	Values []mc.Expr
	Loc    mc.Loc
}

// Directive is a section or symbol directive kept for the output, such as
// .text or .globl.
type Directive struct {
	Name string
	Args []string
	Loc  mc.Loc
}

// Instruction is one real instruction, after pseudo expansion.
type Instruction struct {
	Inst *mc.Inst
}

func (self *Label) String() string {
	return self.Name + ":"
}

func (self *Data) String() string {
	vals := make([]string, 0, len(self.Values))
	for _, v := range self.Values {
		vals = append(vals, v.String())
	}
	return fmt.Sprintf("\t.%dbyte %s", self.Size, strings.Join(vals, ", "))
}

func (self *Directive) String() string {
	if len(self.Args) == 0 {
		return "\t" + self.Name
	} else {
		return "\t" + self.Name + " " + strings.Join(self.Args, ", ")
	}
}

func (self *Instruction) String() string {
	return "\t" + mc.Print(self.Inst)
}

var dataSizes = map[string]int{
	".byte":  1,
	".2byte": 2,
	".4byte": 4,
	".8byte": 8,
}

// directiveAlias resolves the data directive spellings that depend on the
// subtarget.
func (self *Parser) directiveAlias(name string) string {
	switch name {
	case ".half", ".uahalf":
		return ".2byte"
	case ".word", ".uaword":
		return ".4byte"
	case ".nword":
		if self.is64Bit() {
			return ".8byte"
		} else {
			return ".4byte"
		}
	case ".xword":
		if self.is64Bit() {
			return ".8byte"
		} else {
			return name
		}
	default:
		return name
	}
}

// parseDirective parses the directive named by tok, which has been consumed.
func (self *Parser) parseDirective(tok Token) ([]Item, *Diagnostic) {
	name := self.directiveAlias(tok.Str)
	if size, ok := dataSizes[name]; ok {
		return self.parseData(size, tok.Loc)
	}

	/* everything else */
	switch name {
	case ".register", ".proc":
		self.lex.EatToEndOfStatement()
		return nil, nil
	case ".text", ".data":
		return self.endDirective(&Directive{Name: name, Loc: tok.Loc})
	case ".section", ".globl", ".global":
		return self.parseSymbolDirective(name, tok.Loc)
	case ".align":
		return self.parseAlign(tok.Loc)
	default:
		return nil, self.fail(tok.Loc, errUnknownDirective)
	}
}

func (self *Parser) endDirective(item Item) ([]Item, *Diagnostic) {
	if !self.atEnd() {
		return nil, self.fail(self.lex.Loc(), errDirectiveToken)
	} else {
		return []Item{item}, nil
	}
}

func (self *Parser) parseData(size int, loc mc.Loc) ([]Item, *Diagnostic) {
	ret := &Data{Size: size, Loc: loc}
	for {
		start := self.lex.Loc()
		val, ok := self.parseExpression()
		if !ok {
			return nil, self.diag
		}

		/* constants must fit the slot, signed or not */
		if v, ok := val.Evaluate(); ok && size < 8 {
			if lim := int64(1) << (size * 8); v < -lim/2 || v >= lim {
				return nil, self.fail(start, "out of range literal value")
			}
		}

		/* comma separated */
		ret.Values = append(ret.Values, val.Fold())
		if !self.lex.Is(T_Comma) {
			return self.endDirective(ret)
		}
		self.lex.Lex()
	}
}

func (self *Parser) parseSymbolDirective(name string, loc mc.Loc) ([]Item, *Diagnostic) {
	tok := self.lex.Tok()
	if !tok.Is(T_Identifier) {
		return nil, self.fail(tok.Loc, "expected identifier in directive")
	} else {
		self.lex.Lex()
		return self.endDirective(&Directive{Name: name, Args: []string{tok.Str}, Loc: loc})
	}
}

func (self *Parser) parseAlign(loc mc.Loc) ([]Item, *Diagnostic) {
	start := self.lex.Loc()
	val, ok := self.parseAbsoluteExpression()

	/* must be a power of two */
	if !ok {
		return nil, self.diag
	} else if val <= 0 || val&(val-1) != 0 {
		return nil, self.fail(start, "alignment must be a power of 2")
	} else {
		return self.endDirective(&Directive{Name: ".align", Args: []string{fmt.Sprint(val)}, Loc: loc})
	}
}
