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
	"strings"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	"github.com/cloudwego/tinygpu/internal/mc"
)

// Item is one element of an assembled program.
type Item interface {
	String() string
}

// Program is the result of assembling one source file.
type Program struct {
	Name  string
	Items []Item
}

// Instructions returns the instructions of the program in order.
func (self *Program) Instructions() []*mc.Inst {
	var ret []*mc.Inst
	for _, v := range self.Items {
		if p, ok := v.(*Instruction); ok {
			ret = append(ret, p.Inst)
		}
	}
	return ret
}

// String renders the program in canonical assembly syntax.
func (self *Program) String() string {
	sb := new(strings.Builder)
	for _, v := range self.Items {
		sb.WriteString(v.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Assembler parses whole source files.
type Assembler struct {
	Features  mc.Feature
	PIC       bool
	MaxErrors int
}

// Assemble parses src statement by statement. Statements with errors are
// skipped and their diagnostics collected, up to MaxErrors when it is
// positive.
func (self *Assembler) Assemble(name string, src string) (*Program, error) {
	var err *multierror.Error
	ret := &Program{Name: name}
	lex := NewLexer(src)
	psr := NewParser(lex, self.Features, &mc.Context{PIC: self.PIC})

	/* parse every statement */
	for !lex.Is(T_EOF) {
		if lex.Is(T_EndOfStatement) {
			lex.Lex()
			continue
		}

		/* parse one statement */
		items, diag := psr.ParseStatement()
		if diag == nil {
			ret.Items = append(ret.Items, items...)
			continue
		}

		/* skip the rest of the broken statement */
		diag.File = name
		err = multierror.Append(err, diag)
		lex.EatToEndOfStatement()

		/* stop when too many errors */
		if self.MaxErrors > 0 && err.Len() >= self.MaxErrors {
			break
		}
	}

	/* report the result */
	if glog.V(1) {
		glog.Infof("asm: %s: %d items, %d errors", name, len(ret.Items), errorCount(err))
	}
	return ret, err.ErrorOrNil()
}

func errorCount(err *multierror.Error) int {
	if err == nil {
		return 0
	} else {
		return err.Len()
	}
}

// ParseStatement parses a label, a directive or an instruction.
func (self *Parser) ParseStatement() ([]Item, *Diagnostic) {
	self.diag = nil
	tok := self.lex.Tok()

	/* every statement starts with a name */
	if tok.Is(T_Error) {
		return nil, self.fail(tok.Loc, tok.Str)
	} else if !tok.Is(T_Identifier) {
		return nil, self.fail(tok.Loc, "unexpected token at start of statement")
	}

	/* labels */
	if self.lex.Lex(); self.lex.Is(T_Colon) {
		self.lex.Lex()
		return []Item{&Label{Name: tok.Str, Loc: tok.Loc}}, nil
	}

	/* directives */
	if strings.HasPrefix(tok.Str, ".") {
		return self.parseDirective(tok)
	}

	/* instructions */
	ops, diag := self.ParseInstruction(tok.Str, tok.Loc)
	if diag != nil {
		return nil, diag
	}

	/* match and expand */
	insts, diag := self.MatchAndEmit(ops)
	if diag != nil {
		return nil, diag
	}

	/* wrap the instructions */
	ret := make([]Item, 0, len(insts))
	for _, v := range insts {
		ret = append(ret, &Instruction{Inst: v})
	}
	return ret, nil
}

// MatchAndEmit matches a parsed operand list and expands pseudo
// instructions.
func (self *Parser) MatchAndEmit(ops []*Operand) ([]*mc.Inst, *Diagnostic) {
	loc := ops[0].Start
	inst, res := MatchInstruction(ops, self.features)

	/* report match failures */
	switch res.Code {
	case Match_Success:
		break
	case Match_MissingFeature:
		return nil, self.fail(loc, errMissingFeature)
	case Match_MnemonicFail:
		return nil, self.fail(loc, errInvalidMnemonic)
	default:
		return nil, self.fail(self.operandLoc(ops, res.Index), self.operandMsg(ops, res.Index))
	}

	/* expand the pseudos */
	ret, err := Expand(ExpandEnv{Ctx: self.ctx, Features: self.features}, inst.At(loc))
	if err != nil {
		return nil, self.fail(self.operandLoc(ops, 1), err.Error())
	} else {
		return ret, nil
	}
}

func (self *Parser) operandLoc(ops []*Operand, idx int) mc.Loc {
	if idx < 0 || idx >= len(ops) || !ops[idx].Start.IsValid() {
		return ops[0].Start
	} else {
		return ops[idx].Start
	}
}

func (self *Parser) operandMsg(ops []*Operand, idx int) string {
	if idx >= len(ops) {
		return errTooFewOperands
	} else {
		return errInvalidOperand
	}
}
