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
	"github.com/cloudwego/tinygpu/internal/mc"
	"github.com/cloudwego/tinygpu/internal/regs"
)

// ParseStatus is the outcome of an operand parser. NoMatch means nothing was
// consumed and another parser may try.
type ParseStatus uint8

const (
	Success ParseStatus = iota
	NoMatch
	Failure
)

type _Tag struct {
	name string
	alt  string
	enc  uint8
}

var asiTags = []_Tag{
	{"ASI_N", "ASI_NUCLEUS", 0x04},
	{"ASI_N_L", "ASI_NUCLEUS_LITTLE", 0x0c},
	{"ASI_AIUP", "ASI_AS_IF_USER_PRIMARY", 0x10},
	{"ASI_AIUS", "ASI_AS_IF_USER_SECONDARY", 0x11},
	{"ASI_AIUP_L", "ASI_AS_IF_USER_PRIMARY_LITTLE", 0x18},
	{"ASI_AIUS_L", "ASI_AS_IF_USER_SECONDARY_LITTLE", 0x19},
	{"ASI_P", "ASI_PRIMARY", 0x80},
	{"ASI_S", "ASI_SECONDARY", 0x81},
	{"ASI_PNF", "ASI_PRIMARY_NOFAULT", 0x82},
	{"ASI_SNF", "ASI_SECONDARY_NOFAULT", 0x83},
	{"ASI_P_L", "ASI_PRIMARY_LITTLE", 0x88},
	{"ASI_S_L", "ASI_SECONDARY_LITTLE", 0x89},
	{"ASI_PNF_L", "ASI_PRIMARY_NOFAULT_LITTLE", 0x8a},
	{"ASI_SNF_L", "ASI_SECONDARY_NOFAULT_LITTLE", 0x8b},
}

var prefetchTags = []_Tag{
	{name: "n_reads", enc: 0},
	{name: "one_read", enc: 1},
	{name: "n_writes", enc: 2},
	{name: "one_write", enc: 3},
	{name: "page", enc: 4},
	{name: "unified", enc: 17},
	{name: "n_reads_strong", enc: 20},
	{name: "one_read_strong", enc: 21},
	{name: "n_writes_strong", enc: 22},
	{name: "one_write_strong", enc: 23},
}

var membarTags = map[string]int64{
	"LoadLoad":   0x01,
	"StoreLoad":  0x02,
	"LoadStore":  0x04,
	"StoreStore": 0x08,
	"Lookaside":  0x10,
	"MemIssue":   0x20,
	"Sync":       0x40,
}

func lookupTag(tab []_Tag, name string) (uint8, bool) {
	for _, v := range tab {
		if v.name == name {
			return v.enc, true
		}
	}
	for _, v := range tab {
		if v.alt != "" && v.alt == name {
			return v.enc, true
		}
	}
	return 0, false
}

// Parser turns statements into parsed operand lists. It keeps the first
// diagnostic of the statement being parsed.
type Parser struct {
	lex      *Lexer
	ctx      *mc.Context
	features mc.Feature
	diag     *Diagnostic
}

func NewParser(lex *Lexer, features mc.Feature, ctx *mc.Context) *Parser {
	return &Parser{
		lex:      lex,
		ctx:      ctx,
		features: features,
	}
}

func (self *Parser) Features() mc.Feature {
	return self.features
}

func (self *Parser) is64Bit() bool {
	return self.features.Has(mc.Feature64Bit)
}

// error records a diagnostic unless one is already pending, and always
// returns false so parsers can bail out with it.
func (self *Parser) error(loc mc.Loc, msg string) bool {
	if self.diag == nil {
		self.diag = &Diagnostic{Loc: loc, Msg: msg}
	}
	return false
}

func (self *Parser) fail(loc mc.Loc, msg string) *Diagnostic {
	self.error(loc, msg)
	return self.diag
}

func (self *Parser) failure(loc mc.Loc, msg string) ParseStatus {
	self.error(loc, msg)
	return Failure
}

// ParseInstruction parses the operands of the instruction named name. The
// mnemonic itself has already been consumed. The first operand is always the
// mnemonic token.
func (self *Parser) ParseInstruction(name string, loc mc.Loc) ([]*Operand, *Diagnostic) {
	self.diag = nil

	/* reject unknown or unavailable mnemonics before touching the operands */
	switch MnemonicIsValid(name, self.features) {
	case Match_MissingFeature:
		return nil, self.fail(loc, errMissingFeature)
	case Match_MnemonicFail:
		return nil, self.fail(loc, errInvalidMnemonic+MnemonicSpellCheck(name, self.features))
	}

	/* the mnemonic goes first */
	ops := []*Operand{NewToken(name, loc)}
	if !self.atEnd() {
		if self.lex.Is(T_Comma) && self.parseBranchModifiers(&ops) != Success {
			return nil, self.fail(self.lex.Loc(), errUnexpectedToken)
		}

		/* the first operand */
		if self.parseOperand(&ops, name) != Success {
			return nil, self.fail(self.lex.Loc(), errUnexpectedToken)
		}

		/* the rest, a '+' is significant for traps */
		for self.lex.Is(T_Comma) || self.lex.Is(T_Plus) {
			if self.lex.Is(T_Plus) {
				ops = append(ops, NewToken("+", self.lex.Loc()))
			}
			self.lex.Lex()
			if self.parseOperand(&ops, name) != Success {
				return nil, self.fail(self.lex.Loc(), errUnexpectedToken)
			}
		}
	}

	/* nothing may follow the operands */
	if !self.atEnd() {
		return nil, self.fail(self.lex.Loc(), errUnexpectedToken)
	} else if self.diag != nil {
		return nil, self.diag
	} else {
		return ops, nil
	}
}

func (self *Parser) atEnd() bool {
	return self.lex.Is(T_EndOfStatement) || self.lex.Is(T_EOF)
}

// parseBranchModifiers parses (,a|,pn|,pt)+. Unknown identifiers are left for
// the operand parser.
func (self *Parser) parseBranchModifiers(ops *[]*Operand) ParseStatus {
	for self.lex.Is(T_Comma) {
		self.lex.Lex()
		tok := self.lex.Tok()

		/* must be an identifier */
		if !tok.Is(T_Identifier) {
			return Failure
		}

		/* only the known modifiers are consumed */
		if tok.Str == "a" || tok.Str == "pn" || tok.Str == "pt" {
			*ops = append(*ops, NewToken(tok.Str, tok.Loc))
			self.lex.Lex()
		}
	}
	return Success
}

// ParseOperand parses one operand of mnemonic, trying the custom parsers
// selected by the instruction table first.
func (self *Parser) parseOperand(ops *[]*Operand, mnemonic string) ParseStatus {
	if res := self.parseCustom(ops, mnemonic); res != NoMatch {
		return res
	}

	/* memory operands */
	if self.lex.Is(T_LBrac) {
		return self.parseMemory(ops, mnemonic)
	}

	/* everything else */
	if op, ok := self.parseAsmOperand(mnemonic == "call"); !ok {
		return Failure
	} else {
		*ops = append(*ops, op)
		return Success
	}
}

func (self *Parser) parseCustom(ops *[]*Operand, mnemonic string) ParseStatus {
	idx := len(*ops) - 1
	seen := make(map[mc.OperandClass]bool)

	/* every distinct class at this position among the enabled forms */
	for _, op := range mc.FormsOf(mnemonic) {
		desc := op.Desc()
		if !self.features.Has(desc.Features) || idx >= len(desc.Operands) {
			continue
		}

		/* try each class once */
		cls := desc.Operands[idx]
		if seen[cls] {
			continue
		}

		/* the first parser that does not decline wins */
		seen[cls] = true
		if res := self.parseClass(ops, cls); res != NoMatch {
			return res
		}
	}
	return NoMatch
}

func (self *Parser) parseClass(ops *[]*Operand, cls mc.OperandClass) ParseStatus {
	switch cls.Kind {
	case mc.ClsShiftImm5:
		return self.parseShiftAmtImm(ops, 5)
	case mc.ClsShiftImm6:
		return self.parseShiftAmtImm(ops, 6)
	case mc.ClsCallTarget:
		return self.parseCallTarget(ops)
	case mc.ClsMembarTag:
		return self.parseMembarTag(ops)
	case mc.ClsPrefetchTag:
		return self.parsePrefetchTag(ops)
	case mc.ClsASITag:
		return self.parseASITag(ops)
	case mc.ClsTailReloc:
		return self.parseTailRelocSym(ops, cls.Reloc)
	default:
		return NoMatch
	}
}

func (self *Parser) parseMemory(ops *[]*Operand, mnemonic string) ParseStatus {
	*ops = append(*ops, NewToken("[", self.lex.Loc()))
	self.lex.Lex()

	/* compare-and-swap takes a plain register */
	var res ParseStatus
	if isCAS(mnemonic) {
		res = self.parseCASAddress(ops)
	} else {
		res = self.parseMEMOperand(ops)
	}

	/* closing bracket */
	if res != Success {
		return res
	} else if !self.lex.Is(T_RBrac) {
		return Failure
	}

	/* the optional address space identifier */
	*ops = append(*ops, NewToken("]", self.lex.Loc()))
	self.lex.Lex()
	if self.lex.Is(T_Percent) {
		return self.parseASIRegister(ops)
	} else if !self.atEnd() && !self.lex.Is(T_Comma) {
		return self.parseASITag(ops)
	} else {
		return Success
	}
}

func isCAS(mnemonic string) bool {
	switch mnemonic {
	case "cas", "casl", "casa", "casx", "casxl", "casxa":
		return true
	default:
		return false
	}
}

func (self *Parser) parseCASAddress(ops *[]*Operand) ParseStatus {
	start := self.lex.Loc()
	if !self.lex.Is(T_Percent) {
		return NoMatch
	}

	/* must name a register */
	tok := self.lex.Lex()
	reg, kind, ok := matchRegister(tok)
	if !ok {
		return NoMatch
	}

	/* eat the name */
	self.lex.Lex()
	*ops = append(*ops, NewReg(reg, kind, start, tok.Loc))
	return Success
}

// parseASIRegister handles "%asi" after a memory operand. The register form
// needs an immediate offset, so [base+%r0] is rewritten into [base+0].
func (self *Parser) parseASIRegister(ops *[]*Operand) ParseStatus {
	start := self.lex.Loc()
	if !self.is64Bit() {
		return self.failure(start, errASIPercent32)
	}

	/* only %asi is allowed */
	tok := self.lex.Lex()
	if !tok.Is(T_Identifier) || tok.Str != "asi" {
		return self.failure(start, errASIPercent)
	}

	/* patch the memory operand */
	mem := (*ops)[len(*ops)-2]
	if mem.Kind == K_MemoryReg {
		if m, ok := MorphToMEMri(mem); !ok {
			return self.failure(start, errInvalidOperand)
		} else {
			(*ops)[len(*ops)-2] = m
		}
	}

	/* the register access is implied by the form */
	self.lex.Lex()
	*ops = append(*ops, NewToken("%asi", start))
	return Success
}

// parseMEMOperand parses the inside of a memory reference.
func (self *Parser) parseMEMOperand(ops *[]*Operand) ParseStatus {
	lhs, ok := self.parseAsmOperand(false)
	if !ok {
		return NoMatch
	}

	/* a bare immediate is relative to %r0 */
	if lhs.Kind == K_Immediate {
		*ops = append(*ops, NewMEMri(regs.R0, lhs.Imm(), lhs.Start, lhs.End))
		return Success
	}

	/* the base must be an integer register */
	if lhs.Kind != K_Register || lhs.RegKind() != regs.IntReg {
		return self.failure(lhs.Start, errInvalidRegKind)
	}

	/* no offset */
	if !self.lex.Is(T_Plus) && !self.lex.Is(T_Minus) {
		*ops = append(*ops, NewMEMrr(lhs.Reg(), regs.R0, lhs.Start, lhs.End))
		return Success
	}

	/* a minus sign belongs to the immediate */
	if self.lex.Is(T_Plus) {
		self.lex.Lex()
	}

	/* register or immediate offset */
	rhs, ok := self.parseAsmOperand(false)
	if !ok {
		return NoMatch
	}

	/* build the memory operand */
	switch {
	case rhs.Kind == K_Immediate:
		*ops = append(*ops, NewMEMri(lhs.Reg(), rhs.Imm(), lhs.Start, rhs.End))
		return Success
	case rhs.Kind == K_Register && rhs.RegKind() == regs.IntReg:
		*ops = append(*ops, NewMEMrr(lhs.Reg(), rhs.Reg(), lhs.Start, rhs.End))
		return Success
	default:
		return self.failure(rhs.Start, errInvalidRegKind)
	}
}

// parseAsmOperand parses a register, a modifier expression or a plain
// expression. Non-constant expressions get a default relocation.
func (self *Parser) parseAsmOperand(isCall bool) (*Operand, bool) {
	start := self.lex.Loc()
	switch self.lex.Tok().Kind {
	case T_Percent:
		return self.parseRegOrModifier(start)
	case T_Plus, T_Minus, T_Tilde, T_Integer, T_LParen, T_Dot, T_Identifier:
		break
	default:
		return nil, false
	}

	/* generic expression */
	val, ok := self.parseExpression()
	if !ok {
		return nil, false
	}

	/* constants stay bare */
	if _, ok := val.Evaluate(); ok {
		return NewImm(val.Fold(), start, self.lex.Last()), true
	} else {
		return NewImm(mc.Wrap(self.defaultVariant(isCall), val), start, self.lex.Last()), true
	}
}

func (self *Parser) defaultVariant(isCall bool) mc.VariantKind {
	switch {
	case !self.ctx.PIC:
		return mc.VK_13
	case isCall:
		return mc.VK_WPLT30
	default:
		return mc.VK_GOT13
	}
}

func (self *Parser) parseRegOrModifier(start mc.Loc) (*Operand, bool) {
	tok := self.lex.Lex()

	/* registers */
	if reg, kind, ok := matchRegister(tok); ok {
		self.lex.Lex()
		if reg == regs.ICC && tok.Str == "xcc" {
			return NewToken("%xcc", start), true
		} else {
			return NewReg(reg, kind, start, tok.Loc), true
		}
	}

	/* %modifier(expr) */
	if val, ok := self.matchModifiers(); !ok {
		return nil, false
	} else {
		return NewImm(val, start, self.lex.Last()), true
	}
}

func matchRegister(tok Token) (regs.Reg, regs.Kind, bool) {
	if !tok.Is(T_Identifier) {
		return regs.NoReg, regs.KindNone, false
	} else {
		return regs.Match(tok.Str)
	}
}

// matchModifiers parses "name(expr)" after a '%'. Modifiers reserved for tail
// relocations are refused without consuming anything.
func (self *Parser) matchModifiers() (mc.Expr, bool) {
	tok := self.lex.Tok()
	if !tok.Is(T_Identifier) {
		return mc.Expr{}, false
	}

	/* must be a known, non-tail modifier */
	vk := mc.ParseVariantKind(tok.Str)
	if vk == mc.VK_None {
		return mc.Expr{}, self.error(tok.Loc, errInvalidModifier)
	} else if vk.IsTailReloc() {
		return mc.Expr{}, false
	}

	/* followed by a parenthesized expression */
	if self.lex.Lex(); !self.lex.Is(T_LParen) {
		return mc.Expr{}, false
	}

	/* parse the sub expression */
	self.lex.Lex()
	if sub, ok := self.parseParenExpression(); !ok {
		return mc.Expr{}, false
	} else {
		return self.ctx.Variant(vk, sub), true
	}
}

// parseConstant parses a constant expression if the current token can start
// one.
func (self *Parser) parseConstant() (int64, ParseStatus) {
	if !isPossibleExpression(self.lex.Tok()) {
		return 0, NoMatch
	} else if v, ok := self.parseAbsoluteExpression(); !ok {
		return 0, Failure
	} else {
		return v, Success
	}
}

func (self *Parser) parseShiftAmtImm(ops *[]*Operand, bits uint) ParseStatus {
	start := self.lex.Loc()
	if self.lex.Is(T_Percent) {
		return NoMatch
	}

	/* must be a constant */
	val, ok := self.parseExpression()
	if !ok {
		return Failure
	}

	/* check the range */
	if v, ok := val.Evaluate(); !ok {
		return self.failure(start, errExpectedConstant)
	} else if v < 0 || v >= 1<<bits {
		return self.failure(start, errShiftOutOfRange)
	} else {
		*ops = append(*ops, NewImm(mc.Const(v), start, self.lex.Last()))
		return Success
	}
}

func (self *Parser) parseCallTarget(ops *[]*Operand) ParseStatus {
	start := self.lex.Loc()
	switch self.lex.Tok().Kind {
	case T_LParen, T_Integer, T_Identifier, T_Dot:
		break
	default:
		return NoMatch
	}

	/* parse the destination */
	val, ok := self.parseExpression()
	if !ok {
		return NoMatch
	}

	/* PC-relative, through the PLT when position independent */
	kind := mc.VK_WDISP30
	if self.ctx.PIC {
		kind = mc.VK_WPLT30
	}

	/* add the operand */
	*ops = append(*ops, NewImm(mc.Wrap(kind, val), start, self.lex.Last()))
	return Success
}

func (self *Parser) parseMembarTag(ops *[]*Operand) ParseStatus {
	start := self.lex.Loc()
	mask := int64(0)

	/* an optional numeric mask */
	if op, ok := self.parseAsmOperand(false); ok {
		if op.Kind != K_Immediate {
			return self.failure(start, errMembarRange)
		} else if v, ok := op.Imm().Evaluate(); !ok || v < 0 || v > 127 {
			return self.failure(start, errMembarRange)
		} else {
			mask = v
		}
	}

	/* #Tag | #Tag ... */
	for self.lex.Is(T_Hash) {
		loc := self.lex.Loc()
		tok := self.lex.Lex()

		/* look up the tag */
		if v, ok := membarTags[tok.Str]; !ok || !tok.Is(T_Identifier) {
			return self.failure(loc, errMembarUnknown)
		} else {
			mask |= v
			self.lex.Lex()
		}

		/* tags are joined with '|' */
		if self.lex.Is(T_Pipe) {
			self.lex.Lex()
		}
	}

	/* the mask is a plain immediate */
	*ops = append(*ops, NewImm(mc.Const(mask), start, self.lex.Last()))
	return Success
}

func (self *Parser) parseASITag(ops *[]*Operand) ParseStatus {
	return self.parseNamedTag(ops, asiTags, 255, errASIRange, errASIUnknown, NewASITag)
}

func (self *Parser) parsePrefetchTag(ops *[]*Operand) ParseStatus {
	return self.parseNamedTag(ops, prefetchTags, 255, errPrefetchRange, errPrefetchUnknown, NewPrefetchTag)
}

// parseNamedTag parses either a constant or "#name" looked up in tab.
func (self *Parser) parseNamedTag(
	ops *[]*Operand,
	tab []_Tag,
	max int64,
	erange string,
	enames string,
	newfn func(uint8, mc.Loc, mc.Loc) *Operand,
) ParseStatus {
	start := self.lex.Loc()

	/* a constant expression */
	if !self.lex.Is(T_Hash) {
		v, res := self.parseConstant()
		if res != Success {
			return res
		} else if v < 0 || v > max {
			return self.failure(start, erange)
		} else {
			*ops = append(*ops, newfn(uint8(v), start, self.lex.Last()))
			return Success
		}
	}

	/* a named tag */
	tok := self.lex.Lex()
	if v, ok := lookupTag(tab, tok.Str); !ok || !tok.Is(T_Identifier) {
		return self.failure(tok.Loc, enames)
	} else {
		self.lex.Lex()
		*ops = append(*ops, newfn(v, start, tok.Loc))
		return Success
	}
}

// parseTailRelocSym parses a trailing "%modifier(expr)" whose modifier must
// belong to kind. Other modifiers are put back for the next parser.
func (self *Parser) parseTailRelocSym(ops *[]*Operand, kind mc.TailRelocKind) ParseStatus {
	start := self.lex.Loc()
	if !self.lex.Is(T_Percent) {
		return NoMatch
	}

	/* the modifier name */
	pct := self.lex.Tok()
	tok := self.lex.Lex()
	if !tok.Is(T_Identifier) {
		return self.failure(tok.Loc, errModifierIdent)
	}

	/* must be a known modifier */
	vk := mc.ParseVariantKind(tok.Str)
	if vk == mc.VK_None {
		return self.failure(tok.Loc, errInvalidModifier)
	}

	/* not ours, put the '%' back */
	if !kind.Accepts(vk) {
		self.lex.UnLex(pct)
		return NoMatch
	}

	/* followed by a parenthesized expression */
	if self.lex.Lex(); !self.lex.Is(T_LParen) {
		return self.failure(self.lex.Loc(), errExpectedLParen)
	}

	/* parse the sub expression */
	self.lex.Lex()
	if sub, ok := self.parseParenExpression(); !ok {
		return Failure
	} else {
		*ops = append(*ops, NewTailReloc(self.ctx.Variant(vk, sub), start, self.lex.Last()))
		return Success
	}
}
