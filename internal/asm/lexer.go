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
	"strconv"

	"github.com/cloudwego/tinygpu/internal/mc"
)

type TokenKind uint8

const (
	T_Error TokenKind = iota
	T_EOF
	T_EndOfStatement
	T_Identifier
	T_Integer
	T_Percent
	T_LBrac
	T_RBrac
	T_LParen
	T_RParen
	T_Comma
	T_Plus
	T_Minus
	T_Tilde
	T_Star
	T_Slash
	T_Pipe
	T_Amp
	T_Caret
	T_Shl
	T_Shr
	T_Hash
	T_Colon
	T_Dot
)

var tokenNames = [...]string{
	T_Error:          "error",
	T_EOF:            "end of file",
	T_EndOfStatement: "end of statement",
	T_Identifier:     "identifier",
	T_Integer:        "integer",
	T_Percent:        "'%'",
	T_LBrac:          "'['",
	T_RBrac:          "']'",
	T_LParen:         "'('",
	T_RParen:         "')'",
	T_Comma:          "','",
	T_Plus:           "'+'",
	T_Minus:          "'-'",
	T_Tilde:          "'~'",
	T_Star:           "'*'",
	T_Slash:          "'/'",
	T_Pipe:           "'|'",
	T_Amp:            "'&'",
	T_Caret:          "'^'",
	T_Shl:            "'<<'",
	T_Shr:            "'>>'",
	T_Hash:           "'#'",
	T_Colon:          "':'",
	T_Dot:            "'.'",
}

func (self TokenKind) String() string {
	if int(self) < len(tokenNames) {
		return tokenNames[self]
	} else {
		return fmt.Sprintf("TokenKind(%d)", self)
	}
}

// Token is one lexical token. Str holds the spelling of identifiers and the
// message of error tokens.
type Token struct {
	Kind TokenKind
	Str  string
	Int  int64
	Loc  mc.Loc
}

func (self Token) Is(kind TokenKind) bool {
	return self.Kind == kind
}

func (self Token) String() string {
	switch self.Kind {
	case T_Identifier:
		return self.Str
	case T_Integer:
		return strconv.FormatInt(self.Int, 10)
	default:
		return self.Kind.String()
	}
}

var punctuations = map[byte]TokenKind{
	'%': T_Percent,
	'[': T_LBrac,
	']': T_RBrac,
	'(': T_LParen,
	')': T_RParen,
	',': T_Comma,
	'+': T_Plus,
	'-': T_Minus,
	'~': T_Tilde,
	'*': T_Star,
	'/': T_Slash,
	'|': T_Pipe,
	'&': T_Amp,
	'^': T_Caret,
	'#': T_Hash,
	':': T_Colon,
}

// Lexer is a forward-only token stream with pushback. The current token is
// Tok(), Lex() advances and UnLex() makes a previously seen token current
// again.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
	bol  bool
	cur  Token
	last mc.Loc
	back []Token
}

func NewLexer(src string) *Lexer {
	ret := &Lexer{src: src, line: 1, col: 1, bol: true}
	ret.Lex()
	return ret
}

func (self *Lexer) Tok() Token {
	return self.cur
}

func (self *Lexer) Is(kind TokenKind) bool {
	return self.cur.Kind == kind
}

func (self *Lexer) Loc() mc.Loc {
	return self.cur.Loc
}

// Last is the location of the most recently consumed token.
func (self *Lexer) Last() mc.Loc {
	return self.last
}

// Lex advances to the next token and returns it.
func (self *Lexer) Lex() Token {
	self.last = self.cur.Loc
	if n := len(self.back); n != 0 {
		self.cur, self.back = self.back[n-1], self.back[:n-1]
	} else {
		self.cur = self.scan()
	}
	return self.cur
}

// UnLex pushes tok back in front of the current token.
func (self *Lexer) UnLex(tok Token) {
	self.back = append(self.back, self.cur)
	self.cur = tok
}

// Peek returns the token after the current one without consuming anything.
func (self *Lexer) Peek() Token {
	cur := self.cur
	next := self.Lex()
	self.UnLex(cur)
	return next
}

// EatToEndOfStatement skips the rest of the current statement, leaving the
// end of statement token current.
func (self *Lexer) EatToEndOfStatement() {
	for !self.Is(T_EndOfStatement) && !self.Is(T_EOF) {
		self.Lex()
	}
}

func (self *Lexer) ch() byte {
	return self.src[self.pos]
}

func (self *Lexer) eof() bool {
	return self.pos >= len(self.src)
}

func (self *Lexer) advance(n int) {
	self.pos += n
	self.col += n
}

func (self *Lexer) newline() {
	self.pos++
	self.line++
	self.col = 1
	self.bol = true
}

func (self *Lexer) skipComment() {
	for !self.eof() && self.ch() != '\n' {
		self.advance(1)
	}
}

func (self *Lexer) scan() Token {
	for !self.eof() {
		switch ch := self.ch(); {
		case ch == ' ' || ch == '\t' || ch == '\r':
			self.advance(1)
		case ch == '!':
			self.skipComment()
		case ch == '#' && self.bol:
			self.skipComment()
		default:
			return self.token()
		}
	}
	return Token{Kind: T_EOF, Loc: mc.Loc{Line: self.line, Col: self.col}}
}

func (self *Lexer) token() Token {
	loc := mc.Loc{Line: self.line, Col: self.col}
	ch := self.ch()

	/* end of statement */
	if ch == '\n' {
		self.newline()
		return Token{Kind: T_EndOfStatement, Loc: loc}
	}

	/* everything else is not at the beginning of a line */
	self.bol = false
	switch {
	case ch == ';':
		self.advance(1)
		return Token{Kind: T_EndOfStatement, Loc: loc}
	case isDigit(ch):
		return self.integer(loc)
	case isIdentStart(ch):
		return self.ident(loc)
	case ch == '<' || ch == '>':
		return self.shift(loc, ch)
	}

	/* single character punctuations */
	if kind, ok := punctuations[ch]; ok {
		self.advance(1)
		return Token{Kind: kind, Loc: loc}
	} else {
		self.advance(1)
		return Token{Kind: T_Error, Str: fmt.Sprintf("invalid character %q", ch), Loc: loc}
	}
}

func (self *Lexer) shift(loc mc.Loc, ch byte) Token {
	if self.pos+1 >= len(self.src) || self.src[self.pos+1] != ch {
		self.advance(1)
		return Token{Kind: T_Error, Str: fmt.Sprintf("invalid character %q", ch), Loc: loc}
	} else if self.advance(2); ch == '<' {
		return Token{Kind: T_Shl, Loc: loc}
	} else {
		return Token{Kind: T_Shr, Loc: loc}
	}
}

func (self *Lexer) integer(loc mc.Loc) Token {
	p := self.pos
	for !self.eof() && isIdentChar(self.ch()) {
		self.advance(1)
	}

	/* decimal, 0x, 0b, and leading-zero octal */
	str := self.src[p:self.pos]
	if len(str) > 1 && str[0] == '0' && isDigit(str[1]) {
		str = "0o" + str[1:]
	}

	/* parse as unsigned, values above MaxInt64 wrap */
	if val, err := strconv.ParseUint(str, 0, 64); err != nil {
		return Token{Kind: T_Error, Str: "invalid integer " + self.src[p:self.pos], Loc: loc}
	} else {
		return Token{Kind: T_Integer, Int: int64(val), Str: self.src[p:self.pos], Loc: loc}
	}
}

func (self *Lexer) ident(loc mc.Loc) Token {
	p := self.pos
	for !self.eof() && isIdentChar(self.ch()) {
		self.advance(1)
	}

	/* a lone dot is the location counter */
	if str := self.src[p:self.pos]; str == "." {
		return Token{Kind: T_Dot, Str: str, Loc: loc}
	} else {
		return Token{Kind: T_Identifier, Str: str, Loc: loc}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '.' || ch == '$'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
