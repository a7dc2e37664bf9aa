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
	"github.com/chenzhuoyu/iasm/expr"

	"github.com/cloudwego/tinygpu/internal/mc"
)

type _BinOp struct {
	op   expr.Operator
	prec int
}

var binaryOps = map[TokenKind]_BinOp{
	T_Pipe:  {expr.OR, 1},
	T_Caret: {expr.XOR, 2},
	T_Amp:   {expr.AND, 3},
	T_Shl:   {expr.SHL, 4},
	T_Shr:   {expr.SHR, 4},
	T_Plus:  {expr.ADD, 5},
	T_Minus: {expr.SUB, 5},
	T_Star:  {expr.MUL, 6},
	T_Slash: {expr.DIV, 6},
}

// isPossibleExpression reports whether tok may start a constant expression.
func isPossibleExpression(tok Token) bool {
	switch tok.Kind {
	case T_LParen, T_Integer, T_Identifier, T_Plus, T_Minus, T_Tilde:
		return true
	default:
		return false
	}
}

// parseExpression parses a full expression starting at the current token.
func (self *Parser) parseExpression() (mc.Expr, bool) {
	if lhs, ok := self.parsePrimary(); !ok {
		return mc.Expr{}, false
	} else {
		return self.parseBinRHS(0, lhs)
	}
}

// parseParenExpression parses the rest of a parenthesized expression, the
// '(' has already been consumed.
func (self *Parser) parseParenExpression() (mc.Expr, bool) {
	if v, ok := self.parseExpression(); !ok {
		return mc.Expr{}, false
	} else if !self.lex.Is(T_RParen) {
		return mc.Expr{}, self.error(self.lex.Loc(), errExpectedRParen)
	} else {
		self.lex.Lex()
		return v, true
	}
}

// parseAbsoluteExpression parses an expression that must fold to a constant.
func (self *Parser) parseAbsoluteExpression() (int64, bool) {
	loc := self.lex.Loc()
	val, ok := self.parseExpression()

	/* must be a constant */
	if !ok {
		return 0, false
	} else if v, ok := val.Evaluate(); !ok {
		return 0, self.error(loc, "expected absolute expression")
	} else {
		return v, true
	}
}

func (self *Parser) parseBinRHS(prec int, lhs mc.Expr) (mc.Expr, bool) {
	for {
		op, ok := binaryOps[self.lex.Tok().Kind]
		if !ok || op.prec <= prec {
			return lhs, true
		}

		/* parse the right hand side */
		self.lex.Lex()
		rhs, ok := self.parsePrimary()
		if !ok {
			return mc.Expr{}, false
		}

		/* bind tighter operators to the right hand side first */
		if next, ok := binaryOps[self.lex.Tok().Kind]; ok && next.prec > op.prec {
			if rhs, ok = self.parseBinRHS(op.prec, rhs); !ok {
				return mc.Expr{}, false
			}
		}

		/* combine */
		lhs = mc.Binary(op.op, lhs, rhs)
	}
}

func (self *Parser) parsePrimary() (mc.Expr, bool) {
	tok := self.lex.Tok()
	switch tok.Kind {
	case T_Integer:
		self.lex.Lex()
		return mc.Const(tok.Int), true
	case T_Identifier, T_Dot:
		self.lex.Lex()
		return mc.Sym(tok.Str), true
	case T_LParen:
		self.lex.Lex()
		return self.parseParenExpression()
	case T_Plus:
		self.lex.Lex()
		return self.parsePrimary()
	case T_Minus:
		self.lex.Lex()
		return self.parseUnary(expr.NEG)
	case T_Tilde:
		self.lex.Lex()
		return self.parseUnary(expr.NOT)
	case T_Error:
		return mc.Expr{}, self.error(tok.Loc, tok.Str)
	default:
		return mc.Expr{}, self.error(tok.Loc, errUnknownExprToken)
	}
}

func (self *Parser) parseUnary(op expr.Operator) (mc.Expr, bool) {
	if v, ok := self.parsePrimary(); !ok {
		return mc.Expr{}, false
	} else if c, ok := v.Evaluate(); ok && op == expr.NEG {
		return mc.Const(-c), true
	} else {
		return mc.Unary(op, v), true
	}
}
