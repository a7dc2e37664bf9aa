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

import (
	"math"

	"github.com/pkg/errors"

	"github.com/cloudwego/tinygpu/internal/regs"
)

// foldBinary computes a binary operator over two values of the given width.
// It reports false when the result is undefined.
func foldBinary(op Opcode, a int64, b int64, bits int) (int64, bool) {
	var r int64
	sa, sb := sext(a, bits), sext(b, bits)
	ua, ub := zext(a, bits), zext(b, bits)

	/* shift amounts past the width flush the value */
	amt := ub
	wide := amt >= uint64(bits)

	/* compute in 64 bits, then wrap */
	switch op {
	case Add:
		r = a + b
	case Sub:
		r = a - b
	case Mul:
		r = a * b
	case And:
		r = a & b
	case Or:
		r = a | b
	case Xor:
		r = a ^ b
	case UDiv:
		if ub == 0 {
			return 0, false
		}
		r = int64(ua / ub)
	case SDiv:
		if sb == 0 {
			return 0, false
		}
		if sa == math.MinInt64 && sb == -1 {
			r = sa
		} else {
			r = sa / sb
		}
	case Shl:
		if !wide {
			r = int64(ua << amt)
		}
	case Srl:
		if !wide {
			r = int64(ua >> amt)
		}
	case Sra:
		if wide {
			r = sa >> (bits - 1)
		} else {
			r = sa >> amt
		}
	default:
		panic("dag: not a binary operator: " + op.String())
	}
	return sext(r, bits), true
}

// Eval computes the value of v, reading CopyFromReg nodes from env. Only
// integer values up to 32 bits are supported.
func Eval(v Value, env map[regs.Reg]uint32) (uint32, error) {
	ev := &_Evaluator{env: env, memo: make(map[Value]int64)}
	ret, err := ev.eval(v)
	return uint32(ret), err
}

type _Evaluator struct {
	env  map[regs.Reg]uint32
	memo map[Value]int64
}

func (self *_Evaluator) eval(v Value) (int64, error) {
	if r, ok := self.memo[v]; ok {
		return r, nil
	}

	/* check the type */
	vt := v.VT()
	if !vt.IsInteger() || vt.Bits() > 32 {
		return 0, errors.Errorf("eval: unsupported value type %s of %s", vt, v)
	}

	/* compute and remember */
	r, err := self.compute(v)
	if err != nil {
		return 0, err
	}
	r = sext(r, vt.Bits())
	self.memo[v] = r
	return r, nil
}

func (self *_Evaluator) operands(n *Node) ([]int64, error) {
	ret := make([]int64, 0, len(n.Ops))
	for _, op := range n.Ops {
		if op.VT() == VT_Other || op.VT() == VT_Glue || op.Op() == Register || op.Op() == ValueTypeNode {
			ret = append(ret, 0)
		} else if x, err := self.eval(op); err != nil {
			return nil, err
		} else {
			ret = append(ret, x)
		}
	}
	return ret, nil
}

func (self *_Evaluator) compute(v Value) (int64, error) {
	n := v.Node
	switch n.Op {
	case Constant, TargetConstant:
		return n.Const, nil
	case CopyFromReg:
		return self.register(n, v.ResNo)
	case MergeValues:
		return self.eval(n.Ops[v.ResNo])
	}

	/* everything else depends on its operands */
	ops, err := self.operands(n)
	if err != nil {
		return 0, err
	}

	/* compute the result */
	switch {
	case n.Op.IsBinary():
		if r, ok := foldBinary(n.Op, ops[0], ops[1], v.VT().Bits()); !ok {
			return 0, errors.Errorf("eval: division by zero in %s", v)
		} else {
			return r, nil
		}
	case n.Op == SetCC:
		if compare(n.CC, ops[0], ops[1], n.Ops[0].VT().Bits()) {
			return 1, nil
		} else {
			return 0, nil
		}
	case n.Op == Select:
		if ops[0] != 0 {
			return ops[1], nil
		} else {
			return ops[2], nil
		}
	case n.Op == TgtMad:
		return ops[0]*ops[1] + ops[2], nil
	case n.Op == Truncate, n.Op == Bitcast, n.Op == AssertSext, n.Op == AssertZext:
		return ops[0], nil
	case n.Op == ZeroExtend:
		return int64(zext(ops[0], n.Ops[0].VT().Bits())), nil
	case n.Op == SignExtend:
		return sext(ops[0], n.Ops[0].VT().Bits()), nil
	case n.Op == ShlParts, n.Op == SrlParts, n.Op == SraParts:
		return evalParts(n.Op, ops, n.Ops[0].VT().Bits(), v.ResNo), nil
	default:
		return 0, errors.Errorf("eval: cannot evaluate %s (%s)", v, n.Op)
	}
}

func (self *_Evaluator) register(n *Node, resno int) (int64, error) {
	reg := n.Ops[1].Node.Reg
	if resno != 0 {
		return 0, errors.Errorf("eval: %s is not a value", n.Value(resno))
	} else if r, ok := self.env[reg]; !ok {
		return 0, errors.Errorf("eval: register %s has no value", reg)
	} else {
		return int64(r), nil
	}
}

// evalParts shifts the (lo, hi) pair as one integer of twice the width.
func evalParts(op Opcode, ops []int64, bits int, resno int) int64 {
	lo := zext(ops[0], bits)
	hi := zext(ops[1], bits)
	amt := zext(ops[2], bits) % uint64(2*bits)

	/* join the halves */
	var r uint64
	x := hi<<uint(bits) | lo
	switch op {
	case ShlParts:
		r = x << amt
	case SrlParts:
		r = x >> amt
	default:
		r = uint64(sext(int64(x), 2*bits) >> amt)
	}

	/* pick the requested half */
	if resno == 0 {
		return int64(r)
	} else {
		return int64(r >> uint(bits))
	}
}
