package bvsls

import (
	"fmt"
	"strings"
)

type ValueKind int

const (
	ValueBool ValueKind = iota
	ValueBV
)

//Value is a tagged node value: a Boolean or a fixed-width bit-vector.
//For bit-vectors the bits and the per-bit fixed mask share the same word
//layout and every bit above Width is kept at zero.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Width int
	Bits  []uint64
	Fixed []uint64
}

//NewBoolValue returns a Boolean value
func NewBoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

//NewBVValue returns an all-zero bit-vector value of the given width
func NewBVValue(width int) Value {
	if width <= 0 {
		panic(fmt.Errorf("The width of a bit-vector must be positive: %d", width))
	}
	n := numWords(width)
	return Value{Kind: ValueBV, Width: width, Bits: make([]uint64, n), Fixed: make([]uint64, n)}
}

func numWords(width int) int {
	return (width + 63) / 64
}

//topWordMask returns the mask for the highest word of a width-bit vector
func topWordMask(width int) uint64 {
	r := width % 64
	if r == 0 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(r)) - 1
}

func (v Value) Bit(i int) bool {
	return v.Bits[i/64]&(uint64(1)<<uint(i%64)) != 0
}

func (v *Value) SetBit(i int, b bool) {
	if b {
		v.Bits[i/64] |= uint64(1) << uint(i%64)
	} else {
		v.Bits[i/64] &^= uint64(1) << uint(i%64)
	}
}

func (v Value) FixedBit(i int) bool {
	return v.Fixed[i/64]&(uint64(1)<<uint(i%64)) != 0
}

func (v *Value) SetFixedBit(i int, b bool) {
	if b {
		v.Fixed[i/64] |= uint64(1) << uint(i%64)
	} else {
		v.Fixed[i/64] &^= uint64(1) << uint(i%64)
	}
}

//FixAll pins every bit of a bit-vector value
func (v *Value) FixAll() {
	for k := range v.Fixed {
		v.Fixed[k] = ^uint64(0)
	}
	v.Fixed[len(v.Fixed)-1] = topWordMask(v.Width)
}

//AllFixed reports whether every bit of a bit-vector value is pinned
func (v Value) AllFixed() bool {
	for k := 0; k < len(v.Fixed)-1; k++ {
		if v.Fixed[k] != ^uint64(0) {
			return false
		}
	}
	return v.Fixed[len(v.Fixed)-1] == topWordMask(v.Width)
}

//Equal compares kinds and payload bits; fixed masks do not participate
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == ValueBool {
		return v.Bool == o.Bool
	}
	if v.Width != o.Width {
		return false
	}
	for k := range v.Bits {
		if v.Bits[k] != o.Bits[k] {
			return false
		}
	}
	return true
}

func (v Value) Clone() Value {
	c := v
	if v.Kind == ValueBV {
		c.Bits = make([]uint64, len(v.Bits))
		c.Fixed = make([]uint64, len(v.Fixed))
		copy(c.Bits, v.Bits)
		copy(c.Fixed, v.Fixed)
	}
	return c
}

//SetUint64 installs x into the low word, truncated to the declared width
func (v *Value) SetUint64(x uint64) {
	for k := range v.Bits {
		v.Bits[k] = 0
	}
	v.Bits[0] = x
	wordsMask(v.Bits, v.Width)
}

//Uint64 returns the low 64 bits of a bit-vector value
func (v Value) Uint64() uint64 {
	return v.Bits[0]
}

func (v Value) String() string {
	if v.Kind == ValueBool {
		if v.Bool {
			return "true"
		}
		return "false"
	}
	digits := (v.Width + 3) / 4
	var sb strings.Builder
	for k := len(v.Bits) - 1; k >= 0; k-- {
		sb.WriteString(fmt.Sprintf("%016x", v.Bits[k]))
	}
	s := sb.String()
	return "#x" + s[len(s)-digits:]
}

//The word helpers below operate on whole bit-vector payloads and keep the
//bits above width zeroed.

func wordsMask(a []uint64, width int) {
	a[len(a)-1] &= topWordMask(width)
}

func wordsNot(a []uint64, width int) []uint64 {
	r := make([]uint64, len(a))
	for k := range a {
		r[k] = ^a[k]
	}
	wordsMask(r, width)
	return r
}

func wordsAnd(a, b []uint64) []uint64 {
	r := make([]uint64, len(a))
	for k := range a {
		r[k] = a[k] & b[k]
	}
	return r
}

func wordsOr(a, b []uint64) []uint64 {
	r := make([]uint64, len(a))
	for k := range a {
		r[k] = a[k] | b[k]
	}
	return r
}

func wordsXor(a, b []uint64) []uint64 {
	r := make([]uint64, len(a))
	for k := range a {
		r[k] = a[k] ^ b[k]
	}
	return r
}

func wordsAdd(a, b []uint64, width int) []uint64 {
	r := make([]uint64, len(a))
	var carry uint64
	for k := range a {
		s := a[k] + b[k]
		c1 := uint64(0)
		if s < a[k] {
			c1 = 1
		}
		r[k] = s + carry
		if r[k] < s {
			c1 = 1
		}
		carry = c1
	}
	wordsMask(r, width)
	return r
}

//wordsSub computes a - b modulo 2^width as a + ^b + 1
func wordsSub(a, b []uint64, width int) []uint64 {
	r := make([]uint64, len(a))
	var carry uint64 = 1
	for k := range a {
		nb := ^b[k]
		s := a[k] + nb
		c1 := uint64(0)
		if s < a[k] {
			c1 = 1
		}
		r[k] = s + carry
		if r[k] < s {
			c1 = 1
		}
		carry = c1
	}
	wordsMask(r, width)
	return r
}

func wordsEqual(a, b []uint64) bool {
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}
