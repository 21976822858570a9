package bvsls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueBits(t *testing.T) {
	v := NewBVValue(100)
	require.Len(t, v.Bits, 2)

	v.SetBit(0, true)
	v.SetBit(63, true)
	v.SetBit(64, true)
	v.SetBit(99, true)
	assert.True(t, v.Bit(0))
	assert.True(t, v.Bit(63))
	assert.True(t, v.Bit(64))
	assert.True(t, v.Bit(99))
	assert.False(t, v.Bit(1))
	assert.False(t, v.Bit(98))

	v.SetBit(63, false)
	assert.False(t, v.Bit(63))
}

func TestValueFixedMask(t *testing.T) {
	v := NewBVValue(8)
	assert.False(t, v.AllFixed())
	v.SetFixedBit(3, true)
	assert.True(t, v.FixedBit(3))
	assert.False(t, v.FixedBit(2))
	assert.False(t, v.AllFixed())
	v.FixAll()
	assert.True(t, v.AllFixed())
	for i := 0; i < 8; i++ {
		assert.True(t, v.FixedBit(i))
	}
}

func TestValueEqualAndClone(t *testing.T) {
	a := NewBVValue(8)
	a.SetUint64(0xa5)
	b := NewBVValue(8)
	b.SetUint64(0xa5)
	b.FixAll() // fixed masks do not participate in equality
	assert.True(t, a.Equal(b))

	c := a.Clone()
	c.SetBit(0, !c.Bit(0))
	assert.False(t, a.Equal(c))
	assert.True(t, a.Bit(0))

	bt := NewBoolValue(true)
	bf := NewBoolValue(false)
	assert.False(t, bt.Equal(bf))
	assert.False(t, bt.Equal(a))
}

func TestValueSetUint64Truncates(t *testing.T) {
	v := NewBVValue(4)
	v.SetUint64(0xff)
	assert.Equal(t, uint64(0xf), v.Uint64())
}

func TestWordsArithmetic(t *testing.T) {
	a := NewBVValue(8)
	a.SetUint64(250)
	b := NewBVValue(8)
	b.SetUint64(10)

	sum := wordsAdd(a.Bits, b.Bits, 8)
	assert.Equal(t, uint64(4), sum[0]) // modular wrap

	diff := wordsSub(b.Bits, a.Bits, 8)
	assert.Equal(t, uint64(16), diff[0]) // 10 - 250 mod 256

	n := wordsNot(a.Bits, 8)
	assert.Equal(t, uint64(5), n[0])
}

func TestWordsCarryAcrossWords(t *testing.T) {
	a := NewBVValue(100)
	b := NewBVValue(100)
	a.Bits[0] = ^uint64(0)
	b.SetUint64(1)
	sum := wordsAdd(a.Bits, b.Bits, 100)
	assert.Equal(t, uint64(0), sum[0])
	assert.Equal(t, uint64(1), sum[1])

	diff := wordsSub(sum, b.Bits, 100)
	assert.True(t, wordsEqual(diff, a.Bits))
}

func TestValueString(t *testing.T) {
	v := NewBVValue(8)
	v.SetUint64(5)
	assert.Equal(t, "#x05", v.String())

	w := NewBVValue(12)
	w.SetUint64(0xabc)
	assert.Equal(t, "#xabc", w.String())

	bt := NewBoolValue(true)
	assert.Equal(t, "true", bt.String())
}
