package bvsls

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, s string) (*Graph, error) {
	t.Helper()
	g := NewGraph()
	err := ParseProblem(bufio.NewScanner(strings.NewReader(s)), g)
	return g, err
}

func TestParseProblem(t *testing.T) {
	problem := `
c a small problem
d x 8
d y 8
d b bool

a (= (bvadd x y) 100:8)
a (or b (= (bvand x 0x0f:8) 3:8))
`
	g, err := parseString(t, problem)
	require.NoError(t, err)
	assert.Len(t, g.Assertions(), 2)
	// x, y, b, bvadd, 100, eq, 0x0f, bvand, 3, inner eq, or
	assert.Equal(t, 11, g.NumTerms())
}

func TestParseSharesSubterms(t *testing.T) {
	problem := `
d x 8
a (= (bvadd x x) 4:8)
a (= (bvadd x x) 4:8)
`
	g, err := parseString(t, problem)
	require.NoError(t, err)
	// the duplicate assertion collapses onto the same node
	assert.Len(t, g.Assertions(), 1)
	assert.Equal(t, 4, g.NumTerms())
}

func TestParseHexAndBoolAtoms(t *testing.T) {
	problem := `
d b bool
a (= b true)
a (= 0xff:8 255:8)
`
	g, err := parseString(t, problem)
	require.NoError(t, err)
	assert.Len(t, g.Assertions(), 2)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		problem string
	}{
		{"unknown directive", "x (= a b)"},
		{"unknown operator", "d x 8\na (bvmul x x)"},
		{"undeclared atom", "a (= x 1:8)"},
		{"duplicate declaration", "d x 8\nd x bool"},
		{"bad width", "d x -3"},
		{"bad constant", "d x 8\na (= x 12:)"},
		{"arity", "d b bool\na (not)"},
		{"trailing tokens", "d b bool\na (not b) b"},
		{"kind mismatch", "d b bool\nd x 8\na (and b x)"},
		{"non-boolean assertion", "d x 8\na x"},
		{"unclosed expression", "d b bool\na (and b b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseString(t, tc.problem)
			require.Error(t, err)
		})
	}
}

func TestParseAndSolve(t *testing.T) {
	problem := `
c y must be five
d y 8
a (= y 5:8)
`
	g, err := parseString(t, problem)
	require.NoError(t, err)

	e := newTestEngine(g, DefaultConfig(), nil)
	require.Equal(t, ResultSuccess, e.Run())
	y := g.BVVar("y", 8)
	assert.Equal(t, uint64(5), e.Model()[y].Uint64())
}
