package bvsls

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

//ParseProblem reads a constraint problem into the graph. The format is line
//oriented:
//
//	c <comment>
//	d <name> bool        declare a Boolean constant
//	d <name> <width>     declare a bit-vector constant
//	a <expr>             assert a Boolean expression
//
//Expressions are parenthesized prefix terms over not/and/or/=/bvnot/bvand/
//bvor/bvxor/bvadd, declared names, true/false, and constants written
//value:width with a decimal or 0x value.
func ParseProblem(in *bufio.Scanner, g *Graph) error {
	decls := make(map[string]TermID)
	lineNo := 0
	for in.Scan() {
		lineNo++
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, "c") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "d "):
			if err := readDecl(line[2:], g, decls); err != nil {
				return fmt.Errorf("line %d: %v", lineNo, err)
			}
		case strings.HasPrefix(line, "a "):
			id, err := readExpr(line[2:], g, decls)
			if err != nil {
				return fmt.Errorf("line %d: %v", lineNo, err)
			}
			if !g.Term(id).IsBool() {
				return fmt.Errorf("line %d: PARSE ERROR! The asserted term is not Boolean", lineNo)
			}
			g.Assert(id)
		default:
			return fmt.Errorf("line %d: PARSE ERROR! Unknown directive: %s", lineNo, line)
		}
	}
	return in.Err()
}

func readDecl(rest string, g *Graph, decls map[string]TermID) error {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return fmt.Errorf("PARSE ERROR! A declaration needs a name and a kind: d %s", rest)
	}
	name := fields[0]
	if _, ok := decls[name]; ok {
		return fmt.Errorf("PARSE ERROR! The name is already declared: %s", name)
	}
	if fields[1] == "bool" {
		decls[name] = g.BoolVar(name)
		return nil
	}
	width, err := strconv.Atoi(fields[1])
	if err != nil || width <= 0 {
		return fmt.Errorf("PARSE ERROR! The kind must be bool or a positive width: %s", fields[1])
	}
	decls[name] = g.BVVar(name, width)
	return nil
}

var parseArity = map[string]int{
	"not":   1,
	"and":   2,
	"or":    2,
	"=":     2,
	"bvnot": 1,
	"bvand": 2,
	"bvor":  2,
	"bvxor": 2,
	"bvadd": 2,
}

func readExpr(s string, g *Graph, decls map[string]TermID) (TermID, error) {
	tokens := tokenize(s)
	id, rest, err := parseTokens(tokens, g, decls)
	if err != nil {
		return TermIDUndef, err
	}
	if len(rest) != 0 {
		return TermIDUndef, fmt.Errorf("PARSE ERROR! Trailing tokens after expression: %v", rest)
	}
	return id, nil
}

func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "(", " ( ")
	s = strings.ReplaceAll(s, ")", " ) ")
	return strings.Fields(s)
}

func parseTokens(tokens []string, g *Graph, decls map[string]TermID) (TermID, []string, error) {
	if len(tokens) == 0 {
		return TermIDUndef, nil, fmt.Errorf("PARSE ERROR! Unexpected end of expression")
	}
	tok := tokens[0]
	tokens = tokens[1:]
	if tok != "(" {
		id, err := parseAtom(tok, g, decls)
		return id, tokens, err
	}
	if len(tokens) == 0 {
		return TermIDUndef, nil, fmt.Errorf("PARSE ERROR! Unexpected end of expression")
	}
	op := tokens[0]
	tokens = tokens[1:]
	arity, ok := parseArity[op]
	if !ok {
		return TermIDUndef, nil, fmt.Errorf("PARSE ERROR! Unknown operator: %s", op)
	}
	args := make([]TermID, 0, arity)
	for i := 0; i < arity; i++ {
		var (
			id  TermID
			err error
		)
		id, tokens, err = parseTokens(tokens, g, decls)
		if err != nil {
			return TermIDUndef, nil, err
		}
		args = append(args, id)
	}
	if len(tokens) == 0 || tokens[0] != ")" {
		return TermIDUndef, nil, fmt.Errorf("PARSE ERROR! Expected ) after %s", op)
	}
	tokens = tokens[1:]
	id, err := buildTerm(op, args, g)
	return id, tokens, err
}

func parseAtom(tok string, g *Graph, decls map[string]TermID) (TermID, error) {
	switch tok {
	case "true":
		return g.BoolConst(true), nil
	case "false":
		return g.BoolConst(false), nil
	}
	if id, ok := decls[tok]; ok {
		return id, nil
	}
	if k := strings.IndexByte(tok, ':'); k > 0 {
		value, err := strconv.ParseUint(strings.TrimPrefix(tok[:k], "0x"),
			parseBase(tok[:k]), 64)
		if err != nil {
			return TermIDUndef, fmt.Errorf("PARSE ERROR! Bad constant value: %s", tok)
		}
		width, err := strconv.Atoi(tok[k+1:])
		if err != nil || width <= 0 {
			return TermIDUndef, fmt.Errorf("PARSE ERROR! Bad constant width: %s", tok)
		}
		return g.BVConst(value, width), nil
	}
	return TermIDUndef, fmt.Errorf("PARSE ERROR! Unknown atom: %s", tok)
}

func parseBase(v string) int {
	if strings.HasPrefix(v, "0x") {
		return 16
	}
	return 10
}

func buildTerm(op string, args []TermID, g *Graph) (id TermID, err error) {
	// Graph constructors panic on kind mismatches; report them as parse errors.
	defer func() {
		if r := recover(); r != nil {
			id = TermIDUndef
			err = fmt.Errorf("PARSE ERROR! %v", r)
		}
	}()
	switch op {
	case "not":
		return g.Not(args[0]), nil
	case "and":
		return g.And(args[0], args[1]), nil
	case "or":
		return g.Or(args[0], args[1]), nil
	case "=":
		return g.Eq(args[0], args[1]), nil
	case "bvnot":
		return g.BVNot(args[0]), nil
	case "bvand":
		return g.BVAnd(args[0], args[1]), nil
	case "bvor":
		return g.BVOr(args[0], args[1]), nil
	case "bvxor":
		return g.BVXor(args[0], args[1]), nil
	case "bvadd":
		return g.BVAdd(args[0], args[1]), nil
	}
	return TermIDUndef, fmt.Errorf("PARSE ERROR! Unknown operator: %s", op)
}
