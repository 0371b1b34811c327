package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprKind classifies a parsed argument type.
type ExprKind int

const (
	ExprNamed ExprKind = iota + 1
	ExprVec
	ExprOption
	ExprCompact
	ExprTuple
	ExprArray
)

// TypeExpr is a parsed argument type name.
type TypeExpr struct {
	Kind  ExprKind
	Name  string     // ExprNamed only, normalised
	Elems []TypeExpr // one element for Vec/Option/Compact/Array, any number for tuples
	Len   int        // ExprArray only
}

func (e TypeExpr) String() string {
	switch e.Kind {
	case ExprNamed:
		return e.Name
	case ExprVec:
		return "Vec<" + e.Elems[0].String() + ">"
	case ExprOption:
		return "Option<" + e.Elems[0].String() + ">"
	case ExprCompact:
		return "Compact<" + e.Elems[0].String() + ">"
	case ExprArray:
		return "[" + e.Elems[0].String() + "; " + strconv.Itoa(e.Len) + "]"
	case ExprTuple:
		parts := make([]string, 0, len(e.Elems))
		for _, elem := range e.Elems {
			parts = append(parts, elem.String())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "?"
	}
}

// ParseType parses a schema type name such as "Vec<T::AccountId>" or "(u32, [u8; 4])".
func ParseType(input string) (TypeExpr, error) {
	p := &typeParser{input: input}
	expr, err := p.parse()
	if err != nil {
		return TypeExpr{}, fmt.Errorf("parse type %q: %w", input, err)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return TypeExpr{}, fmt.Errorf("parse type %q: unexpected %q at %d", input, p.input[p.pos:], p.pos)
	}
	return expr, nil
}

// NormaliseName strips path qualifiers: "T::Balance" and "<T as Trait>::Balance" become "Balance".
func NormaliseName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	return strings.TrimSpace(name)
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.input) {
			return fmt.Errorf("expected %q at end of input", c)
		}
		return fmt.Errorf("expected %q at %d, got %q", c, p.pos, p.input[p.pos])
	}
	p.pos++
	return nil
}

func (p *typeParser) parse() (TypeExpr, error) {
	p.skipSpace()
	switch p.peek() {
	case 0:
		return TypeExpr{}, fmt.Errorf("empty type")
	case '(':
		return p.parseTuple()
	case '[':
		return p.parseArray()
	}
	name, err := p.parsePath()
	if err != nil {
		return TypeExpr{}, err
	}
	p.skipSpace()
	if p.peek() != '<' {
		return TypeExpr{Kind: ExprNamed, Name: name}, nil
	}
	open := p.pos
	p.pos++
	params, err := p.parseParams()
	if err != nil {
		// Opaque generic: keep the text as a name the registry can size.
		p.pos = open
		raw, err := p.skipBalanced()
		if err != nil {
			return TypeExpr{}, err
		}
		return TypeExpr{Kind: ExprNamed, Name: name + raw}, nil
	}
	switch {
	case (name == "Vec" || name == "VecDeque") && len(params) == 1:
		return TypeExpr{Kind: ExprVec, Elems: params}, nil
	case (name == "BoundedVec" || name == "WeakBoundedVec") && len(params) <= 2:
		// The second parameter is the length bound and has no wire form.
		return TypeExpr{Kind: ExprVec, Elems: params[:1]}, nil
	case name == "Option" && len(params) == 1:
		return TypeExpr{Kind: ExprOption, Elems: params}, nil
	case name == "Compact" && len(params) == 1:
		return TypeExpr{Kind: ExprCompact, Elems: params}, nil
	case name == "Box" && len(params) == 1:
		return params[0], nil
	}
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, param.String())
	}
	return TypeExpr{Kind: ExprNamed, Name: name + "<" + strings.Join(parts, ", ") + ">"}, nil
}

// parseParams reads a comma-separated generic parameter list after '<'.
func (p *typeParser) parseParams() ([]TypeExpr, error) {
	var params []TypeExpr
	for {
		param, err := p.parse()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return params, nil
		default:
			return nil, fmt.Errorf("expected ',' or '>' at %d", p.pos)
		}
	}
}

// skipBalanced consumes a '<'...'>' group and returns its text.
func (p *typeParser) skipBalanced() (string, error) {
	start := p.pos
	depth := 0
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		p.pos++
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return p.input[start:p.pos], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced '<' at %d", start)
}

// parsePath reads an identifier path, including "<T as Trait>::" qualifiers.
func (p *typeParser) parsePath() (string, error) {
	start := p.pos
	if p.peek() == '<' {
		depth := 0
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			p.pos++
			if c == '<' {
				depth++
			} else if c == '>' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if depth != 0 {
			return "", fmt.Errorf("unbalanced qualifier at %d", start)
		}
		if !strings.HasPrefix(p.input[p.pos:], "::") {
			return "", fmt.Errorf("expected :: after qualifier at %d", p.pos)
		}
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if isIdentByte(c) || c == ':' {
			p.pos++
			continue
		}
		break
	}
	name := NormaliseName(p.input[start:p.pos])
	if name == "" {
		return "", fmt.Errorf("expected type name at %d", start)
	}
	return name, nil
}

func (p *typeParser) parseTuple() (TypeExpr, error) {
	p.pos++
	expr := TypeExpr{Kind: ExprTuple}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return expr, nil
	}
	for {
		elem, err := p.parse()
		if err != nil {
			return TypeExpr{}, err
		}
		expr.Elems = append(expr.Elems, elem)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == ')' {
				p.pos++
				return expr, nil
			}
		case ')':
			p.pos++
			return expr, nil
		default:
			return TypeExpr{}, fmt.Errorf("expected ',' or ')' at %d", p.pos)
		}
	}
}

func (p *typeParser) parseArray() (TypeExpr, error) {
	p.pos++
	elem, err := p.parse()
	if err != nil {
		return TypeExpr{}, err
	}
	if err := p.expect(';'); err != nil {
		return TypeExpr{}, err
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return TypeExpr{}, fmt.Errorf("array length at %d: %w", start, err)
	}
	if err := p.expect(']'); err != nil {
		return TypeExpr{}, err
	}
	return TypeExpr{Kind: ExprArray, Elems: []TypeExpr{elem}, Len: n}, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
