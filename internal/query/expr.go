/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package query filters and aggregates interval records. Filter expressions
// are evaluated by a small closed-grammar interpreter: comparisons, boolean
// connectives and a contains operator over the fixed record field set. There
// is deliberately no way to reach anything outside a record.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hidetak/trello-csv/internal/domain"
)

const (
	kindNum = iota
	kindStr
	kindBool
	kindTime
)

type value struct {
	kind int
	num  float64
	str  string
	b    bool
	t    time.Time
}

func numValue(f float64) value    { return value{kind: kindNum, num: f} }
func strValue(s string) value     { return value{kind: kindStr, str: s} }
func boolValue(b bool) value      { return value{kind: kindBool, b: b} }
func timeValue(t time.Time) value { return value{kind: kindTime, t: t} }

func kindName(k int) string {
	switch k {
	case kindNum:
		return "number"
	case kindStr:
		return "string"
	case kindBool:
		return "boolean"
	default:
		return "datetime"
	}
}

// Fields enumerates the record fields an expression may reference, in the
// order reports print them.
var Fields = []string{
	"cardId", "number", "title", "point", "listName", "inDate", "outDate",
	"resultTime", "reviewTime", "labelPink", "labelGreen", "member",
}

var fieldKinds = map[string]int{
	"cardId": kindStr, "number": kindStr, "title": kindStr,
	"point": kindNum, "listName": kindStr,
	"inDate": kindTime, "outDate": kindTime,
	"resultTime": kindNum, "reviewTime": kindNum,
	"labelPink": kindStr, "labelGreen": kindStr, "member": kindStr,
}

// ValidField reports whether name is one of the filterable record fields.
func ValidField(name string) bool { _, ok := fieldKinds[name]; return ok }

func fieldValue(r domain.Record, name string) value {
	switch name {
	case "cardId":
		return strValue(r.CardID)
	case "number":
		return strValue(r.Number)
	case "title":
		return strValue(r.Title)
	case "point":
		return numValue(r.Point)
	case "listName":
		return strValue(r.ListName)
	case "inDate":
		return timeValue(r.InDate)
	case "outDate":
		return timeValue(r.OutDate)
	case "resultTime":
		return numValue(r.ResultTime)
	case "reviewTime":
		return numValue(r.ReviewTime)
	case "labelPink":
		return strValue(r.LabelPink)
	case "labelGreen":
		return strValue(r.LabelGreen)
	default: // member; callers validate names first
		return strValue(r.Member)
	}
}

var dateLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	time.RFC3339,
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil { return t, nil }
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}

// ---- lexer ----

const (
	tokEOF = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind int
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			toks = append(toks, token{tokOp, string(c), i})
			i++
		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != c {
				return nil, fmt.Errorf("pos %d: unexpected %q", i, string(c))
			}
			toks = append(toks, token{tokOp, string(c) + string(c), i})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{tokOp, string(c) + "=", i})
				i += 2
			} else if c == '=' {
				return nil, fmt.Errorf("pos %d: unexpected %q (use ==)", i, "=")
			} else {
				toks = append(toks, token{tokOp, string(c), i})
				i++
			}
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c { j++ }
			if j >= len(src) { return nil, fmt.Errorf("pos %d: unterminated string", i) }
			toks = append(toks, token{tokString, src[i+1 : j], i})
			i = j + 1
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') { j++ }
			toks = append(toks, token{tokNumber, src[i:j], i})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("pos %d: unexpected %q", i, string(c))
		}
	}
	toks = append(toks, token{tokEOF, "", len(src)})
	return toks, nil
}

// ---- parser ----

type node interface {
	eval(r domain.Record, loc *time.Location) (value, error)
}

type literalNode struct{ v value }

func (n literalNode) eval(domain.Record, *time.Location) (value, error) { return n.v, nil }

type fieldNode struct{ name string }

func (n fieldNode) eval(r domain.Record, _ *time.Location) (value, error) {
	return fieldValue(r, n.name), nil
}

type notNode struct{ sub node }

func (n notNode) eval(r domain.Record, loc *time.Location) (value, error) {
	v, err := n.sub.eval(r, loc)
	if err != nil { return value{}, err }
	if v.kind != kindBool { return value{}, fmt.Errorf("! applied to %s", kindName(v.kind)) }
	return boolValue(!v.b), nil
}

type logicNode struct {
	op          string
	left, right node
}

func (n logicNode) eval(r domain.Record, loc *time.Location) (value, error) {
	l, err := n.left.eval(r, loc)
	if err != nil { return value{}, err }
	if l.kind != kindBool { return value{}, fmt.Errorf("%s applied to %s", n.op, kindName(l.kind)) }
	// short circuit
	if n.op == "&&" && !l.b { return boolValue(false), nil }
	if n.op == "||" && l.b { return boolValue(true), nil }
	rt, err := n.right.eval(r, loc)
	if err != nil { return value{}, err }
	if rt.kind != kindBool { return value{}, fmt.Errorf("%s applied to %s", n.op, kindName(rt.kind)) }
	return boolValue(rt.b), nil
}

type cmpNode struct {
	op          string
	left, right node
}

func (n cmpNode) eval(r domain.Record, loc *time.Location) (value, error) {
	l, err := n.left.eval(r, loc)
	if err != nil { return value{}, err }
	rt, err := n.right.eval(r, loc)
	if err != nil { return value{}, err }
	return compare(n.op, l, rt, loc)
}

func compare(op string, l, r value, loc *time.Location) (value, error) {
	// a string literal compared against a date field is parsed as a date
	if l.kind == kindTime && r.kind == kindStr {
		t, err := parseDate(r.str, loc)
		if err != nil { return value{}, err }
		r = timeValue(t)
	}
	if r.kind == kindTime && l.kind == kindStr {
		t, err := parseDate(l.str, loc)
		if err != nil { return value{}, err }
		l = timeValue(t)
	}
	if op == "contains" {
		if l.kind != kindStr || r.kind != kindStr {
			return value{}, fmt.Errorf("contains needs strings, got %s and %s", kindName(l.kind), kindName(r.kind))
		}
		return boolValue(strings.Contains(l.str, r.str)), nil
	}
	if l.kind != r.kind {
		return value{}, fmt.Errorf("cannot compare %s with %s", kindName(l.kind), kindName(r.kind))
	}
	switch l.kind {
	case kindBool:
		switch op {
		case "==":
			return boolValue(l.b == r.b), nil
		case "!=":
			return boolValue(l.b != r.b), nil
		}
		return value{}, fmt.Errorf("%s not defined for booleans", op)
	case kindNum:
		return boolValue(ordered(op, cmpFloat(l.num, r.num))), nil
	case kindStr:
		return boolValue(ordered(op, strings.Compare(l.str, r.str))), nil
	default:
		c := 0
		if l.t.Before(r.t) { c = -1 } else if l.t.After(r.t) { c = 1 }
		return boolValue(ordered(op, c)), nil
	}
}

func cmpFloat(a, b float64) int {
	if a < b { return -1 }
	if a > b { return 1 }
	return 0
}

func ordered(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default: // >=
		return c >= 0
	}
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) accept(text string) bool {
	t := p.peek()
	if t.kind == tokOp && t.text == text { p.pos++; return true }
	return false
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil { return nil, err }
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil { return nil, err }
		left = logicNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil { return nil, err }
	for p.accept("&&") {
		right, err := p.parseUnary()
		if err != nil { return nil, err }
		left = logicNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept("!") {
		sub, err := p.parseUnary()
		if err != nil { return nil, err }
		return notNode{sub: sub}, nil
	}
	return p.parseComparison()
}

var cmpOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parsePrimary()
	if err != nil { return nil, err }
	t := p.peek()
	op := ""
	if t.kind == tokOp && cmpOps[t.text] {
		op = t.text
	} else if t.kind == tokIdent && t.text == "contains" {
		op = "contains"
	}
	if op == "" { return left, nil }
	p.next()
	right, err := p.parsePrimary()
	if err != nil { return nil, err }
	return cmpNode{op: op, left: left, right: right}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokOp:
		if t.text == "(" {
			sub, err := p.parseExpr()
			if err != nil { return nil, err }
			if !p.accept(")") { return nil, fmt.Errorf("pos %d: missing )", p.peek().pos) }
			return sub, nil
		}
		return nil, fmt.Errorf("pos %d: unexpected %q", t.pos, t.text)
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil { return nil, fmt.Errorf("pos %d: bad number %q", t.pos, t.text) }
		return literalNode{numValue(f)}, nil
	case tokString:
		return literalNode{strValue(t.text)}, nil
	case tokIdent:
		switch t.text {
		case "true", "all":
			return literalNode{boolValue(true)}, nil
		case "false", "header":
			return literalNode{boolValue(false)}, nil
		}
		if !ValidField(t.text) { return nil, fmt.Errorf("pos %d: unbound name %q", t.pos, t.text) }
		return fieldNode{name: t.text}, nil
	default:
		return nil, fmt.Errorf("pos %d: unexpected end of expression", t.pos)
	}
}

// Expr is a compiled filter expression.
type Expr struct {
	root node
	loc  *time.Location
}

// Compile parses a filter expression. Date literals in comparisons are
// interpreted in loc.
func Compile(src string, loc *time.Location) (*Expr, error) {
	if strings.TrimSpace(src) == "" { return nil, fmt.Errorf("empty filter expression") }
	if loc == nil { loc = time.UTC }
	toks, err := lex(src)
	if err != nil { return nil, err }
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil { return nil, err }
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("pos %d: unexpected %q", t.pos, t.text)
	}
	return &Expr{root: root, loc: loc}, nil
}

// Eval applies the expression to one record.
func (e *Expr) Eval(r domain.Record) (bool, error) {
	v, err := e.root.eval(r, e.loc)
	if err != nil { return false, err }
	if v.kind != kindBool { return false, fmt.Errorf("expression is not boolean") }
	return v.b, nil
}

// Filter returns the records matching the expression. Any compile or
// evaluation error aborts the whole pass; no partial result is returned.
func Filter(records []domain.Record, src string, loc *time.Location) ([]domain.Record, error) {
	e, err := Compile(src, loc)
	if err != nil { return nil, err }
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		ok, err := e.Eval(r)
		if err != nil { return nil, err }
		if ok { out = append(out, r) }
	}
	return out, nil
}
