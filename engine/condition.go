package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hubenschmidt/go-reviewgraph/core"
)

// Condition is a compiled branch predicate. The grammar is closed: the only
// binding is the run state, the only call is len(), and the only method is
// .get() on mappings.
//
//	expr    := and ("or" and)*
//	and     := not ("and" not)*
//	not     := "not" not | cmp
//	cmp     := sum [("=="|"!="|"<"|"<="|">"|">="|"is" ["not"]|["not"] "in") sum]
//	sum     := "-" sum | postfix
//	postfix := primary ("[" expr "]" | ".get(" expr ["," expr] ")")*
//	primary := number | string | True | False | None | state | len(expr) | (expr)
//	         | "[" [expr ("," expr)*] "]" | "{" [expr ":" expr ("," expr ":" expr)*] "}"
type Condition struct {
	src  string
	root exprNode
}

const (
	maxConditionLength = 4096
	maxConditionDepth  = 96
)

func ParseCondition(src string) (*Condition, error) {
	if len(src) > maxConditionLength {
		return nil, fmt.Errorf("%w: condition longer than %d bytes", core.ErrInvalidCondition, maxConditionLength)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidCondition, src, err)
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err == nil && p.peek().kind != tokEOF {
		err = fmt.Errorf("unexpected %s at offset %d", p.peek(), p.peek().pos)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidCondition, src, err)
	}
	return &Condition{src: src, root: root}, nil
}

func (c *Condition) String() string {
	return c.src
}

// Eval reports whether the predicate holds for state. Missing keys, bad
// indexes and mismatched operand types are errors, not false.
func (c *Condition) Eval(state core.State) (bool, error) {
	v, err := c.root.eval(state)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.src, err)
	}
	return truthy(v), nil
}

// lexer

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

var twoCharOps = []string{"==", "!=", "<=", ">="}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || (c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9'):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.' || src[i] == '_' ||
				src[i] == 'e' || src[i] == 'E' ||
				((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
				i++
			}
			text := strings.ReplaceAll(src[start:i], "_", "")
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at offset %d", src[start:i], start)
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], num: n, pos: start})
		case c == '\'' || c == '"':
			start := i
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("%v at offset %d", err, start)
			}
			i += n
			toks = append(toks, token{kind: tokString, text: s, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op, pos: i})
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if !strings.ContainsRune("<>()[]{},:.-", rune(c)) {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func lexString(src string) (string, int, error) {
	quote := src[0]
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parser

type parser struct {
	toks  []token
	pos   int
	depth int
}

// enter bounds recursion so hostile input fails to parse instead of
// exhausting the stack.
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxConditionDepth {
		return fmt.Errorf("expression nested too deeply at offset %d", p.peek().pos)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == word
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) expectOp(op string) error {
	if !p.isOp(op) {
		return fmt.Errorf("expected %q, found %s at offset %d", op, p.peek(), p.peek().pos)
	}
	p.next()
	return nil
}

func (p *parser) parseExpr() (exprNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{or: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (exprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (exprNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.isKeyword("not") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t.kind == tokOp && (t.text == "==" || t.text == "!=" || t.text == "<" || t.text == "<=" || t.text == ">" || t.text == ">="):
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &compareExpr{op: t.text, left: left, right: right}, nil
	case p.isKeyword("is"):
		p.next()
		op := "is"
		if p.isKeyword("not") {
			p.next()
			op = "is not"
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &compareExpr{op: op, left: left, right: right}, nil
	case p.isKeyword("in"):
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &inExpr{item: left, container: right}, nil
	case p.isKeyword("not") && p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokIdent && p.toks[p.pos+1].text == "in":
		p.next()
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &inExpr{item: left, container: right, negate: true}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (exprNode, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.isOp("-") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negExpr{inner: inner}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (exprNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("["):
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			node = &indexExpr{target: node, key: key}
		case p.isOp("."):
			p.next()
			if !p.isKeyword("get") {
				return nil, fmt.Errorf("only .get() is allowed, found %s at offset %d", p.peek(), p.peek().pos)
			}
			p.next()
			if err := p.expectOp("("); err != nil {
				return nil, err
			}
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			var def exprNode = &literal{}
			if p.isOp(",") {
				p.next()
				if def, err = p.parseExpr(); err != nil {
					return nil, err
				}
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			node = &getExpr{target: node, key: key, def: def}
		default:
			return node, nil
		}
	}
}

func (p *parser) parsePrimary() (exprNode, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &literal{value: t.num}, nil
	case tokString:
		return &literal{value: t.text}, nil
	case tokIdent:
		switch t.text {
		case "True", "true":
			return &literal{value: true}, nil
		case "False", "false":
			return &literal{value: false}, nil
		case "None", "null":
			return &literal{}, nil
		case "state":
			return &stateRef{}, nil
		case "len":
			if err := p.expectOp("("); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return &lenExpr{arg: arg}, nil
		}
		return nil, fmt.Errorf("unknown name %q at offset %d", t.text, t.pos)
	case tokOp:
		switch t.text {
		case "(":
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "[":
			return p.parseList()
		case "{":
			return p.parseDict()
		}
	}
	return nil, fmt.Errorf("unexpected %s at offset %d", t, t.pos)
}

// parseList reads the items of a list literal; the opening bracket is
// already consumed. A trailing comma is allowed.
func (p *parser) parseList() (exprNode, error) {
	list := &listExpr{}
	for !p.isOp("]") {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.items = append(list.items, item)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseDict() (exprNode, error) {
	dict := &dictExpr{}
	for !p.isOp("}") {
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dict.keys = append(dict.keys, key)
		dict.values = append(dict.values, value)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return dict, nil
}

// evaluation

type exprNode interface {
	eval(state core.State) (any, error)
}

type literal struct{ value any }

func (n *literal) eval(core.State) (any, error) { return n.value, nil }

type stateRef struct{}

func (n *stateRef) eval(state core.State) (any, error) { return state, nil }

type listExpr struct{ items []exprNode }

func (n *listExpr) eval(state core.State) (any, error) {
	out := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(state)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type dictExpr struct{ keys, values []exprNode }

func (n *dictExpr) eval(state core.State) (any, error) {
	out := make(map[string]any, len(n.keys))
	for i := range n.keys {
		k, err := n.keys[i].eval(state)
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings, got %s", typeName(k))
		}
		v, err := n.values[i].eval(state)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

type lenExpr struct{ arg exprNode }

func (n *lenExpr) eval(state core.State) (any, error) {
	v, err := n.arg.eval(state)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return float64(utf8.RuneCountInString(s)), nil
	}
	rv := reflect.ValueOf(plain(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return float64(rv.Len()), nil
	}
	return nil, fmt.Errorf("len() of %s", typeName(v))
}

type notExpr struct{ inner exprNode }

func (n *notExpr) eval(state core.State) (any, error) {
	v, err := n.inner.eval(state)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

type negExpr struct{ inner exprNode }

func (n *negExpr) eval(state core.State) (any, error) {
	v, err := n.inner.eval(state)
	if err != nil {
		return nil, err
	}
	f, ok := number(v)
	if !ok {
		return nil, fmt.Errorf("unary minus on %s", typeName(v))
	}
	return -f, nil
}

type boolExpr struct {
	or          bool
	left, right exprNode
}

func (n *boolExpr) eval(state core.State) (any, error) {
	l, err := n.left.eval(state)
	if err != nil {
		return nil, err
	}
	if truthy(l) == n.or {
		return l, nil
	}
	return n.right.eval(state)
}

type compareExpr struct {
	op          string
	left, right exprNode
}

func (n *compareExpr) eval(state core.State) (any, error) {
	l, err := n.left.eval(state)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(state)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "is":
		return same(l, r), nil
	case "is not":
		return !same(l, r), nil
	}

	cmp, err := order(l, r)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

type inExpr struct {
	item, container exprNode
	negate          bool
}

func (n *inExpr) eval(state core.State) (any, error) {
	item, err := n.item.eval(state)
	if err != nil {
		return nil, err
	}
	container, err := n.container.eval(state)
	if err != nil {
		return nil, err
	}
	found, err := contains(container, item)
	if err != nil {
		return nil, err
	}
	return found != n.negate, nil
}

type indexExpr struct{ target, key exprNode }

func (n *indexExpr) eval(state core.State) (any, error) {
	target, err := n.target.eval(state)
	if err != nil {
		return nil, err
	}
	key, err := n.key.eval(state)
	if err != nil {
		return nil, err
	}
	v, ok, err := lookup(target, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("key %v not found", key)
	}
	return v, nil
}

type getExpr struct{ target, key, def exprNode }

func (n *getExpr) eval(state core.State) (any, error) {
	target, err := n.target.eval(state)
	if err != nil {
		return nil, err
	}
	if reflect.ValueOf(plain(target)).Kind() != reflect.Map {
		return nil, fmt.Errorf(".get() on %s", typeName(target))
	}
	key, err := n.key.eval(state)
	if err != nil {
		return nil, err
	}
	v, ok, err := lookup(target, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return n.def.eval(state)
	}
	return v, nil
}

// value helpers

// plain turns struct values into their JSON object form so conditions can
// index typed tool output the same way they index decoded documents.
func plain(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func typeName(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%T", v)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(plain(v))
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// scalar widens number to booleans, which compare and order as 0 and 1.
func scalar(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return number(v)
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := scalar(a)
	fb, okB := scalar(b)
	if okA || okB {
		return okA && okB && fa == fb
	}
	return reflect.DeepEqual(plain(a), plain(b))
}

// same is the identity test behind "is": booleans and None only match
// themselves, everything else falls back to equality.
func same(a, b any) bool {
	_, boolA := a.(bool)
	_, boolB := b.(bool)
	if boolA != boolB {
		return false
	}
	return equal(a, b)
}

func order(a, b any) (int, error) {
	if fa, ok := scalar(a); ok {
		if fb, ok := scalar(b); ok {
			switch {
			case math.IsNaN(fa) || math.IsNaN(fb):
				return 0, fmt.Errorf("comparison with NaN")
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("cannot order %s and %s", typeName(a), typeName(b))
}

func lookup(container, key any) (any, bool, error) {
	rv := reflect.ValueOf(plain(container))
	switch rv.Kind() {
	case reflect.Map:
		s, ok := key.(string)
		if !ok || rv.Type().Key().Kind() != reflect.String {
			return nil, false, fmt.Errorf("unsupported key %s for %s", typeName(key), typeName(container))
		}
		v := rv.MapIndex(reflect.ValueOf(s).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false, nil
		}
		return v.Interface(), true, nil
	case reflect.Slice, reflect.Array:
		f, ok := number(key)
		if !ok || f != math.Trunc(f) {
			return nil, false, fmt.Errorf("list index must be an integer, got %s", typeName(key))
		}
		i := int(f)
		if i < 0 {
			i += rv.Len()
		}
		if i < 0 || i >= rv.Len() {
			return nil, false, fmt.Errorf("list index %d out of range", int(f))
		}
		return rv.Index(i).Interface(), true, nil
	}
	return nil, false, fmt.Errorf("%s is not subscriptable", typeName(container))
}

func contains(container, item any) (bool, error) {
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string, got %s", typeName(item))
		}
		return strings.Contains(s, sub), nil
	}
	rv := reflect.ValueOf(plain(container))
	switch rv.Kind() {
	case reflect.Map:
		if _, ok := item.(string); !ok {
			return false, nil
		}
		_, ok, err := lookup(container, item)
		return ok, err
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(rv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("argument of type %s is not iterable", typeName(container))
}
