// Package parse turns Python source into the small syntax tree consumed by
// symbol extraction, using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Outcome is the result of parsing one file: either a syntax tree or a
// failure message, never both.
type Outcome struct {
	module  *Module
	failure string
}

// Parsed wraps a successfully parsed module.
func Parsed(m *Module) Outcome {
	return Outcome{module: m}
}

// ParseFailed records why a file could not be parsed.
func ParseFailed(msg string) Outcome {
	return Outcome{failure: msg}
}

// Module returns the syntax tree and true, or nil and false on failure.
func (o Outcome) Module() (*Module, bool) {
	return o.module, o.failure == "" && o.module != nil
}

// Failure returns the failure message, or "" when parsing succeeded.
func (o Outcome) Failure() string {
	return o.failure
}

// Parser wraps a tree-sitter parser for Python.
// Each goroutine must use its own Parser (not thread-safe).
type Parser struct {
	ts *sitter.Parser
}

// NewParser creates a fresh Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{ts: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.ts.Close()
}

// Parse parses source. Any syntax error makes the whole file a failure.
func (p *Parser) Parse(ctx context.Context, source []byte) Outcome {
	if !utf8.Valid(source) {
		return ParseFailed("invalid UTF-8 in source")
	}

	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return ParseFailed(fmt.Sprintf("parsing: %v", err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return ParseFailed(syntaxError(root))
	}

	c := converter{source: source}
	return Parsed(&Module{Body: c.block(root)})
}

// ParseString is a convenience for tests and one-off callers.
func ParseString(source string) Outcome {
	p := NewParser()
	defer p.Close()
	return p.Parse(context.Background(), []byte(source))
}

func syntaxError(root *sitter.Node) string {
	if n := firstError(root); n != nil {
		pt := n.StartPoint()
		return fmt.Sprintf("syntax error at line %d, column %d", pt.Row+1, pt.Column+1)
	}
	return "syntax error"
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}

type converter struct {
	source []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.source)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// block converts the statements of a module or block node.
func (c *converter) block(n *sitter.Node) []Stmt {
	if n == nil {
		return nil
	}
	var stmts []Stmt
	for _, child := range namedChildren(n) {
		stmts = append(stmts, c.stmt(child)...)
	}
	return stmts
}

func (c *converter) stmt(n *sitter.Node) []Stmt {
	switch n.Type() {
	case "import_statement":
		return []Stmt{c.importStmt(n)}
	case "import_from_statement", "future_import_statement":
		return []Stmt{c.importFrom(n)}
	case "function_definition":
		return []Stmt{c.functionDef(n)}
	case "class_definition":
		return []Stmt{c.classDef(n)}
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return c.stmt(def)
		}
		return nil
	case "if_statement":
		return []Stmt{c.ifStmt(n)}
	case "expression_statement":
		return c.exprStmt(n)
	default:
		return []Stmt{c.compound(n)}
	}
}

func (c *converter) importStmt(n *sitter.Node) *Import {
	imp := &Import{Line: line(n)}
	for _, child := range namedChildren(n) {
		if a, ok := c.alias(child); ok {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (c *converter) importFrom(n *sitter.Node) *ImportFrom {
	imp := &ImportFrom{Line: line(n)}

	moduleNode := n.ChildByFieldName("module_name")
	if n.Type() == "future_import_statement" {
		imp.Module = "__future__"
	}
	if moduleNode != nil {
		switch moduleNode.Type() {
		case "relative_import":
			for _, part := range namedChildren(moduleNode) {
				switch part.Type() {
				case "import_prefix":
					imp.Level = strings.Count(c.text(part), ".")
				case "dotted_name":
					imp.Module = c.text(part)
				}
			}
		default:
			imp.Module = c.text(moduleNode)
		}
	}

	for _, child := range namedChildren(n) {
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		if child.Type() == "wildcard_import" {
			imp.Wildcard = true
			continue
		}
		if a, ok := c.alias(child); ok {
			imp.Names = append(imp.Names, a)
		}
	}
	return imp
}

func (c *converter) alias(n *sitter.Node) (Alias, bool) {
	switch n.Type() {
	case "dotted_name", "identifier":
		return Alias{Name: c.text(n)}, true
	case "aliased_import":
		name := n.ChildByFieldName("name")
		if name == nil {
			return Alias{}, false
		}
		a := Alias{Name: c.text(name)}
		if as := n.ChildByFieldName("alias"); as != nil {
			a.AsName = c.text(as)
		}
		return a, true
	}
	return Alias{}, false
}

func (c *converter) functionDef(n *sitter.Node) *FunctionDef {
	fn := &FunctionDef{Line: line(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	if n.ChildCount() > 0 && n.Child(0).Type() == "async" {
		fn.Async = true
	}
	fn.Body = c.block(n.ChildByFieldName("body"))
	return fn
}

func (c *converter) classDef(n *sitter.Node) *ClassDef {
	cls := &ClassDef{Line: line(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.Name = c.text(name)
	}
	cls.Body = c.block(n.ChildByFieldName("body"))
	return cls
}

func (c *converter) ifStmt(n *sitter.Node) *If {
	stmt := &If{
		Test: c.exprOrNil(n.ChildByFieldName("condition")),
		Body: c.block(n.ChildByFieldName("consequence")),
	}

	// Fold elif/else clauses into a nested chain of If.Orelse.
	tail := stmt
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "elif_clause":
			next := &If{
				Test: c.exprOrNil(child.ChildByFieldName("condition")),
				Body: c.block(child.ChildByFieldName("consequence")),
			}
			tail.Orelse = []Stmt{next}
			tail = next
		case "else_clause":
			tail.Orelse = c.block(child.ChildByFieldName("body"))
		}
	}
	return stmt
}

func (c *converter) exprStmt(n *sitter.Node) []Stmt {
	var stmts []Stmt
	for _, child := range namedChildren(n) {
		if child.Type() == "assignment" {
			stmts = append(stmts, c.assign(child))
			continue
		}
		stmts = append(stmts, &ExprStmt{Value: c.expr(child)})
	}
	return stmts
}

// assign flattens `a = b = value` into one Assign with two targets.
func (c *converter) assign(n *sitter.Node) *Assign {
	a := &Assign{}
	for cur := n; cur != nil; {
		if left := cur.ChildByFieldName("left"); left != nil {
			a.Targets = append(a.Targets, c.expr(left))
		}
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" {
			cur = right
			continue
		}
		a.Value = c.exprOrNil(right)
		break
	}
	return a
}

func (c *converter) compound(n *sitter.Node) *Compound {
	stmt := &Compound{Kind: n.Type()}
	c.fillCompound(stmt, n)
	return stmt
}

func (c *converter) fillCompound(stmt *Compound, n *sitter.Node) {
	for _, child := range namedChildren(n) {
		switch {
		case child.Type() == "block":
			stmt.Body = append(stmt.Body, c.block(child)...)
		case strings.HasSuffix(child.Type(), "_clause"):
			c.fillCompound(stmt, child)
		default:
			stmt.Exprs = append(stmt.Exprs, c.expr(child))
		}
	}
}

func (c *converter) exprOrNil(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	return c.expr(n)
}

func (c *converter) expr(n *sitter.Node) Expr {
	switch n.Type() {
	case "identifier":
		return &Name{ID: c.text(n)}
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		obj := n.ChildByFieldName("object")
		if attr == nil || obj == nil {
			return c.other(n)
		}
		return &Attribute{Value: c.expr(obj), Attr: c.text(attr)}
	case "call":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return c.other(n)
		}
		call := &Call{Func: c.expr(fn), Line: line(n)}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for _, arg := range namedChildren(args) {
				call.Args = append(call.Args, c.expr(arg))
			}
		}
		return call
	case "string":
		if s, ok := c.stringLiteral(n); ok {
			return s
		}
		return c.other(n)
	case "comparison_operator":
		return c.compare(n)
	case "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			return c.expr(inner[0])
		}
		return c.other(n)
	default:
		return c.other(n)
	}
}

func (c *converter) other(n *sitter.Node) *OtherExpr {
	o := &OtherExpr{Kind: n.Type()}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "string_start", "string_content", "string_end", "escape_sequence":
			continue
		}
		o.Children = append(o.Children, c.expr(child))
	}
	return o
}

func (c *converter) compare(n *sitter.Node) Expr {
	cmp := &Compare{}
	first := true
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		if !child.IsNamed() {
			cmp.Ops = append(cmp.Ops, strings.Join(strings.Fields(c.text(child)), " "))
			continue
		}
		if first {
			cmp.Left = c.expr(child)
			first = false
			continue
		}
		cmp.Comparators = append(cmp.Comparators, c.expr(child))
	}
	return cmp
}

// stringLiteral returns the value of a plain (non-interpolated) string.
func (c *converter) stringLiteral(n *sitter.Node) (*Str, bool) {
	for _, child := range namedChildren(n) {
		if child.Type() == "interpolation" {
			return nil, false
		}
	}
	raw := c.text(n)
	raw = strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(raw) >= 2*len(q) && strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) {
			return &Str{Value: raw[len(q) : len(raw)-len(q)]}, true
		}
	}
	return nil, false
}
