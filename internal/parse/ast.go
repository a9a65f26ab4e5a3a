package parse

// Module is a parsed Python source file.
type Module struct {
	Body []Stmt
}

// Stmt is a statement node.
type Stmt interface{ stmt() }

// Expr is an expression node.
type Expr interface{ expr() }

// Alias is one imported name with its optional local rename.
type Alias struct {
	Name   string
	AsName string
}

// Import is `import a.b as c, d`.
type Import struct {
	Names []Alias
	Line  int
}

// ImportFrom is `from <dots><module> import <names>`. Module is "" for
// `from . import x`.
type ImportFrom struct {
	Module   string
	Level    int
	Names    []Alias
	Wildcard bool
	Line     int
}

// FunctionDef is a (possibly async, possibly decorated) function definition.
type FunctionDef struct {
	Name  string
	Async bool
	Body  []Stmt
	Line  int
}

// ClassDef is a class definition.
type ClassDef struct {
	Name string
	Body []Stmt
	Line int
}

// If is an if statement; elif chains nest as a single If in Orelse.
type If struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

// Assign is `a = b = value`. Value is nil for a bare annotation.
type Assign struct {
	Targets []Expr
	Value   Expr
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Value Expr
}

// Compound is any other statement: loops, try, with, match, return, etc.
// Exprs holds its direct expressions and Body its nested statements in source order.
type Compound struct {
	Kind  string
	Exprs []Expr
	Body  []Stmt
}

// Name is a bare identifier.
type Name struct {
	ID string
}

// Attribute is `value.attr`.
type Attribute struct {
	Value Expr
	Attr  string
}

// Call is `fn(args...)`.
type Call struct {
	Func Expr
	Args []Expr
	Line int
}

// Str is a string literal without interpolation.
type Str struct {
	Value string
}

// Compare is `left op1 c1 op2 c2 ...`.
type Compare struct {
	Left        Expr
	Ops         []string
	Comparators []Expr
}

// OtherExpr is any other expression; only its sub-expressions are kept.
type OtherExpr struct {
	Kind     string
	Children []Expr
}

func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*If) stmt()          {}
func (*Assign) stmt()      {}
func (*ExprStmt) stmt()    {}
func (*Compound) stmt()    {}

func (*Name) expr()      {}
func (*Attribute) expr() {}
func (*Call) expr()      {}
func (*Str) expr()       {}
func (*Compare) expr()   {}
func (*OtherExpr) expr() {}
