package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.starlark.net/syntax"
)

type Op struct {
	Code Opcode
	Arg  Value
	Line int
}

func (o Op) String() string {
	if o.Arg == nil {
		return o.Code.String()
	}
	return fmt.Sprintf("%s %v", o.Code, o.Arg)
}

type loopLabels struct {
	isFor bool
	start string
	end   string
}

type compileContext struct {
	name       string
	ops        []Op
	topLevel   bool
	subContext map[string]*compileContext
	defOrder   []string
	params     []FunctionParam
	line       int
	loops      []loopLabels
}

func (cc *compileContext) DebugPrint() {
	fmt.Printf("ops: %#v\n", cc.ops)
	fmt.Printf("params: %#v\n", cc.params)
	if len(cc.subContext) != 0 {
		for k, v := range cc.subContext {
			fmt.Printf("%s:\n", k)
			fmt.Printf("\tops: %#v\n", v.ops)
			fmt.Printf("\tparams: %#v\n", v.params)
		}
	}
}

func (cc *compileContext) emit(op Opcode, arg ...Value) {
	var a Value
	if len(arg) > 0 {
		a = arg[0]
	}
	cc.ops = append(cc.ops, Op{Code: op, Arg: a, Line: cc.line})
}

func (cc *compileContext) setLine(n syntax.Node) {
	start, _ := n.Span()
	if start.Line > 0 {
		cc.line = int(start.Line)
	}
}

func (cc *compileContext) newLabel() string {
	return uuid.NewString()
}

func (cc *compileContext) emitLabel(s string) {
	cc.ops = append(cc.ops, Op{Code: LABEL, Arg: StrValue(s), Line: cc.line})
}

func newCompileContext(name string) *compileContext {
	return &compileContext{
		name:       name,
		subContext: make(map[string]*compileContext),
	}
}

func CompilePath(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFile(path, f)
}

// fileOptions accepts the full statement set; scoping is enforced by the
// interpreter rather than the Starlark resolver.
var fileOptions = syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

func LoadFile(name string, r io.Reader) (*Program, error) {
	f, err := fileOptions.Parse(name, r, 0)
	if err != nil {
		return nil, err
	}
	p, err := Compile(f)
	if err != nil {
		return nil, err
	}
	p.Filename = name
	return p, nil
}

// CompileLiteral compiles source text held in memory.
func CompileLiteral(code string) (*Program, error) {
	return LoadFile("<literal>", strings.NewReader(code))
}

// ParseInteractive reads one compound statement through readline, asking
// for more lines while the statement is incomplete. It returns io.EOF when
// input ends before a statement starts.
func ParseInteractive(filename string, readline func() ([]byte, error)) (*syntax.File, error) {
	return fileOptions.ParseCompoundStmt(filename, readline)
}

// CompileExpr compiles a single expression into a program whose top level
// returns the expression's value.
func CompileExpr(expr string) (*Program, error) {
	e, err := fileOptions.ParseExpr("<expr>", expr, 0)
	if err != nil {
		return nil, err
	}
	cc := newCompileContext("<expr>")
	cc.topLevel = true
	err = cc.expr(e)
	if err != nil {
		return nil, err
	}
	cc.emit(RETURN)
	p, err := cc.intoProgram()
	if err != nil {
		return nil, err
	}
	p.Filename = "<expr>"
	return p, nil
}

func Compile(file *syntax.File) (*Program, error) {
	cc, err := buildCompileContextTree(file)
	if err != nil {
		return nil, err
	}
	return cc.intoProgram()
}

func (cc *compileContext) intoProgram() (*Program, error) {
	p := &Program{
		Definitions: make(map[string]int),
	}
	if !cc.topLevel {
		return nil, errors.New("Can't make a program out of a non-top-level context")
	}
	f, err := cc.intoFunction()
	if err != nil {
		return nil, err
	}
	p.Main = f
	for _, k := range cc.defOrder {
		v := cc.subContext[k]
		f, err := v.intoFunction()
		if err != nil {
			return nil, err
		}
		n := len(p.Code)
		p.Code = append(p.Code, f)
		p.Definitions[k] = n
	}
	return p, nil
}

func (cc *compileContext) intoFunction() (*Function, error) {
	f := &Function{Name: cc.name}
	f.Params = cc.params
	offsetmap := make(map[string]int)
	for _, b := range cc.ops {
		if b.Code == LABEL {
			offsetmap[string(b.Arg.(StrValue))] = len(f.Bytecode)
			continue
		}
		f.Bytecode = append(f.Bytecode, b)
	}
	for i, b := range f.Bytecode {
		switch b.Code {
		case JMP, JFALSE, ITER_START, ITER_START_2:
			if v, ok := b.Arg.(StrValue); ok {
				off, ok := offsetmap[string(v)]
				if !ok {
					return nil, fmt.Errorf("Compiler error: unresolved label %s", v)
				}
				b.Arg = IntValue(off)
			}
		}
		f.Bytecode[i] = b // Replace after changes
	}
	return f, nil
}

func buildCompileContextTree(file *syntax.File) (*compileContext, error) {
	cc := newCompileContext("<main>")
	cc.topLevel = true
	err := cc.buildFromStatements(file.Stmts)
	if err != nil {
		return nil, err
	}
	return cc, nil
}

func (cc *compileContext) buildFromStatements(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		err := cc.statement(s)
		if err != nil {
			return err
		}
	}
	return nil
}
