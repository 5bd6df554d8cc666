package vm

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Program struct {
	Filename    string
	Definitions map[string]int
	Code        []*Function
	Main        *Function
}

func (p *Program) DebugPrint() {
	fmt.Printf("Defs: %#v\n", p.Definitions)
	fmt.Println("*** Main")
	p.Main.DebugPrint()
	for i, f := range p.Code {
		fmt.Printf("*** %d (%s):\n", i+1, f.Name)
		f.DebugPrint()
	}
}

var ErrEndOfCode = errors.New("End of code block")

func (p *Program) GetFunction(ptr ExecPtr) *Function {
	if ptr.CodeID() == 0 {
		return p.Main
	}
	if ptr.CodeID() > len(p.Code) {
		return nil
	}
	return p.Code[ptr.CodeID()-1]
}

func (p *Program) GetInstruction(ptr ExecPtr) (Op, error) {
	f := p.GetFunction(ptr)
	if f == nil {
		return Op{}, fmt.Errorf("no code block %d", ptr.CodeID())
	}
	if len(f.Bytecode) <= ptr.Offset() {
		return Op{}, ErrEndOfCode
	}
	return f.Bytecode[ptr.Offset()], nil
}

func (p *Program) Resolve(name string) (ExecPtr, bool) {
	if v, ok := p.Definitions[name]; ok {
		return NewExecPtr(v + 1), true
	}
	return 0, false
}

// GetLineNumber returns the source line of the instruction at ptr, or 0.
func (p *Program) GetLineNumber(ptr ExecPtr) int {
	f := p.GetFunction(ptr)
	if f == nil || len(f.Bytecode) == 0 {
		return 0
	}
	off := ptr.Offset()
	if off >= len(f.Bytecode) {
		off = len(f.Bytecode) - 1
	}
	return f.Bytecode[off].Line
}

// GetFilename returns the file the program was compiled from.
func (p *Program) GetFilename(ExecPtr) string {
	return p.Filename
}

// Extend appends the functions defined by other to p and returns the
// entrypoint of other's top level, rebased onto p. Later definitions shadow
// earlier ones of the same name.
func (p *Program) Extend(other *Program) *Function {
	base := len(p.Code)
	p.Code = append(p.Code, other.Code...)
	if p.Definitions == nil {
		p.Definitions = make(map[string]int)
	}
	for name, idx := range other.Definitions {
		p.Definitions[name] = base + idx
	}
	return other.Main
}

type Function struct {
	Name     string
	Bytecode []Op
	Params   []FunctionParam
}

func (f *Function) DebugPrint() {
	fmt.Printf("Params: %#v\n", f.Params)
	for i, b := range f.Bytecode {
		fmt.Printf("  %03d [L%d]: %s\n", i, b.Line, b)
	}
}

type ExecPtr uint64

func (ptr ExecPtr) MarshalJSON() ([]byte, error) {
	out := make(map[string]int)
	out["offset"] = ptr.Offset()
	out["code_id"] = ptr.CodeID()
	return json.Marshal(out)
}

func (ptr ExecPtr) String() string {
	return fmt.Sprintf("%d:%d", ptr.CodeID(), ptr.Offset())
}

func (ptr ExecPtr) Offset() int {
	return int(0xFFFFFFFF & ptr)
}

func (ptr ExecPtr) CodeID() int {
	return int(ptr >> 32)
}

func (ptr ExecPtr) Inc() ExecPtr {
	return ptr + 1
}

func (ptr ExecPtr) SetOffset(off int) ExecPtr {
	return ExecPtr((ptr.CodeID() << 32) | int(0xFFFFFFFF&off))
}

func NewExecPtr(block int) ExecPtr {
	return ExecPtr(block << 32)
}

type FunctionParam struct {
	Name    string
	Default Value
}
