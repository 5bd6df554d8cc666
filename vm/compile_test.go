package vm

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmall(t *testing.T) {
	filepath.WalkDir("../testdata/small", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".star") {
			return nil
		}
		name := filepath.Base(path)
		t.Run(name, fileTest(path))
		return nil
	})
}

func fileTest(path string) func(t *testing.T) {
	return func(t *testing.T) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		p, err := LoadFile(path, f)
		require.NoError(t, err)
		assert.Equal(t, path, p.Filename)
		for _, op := range p.Main.Bytecode {
			assert.NotEqual(t, LABEL, op.Code, "labels must be resolved")
		}
	}
}

func TestLineOpcodes(t *testing.T) {
	p, err := CompileLiteral("a = 1\n\nb = a\n")
	require.NoError(t, err)
	var lines []int
	for _, op := range p.Main.Bytecode {
		if op.Code == LINE {
			lines = append(lines, int(op.Arg.(IntValue)))
		}
	}
	assert.Equal(t, []int{1, 3}, lines)
	assert.Equal(t, 3, p.GetLineNumber(NewExecPtr(0).SetOffset(len(p.Main.Bytecode)-1)))
}

func TestDefEmitsNoLine(t *testing.T) {
	p, err := CompileLiteral("def f(x):\n    return x\n")
	require.NoError(t, err)
	assert.Empty(t, p.Main.Bytecode)
	ptr, ok := p.Resolve("f")
	require.True(t, ok)
	fn := p.GetFunction(ptr)
	require.NotNil(t, fn)
	assert.Equal(t, "f", fn.Name)
	assert.Equal(t, []FunctionParam{{Name: "x"}}, fn.Params)
	assert.Equal(t, LINE, fn.Bytecode[0].Code)
}

func TestReferenceArguments(t *testing.T) {
	p, err := CompileLiteral(`f(a, b.c, d["k"], 1, e + 1, g=h)` + "\n")
	require.NoError(t, err)
	var refs []string
	for _, op := range p.Main.Bytecode {
		switch op.Code {
		case REF_NAME, REF_ATTR, REF_INDEX:
			refs = append(refs, op.Code.String()+" "+string(op.Arg.(StrValue)))
		}
	}
	assert.Equal(t, []string{"REF_NAME a", `REF_ATTR b.c`, `REF_INDEX d["k"]`}, refs)
}

func TestUnsupportedSyntax(t *testing.T) {
	_, err := CompileLiteral("x = [i for i in range(3)]\n")
	assert.Error(t, err)
	_, err = CompileLiteral("def f():\n    def g():\n        pass\n")
	assert.Error(t, err)
	_, err = CompileLiteral("break\n")
	assert.Error(t, err)
}

func TestExtendRebasesDefinitions(t *testing.T) {
	a, err := CompileLiteral("def f():\n    return 1\n")
	require.NoError(t, err)
	b, err := CompileLiteral("def g():\n    return 2\nx = g()\n")
	require.NoError(t, err)
	main := a.Extend(b)
	assert.Same(t, b.Main, main)
	pf, ok := a.Resolve("f")
	require.True(t, ok)
	pg, ok := a.Resolve("g")
	require.True(t, ok)
	assert.Equal(t, "f", a.GetFunction(pf).Name)
	assert.Equal(t, "g", a.GetFunction(pg).Name)
}

func TestCompileExpr(t *testing.T) {
	p, err := CompileExpr("1 + 2")
	require.NoError(t, err)
	last := p.Main.Bytecode[len(p.Main.Bytecode)-1]
	assert.Equal(t, RETURN, last.Code)
}
