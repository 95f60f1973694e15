package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(source string) (stdout, stderr string, result InterpretResult) {
	var out, errBuf bytes.Buffer
	machine := NewWithIO(&out, &errBuf)
	defer machine.Free()
	result = machine.Interpret(source)
	return out.String(), errBuf.String(), result
}

func TestAdditionPrintsSum(t *testing.T) {
	out, _, result := run("print 1 + 2;")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "3\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, _, result := run(`print "st" + "ri" + "ng";`)
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "string\n", out)
}

func TestBlockLocalCanReadOuterGlobalInInitializer(t *testing.T) {
	out, _, result := run("var a = 10; { var b = a + 1; print b; } print a;")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "11\n10\n", out)
}

// A local always shadows same-named outer bindings from the moment it is
// declared, before its own initializer runs, so naming it inside that
// initializer is always a compile error. See DESIGN.md.
func TestReadingOwnNameInLocalInitializerIsAlwaysCompileError(t *testing.T) {
	_, errOut, result := run("var a = 10; { var a = a + 1; print a; } print a;")
	require.Equal(t, InterpretCompileError, result)
	require.Contains(t, errOut, "Can't read local variable in its own initializer.")
}

func TestBooleanLogicExpression(t *testing.T) {
	out, _, result := run("print !(5 - 4 > 3 * 2 == !nil);")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "true\n", out)
}

func TestUndefinedGlobalReadIsRuntimeError(t *testing.T) {
	_, errOut, result := run("print undefined;")
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Undefined variable 'undefined'.")
	require.Contains(t, errOut, "[line 1] in script")
}

func TestMixedTypeAdditionIsRuntimeError(t *testing.T) {
	_, errOut, result := run(`1 + "a";`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Operands must be two numbers or two strings.")
}

func TestUndefinedGlobalAssignmentIsRuntimeError(t *testing.T) {
	_, errOut, result := run("x = 1;")
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Undefined variable 'x'.")
}

func TestNegateNonNumberIsRuntimeError(t *testing.T) {
	_, errOut, result := run(`-"a";`)
	require.Equal(t, InterpretRuntimeError, result)
	require.Contains(t, errOut, "Operand must be a number.")
}

func TestGlobalVariableAssignmentPersists(t *testing.T) {
	out, _, result := run("var a = 1; a = 2; print a;")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "2\n", out)
}

func TestCompileErrorStopsExecutionBeforeRunning(t *testing.T) {
	out, errOut, result := run("print 1 +;")
	require.Equal(t, InterpretCompileError, result)
	require.Empty(t, out)
	require.NotEmpty(t, errOut)
}

func TestNumberLiteralPrintsCanonicalForm(t *testing.T) {
	out, _, result := run("print 3.14;")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "3.14\n", out)

	out, _, result = run("print 10;")
	require.Equal(t, InterpretOK, result)
	require.Equal(t, "10\n", out)
}

func TestInterningMakesEqualStringsOneObject(t *testing.T) {
	machine := NewWithIO(&bytes.Buffer{}, &bytes.Buffer{})
	defer machine.Free()

	a := machine.Intern("hello")
	b := machine.Intern("hello")
	require.Same(t, a, b)
}
