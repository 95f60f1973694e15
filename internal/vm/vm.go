// Package vm implements the stack-based bytecode interpreter: a
// decode-dispatch loop over a Chunk, a fixed-size value stack, a global
// variable table, and the VM-owned string intern table and object list.
package vm

import (
	"fmt"
	"io"
	"os"

	"loxvm/internal/chunk"
	"loxvm/internal/compiler"
	"loxvm/internal/table"
	"loxvm/internal/value"
)

const StackMax = 256

type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is the whole of the process-wide interpreter state: the object
// allocation list, the globals table, and the string intern set all live
// here for the lifetime of one VM value (spec §5: initVM/freeVM).
type VM struct {
	chunk *chunk.Chunk
	ip    int

	stack    [StackMax]value.Value
	stackTop int

	globals *table.Table
	strings *table.Table
	objects *value.ObjString // head of the intrusive allocation list

	stdout io.Writer
	stderr io.Writer
}

// New creates a VM with stdout/stderr wired to the process's own
// streams; use NewWithIO to redirect them (used by tests).
func New() *VM {
	return NewWithIO(os.Stdout, os.Stderr)
}

func NewWithIO(stdout, stderr io.Writer) *VM {
	return &VM{
		globals: table.New(),
		strings: table.New(),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Free walks the objects list, releasing the VM's references to every
// heap object, and drops both tables. Go's own GC reclaims the memory;
// this mirrors the teacher's freeVM sweep as the single release point in
// the object graph's ownership story (spec §5).
func (vm *VM) Free() {
	obj := vm.objects
	for obj != nil {
		next := obj.Next
		obj.Next = nil
		obj = next
	}
	vm.objects = nil
	vm.globals = table.New()
	vm.strings = table.New()
}

// Interpret compiles source and runs it, freeing the compiled chunk
// after run returns regardless of outcome.
func (vm *VM) Interpret(source string) InterpretResult {
	c := chunk.New()

	if !compiler.CompileTo(source, c, vm, vm.stderr) {
		return InterpretCompileError
	}

	vm.chunk = c
	vm.ip = 0
	result := vm.run()
	vm.chunk = nil
	return result
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) runtimeError(format string, args ...interface{}) {
	fmt.Fprintf(vm.stderr, format, args...)
	fmt.Fprintln(vm.stderr)

	line := vm.chunk.LineOf(vm.ip - 1)
	fmt.Fprintf(vm.stderr, "[line %d] in script\n", line)
	vm.resetStack()
}

func (vm *VM) run() InterpretResult {
	for {
		instruction := chunk.OpCode(vm.readByte())
		switch instruction {
		case chunk.OP_CONSTANT:
			vm.push(vm.readConstant())

		case chunk.OP_NIL:
			vm.push(value.NewNil())
		case chunk.OP_TRUE:
			vm.push(value.NewBool(true))
		case chunk.OP_FALSE:
			vm.push(value.NewBool(false))

		case chunk.OP_POP:
			vm.pop()

		case chunk.OP_GET_LOCAL:
			slot := vm.readByte()
			vm.push(vm.stack[slot])
		case chunk.OP_SET_LOCAL:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case chunk.OP_GET_GLOBAL:
			name := vm.readConstant().Obj
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			vm.push(v)
		case chunk.OP_DEFINE_GLOBAL:
			name := vm.readConstant().Obj
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OP_SET_GLOBAL:
			name := vm.readConstant().Obj
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}

		case chunk.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.Equal(a, b)))
		case chunk.OP_GREATER:
			if !vm.binaryNumeric() {
				return InterpretRuntimeError
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(a.AsNumber > b.AsNumber))
		case chunk.OP_LESS:
			if !vm.binaryNumeric() {
				return InterpretRuntimeError
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(a.AsNumber < b.AsNumber))

		case chunk.OP_ADD:
			if vm.peek(0).IsString() && vm.peek(1).IsString() {
				vm.concatenate()
			} else if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				b := vm.pop()
				a := vm.pop()
				vm.push(value.NewNumber(a.AsNumber + b.AsNumber))
			} else {
				vm.runtimeError("Operands must be two numbers or two strings.")
				return InterpretRuntimeError
			}
		case chunk.OP_SUBTRACT:
			if !vm.binaryNumeric() {
				return InterpretRuntimeError
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewNumber(a.AsNumber - b.AsNumber))
		case chunk.OP_MULTIPLY:
			if !vm.binaryNumeric() {
				return InterpretRuntimeError
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewNumber(a.AsNumber * b.AsNumber))
		case chunk.OP_DIVIDE:
			if !vm.binaryNumeric() {
				return InterpretRuntimeError
			}
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewNumber(a.AsNumber / b.AsNumber))

		case chunk.OP_NOT:
			vm.push(value.NewBool(vm.pop().IsFalsey()))

		case chunk.OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return InterpretRuntimeError
			}
			vm.push(value.NewNumber(-vm.pop().AsNumber))

		case chunk.OP_PRINT:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OP_RETURN:
			return InterpretOK
		}
	}
}

// binaryNumeric checks (without popping) that both operands of a binary
// arithmetic/comparison op are numbers, reporting the spec's runtime
// error otherwise.
func (vm *VM) binaryNumeric() bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	return true
}

// concatenate implements string+string OP_ADD: build the combined
// buffer, then intern it (copyString/takeString in the book; Go's
// strings need no separate ownership handoff since there is no manual
// buffer to free).
func (vm *VM) concatenate() {
	b := vm.pop()
	a := vm.pop()
	vm.push(value.NewObj(vm.Intern(a.Obj.Chars + b.Obj.Chars)))
}

// Intern returns the canonical object for chars, consulting the strings
// table first and allocating (and linking into the objects list) only if
// no equal string already exists. This is copyString/takeString from the
// book, collapsed into one call since Go strings carry no separate
// buffer to take ownership of. It implements value.Interner so the
// compiler can share this exact table when it emits string and
// identifier-name constants.
func (vm *VM) Intern(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if interned := vm.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	obj := &value.ObjString{Kind: value.OBJ_STRING, Chars: chars, Hash: hash}
	obj.Next = vm.objects
	vm.objects = obj
	vm.strings.Set(obj, value.NewNil())
	return obj
}
