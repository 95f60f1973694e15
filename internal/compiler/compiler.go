// Package compiler implements the single-pass Pratt-style expression
// compiler: it drives the scanner directly and emits bytecode into a
// chunk without ever materializing an AST, the way the teacher's parser
// drove its prefix/infix rule maps to build AST nodes — here the same
// table shape emits opcodes instead of nodes.
package compiler

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"loxvm/internal/chunk"
	"loxvm/internal/scanner"
	"loxvm/internal/token"
	"loxvm/internal/value"
)

type Precedence int

const (
	PREC_NONE Precedence = iota
	PREC_ASSIGNMENT
	PREC_OR
	PREC_AND
	PREC_EQUALITY
	PREC_COMPARISON
	PREC_TERM
	PREC_FACTOR
	PREC_UNARY
	PREC_CALL
	PREC_PRIMARY
)

type parseFn func(c *compilerState, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// local is one slot in the fixed-capacity local-variable array. depth
// of -1 means "declared but not yet initialized".
type local struct {
	name  token.Token
	depth int
}

const maxLocals = 256
const maxConstants = 256

// compilerState is the transient state of a single Compile call: the
// scanner, current/previous tokens, error flags, and the local-variable
// array. One is created per compilation; nothing here is process-wide.
type compilerState struct {
	scanner *scanner.Scanner
	chunk   *chunk.Chunk

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	intern value.Interner
	stderr io.Writer
}

var rules [token.EOF + 1]parseRule

func init() {
	rules[token.LEFT_PAREN] = parseRule{grouping, nil, PREC_NONE}
	rules[token.MINUS] = parseRule{unary, binary, PREC_TERM}
	rules[token.PLUS] = parseRule{nil, binary, PREC_TERM}
	rules[token.SLASH] = parseRule{nil, binary, PREC_FACTOR}
	rules[token.STAR] = parseRule{nil, binary, PREC_FACTOR}
	rules[token.BANG] = parseRule{unary, nil, PREC_NONE}
	rules[token.BANG_EQUAL] = parseRule{nil, binary, PREC_EQUALITY}
	rules[token.EQUAL_EQUAL] = parseRule{nil, binary, PREC_EQUALITY}
	rules[token.GREATER] = parseRule{nil, binary, PREC_COMPARISON}
	rules[token.GREATER_EQUAL] = parseRule{nil, binary, PREC_COMPARISON}
	rules[token.LESS] = parseRule{nil, binary, PREC_COMPARISON}
	rules[token.LESS_EQUAL] = parseRule{nil, binary, PREC_COMPARISON}
	rules[token.IDENTIFIER] = parseRule{variable, nil, PREC_NONE}
	rules[token.STRING] = parseRule{stringLiteral, nil, PREC_NONE}
	rules[token.NUMBER] = parseRule{number, nil, PREC_NONE}
	rules[token.FALSE] = parseRule{literal, nil, PREC_NONE}
	rules[token.NIL] = parseRule{literal, nil, PREC_NONE}
	rules[token.TRUE] = parseRule{literal, nil, PREC_NONE}
}

func getRule(t token.Type) *parseRule { return &rules[t] }

// Compile compiles source into target, consulting intern for every
// string/identifier-name constant it emits, and returns false if any
// compile error was reported. Diagnostics are written to stderr.
func Compile(source string, target *chunk.Chunk, intern value.Interner) bool {
	return CompileTo(source, target, intern, os.Stderr)
}

// CompileTo is Compile with an explicit diagnostic sink, used by tests
// that want to capture compiler error output.
func CompileTo(source string, target *chunk.Chunk, intern value.Interner, stderr io.Writer) bool {
	c := &compilerState{
		scanner: scanner.New(source),
		chunk:   target,
		intern:  intern,
		stderr:  stderr,
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.consume(token.EOF, "Expect end of expression.")
	c.endCompiler()
	return !c.hadError
}

func (c *compilerState) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *compilerState) consume(t token.Type, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *compilerState) check(t token.Type) bool { return c.current.Type == t }

func (c *compilerState) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

// --- emission -------------------------------------------------------

func (c *compilerState) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *compilerState) emitOp(op chunk.OpCode) {
	c.emitByte(byte(op))
}

func (c *compilerState) emitOps(op1, op2 chunk.OpCode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *compilerState) emitOpByte(op chunk.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *compilerState) emitConstant(v value.Value) {
	c.emitOpByte(chunk.OP_CONSTANT, c.makeConstant(v))
}

func (c *compilerState) makeConstant(v value.Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx > maxConstants-1 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compilerState) endCompiler() {
	c.emitOp(chunk.OP_RETURN)
}

// --- scopes -----------------------------------------------------------

func (c *compilerState) beginScope() { c.scopeDepth++ }

func (c *compilerState) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitOp(chunk.OP_POP)
		c.localCount--
	}
}

// --- declarations & statements -----------------------------------------

func (c *compilerState) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *compilerState) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(chunk.OP_NIL)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *compilerState) parseVariable(errMsg string) byte {
	c.consume(token.IDENTIFIER, errMsg)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *compilerState) identifierConstant(name token.Token) byte {
	return c.makeConstant(value.NewObj(c.intern.Intern(name.Lexeme)))
}

func (c *compilerState) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if name.Lexeme == l.name.Lexeme {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *compilerState) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	l := &c.locals[c.localCount]
	c.localCount++
	l.name = name
	l.depth = -1
}

func (c *compilerState) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OP_DEFINE_GLOBAL, global)
}

func (c *compilerState) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

func (c *compilerState) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *compilerState) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(chunk.OP_PRINT)
}

func (c *compilerState) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(chunk.OP_POP)
}

func (c *compilerState) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

// --- expressions ---------------------------------------------------

func (c *compilerState) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

func (c *compilerState) parsePrecedence(prec Precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PREC_ASSIGNMENT
	prefixRule(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infixRule := getRule(c.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func number(c *compilerState, _ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NewNumber(n))
}

func stringLiteral(c *compilerState, _ bool) {
	lexeme := c.previous.Lexeme
	// Strip the surrounding quotes captured by the scanner.
	s := lexeme[1 : len(lexeme)-1]
	c.emitConstant(value.NewObj(c.intern.Intern(s)))
}

func literal(c *compilerState, _ bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitOp(chunk.OP_FALSE)
	case token.NIL:
		c.emitOp(chunk.OP_NIL)
	case token.TRUE:
		c.emitOp(chunk.OP_TRUE)
	}
}

func grouping(c *compilerState, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func unary(c *compilerState, _ bool) {
	opType := c.previous.Type
	c.parsePrecedence(PREC_UNARY)
	switch opType {
	case token.BANG:
		c.emitOp(chunk.OP_NOT)
	case token.MINUS:
		c.emitOp(chunk.OP_NEGATE)
	}
}

func binary(c *compilerState, _ bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		c.emitOps(chunk.OP_EQUAL, chunk.OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(chunk.OP_EQUAL)
	case token.GREATER:
		c.emitOp(chunk.OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOps(chunk.OP_LESS, chunk.OP_NOT)
	case token.LESS:
		c.emitOp(chunk.OP_LESS)
	case token.LESS_EQUAL:
		c.emitOps(chunk.OP_GREATER, chunk.OP_NOT)
	case token.PLUS:
		c.emitOp(chunk.OP_ADD)
	case token.MINUS:
		c.emitOp(chunk.OP_SUBTRACT)
	case token.STAR:
		c.emitOp(chunk.OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(chunk.OP_DIVIDE)
	}
}

func variable(c *compilerState, canAssign bool) {
	namedVariable(c, c.previous, canAssign)
}

func namedVariable(c *compilerState, name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg, ok := resolveLocal(c, name)
	if ok {
		getOp, setOp = chunk.OP_GET_LOCAL, chunk.OP_SET_LOCAL
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = chunk.OP_GET_GLOBAL, chunk.OP_SET_GLOBAL
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

// resolveLocal scans the locals back-to-front for name, reporting the
// "read in its own initializer" error if it finds an uninitialized match.
func resolveLocal(c *compilerState, name token.Token) (int, bool) {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if name.Lexeme == l.name.Lexeme {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// --- error reporting & recovery -----------------------------------------

func (c *compilerState) errorAtCurrent(msg string) {
	c.errorAt(c.current, msg)
}

func (c *compilerState) error(msg string) {
	c.errorAt(c.previous, msg)
}

func (c *compilerState) errorAt(t token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	fmt.Fprintf(c.stderr, "[line %d] Error", t.Line)
	switch t.Type {
	case token.EOF:
		fmt.Fprint(c.stderr, " at end")
	case token.ERROR:
		// no location
	default:
		fmt.Fprintf(c.stderr, " at '%s'", t.Lexeme)
	}
	fmt.Fprintf(c.stderr, ": %s\n", msg)
	c.hadError = true
}

func (c *compilerState) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}
