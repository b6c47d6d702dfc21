package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/lama/vm"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the Lama grammar
//
//	program    = { function | statement [";"] } EOF
//	function   = "fun" IDENT "(" [ IDENT { "," IDENT } ] ")" block
//	block      = "{" { statement [";"] } "}"
//	statement  = IDENT ":=" expression | expression
//	expression = logicTerm { ("!!" | "||") logicTerm }
//	logicTerm  = relation { "&&" relation }
//	relation   = additive [ ("<" | "<=" | ">" | ">=" | "==" | "!=") additive ]
//	additive   = term { ("+" | "-") term }
//	term       = unary { ("*" | "/") unary }
//	unary      = ("!" | "-") unary | postfix
//	postfix    = primary { "(" [ args ] ")" | "[" expression "]" }
//	primary    = INTEGER | STRING | "true" | "false" | "null" | IDENT
//	           | "(" expression ")" | "[" [ args ] "]" | block
//	           | "if" expression block [ "else" ( block | if ) ]
//	           | "while" expression block
//
// The parser never builds nodes itself; it drives a NodeFactory.
// ---------------------------------------------------------------------------

// maxErrors stops parsing after this many errors.
const maxErrors = 25

// ParseError is a syntax error at a source position.
type ParseError struct {
	Pos     Position
	End     int // byte offset one past the offending token
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Message)
}

// SyntaxError collects the parse errors of one source text.
type SyntaxError struct {
	Errors []ParseError
}

func (e *SyntaxError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		msgs[i] = pe.Error()
	}
	return "syntax error: " + strings.Join(msgs, "; ")
}

// Parser parses Lama source text into vm trees.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   int // end offset of the last consumed token
	errors    []ParseError
	input     string
	factory   *NodeFactory
}

// NewParser creates a parser whose trees follow the engine's policies.
func NewParser(engine *vm.Engine, input string) *Parser {
	p := &Parser{
		lexer:   NewLexer(input),
		input:   input,
		factory: NewNodeFactory(engine, input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole program.
func Parse(engine *vm.Engine, source string) (*vm.Program, error) {
	p := NewParser(engine, source)
	prog := p.ParseProgram()
	if len(p.errors) > 0 {
		return nil, &SyntaxError{Errors: p.errors}
	}
	return prog, nil
}

// Check parses source and returns its syntax errors, if any.
func Check(source string) []ParseError {
	p := NewParser(vm.NewEngine(vm.DefaultOptions()), source)
	p.ParseProgram()
	return p.errors
}

// NodeAt parses source and returns the innermost node covering offset.
// Parse errors do not prevent a lookup in the parts that did parse.
func NodeAt(source string, offset int) (vm.Node, bool) {
	p := NewParser(vm.NewEngine(vm.DefaultOptions()), source)
	p.ParseProgram()
	return p.factory.NodeAt(offset)
}

// nextToken advances to the next token. Lexical errors are recorded and
// skipped.
func (p *Parser) nextToken() {
	p.prevEnd = p.curToken.End
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.curToken.Type == TokenError {
		p.errorAt(p.curToken, "%s", p.curToken.Literal)
		p.curToken = p.peekToken
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errorAt(p.curToken, format, args...)
}

func (p *Parser) errorAt(tok Token, format string, args ...interface{}) {
	if len(p.errors) >= maxErrors {
		return
	}
	p.errors = append(p.errors, ParseError{
		Pos:     tok.Pos,
		End:     tok.End,
		Message: fmt.Sprintf(format, args...),
	})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

func (p *Parser) failed() bool { return len(p.errors) >= maxErrors }

// synchronize skips to a likely statement boundary after an error.
func (p *Parser) synchronize() {
	for {
		switch p.curToken.Type {
		case TokenEOF, TokenRBrace, TokenFun:
			return
		case TokenSemicolon:
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses function declarations and top-level statements.
func (p *Parser) ParseProgram() *vm.Program {
	p.factory.StartMain()
	var stmts []vm.Node
	for !p.curTokenIs(TokenEOF) && !p.failed() {
		switch p.curToken.Type {
		case TokenSemicolon:
			p.nextToken()
		case TokenFun:
			p.parseFunction()
		case TokenRBrace:
			p.errorf("unexpected }")
			p.nextToken()
		default:
			stmts = append(stmts, p.parseStatementRecovering())
		}
	}
	p.factory.FinishMain(stmts, len(p.input))
	return p.factory.Program()
}

// parseStatementRecovering parses a statement and resynchronizes after
// an error, always making progress.
func (p *Parser) parseStatementRecovering() vm.Node {
	start := p.curToken.Pos.Offset
	stmt := p.parseStatement()
	if stmt == nil {
		if p.curToken.Pos.Offset == start && !p.curTokenIs(TokenEOF) {
			p.nextToken()
		}
		p.synchronize()
	}
	return stmt
}

// parseFunction parses: fun name(params) { body }
func (p *Parser) parseFunction() {
	funTok := p.curToken
	p.nextToken()
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected function name, got %s", p.curToken.Type)
		p.synchronize()
		return
	}
	nameTok := p.curToken
	p.nextToken()

	p.factory.StartFunction(nameTok.Literal, funTok.Pos.Offset, p.curToken.Pos.Offset)
	var body vm.Node
	if p.parseParameters() {
		body = p.parseBlock()
	} else {
		p.synchronize()
	}
	p.factory.FinishFunction(body, p.prevEnd)
}

func (p *Parser) parseParameters() bool {
	if !p.expect(TokenLParen) {
		return false
	}
	seen := make(map[string]bool)
	for !p.curTokenIs(TokenRParen) {
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name, got %s", p.curToken.Type)
			return false
		}
		if seen[p.curToken.Literal] {
			p.errorf("duplicate parameter %s", p.curToken.Literal)
		}
		seen[p.curToken.Literal] = true
		p.factory.AddFormalParameter(p.curToken)
		p.nextToken()
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	return p.expect(TokenRParen)
}

// parseBlock parses: { statements }
func (p *Parser) parseBlock() vm.Node {
	open := p.curToken
	if !p.expect(TokenLBrace) {
		return nil
	}
	p.factory.StartBlock()
	var stmts []vm.Node
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) && !p.failed() {
		switch p.curToken.Type {
		case TokenSemicolon:
			p.nextToken()
		case TokenFun:
			p.errorf("functions must be declared at top level")
			p.parseFunction()
		default:
			stmts = append(stmts, p.parseStatementRecovering())
		}
	}
	closeTok := p.curToken
	if !p.expect(TokenRBrace) {
		stmts = append(stmts, nil)
	}
	return p.factory.FinishBlock(stmts, open.Pos.Offset, closeTok.End)
}

// parseStatement parses an assignment or an expression.
func (p *Parser) parseStatement() vm.Node {
	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
		nameTok := p.curToken
		p.nextToken() // name
		p.nextToken() // :=
		value := p.parseExpression()
		return p.factory.CreateAssignment(nameTok, value)
	}
	return p.parseExpression()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() vm.Node {
	left := p.parseLogicTerm()
	for p.curTokenIs(TokenOr) {
		op := p.curToken
		p.nextToken()
		right := p.parseLogicTerm()
		left = p.factory.CreateBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseLogicTerm() vm.Node {
	left := p.parseRelation()
	for p.curTokenIs(TokenAnd) {
		op := p.curToken
		p.nextToken()
		right := p.parseRelation()
		left = p.factory.CreateBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseRelation() vm.Node {
	left := p.parseAdditive()
	switch p.curToken.Type {
	case TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq, TokenEqual, TokenNotEqual:
		op := p.curToken
		p.nextToken()
		right := p.parseAdditive()
		return p.factory.CreateBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() vm.Node {
	left := p.parseTerm()
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := p.curToken
		p.nextToken()
		right := p.parseTerm()
		left = p.factory.CreateBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseTerm() vm.Node {
	left := p.parseUnary()
	for p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) {
		op := p.curToken
		p.nextToken()
		right := p.parseUnary()
		left = p.factory.CreateBinary(op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() vm.Node {
	if p.curTokenIs(TokenBang) || p.curTokenIs(TokenMinus) {
		op := p.curToken
		p.nextToken()
		return p.factory.CreateUnary(op, p.parseUnary())
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() vm.Node {
	n := p.parsePrimary()
	for {
		switch p.curToken.Type {
		case TokenLParen:
			p.nextToken()
			args := p.parseList(TokenRParen)
			closeTok := p.curToken
			if !p.expect(TokenRParen) {
				return nil
			}
			n = p.factory.CreateCall(n, args, closeTok)
		case TokenLBracket:
			p.nextToken()
			index := p.parseExpression()
			closeTok := p.curToken
			if !p.expect(TokenRBracket) {
				return nil
			}
			n = p.factory.CreateElement(n, index, closeTok)
		default:
			return n
		}
	}
}

// parseList parses comma-separated expressions up to, not including, end.
func (p *Parser) parseList(end TokenType) []vm.Node {
	var items []vm.Node
	if p.curTokenIs(end) {
		return items
	}
	for {
		items = append(items, p.parseExpression())
		if !p.curTokenIs(TokenComma) {
			return items
		}
		p.nextToken()
	}
}

func (p *Parser) parsePrimary() vm.Node {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		n, err := p.factory.CreateIntegerLiteral(tok)
		if err != nil {
			p.errorAt(tok, "%v", err)
			return nil
		}
		return n

	case TokenString:
		p.nextToken()
		return p.factory.CreateStringLiteral(tok)

	case TokenTrue, TokenFalse:
		p.nextToken()
		return p.factory.CreateBooleanLiteral(tok)

	case TokenNull:
		p.nextToken()
		return p.factory.CreateNullLiteral(tok)

	case TokenIdentifier:
		p.nextToken()
		return p.factory.CreateRead(tok)

	case TokenLParen:
		p.nextToken()
		n := p.parseExpression()
		if !p.expect(TokenRParen) {
			return nil
		}
		return n

	case TokenLBracket:
		p.nextToken()
		elems := p.parseList(TokenRBracket)
		closeTok := p.curToken
		if !p.expect(TokenRBracket) {
			return nil
		}
		return p.factory.CreateArrayLiteral(tok, elems, closeTok)

	case TokenLBrace:
		return p.parseBlock()

	case TokenIf:
		return p.parseIf()

	case TokenWhile:
		p.nextToken()
		cond := p.parseExpression()
		body := p.parseBlock()
		return p.factory.CreateWhile(tok, cond, body)

	default:
		p.errorf("unexpected %s", tok.Type)
		return nil
	}
}

// parseIf parses: if cond { } [else { } | else if ...]
func (p *Parser) parseIf() vm.Node {
	ifTok := p.curToken
	p.nextToken()
	cond := p.parseExpression()
	thenPart := p.parseBlock()
	var elsePart vm.Node
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			elsePart = p.parseIf()
		} else {
			elsePart = p.parseBlock()
		}
		if elsePart == nil {
			return nil
		}
	}
	return p.factory.CreateIf(ifTok, cond, thenPart, elsePart)
}
