package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lama syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Lama source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of the current character (1-based)
	col     int  // column of the current character (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = len(l.input)
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) token(typ TokenType, lit string, pos Position) Token {
	return Token{Type: typ, Literal: lit, Pos: pos, End: l.pos}
}

// single consumes one character and returns a token for it.
func (l *Lexer) single(typ TokenType, pos Position) Token {
	lit := string(l.ch)
	l.readChar()
	return l.token(typ, lit, pos)
}

// double consumes two characters and returns a token for them.
func (l *Lexer) double(typ TokenType, pos Position) Token {
	lit := string(l.ch) + string(l.peekChar())
	l.readChar()
	l.readChar()
	return l.token(typ, lit, pos)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return *err
	}

	pos := l.position()
	peek := l.peekChar()

	switch {
	case l.ch == 0:
		return l.token(TokenEOF, "", pos)

	case l.ch == '(':
		return l.single(TokenLParen, pos)
	case l.ch == ')':
		return l.single(TokenRParen, pos)
	case l.ch == '[':
		return l.single(TokenLBracket, pos)
	case l.ch == ']':
		return l.single(TokenRBracket, pos)
	case l.ch == '{':
		return l.single(TokenLBrace, pos)
	case l.ch == '}':
		return l.single(TokenRBrace, pos)
	case l.ch == ',':
		return l.single(TokenComma, pos)
	case l.ch == ';':
		return l.single(TokenSemicolon, pos)
	case l.ch == '+':
		return l.single(TokenPlus, pos)
	case l.ch == '-':
		return l.single(TokenMinus, pos)
	case l.ch == '*':
		return l.single(TokenStar, pos)
	case l.ch == '/':
		return l.single(TokenSlash, pos)

	case l.ch == '<' && peek == '=':
		return l.double(TokenLessEq, pos)
	case l.ch == '<':
		return l.single(TokenLess, pos)
	case l.ch == '>' && peek == '=':
		return l.double(TokenGreaterEq, pos)
	case l.ch == '>':
		return l.single(TokenGreater, pos)
	case l.ch == '=' && peek == '=':
		return l.double(TokenEqual, pos)
	case l.ch == '!' && peek == '=':
		return l.double(TokenNotEqual, pos)
	case l.ch == '!' && peek == '!':
		return l.double(TokenOr, pos)
	case l.ch == '!':
		return l.single(TokenBang, pos)
	case l.ch == '|' && peek == '|':
		return l.double(TokenOr, pos)
	case l.ch == '&' && peek == '&':
		return l.double(TokenAnd, pos)
	case l.ch == ':' && peek == '=':
		return l.double(TokenAssign, pos)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)

	default:
		ch := l.ch
		l.readChar()
		return l.token(TokenError, fmt.Sprintf("unexpected character: %c", ch), pos)
	}
}

// skipWhitespaceAndComments skips whitespace, "--" line comments and
// "(* ... *)" block comments. An unterminated block comment yields an
// error token.
func (l *Lexer) skipWhitespaceAndComments() *Token {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '(' && l.peekChar() == '*' {
			pos := l.position()
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == ')') {
				if l.ch == 0 {
					tok := l.token(TokenError, "unterminated comment", pos)
					return &tok
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
			continue
		}

		return nil
	}
}

// readString reads a double-quoted string literal with backslash escapes.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		switch l.ch {
		case 0, '\n':
			return l.token(TokenError, "unterminated string", pos)
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteRune(l.ch)
			default:
				return l.token(TokenError, fmt.Sprintf("invalid escape: \\%c", l.ch), pos)
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing "

	return l.token(TokenString, sb.String(), pos)
}

// readNumber reads a decimal integer literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if isLetter(l.ch) || l.ch == '_' {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return l.token(TokenError, fmt.Sprintf("malformed number: %s", l.input[start:l.pos]), pos)
	}
	return l.token(TokenInteger, l.input[start:l.pos], pos)
}

// readIdentifierOrKeyword reads an identifier or reserved word.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if typ, ok := reservedWords[word]; ok {
		return l.token(typ, word, pos)
	}
	return l.token(TokenIdentifier, word, pos)
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
