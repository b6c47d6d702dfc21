package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Lama lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenString     // "hello"
	TokenIdentifier // foo

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=
	TokenEqual     // ==
	TokenNotEqual  // !=
	TokenAnd       // &&
	TokenOr        // !! or ||
	TokenBang      // !
	TokenAssign    // :=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;

	// Reserved words
	TokenFun
	TokenIf
	TokenElse
	TokenWhile
	TokenTrue
	TokenFalse
	TokenNull
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenLess:       "<",
	TokenLessEq:     "<=",
	TokenGreater:    ">",
	TokenGreaterEq:  ">=",
	TokenEqual:      "==",
	TokenNotEqual:   "!=",
	TokenAnd:        "&&",
	TokenOr:         "!!",
	TokenBang:       "!",
	TokenAssign:     ":=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenFun:        "fun",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNull:       "null",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position represents a location in source code.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // decoded text (string contents without quotes)
	Pos     Position // start position
	End     int      // byte offset one past the last character
}

// Length returns the number of source bytes the token covers.
func (t Token) Length() int { return t.End - t.Pos.Offset }

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"fun":   TokenFun,
	"if":    TokenIf,
	"else":  TokenElse,
	"while": TokenWhile,
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
}
