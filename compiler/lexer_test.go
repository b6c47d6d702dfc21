package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , ; := + - * / < <= > >= == != && !! || !`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenSemicolon, ";"},
		{TokenAssign, ":="},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenLess, "<"},
		{TokenLessEq, "<="},
		{TokenGreater, ">"},
		{TokenGreaterEq, ">="},
		{TokenEqual, "=="},
		{TokenNotEqual, "!="},
		{TokenAnd, "&&"},
		{TokenOr, "!!"},
		{TokenOr, "||"},
		{TokenBang, "!"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	tokens := Tokenize("fun if else while true false null funny _x1")
	want := []TokenType{
		TokenFun, TokenIf, TokenElse, TokenWhile, TokenTrue, TokenFalse, TokenNull,
		TokenIdentifier, TokenIdentifier, TokenEOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i].Type, typ)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`"a\nb"`, "a\nb"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
	}
	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%s): type = %v, want STRING", tc.input, tok.Type)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%s): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
		if tok.Length() != len(tc.input) {
			t.Errorf("Lexer(%s): length = %d, want %d", tc.input, tok.Length(), len(tc.input))
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []string{
		`"unterminated`,
		`"bad \q escape"`,
		`12abc`,
		`@`,
		`(* never closed`,
	}
	for _, input := range tests {
		tokens := Tokenize(input)
		last := tokens[len(tokens)-1]
		if last.Type != TokenError {
			t.Errorf("Tokenize(%q) ended with %v, want ERROR", input, last)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := "a -- line comment\n(* block\n comment *) b"
	tokens := Tokenize(input)
	if len(tokens) != 3 || tokens[0].Literal != "a" || tokens[1].Literal != "b" {
		t.Fatalf("tokens = %v", tokens)
	}
	if tokens[1].Pos.Line != 3 {
		t.Errorf("b on line %d, want 3", tokens[1].Pos.Line)
	}
}

func TestLexerPositions(t *testing.T) {
	input := "x := 10\n  y"
	tokens := Tokenize(input)
	cases := []struct {
		idx          int
		offset, end  int
		line, column int
	}{
		{0, 0, 1, 1, 1},
		{1, 2, 4, 1, 3},
		{2, 5, 7, 1, 6},
		{3, 10, 11, 2, 3},
	}
	for _, tc := range cases {
		tok := tokens[tc.idx]
		if tok.Pos.Offset != tc.offset || tok.End != tc.end {
			t.Errorf("token %v: range [%d,%d), want [%d,%d)", tok, tok.Pos.Offset, tok.End, tc.offset, tc.end)
		}
		if tok.Pos.Line != tc.line || tok.Pos.Column != tc.column {
			t.Errorf("token %v: at %s, want %d:%d", tok, tok.Pos, tc.line, tc.column)
		}
	}
}
