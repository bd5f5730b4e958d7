package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, source string) []Token {
	t.Helper()
	l := NewLexer("<test>", source)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestLexer_Punctuation(t *testing.T) {
	toks := lexAll(t, "(){}[],;:?.")
	types := []TokenType{
		TokenLParen, TokenRParen, TokenLBrace, TokenRBrace,
		TokenLBracket, TokenRBracket, TokenComma, TokenSemicolon,
		TokenColon, TokenQuestion, TokenDot, TokenEOF,
	}
	require.Len(t, toks, len(types))
	for i, want := range types {
		assert.Equal(t, want, toks[i].Type, "token %d", i)
	}
}

func TestLexer_Keywords(t *testing.T) {
	toks := lexAll(t, "var const if else while for in return break continue import recover function true false null")
	want := []TokenType{
		TokenVar, TokenConst, TokenIf, TokenElse, TokenWhile, TokenFor, TokenIn,
		TokenReturn, TokenBreak, TokenContinue, TokenImport, TokenRecover,
		TokenFunction, TokenTrue, TokenFalse, TokenNull, TokenEOF,
	}
	require.Len(t, toks, len(want))
	for i, tt := range want {
		assert.Equal(t, tt, toks[i].Type, "token %d", i)
	}
}

func TestLexer_NumberLiteral(t *testing.T) {
	toks := lexAll(t, "42 3.14")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenNumber, toks[0].Type)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, TokenNumber, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Literal)
}

func TestLexer_StringLiteral(t *testing.T) {
	toks := lexAll(t, `"hello world"`)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokenString, toks[0].Type)
	assert.Equal(t, "hello world", toks[0].Literal)
}

func TestLexer_SourcePositionsAdvance(t *testing.T) {
	l := NewLexer("file.ape", "var\nx")
	tok := l.NextToken() // var
	assert.Equal(t, 1, tok.Pos.Line)
	tok = l.NextToken() // x, on line 2
	assert.Equal(t, 2, tok.Pos.Line)
}
