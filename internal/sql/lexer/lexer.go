// Package lexer implements the tokenizer shared by the command parser and
// the WHERE-condition parser.
//
// EDUCATIONAL NOTES:
// ------------------
// A lexer (also called tokenizer or scanner) is the first phase of parsing.
// It reads the raw input string and converts it into a stream of tokens.
//
// For example, the input:
//   Select Name FROM people WHERE ID >= 2 AND Name != "Bob"
//
// Becomes these tokens:
//   [SELECT] [IDENT:Name] [FROM] [IDENT:people] [WHERE] [IDENT:ID]
//   [GREATER_OR_EQUAL] [INTEGER:2] [AND] [IDENT:Name] [NOT_EQUALS] [STRING:Bob]
//
// The lexer handles:
// - Keywords (Select, Insert, Remove, WHERE, AND, OR, ...), case-insensitive
// - Identifiers (table names, column names)
// - Literals: integers, decimals, and text in double or single quotes
// - Comparison operators (=, !=, <>, <, >, <=, >=)
// - Punctuation (commas, colons, parentheses, braces)
// - Whitespace (which we skip)

package lexer

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenIllegal

	// Literals
	TokenIdent   // column names, table names
	TokenInteger // 123, -4
	TokenDouble  // 45.67
	TokenString  // "hello" or 'hello'

	// Keywords
	TokenCreateTable
	TokenDropTable
	TokenListTables
	TokenTableInfo
	TokenSelect
	TokenInsert
	TokenRemove
	TokenExplain
	TokenFrom
	TokenInto
	TokenWhere
	TokenOrderBy
	TokenDistinct
	TokenIndex
	TokenOn
	TokenAnd
	TokenOr
	TokenNot
	TokenQuit

	// Operators
	TokenEquals         // =
	TokenNotEquals      // != or <>
	TokenLessThan       // <
	TokenGreaterThan    // >
	TokenLessOrEqual    // <=
	TokenGreaterOrEqual // >=
	TokenAsterisk       // *

	// Punctuation
	TokenComma      // ,
	TokenColon      // :
	TokenSemicolon  // ;
	TokenLeftParen  // (
	TokenRightParen // )
	TokenLeftBrace  // {
	TokenRightBrace // }
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Offset  int // byte offset of the token's first character
}

// End returns the byte offset just past the token in the input.
func (t Token) End(input string) int {
	end := t.Offset + len(t.Literal)
	if t.Type == TokenString {
		// The literal has its quotes stripped; find the closing quote.
		for i := t.Offset + 1; i < len(input); i++ {
			if input[i] == input[t.Offset] {
				if i+1 < len(input) && input[i+1] == input[t.Offset] {
					i++
					continue
				}
				return i + 1
			}
		}
		return len(input)
	}
	if end > len(input) {
		return len(input)
	}
	return end
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, line:%d, col:%d}",
		t.Type, t.Literal, t.Line, t.Column)
}

var tokenNames = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenError:          "ERROR",
	TokenIllegal:        "ILLEGAL",
	TokenIdent:          "IDENT",
	TokenInteger:        "INTEGER",
	TokenDouble:         "DOUBLE",
	TokenString:         "STRING",
	TokenCreateTable:    "CREATETABLE",
	TokenDropTable:      "DROPTABLE",
	TokenListTables:     "LISTTABLES",
	TokenTableInfo:      "TABLEINFO",
	TokenSelect:         "SELECT",
	TokenInsert:         "INSERT",
	TokenRemove:         "REMOVE",
	TokenExplain:        "EXPLAIN",
	TokenFrom:           "FROM",
	TokenInto:           "INTO",
	TokenWhere:          "WHERE",
	TokenOrderBy:        "ORDERBY",
	TokenDistinct:       "DISTINCT",
	TokenIndex:          "INDEX",
	TokenOn:             "ON",
	TokenAnd:            "AND",
	TokenOr:             "OR",
	TokenNot:            "NOT",
	TokenQuit:           "QUIT",
	TokenEquals:         "EQUALS",
	TokenNotEquals:      "NOT_EQUALS",
	TokenLessThan:       "LESS_THAN",
	TokenGreaterThan:    "GREATER_THAN",
	TokenLessOrEqual:    "LESS_OR_EQUAL",
	TokenGreaterOrEqual: "GREATER_OR_EQUAL",
	TokenAsterisk:       "ASTERISK",
	TokenComma:          "COMMA",
	TokenColon:          "COLON",
	TokenSemicolon:      "SEMICOLON",
	TokenLeftParen:      "LEFT_PAREN",
	TokenRightParen:     "RIGHT_PAREN",
	TokenLeftBrace:      "LEFT_BRACE",
	TokenRightBrace:     "RIGHT_BRACE",
}

// String returns the name of a token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// IsComparison reports whether t is one of the comparison operators.
func (t TokenType) IsComparison() bool {
	return t >= TokenEquals && t <= TokenGreaterOrEqual
}

// keywords maps keywords to their token types. Matching is
// case-insensitive, so they are stored in uppercase.
var keywords = map[string]TokenType{
	"CREATETABLE": TokenCreateTable,
	"DROPTABLE":   TokenDropTable,
	"LISTTABLES":  TokenListTables,
	"TABLEINFO":   TokenTableInfo,
	"SELECT":      TokenSelect,
	"INSERT":      TokenInsert,
	"REMOVE":      TokenRemove,
	"EXPLAIN":     TokenExplain,
	"FROM":        TokenFrom,
	"INTO":        TokenInto,
	"WHERE":       TokenWhere,
	"ORDERBY":     TokenOrderBy,
	"DISTINCT":    TokenDistinct,
	"INDEX":       TokenIndex,
	"ON":          TokenOn,
	"AND":         TokenAnd,
	"OR":          TokenOr,
	"NOT":         TokenNot,
	"QUIT":        TokenQuit,
	"EXIT":        TokenQuit,
}

// Lexer tokenizes command and condition input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current character
	line    int
	column  int
}

// New creates a new Lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL signifies EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar looks at the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	var tok Token
	switch l.ch {
	case '=':
		tok = l.makeToken(TokenEquals, "=")
	case '-':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		tok = l.makeToken(TokenIllegal, "-")
	case '*':
		tok = l.makeToken(TokenAsterisk, "*")
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.makeToken(TokenLessOrEqual, "<=")
			l.readChar()
		case '>':
			tok = l.makeToken(TokenNotEquals, "<>")
			l.readChar()
		default:
			tok = l.makeToken(TokenLessThan, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.makeToken(TokenGreaterOrEqual, ">=")
			l.readChar()
		} else {
			tok = l.makeToken(TokenGreaterThan, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.makeToken(TokenNotEquals, "!=")
			l.readChar()
		} else {
			tok = l.makeToken(TokenIllegal, "!")
		}
	case ',':
		tok = l.makeToken(TokenComma, ",")
	case ':':
		tok = l.makeToken(TokenColon, ":")
	case ';':
		tok = l.makeToken(TokenSemicolon, ";")
	case '(':
		tok = l.makeToken(TokenLeftParen, "(")
	case ')':
		tok = l.makeToken(TokenRightParen, ")")
	case '{':
		tok = l.makeToken(TokenLeftBrace, "{")
	case '}':
		tok = l.makeToken(TokenRightBrace, "}")
	case '"', '\'':
		return l.readString(l.ch)
	case 0:
		return l.makeToken(TokenEOF, "")
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = l.makeToken(TokenIllegal, string(l.ch))
	}

	l.readChar()
	return tok
}

// makeToken creates a token with current position info.
func (l *Lexer) makeToken(tokenType TokenType, literal string) Token {
	return Token{
		Type:    tokenType,
		Literal: literal,
		Line:    l.line,
		Column:  l.column,
		Offset:  l.pos,
	}
}

// Input returns the text being tokenized.
func (l *Lexer) Input() string { return l.input }

// skipWhitespace skips spaces, tabs, and newlines.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() Token {
	tok := l.makeToken(TokenIdent, "")
	startPos := l.pos

	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}

	tok.Literal = l.input[startPos:l.pos]
	if kw, ok := keywords[strings.ToUpper(tok.Literal)]; ok {
		tok.Type = kw
	}
	return tok
}

// readNumber reads an integer or a decimal literal. A decimal needs digits
// on both sides of the dot.
func (l *Lexer) readNumber() Token {
	tok := l.makeToken(TokenInteger, "")
	startPos := l.pos

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		tok.Type = TokenDouble
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	tok.Literal = l.input[startPos:l.pos]
	return tok
}

// readString reads a literal enclosed in quote. A doubled quote inside the
// literal stands for one quote character.
func (l *Lexer) readString(quote byte) Token {
	tok := l.makeToken(TokenString, "")

	var sb strings.Builder
	l.readChar() // consume opening quote

	for {
		switch {
		case l.ch == quote && l.peekChar() == quote:
			sb.WriteByte(quote)
			l.readChar()
			l.readChar()
		case l.ch == quote:
			l.readChar()
			tok.Literal = sb.String()
			return tok
		case l.ch == 0:
			tok.Type = TokenError
			tok.Literal = "unterminated string"
			return tok
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func (l *Lexer) Tokenize() []Token {
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

// isLetter checks if the character can start an identifier.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

// isDigit checks if the character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
