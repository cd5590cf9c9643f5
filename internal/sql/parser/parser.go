// Package parser - Command parser implementation
//
// EDUCATIONAL NOTES:
// ------------------
// A parser reads tokens from the lexer and builds a statement value.
//
// We use a "recursive descent" parser. Each command becomes a function:
// - parseStatement() picks the command from the first token
// - parseSelectStatement() handles the Select grammar specifically
// - parseCondition() captures a WHERE condition as raw text
//
// The parser maintains a "current token" and can "peek" at the next token.
// This allows it to make decisions about what to parse next.
//
// Standard SQL CREATE TABLE is also accepted. That path does not use our
// lexer at all: the whole input goes to a full MySQL grammar and the
// resulting DDL tree is mapped onto a CreateTableStatement.

package parser

import (
	"fmt"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/sql/lexer"
	"github.com/cabewaldrop/pagedb/internal/storage"
)

// Parser parses command tokens into a Statement.
type Parser struct {
	lexer     *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:  l,
		errors: []string{},
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// ParseString parses a single command.
func ParseString(input string) (Statement, error) {
	return New(lexer.New(input)).Parse()
}

// Parse parses the input and returns the statement.
func (p *Parser) Parse() (Statement, error) {
	if p.curTokenIs(lexer.TokenIdent) && strings.EqualFold(p.curToken.Literal, "CREATE") {
		return parseSQLCreateTable(p.lexer.Input())
	}

	stmt := p.parseStatement()
	if len(p.errors) == 0 {
		if p.peekTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
		}
		if !p.peekTokenIs(lexer.TokenEOF) {
			p.errors = append(p.errors, fmt.Sprintf("unexpected %q after statement", p.peekToken.Literal))
		}
	}
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors: %s", strings.Join(p.errors, "; "))
	}
	return stmt, nil
}

// Errors returns any parsing errors encountered.
func (p *Parser) Errors() []string {
	return p.errors
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the next token is of the given type.
func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expectPeek advances if the next token is of the expected type.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// peekError records an error for unexpected token type.
func (p *Parser) peekError(t lexer.TokenType) {
	msg := fmt.Sprintf("expected %s, got %s instead (literal: %q)",
		t, p.peekToken.Type, p.peekToken.Literal)
	p.errors = append(p.errors, msg)
}

// parseStatement parses one command.
//
// EDUCATIONAL NOTE:
// -----------------
// This is the entry point for parsing. We look at the first token
// to determine what kind of command we're parsing.
func (p *Parser) parseStatement() Statement {
	switch p.curToken.Type {
	case lexer.TokenCreateTable:
		return p.nilIfFailed(p.parseCreateTableStatement())
	case lexer.TokenDropTable:
		if !p.expectPeek(lexer.TokenIdent) {
			return nil
		}
		return &DropTableStatement{Name: p.curToken.Literal}
	case lexer.TokenListTables:
		return &ListTablesStatement{}
	case lexer.TokenTableInfo:
		if !p.expectPeek(lexer.TokenIdent) {
			return nil
		}
		return &TableInfoStatement{Name: p.curToken.Literal}
	case lexer.TokenSelect:
		return p.nilIfFailed(p.parseSelectStatement())
	case lexer.TokenInsert:
		return p.nilIfFailed(p.parseInsertStatement())
	case lexer.TokenRemove:
		return p.nilIfFailed(p.parseRemoveStatement())
	case lexer.TokenExplain:
		return p.nilIfFailed(p.parseExplainStatement())
	case lexer.TokenQuit:
		return &QuitStatement{}
	case lexer.TokenEOF:
		p.errors = append(p.errors, "empty command")
		return nil
	default:
		p.errors = append(p.errors, fmt.Sprintf("unexpected token: %s", p.curToken.Literal))
		return nil
	}
}

// nilIfFailed keeps a typed nil pointer from turning into a non-nil
// Statement interface.
func (p *Parser) nilIfFailed(stmt Statement) Statement {
	if len(p.errors) > 0 {
		return nil
	}
	return stmt
}

// parseCreateTableStatement parses:
// CreateTable name (Col:Type, ...) [Index ON col]
func (p *Parser) parseCreateTableStatement() *CreateTableStatement {
	stmt := &CreateTableStatement{}

	if !p.expectPeek(lexer.TokenIdent) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(lexer.TokenLeftParen) {
		return nil
	}
	for {
		col, ok := p.parseColumnDefinition()
		if !ok {
			return nil
		}
		stmt.Columns = append(stmt.Columns, col)
		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.TokenRightParen) {
		return nil
	}

	if p.peekTokenIs(lexer.TokenIndex) {
		p.nextToken()
		if !p.expectPeek(lexer.TokenOn) {
			return nil
		}
		if !p.expectPeek(lexer.TokenIdent) {
			return nil
		}
		stmt.PrimaryKey = p.curToken.Literal
	}
	return stmt
}

// parseColumnDefinition parses Name:Type.
func (p *Parser) parseColumnDefinition() (ColumnDefinition, bool) {
	if !p.expectPeek(lexer.TokenIdent) {
		return ColumnDefinition{}, false
	}
	col := ColumnDefinition{Name: p.curToken.Literal}
	if !p.expectPeek(lexer.TokenColon) {
		return ColumnDefinition{}, false
	}
	if !p.expectPeek(lexer.TokenIdent) {
		return ColumnDefinition{}, false
	}
	kind, err := storage.ParseKind(p.curToken.Literal)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("column %s: %v", col.Name, err))
		return ColumnDefinition{}, false
	}
	col.Type = kind
	return col, true
}

// parseSelectStatement parses:
// Select cols|* FROM table [WHERE condition] [OrderBy col] [DISTINCT]
func (p *Parser) parseSelectStatement() *SelectStatement {
	stmt := &SelectStatement{}

	if p.peekTokenIs(lexer.TokenAsterisk) {
		p.nextToken()
	} else {
		stmt.Columns = p.parseIdentifierList()
		if stmt.Columns == nil {
			return nil
		}
	}

	if !p.expectPeek(lexer.TokenFrom) {
		return nil
	}
	if !p.expectPeek(lexer.TokenIdent) {
		return nil
	}
	stmt.From = p.curToken.Literal

	if p.peekTokenIs(lexer.TokenWhere) {
		p.nextToken()
		where, ok := p.parseCondition()
		if !ok {
			return nil
		}
		stmt.Where = where
	}

	// OrderBy and DISTINCT may come in either order.
	for {
		switch {
		case p.peekTokenIs(lexer.TokenOrderBy) && stmt.OrderBy == "":
			p.nextToken()
			if !p.expectPeek(lexer.TokenIdent) {
				return nil
			}
			stmt.OrderBy = p.curToken.Literal
			continue
		case p.peekTokenIs(lexer.TokenDistinct) && !stmt.Distinct:
			p.nextToken()
			stmt.Distinct = true
			continue
		}
		break
	}
	return stmt
}

// parseRemoveStatement parses: Remove FROM table [WHERE condition]
func (p *Parser) parseRemoveStatement() *RemoveStatement {
	stmt := &RemoveStatement{}

	if !p.expectPeek(lexer.TokenFrom) {
		return nil
	}
	if !p.expectPeek(lexer.TokenIdent) {
		return nil
	}
	stmt.From = p.curToken.Literal

	if p.peekTokenIs(lexer.TokenWhere) {
		p.nextToken()
		where, ok := p.parseCondition()
		if !ok {
			return nil
		}
		stmt.Where = where
	}
	return stmt
}

// parseInsertStatement parses: Insert INTO table {(v, ...), (v, ...)}
// The braces are optional.
func (p *Parser) parseInsertStatement() *InsertStatement {
	stmt := &InsertStatement{}

	if !p.expectPeek(lexer.TokenInto) {
		return nil
	}
	if !p.expectPeek(lexer.TokenIdent) {
		return nil
	}
	stmt.Table = p.curToken.Literal

	braced := p.peekTokenIs(lexer.TokenLeftBrace)
	if braced {
		p.nextToken()
	}
	for {
		row := p.parseLiteralRow()
		if row == nil {
			return nil
		}
		stmt.Rows = append(stmt.Rows, row)
		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if braced && !p.expectPeek(lexer.TokenRightBrace) {
		return nil
	}
	return stmt
}

// parseLiteralRow parses (v, v, ...).
func (p *Parser) parseLiteralRow() []Literal {
	if !p.expectPeek(lexer.TokenLeftParen) {
		return nil
	}
	row := []Literal{}
	for {
		p.nextToken()
		switch p.curToken.Type {
		case lexer.TokenInteger:
			row = append(row, Literal{Kind: LiteralInteger, Text: p.curToken.Literal})
		case lexer.TokenDouble:
			row = append(row, Literal{Kind: LiteralDouble, Text: p.curToken.Literal})
		case lexer.TokenString:
			row = append(row, Literal{Kind: LiteralString, Text: p.curToken.Literal})
		default:
			p.errors = append(p.errors, fmt.Sprintf("expected a value, got %q", p.curToken.Literal))
			return nil
		}
		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.TokenRightParen) {
		return nil
	}
	return row
}

// parseExplainStatement parses: Explain Select ... | Explain Remove ...
func (p *Parser) parseExplainStatement() *ExplainStatement {
	p.nextToken()
	var inner Statement
	switch p.curToken.Type {
	case lexer.TokenSelect:
		if s := p.parseSelectStatement(); s != nil {
			inner = s
		}
	case lexer.TokenRemove:
		if s := p.parseRemoveStatement(); s != nil {
			inner = s
		}
	default:
		p.errors = append(p.errors, "Explain expects a Select or Remove command")
	}
	if inner == nil {
		return nil
	}
	return &ExplainStatement{Statement: inner}
}

// parseIdentifierList parses a comma-separated list of identifiers.
func (p *Parser) parseIdentifierList() []string {
	var idents []string
	for {
		if !p.expectPeek(lexer.TokenIdent) {
			return nil
		}
		idents = append(idents, p.curToken.Literal)
		if !p.peekTokenIs(lexer.TokenComma) {
			return idents
		}
		p.nextToken()
	}
}

// parseCondition captures the text after WHERE up to OrderBy, DISTINCT,
// a semicolon or the end of input.
//
// EDUCATIONAL NOTE:
// -----------------
// The condition grammar (comparisons joined by AND, OR, NOT and
// parentheses) is parsed later by the query package, which also needs the
// table schema to type the literals. Here we only make sure the tokens are
// well formed and remember where the condition starts and ends.
func (p *Parser) parseCondition() (string, bool) {
	input := p.lexer.Input()
	start := p.curToken.End(input)

	for !p.peekTokenIs(lexer.TokenOrderBy) &&
		!p.peekTokenIs(lexer.TokenDistinct) &&
		!p.peekTokenIs(lexer.TokenSemicolon) &&
		!p.peekTokenIs(lexer.TokenEOF) {
		if p.peekTokenIs(lexer.TokenError) || p.peekTokenIs(lexer.TokenIllegal) {
			p.errors = append(p.errors, fmt.Sprintf("bad condition: %s", p.peekToken.Literal))
			return "", false
		}
		p.nextToken()
	}

	end := p.peekToken.Offset
	if end > len(input) {
		end = len(input)
	}
	cond := ""
	if start < end {
		cond = strings.TrimSpace(input[start:end])
	}
	if cond == "" {
		p.errors = append(p.errors, "expected a condition after WHERE")
		return "", false
	}
	return cond, true
}
