package parser

import (
	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/token"
)

// ParseProgram parses header blocks and body statements until EOF.
// Each parse function leaves curToken on the last token it consumed.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{File: p.ctx.FilePath}
	bodyStarted := false

	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.OPTIONS:
			p.checkHeaderPosition(bodyStarted, config.OptionsBlockName)
			if block := p.parseOptionsBlock(); block != nil {
				program.Options = append(program.Options, block)
			}
		case token.IMAGES:
			p.checkHeaderPosition(bodyStarted, config.ImagesBlockName)
			if block := p.parseImagesBlock(); block != nil {
				program.Images = append(program.Images, block)
			}
		case token.INIT:
			p.checkHeaderPosition(bodyStarted, config.InitBlockName)
			if block := p.parseInitBlock(); block != nil {
				program.Inits = append(program.Inits, block)
			}
		default:
			if stmt := p.parseStatement(); stmt != nil {
				program.Statements = append(program.Statements, stmt)
				bodyStarted = true
			}
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) checkHeaderPosition(bodyStarted bool, name string) {
	if bodyStarted {
		p.addError(diagnostics.NewError(diagnostics.ErrP003, p.curToken, name))
	}
}

func (p *Parser) parseOptionsBlock() *ast.OptionsBlock {
	block := &ast.OptionsBlock{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	for {
		p.nextToken()
		if p.curTokenIs(token.RBRACE) {
			return block
		}
		if !p.curTokenIs(token.IDENT) {
			p.headerEntryError("option name expected")
			return nil
		}
		entry := &ast.OptionEntry{Token: p.curToken, Name: p.curToken.Lexeme}
		if !p.expectPeek(token.ASSIGN) {
			p.skipToStatementBoundary()
			return nil
		}
		p.nextToken()
		entry.Value = p.parseExpression(LOWEST)
		if entry.Value == nil || !p.expectPeek(token.SEMICOLON) {
			p.skipToStatementBoundary()
			return nil
		}
		block.Entries = append(block.Entries, entry)
	}
}

func (p *Parser) parseImagesBlock() *ast.ImagesBlock {
	block := &ast.ImagesBlock{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	for {
		p.nextToken()
		if p.curTokenIs(token.RBRACE) {
			return block
		}
		if !p.curTokenIs(token.IDENT) {
			p.headerEntryError("image variable name expected")
			return nil
		}
		entry := &ast.ImageEntry{Token: p.curToken, Name: p.curToken.Lexeme}
		if !p.expectPeek(token.ASSIGN) {
			p.skipToStatementBoundary()
			return nil
		}
		p.nextToken()
		if !p.curTokenIs(token.READ) && !p.curTokenIs(token.WRITE) {
			p.headerEntryError("image role must be read or write")
			return nil
		}
		entry.Role = p.curToken.Type
		if !p.expectPeek(token.SEMICOLON) {
			p.skipToStatementBoundary()
			return nil
		}
		block.Entries = append(block.Entries, entry)
	}
}

func (p *Parser) parseInitBlock() *ast.InitBlock {
	block := &ast.InitBlock{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	for {
		p.nextToken()
		if p.curTokenIs(token.RBRACE) {
			return block
		}
		if !p.curTokenIs(token.IDENT) {
			p.headerEntryError("variable name expected")
			return nil
		}
		entry := &ast.InitEntry{Token: p.curToken, Name: p.curToken.Lexeme}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			entry.Value = p.parseExpression(LOWEST)
			if entry.Value == nil {
				p.skipToStatementBoundary()
				return nil
			}
		}
		if !p.expectPeek(token.SEMICOLON) {
			p.skipToStatementBoundary()
			return nil
		}
		block.Entries = append(block.Entries, entry)
	}
}

// headerEntryError reports a malformed entry and skips to the end of the block.
func (p *Parser) headerEntryError(msg string) {
	p.addError(diagnostics.NewError(diagnostics.ErrP004, p.curToken, msg))
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE, token.UNTIL:
		return p.parseWhileStatement()
	case token.FOREACH:
		return p.parseForEachStatement()
	case token.BREAKIF:
		return p.parseBreakIfStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			p.skipToStatementBoundary()
			return nil
		}
		return stmt
	case token.OPTIONS, token.IMAGES, token.INIT:
		p.addError(diagnostics.NewError(diagnostics.ErrP003, p.curToken, p.curToken.Lexeme))
		p.skipToStatementBoundary()
		return nil
	}
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.APPEND) {
		return p.parseAppendStatement()
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		p.skipToStatementBoundary()
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.addError(diagnostics.NewError(diagnostics.ErrP001, p.curToken, "'}'", describe(p.curToken)))
			return block
		}
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// parseCondition parses "( expr )" leaving curToken on ')'.
func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	stmt.Consequence = p.parseStatement()
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken, Until: p.curTokenIs(token.UNTIL)}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseForEachStatement() ast.Statement {
	stmt := &ast.ForEachStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) || !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Variable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.expectPeek(token.IN) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	stmt.Low = p.parseExpression(LOWEST)
	if stmt.Low == nil {
		p.skipToStatementBoundary()
		return nil
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		stmt.High = p.parseExpression(LOWEST)
		if stmt.High == nil {
			p.skipToStatementBoundary()
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseBreakIfStatement() ast.Statement {
	stmt := &ast.BreakIfStatement{Token: p.curToken}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		p.skipToStatementBoundary()
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

func (p *Parser) parseAppendStatement() ast.Statement {
	target := &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	p.nextToken()
	stmt := &ast.AppendStatement{Token: p.curToken, Target: target}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil || !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}
