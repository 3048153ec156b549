package parser

import (
	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.addError(diagnostics.NewError(diagnostics.ErrP006, p.curToken,
			"expression too complex: recursion depth limit exceeded"))
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		call := &ast.CallExpression{Token: ident.Token, Function: ident}
		args, ok := p.parseExpressionList(token.RPAREN)
		if !ok {
			return nil
		}
		call.Arguments = args
		return call
	case p.peekTokenIs(token.LBRACKET):
		p.nextToken()
		return p.parseImagePosition(ident)
	}
	return ident
}

// parseImagePosition parses the bracketed specifier after an image name.
// curToken is the opening '['.
func (p *Parser) parseImagePosition(image *ast.Identifier) ast.Expression {
	pos := &ast.ImagePosition{Token: p.curToken, Image: image}

	if p.peekTokenIs(token.RBRACKET) {
		p.addError(diagnostics.NewError(diagnostics.ErrP006, p.peekToken, "empty image position"))
		return nil
	}

	if p.peekTokenIs(token.LBRACKET) {
		// name[[x, y]] or name[[x, y], band]
		p.nextToken()
		p.nextToken()
		if pos.X = p.parseExpression(LOWEST); pos.X == nil || !p.expectPeek(token.COMMA) {
			return nil
		}
		p.nextToken()
		if pos.Y = p.parseExpression(LOWEST); pos.Y == nil || !p.expectPeek(token.RBRACKET) {
			return nil
		}
		pos.AbsX, pos.AbsY = true, true
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			if pos.Band = p.parseExpression(LOWEST); pos.Band == nil {
				return nil
			}
		}
		if !p.expectPeek(token.RBRACKET) {
			return nil
		}
		return pos
	}

	var terms []ast.Expression
	var absolute []bool
	for {
		p.nextToken()
		abs := false
		if p.curTokenIs(token.DOLLAR) {
			abs = true
			p.nextToken()
		}
		term := p.parseExpression(LOWEST)
		if term == nil {
			return nil
		}
		terms = append(terms, term)
		absolute = append(absolute, abs)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}

	switch len(terms) {
	case 1:
		pos.Band = terms[0]
	case 2, 3:
		pos.X, pos.Y = terms[0], terms[1]
		pos.AbsX, pos.AbsY = absolute[0], absolute[1]
		if len(terms) == 3 {
			pos.Band = terms[2]
		}
	default:
		p.addError(diagnostics.NewError(diagnostics.ErrP006, pos.Token, "too many terms in image position"))
		return nil
	}
	if (len(terms) == 1 && absolute[0]) || (len(terms) == 3 && absolute[2]) {
		p.addError(diagnostics.NewError(diagnostics.ErrP006, pos.Token, "'$' can only prefix a pixel coordinate"))
		return nil
	}
	return pos
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(float64)
	return &ast.NumberLiteral{Token: p.curToken, Value: value, IsInt: p.curTokenIs(token.INT)}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}
	elements, ok := p.parseExpressionList(token.RBRACKET)
	if !ok {
		return nil
	}
	list.Elements = elements
	return list
}

// parseExpressionList parses comma separated expressions up to end.
// curToken is the opening delimiter.
func (p *Parser) parseExpressionList(end token.TokenType) ([]ast.Expression, bool) {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil, false
	}
	list = append(list, first)
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression(LOWEST)
		if next == nil {
			return nil, false
		}
		list = append(list, next)
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	if expression.Operator == "++" || expression.Operator == "--" {
		if _, ok := expression.Right.(*ast.Identifier); !ok {
			p.addError(diagnostics.NewError(diagnostics.ErrP005, expression.Token, describe(expression.Right.GetToken())))
			return nil
		}
	}
	return expression
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	if _, ok := left.(*ast.Identifier); !ok {
		p.addError(diagnostics.NewError(diagnostics.ErrP005, p.curToken, describe(left.GetToken())))
		return nil
	}
	return &ast.PostfixExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseRightAssocInfixExpression parses 2^3^2 as 2^(3^2).
func (p *Parser) parseRightAssocInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence - 1)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseTernaryExpression(condition ast.Expression) ast.Expression {
	expression := &ast.TernaryExpression{Token: p.curToken, Condition: condition}
	p.nextToken()
	if expression.Consequence = p.parseExpression(LOWEST); expression.Consequence == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	if expression.Alternative = p.parseExpression(TERNARY - 1); expression.Alternative == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	target, ok := left.(*ast.Identifier)
	if !ok {
		p.addError(diagnostics.NewError(diagnostics.ErrP005, p.curToken, describe(left.GetToken())))
		return nil
	}
	expression := &ast.AssignExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Target: target}
	p.nextToken()
	// Right associative: a = b = 1
	if expression.Value = p.parseExpression(ASSIGN - 1); expression.Value == nil {
		return nil
	}
	return expression
}
