package stparse

import (
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenError TokenType = iota
	TokenEOF
	TokenIdentifier
	TokenNumber
	TokenString
	TokenAssign // :=
	TokenOutput // =>
	TokenColon
	TokenLParen
	TokenRParen
	TokenSemicolon
	TokenComma
	TokenDot
	TokenOperator
	TokenComment
)

type Position struct {
	Line   int
	Column int
}

type Token struct {
	Type     TokenType
	Value    string
	Position Position
}

// Lexer splits structured text into tokens. It understands just enough of
// IEC 61131-3 to find call sites: identifiers, literals, punctuation and
// both comment styles.
type Lexer struct {
	input         string
	start         int
	pos           int
	width         int
	line          int
	lineStart     int
	prevLineStart int
	startLine     int
	startCol      int
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		input:     input,
		line:      1,
		startLine: 1,
		startCol:  1,
	}
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return -1
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	if r == '\n' {
		l.line++
		l.prevLineStart = l.lineStart
		l.lineStart = l.pos
	}
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
	if l.width > 0 {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '\n' {
			l.line--
			l.lineStart = l.prevLineStart
		}
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) ignore() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.pos - l.lineStart + 1
}

func (l *Lexer) emit(t TokenType) Token {
	tok := Token{
		Type:  t,
		Value: l.input[l.start:l.pos],
		Position: Position{
			Line:   l.startLine,
			Column: l.startCol,
		},
	}
	l.ignore()
	return tok
}

func (l *Lexer) NextToken() Token {
	for {
		r := l.next()
		if r == -1 {
			return l.emit(TokenEOF)
		}

		if unicode.IsSpace(r) {
			l.ignore()
			continue
		}

		switch r {
		case ':':
			if l.peek() == '=' {
				l.next()
				return l.emit(TokenAssign)
			}
			return l.emit(TokenColon)
		case '=':
			if l.peek() == '>' {
				l.next()
				return l.emit(TokenOutput)
			}
			return l.emit(TokenOperator)
		case '(':
			if l.peek() == '*' {
				return l.lexBlockComment()
			}
			return l.emit(TokenLParen)
		case ')':
			return l.emit(TokenRParen)
		case ';':
			return l.emit(TokenSemicolon)
		case ',':
			return l.emit(TokenComma)
		case '.':
			return l.emit(TokenDot)
		case '\'', '"':
			return l.lexString(r)
		case '/':
			if l.peek() == '/' {
				return l.lexLineComment()
			}
			return l.emit(TokenOperator)
		}

		if unicode.IsLetter(r) || r == '_' {
			return l.lexIdentifier()
		}

		if unicode.IsDigit(r) {
			return l.lexNumber()
		}

		return l.emit(TokenOperator)
	}
}

func (l *Lexer) lexIdentifier() Token {
	for {
		r := l.next()
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '#' {
			continue
		}
		l.backup()
		return l.emit(TokenIdentifier)
	}
}

// lexNumber accepts decimal, based (16#FF) and exponent forms loosely.
func (l *Lexer) lexNumber() Token {
	for {
		r := l.next()
		if unicode.IsDigit(r) || unicode.IsLetter(r) || r == '_' || r == '#' {
			continue
		}
		if r == '.' && unicode.IsDigit(l.peek()) {
			continue
		}
		l.backup()
		return l.emit(TokenNumber)
	}
}

func (l *Lexer) lexString(quote rune) Token {
	for {
		r := l.next()
		if r == '$' {
			// $' and $" escape the quote character
			l.next()
			continue
		}
		if r == quote {
			return l.emit(TokenString)
		}
		if r == -1 {
			return l.emit(TokenError)
		}
	}
}

func (l *Lexer) lexLineComment() Token {
	for {
		r := l.next()
		if r == '\n' {
			l.backup()
			return l.emit(TokenComment)
		}
		if r == -1 {
			return l.emit(TokenComment)
		}
	}
}

func (l *Lexer) lexBlockComment() Token {
	l.next() // '*'
	for {
		r := l.next()
		if r == -1 {
			return l.emit(TokenError)
		}
		if r == '*' && l.peek() == ')' {
			l.next()
			return l.emit(TokenComment)
		}
	}
}

// Tokenize returns every token up to (not including) EOF, comments dropped.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		switch tok.Type {
		case TokenEOF:
			return toks
		case TokenComment:
			continue
		}
		toks = append(toks, tok)
	}
}
