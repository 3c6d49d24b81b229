package stparse

import "strings"

// CallBlock maps argument names to their assigned values for one block.
type CallBlock map[string]string

// CallBlocks finds every call site "name(...);" of a declared variable in
// the implementation and collects its "arg := value" pairs. Repeated calls
// of the same variable are merged key by key, later calls winning.
//
// Only plain identifiers, numbers and dotted paths are captured as values;
// expressions are skipped.
func CallBlocks(declaration, implementation string) (map[string]CallBlock, error) {
	vars, err := VariablesFromDeclaration(declaration)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string]CallBlock)
	toks := Tokenize(implementation)
	for i := 0; i+1 < len(toks); i++ {
		tok := toks[i]
		if tok.Type != TokenIdentifier || toks[i+1].Type != TokenLParen {
			continue
		}
		if !vars.Has(tok.Value) {
			continue
		}
		closing := matchParen(toks, i+1)
		if closing < 0 {
			continue
		}
		if closing+1 >= len(toks) || toks[closing+1].Type != TokenSemicolon {
			continue
		}
		block, ok := blocks[tok.Value]
		if !ok {
			block = make(CallBlock)
			blocks[tok.Value] = block
		}
		for name, value := range callArguments(toks[i+2 : closing]) {
			block[name] = value
		}
	}
	return blocks, nil
}

func matchParen(toks []Token, open int) int {
	depth := 0
	for j := open; j < len(toks); j++ {
		switch toks[j].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func callArguments(toks []Token) map[string]string {
	args := make(map[string]string)
	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Type != TokenIdentifier || toks[i+1].Type != TokenAssign {
			continue
		}
		value, n := dottedValue(toks[i+2:])
		if n == 0 {
			continue
		}
		args[toks[i].Value] = value
		i += 1 + n
	}
	return args
}

// dottedValue reads ident(.ident)* starting at toks[0] and returns the
// joined text and the number of tokens consumed.
func dottedValue(toks []Token) (string, int) {
	if len(toks) == 0 || !isValueToken(toks[0]) {
		return "", 0
	}
	var sb strings.Builder
	sb.WriteString(toks[0].Value)
	n := 1
	for n+1 < len(toks) && toks[n].Type == TokenDot && isValueToken(toks[n+1]) {
		sb.WriteString(".")
		sb.WriteString(toks[n+1].Value)
		n += 2
	}
	return sb.String(), n
}

func isValueToken(t Token) bool {
	return t.Type == TokenIdentifier || t.Type == TokenNumber
}
