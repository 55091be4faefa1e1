// token/token.go
package token

import "fmt"

// Kind classifies a lexeme.
type Kind int

const (
	EOF Kind = iota

	// Punctuation
	LParen
	RParen
	LCurly
	RCurly
	LSquare
	RSquare
	Comma
	Dot
	Colon
	Semicolon
	Question

	// Operators
	Plus
	Minus
	Star
	Slash
	Caret
	Mod
	Not    // ~ or not
	Gt     // >
	Lt     // <
	Ge     // >=
	Le     // <=
	Ne     // ~=
	Eq     // ==
	Assign // :=
	GtGt   // >>
	LtLt   // <<

	// Literals
	Identifier
	String
	Integer
	Float

	// Keywords
	If
	Then
	Else
	True
	False
	And
	Or
	While
	Do
	For
	Func
	Null
	End
	Print
	Println
	Ret
	Local
)

var kindNames = [...]string{
	EOF:        "EOF",
	LParen:     "(",
	RParen:     ")",
	LCurly:     "{",
	RCurly:     "}",
	LSquare:    "[",
	RSquare:    "]",
	Comma:      ",",
	Dot:        ".",
	Colon:      ":",
	Semicolon:  ";",
	Question:   "?",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Caret:      "^",
	Mod:        "%",
	Not:        "not",
	Gt:         ">",
	Lt:         "<",
	Ge:         ">=",
	Le:         "<=",
	Ne:         "~=",
	Eq:         "==",
	Assign:     ":=",
	GtGt:       ">>",
	LtLt:       "<<",
	Identifier: "identifier",
	String:     "string",
	Integer:    "integer",
	Float:      "float",
	If:         "if",
	Then:       "then",
	Else:       "else",
	True:       "true",
	False:      "false",
	And:        "and",
	Or:         "or",
	While:      "while",
	Do:         "do",
	For:        "for",
	Func:       "func",
	Null:       "null",
	End:        "end",
	Print:      "print",
	Println:    "println",
	Ret:        "ret",
	Local:      "local",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword reports whether k is one of the reserved words.
func (k Kind) IsKeyword() bool { return k >= If && k <= Local }

var keywords = map[string]Kind{
	"if":      If,
	"then":    Then,
	"else":    Else,
	"true":    True,
	"false":   False,
	"and":     And,
	"or":      Or,
	"not":     Not,
	"while":   While,
	"do":      Do,
	"for":     For,
	"func":    Func,
	"null":    Null,
	"end":     End,
	"print":   Print,
	"println": Println,
	"ret":     Ret,
	"local":   Local,
}

// Lookup maps an identifier-shaped lexeme to its keyword kind, or Identifier.
func Lookup(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Identifier
}

// Token is a classified slice of source text. Offset is the byte offset of
// Lexeme in the source; Line and Col are 1-based.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Col    int
	Offset int
}

func (t Token) String() string {
	if t.Kind == EOF {
		return fmt.Sprintf("EOF at %d:%d", t.Line, t.Col)
	}
	return fmt.Sprintf("%s %q at %d:%d", t.Kind, t.Lexeme, t.Line, t.Col)
}

// End returns the byte offset just past the token.
func (t Token) End() int { return t.Offset + len(t.Lexeme) }
