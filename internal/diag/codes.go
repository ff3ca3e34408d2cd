package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexUnexpectedChar     Code = 1001
	LexUnterminatedString Code = 1002
	LexInvalidNumber      Code = 1003
	LexInvalidIndent      Code = 1004

	// Парсерные
	SynUnexpectedToken    Code = 2001
	SynExpectedExpression Code = 2002
	SynExpectedType       Code = 2003
	SynInvalidSyntax      Code = 2004

	// Типы
	TypeMismatch        Code = 3001
	TypeUnknownType     Code = 3002
	TypeUnknownVariable Code = 3003

	// Владение и заимствования
	OwnUseAfterMove      Code = 4001
	OwnBorrowAfterMove   Code = 4002
	OwnMutBorrowConflict Code = 4003
	OwnBorrowAcrossAwait Code = 4004

	// Ввод/вывод и входные документы
	IOLoadFileError Code = 5001
	IODecodeError   Code = 5002
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	LexUnexpectedChar:     "Unexpected character",
	LexUnterminatedString: "Unterminated string",
	LexInvalidNumber:      "Invalid number literal",
	LexInvalidIndent:      "Invalid indentation",

	SynUnexpectedToken:    "Unexpected token",
	SynExpectedExpression: "Expected expression",
	SynExpectedType:       "Expected type",
	SynInvalidSyntax:      "Invalid syntax",

	TypeMismatch:        "Type mismatch",
	TypeUnknownType:     "Unknown type",
	TypeUnknownVariable: "Unknown variable",

	OwnUseAfterMove:      "Use after move",
	OwnBorrowAfterMove:   "Borrow after move",
	OwnMutBorrowConflict: "Mutable borrow conflict",
	OwnBorrowAcrossAwait: "Borrow across await",

	IOLoadFileError: "Unable to load file",
	IODecodeError:   "Malformed syntax tree document",
}

// Category is the single-letter family of a code: L, P, T, O or I.
func (c Code) Category() byte {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return 'L'
	case ic >= 2000 && ic < 3000:
		return 'P'
	case ic >= 3000 && ic < 4000:
		return 'T'
	case ic >= 4000 && ic < 5000:
		return 'O'
	case ic >= 5000 && ic < 6000:
		return 'I'
	}
	return 0
}

// ID renders the stable code identifier, e.g. ET001 or EO003.
func (c Code) ID() string {
	cat := c.Category()
	if cat == 0 {
		return "E0000"
	}
	return fmt.Sprintf("E%c%03d", cat, int(c)%1000)
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
