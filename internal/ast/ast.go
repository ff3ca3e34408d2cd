// Package ast holds the syntax tree handed over by the parser.
//
// The tree is a set of closed sum types: Stmt, Expr, Pattern and Type are
// sealed interfaces, and every consumer switches over the concrete node
// types. Each parent owns its children exclusively.
package ast

import "mendes/internal/source"

type (
	// Node is anything that can point a diagnostic at source text.
	Node interface {
		Span() source.Span
	}

	Stmt interface {
		Node
		stmtNode()
	}

	Expr interface {
		Node
		exprNode()
	}

	Pattern interface {
		Node
		patternNode()
	}

	// Type is a type annotation as written in source.
	Type interface {
		typeNode()
	}
)

// Program is one parsed source file.
type Program struct {
	File  source.FileID
	Stmts []Stmt
}

// GenericParam is `T` or `T: Bound + Other`.
type GenericParam struct {
	Name   string
	Bounds []string
	Loc    source.Span
}

type Param struct {
	Name string
	Type Type
	Loc  source.Span
}

// Field is a struct field or a struct-like enum variant member.
type Field struct {
	Name string
	Type Type
	Loc  source.Span
}

// Receiver describes how a method takes self.
type Receiver uint8

const (
	RecvRef    Receiver = iota // &self
	RecvMutRef                 // &mut self
	RecvValue                  // self
)

func (r Receiver) String() string {
	switch r {
	case RecvRef:
		return "&self"
	case RecvMutRef:
		return "&mut self"
	default:
		return "self"
	}
}

// HttpMethod of an api declaration.
type HttpMethod uint8

const (
	MethodGet HttpMethod = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
)

func (m HttpMethod) String() string {
	switch m {
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodPatch:
		return "PATCH"
	default:
		return "GET"
	}
}

// DbType of a db declaration.
type DbType uint8

const (
	DbPostgres DbType = iota
	DbMysql
	DbSqlite
)

func (d DbType) String() string {
	switch d {
	case DbMysql:
		return "Mysql"
	case DbSqlite:
		return "Sqlite"
	default:
		return "Postgres"
	}
}
