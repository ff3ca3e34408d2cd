package sema

import (
	"fmt"
	"strings"

	"mendes/internal/ast"
	"mendes/internal/symbols"
	"mendes/internal/types"
)

// declareTypes registers every type-level name before any signature is
// built, so that signatures may mention types declared further down.
func (c *checker) declareTypes(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.TypeAliasDecl:
		c.reg.RegisterAlias(s.Name, types.FromAST(s.Type))
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolTypeAlias,
			Type:      types.FromAST(s.Type),
			DefinedAt: s.Loc.Ptr(),
		})
	case *ast.EnumDecl:
		c.reg.RegisterEnum(s.Name)
	case *ast.TraitDecl:
		c.reg.RegisterTrait(s.Name)
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolTrait,
			Type:      types.Named(s.Name),
			DefinedAt: s.Loc.Ptr(),
		})
	case *ast.StructDecl:
		c.reg.RegisterStruct(&symbols.StructDef{Name: s.Name, IsCopy: s.IsCopy})
	}
}

// declare is the first pass proper: structs, enums, functions, databases
// and middlewares become symbols so forward references resolve.
func (c *checker) declare(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.StructDecl:
		def, _ := c.reg.Struct(s.Name)
		def.Generics = genericNames(s.Generics)
		for _, f := range s.Fields {
			def.Fields = append(def.Fields, symbols.Param{Name: f.Name, Type: c.fromAST(f.Type)})
		}
		for _, m := range s.Methods {
			def.Methods = append(def.Methods, c.methodSig(m))
		}
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolStruct,
			Type:      types.Named(s.Name),
			DefinedAt: s.Loc.Ptr(),
			Struct:    def,
		})

	case *ast.EnumDecl:
		def := &symbols.EnumDef{Name: s.Name}
		for i := range s.Variants {
			v := &s.Variants[i]
			vd := symbols.VariantDef{Name: v.Name}
			for _, t := range v.PayloadTypes() {
				vd.Types = append(vd.Types, c.fromAST(t))
			}
			if v.Kind == ast.VariantStruct {
				for _, f := range v.Fields {
					vd.Fields = append(vd.Fields, f.Name)
				}
			}
			def.Variants = append(def.Variants, vd)
		}
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolEnum,
			Type:      types.Named(s.Name),
			DefinedAt: s.Loc.Ptr(),
			Enum:      def,
		})

	case *ast.FnDecl:
		sig := symbols.FnSig{
			Generics: genericNames(s.Generics),
			Ret:      c.fromASTOr(s.Ret, types.Unit),
			Async:    s.Async,
		}
		for _, p := range s.Params {
			sig.Params = append(sig.Params, symbols.Param{Name: p.Name, Type: c.fromAST(p.Type)})
		}
		c.syms.Define(symbols.NewFunction(s.Name, sig, s.Loc.Ptr()))

	case *ast.ImplDecl:
		// методы impl-блока видны через точку, как и собственные методы структуры
		def, ok := c.reg.Struct(s.TypeName)
		if !ok {
			return
		}
		for _, m := range s.Methods {
			if _, exists := def.Method(m.Name); !exists {
				def.Methods = append(def.Methods, c.methodSig(m))
			}
		}

	case *ast.DbDecl:
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolDatabase,
			Type:      types.Named(fmt.Sprintf("Database<%s>", s.Kind)),
			DefinedAt: s.Loc.Ptr(),
			DB: &symbols.DatabaseInfo{
				DBType:   strings.ToLower(s.Kind.String()),
				PoolSize: s.PoolSize,
			},
		})

	case *ast.MiddlewareDecl:
		c.syms.Define(symbols.Symbol{
			Name:      s.Name,
			Kind:      symbols.SymbolMiddleware,
			Type:      types.Function(nil, types.Unit),
			DefinedAt: s.Loc.Ptr(),
		})
	}
}

func (c *checker) methodSig(m *ast.MethodDecl) symbols.MethodSig {
	sig := symbols.MethodSig{
		Name:  m.Name,
		Ret:   c.fromASTOr(m.Ret, types.Unit),
		Async: m.Async,
	}
	for _, p := range m.Params {
		sig.Params = append(sig.Params, symbols.Param{Name: p.Name, Type: c.fromAST(p.Type)})
	}
	return sig
}
