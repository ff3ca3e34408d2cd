package ast

type (
	IntType    struct{}
	FloatType  struct{}
	BoolType   struct{}
	StringType struct{}

	// NamedType is a user type or generic parameter reference.
	NamedType struct {
		Name string
	}

	// GenericType is an instantiation such as Result<T, E>.
	GenericType struct {
		Name string
		Args []Type
	}

	RefType struct {
		Elem Type
	}

	MutRefType struct {
		Elem Type
	}

	ArrayType struct {
		Elem Type
	}

	TupleType struct {
		Elems []Type
	}

	FuncType struct {
		Params []Type
		Ret    Type
	}
)

func (IntType) typeNode()     {}
func (FloatType) typeNode()   {}
func (BoolType) typeNode()    {}
func (StringType) typeNode()  {}
func (NamedType) typeNode()   {}
func (GenericType) typeNode() {}
func (RefType) typeNode()     {}
func (MutRefType) typeNode()  {}
func (ArrayType) typeNode()   {}
func (TupleType) typeNode()   {}
func (FuncType) typeNode()    {}
