package ir

// Module is everything codegen needs for one program.
type Module struct {
	Name        string
	Funcs       []*Func
	Routes      []Route
	WsRoutes    []WsRoute
	Server      *ServerConfig
	Structs     map[string]*StructDef
	Traits      map[string]*TraitDef
	Impls       []ImplDef
	Aliases     map[string]Type
	Globals     []Global
	Strings     []string
	Databases   []DatabaseConfig
	Middlewares []string

	strIndex map[string]int
}

// Route binds an HTTP method and path to a handler function.
type Route struct {
	Method      string
	Path        string
	Handler     string
	Middlewares []string
	Async       bool
}

// WsRoute names the handler functions of a websocket endpoint; an empty
// name means the handler is absent.
type WsRoute struct {
	Path         string
	OnConnect    string
	OnMessage    string
	OnDisconnect string
	Middlewares  []string
}

type ServerConfig struct {
	Host string
	Port uint16
}

type DatabaseConfig struct {
	Name     string
	Kind     string // postgres, mysql, sqlite
	URL      string
	PoolSize uint32
}

type Global struct {
	Name  string
	Type  Type
	Init  *Value
	Const bool
}

// Receiver is how a trait method takes self.
type Receiver uint8

const (
	RecvRef Receiver = iota
	RecvMutRef
	RecvValue
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

type TraitMethod struct {
	Name     string
	Params   []Field
	Ret      Type
	Async    bool
	Receiver Receiver
}

type TraitDef struct {
	Name     string
	Generics []GenericParam
	Methods  []TraitMethod
}

// ImplDef records `impl Trait for Type`; Methods are function names.
type ImplDef struct {
	Trait    string
	Type     string
	Generics []GenericParam
	Methods  []string
}

func NewModule(name string) *Module {
	return &Module{
		Name:     name,
		Structs:  make(map[string]*StructDef),
		Traits:   make(map[string]*TraitDef),
		Aliases:  make(map[string]Type),
		strIndex: make(map[string]int),
	}
}

// AddString interns s byte-for-byte and returns its table index.
func (m *Module) AddString(s string) int {
	if idx, ok := m.strIndex[s]; ok {
		return idx
	}
	idx := len(m.Strings)
	m.Strings = append(m.Strings, s)
	m.strIndex[s] = idx
	return idx
}

func (m *Module) AddFunc(f *Func) {
	m.Funcs = append(m.Funcs, f)
}

// Func finds a function by name.
func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) AddStruct(def *StructDef) {
	m.Structs[def.Name] = def
}

func (m *Module) Struct(name string) (*StructDef, bool) {
	def, ok := m.Structs[name]
	return def, ok
}

func (m *Module) AddTrait(def *TraitDef) {
	m.Traits[def.Name] = def
}

func (m *Module) Trait(name string) (*TraitDef, bool) {
	def, ok := m.Traits[name]
	return def, ok
}

func (m *Module) AddImpl(def ImplDef) {
	m.Impls = append(m.Impls, def)
}

func (m *Module) AddAlias(name string, target Type) {
	m.Aliases[name] = target
}

func (m *Module) Alias(name string) (Type, bool) {
	t, ok := m.Aliases[name]
	return t, ok
}
