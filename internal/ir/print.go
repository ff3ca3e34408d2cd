package ir

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Dump writes a human-readable listing of the module. Map-backed sections
// are printed in name order so output is stable.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)

	if len(m.Strings) > 0 {
		sb.WriteString("\n; strings\n")
		for i, s := range m.Strings {
			fmt.Fprintf(&sb, "@str%d = %s\n", i, strconv.Quote(s))
		}
	}

	if len(m.Aliases) > 0 {
		sb.WriteString("\n; aliases\n")
		for _, name := range sortedKeys(m.Aliases) {
			fmt.Fprintf(&sb, "type %s = %s\n", name, m.Aliases[name])
		}
	}

	if len(m.Structs) > 0 {
		sb.WriteString("\n; structs\n")
		for _, name := range sortedKeys(m.Structs) {
			def := m.Structs[name]
			fields := make([]string, len(def.Fields))
			for i, f := range def.Fields {
				fields[i] = f.Type.String() + " " + f.Name
			}
			fmt.Fprintf(&sb, "%%%s%s = type { %s }\n", name, genericList(def.Generics), strings.Join(fields, ", "))
		}
	}

	if len(m.Traits) > 0 {
		sb.WriteString("\n; traits\n")
		for _, name := range sortedKeys(m.Traits) {
			def := m.Traits[name]
			fmt.Fprintf(&sb, "trait %s%s\n", name, genericList(def.Generics))
			for _, meth := range def.Methods {
				async := ""
				if meth.Async {
					async = "async "
				}
				fmt.Fprintf(&sb, "  %sfn %s(%s%s) -> %s\n", async, meth.Name, meth.Receiver, paramSuffix(meth.Params), meth.Ret)
			}
		}
	}

	for _, impl := range m.Impls {
		fmt.Fprintf(&sb, "impl %s for %s: %s\n", impl.Trait, impl.Type, strings.Join(impl.Methods, ", "))
	}

	if len(m.Globals) > 0 {
		sb.WriteString("\n; globals\n")
		for _, g := range m.Globals {
			kw := "global"
			if g.Const {
				kw = "const"
			}
			fmt.Fprintf(&sb, "@%s = %s %s", g.Name, kw, g.Type)
			if g.Init != nil {
				fmt.Fprintf(&sb, " %s", *g.Init)
			}
			sb.WriteByte('\n')
		}
	}

	if m.Server != nil {
		fmt.Fprintf(&sb, "\n; server %s:%d\n", m.Server.Host, m.Server.Port)
	}
	for _, db := range m.Databases {
		fmt.Fprintf(&sb, "; db %s %s pool=%d\n", db.Kind, db.Name, db.PoolSize)
	}
	if len(m.Middlewares) > 0 {
		fmt.Fprintf(&sb, "; middlewares %s\n", strings.Join(m.Middlewares, ", "))
	}

	if len(m.Routes) > 0 {
		sb.WriteString("\n; routes\n")
		for _, r := range m.Routes {
			fmt.Fprintf(&sb, ";   %s %s -> @%s%s\n", r.Method, r.Path, r.Handler, middlewareSuffix(r.Middlewares))
		}
	}
	if len(m.WsRoutes) > 0 {
		sb.WriteString("\n; websockets\n")
		for _, r := range m.WsRoutes {
			fmt.Fprintf(&sb, ";   %s connect=%s message=%s disconnect=%s%s\n",
				r.Path, orDash(r.OnConnect), orDash(r.OnMessage), orDash(r.OnDisconnect), middlewareSuffix(r.Middlewares))
		}
	}

	for _, f := range m.Funcs {
		sb.WriteByte('\n')
		writeFunc(&sb, f)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// DumpFunc renders a single function.
func DumpFunc(f *Func) string {
	var sb strings.Builder
	writeFunc(&sb, f)
	return sb.String()
}

func writeFunc(sb *strings.Builder, f *Func) {
	async := ""
	if f.Async {
		async = "async "
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type.String() + " %" + p.Name
	}
	fmt.Fprintf(sb, "define %s%s @%s%s(%s) {\n", async, f.Ret, f.Name, genericList(f.Generics), strings.Join(params, ", "))
	for _, b := range f.Blocks {
		fmt.Fprintf(sb, "%s:\n", b.Label)
		for _, in := range b.Instrs {
			fmt.Fprintf(sb, "  %s\n", in)
		}
	}
	sb.WriteString("}\n")
}

func genericList(gs []GenericParam) string {
	if len(gs) == 0 {
		return ""
	}
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = g.Name
		if len(g.Bounds) > 0 {
			parts[i] += ": " + strings.Join(g.Bounds, " + ")
		}
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func paramSuffix(ps []Field) string {
	var sb strings.Builder
	for _, p := range ps {
		fmt.Fprintf(&sb, ", %s: %s", p.Name, p.Type)
	}
	return sb.String()
}

func middlewareSuffix(ms []string) string {
	if len(ms) == 0 {
		return ""
	}
	return " [" + strings.Join(ms, ", ") + "]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return "@" + s
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
