package types

import (
	"fmt"
	"strings"

	"ferrite/internal/ast"
	"ferrite/internal/source"
)

// RenderOpts supplies the name sources a rendered type needs: the string
// interner and a resolver from declaration IDs to display paths.
type RenderOpts struct {
	Strings  *source.Interner
	DeclName func(ast.DeclID) string
}

func (o RenderOpts) str(id source.StringID) string {
	if o.Strings == nil {
		return fmt.Sprintf("#%d", id)
	}
	s, _ := o.Strings.Lookup(id)
	return s
}

func (o RenderOpts) decl(id ast.DeclID) string {
	if o.DeclName == nil {
		return fmt.Sprintf("decl#%d", id)
	}
	return o.DeclName(id)
}

// Render produces a human-readable form of a type for diagnostics and dumps.
func (in *Interner) Render(id TypeID, opts RenderOpts) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	switch t.Kind {
	case KindError:
		return "{error}"
	case KindUnit:
		return "()"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindStr:
		return "str"
	case KindInt:
		if t.Width == WidthAny {
			return "int"
		}
		return fmt.Sprintf("i%d", t.Width)
	case KindUint:
		if t.Width == WidthAny {
			return "uint"
		}
		return fmt.Sprintf("u%d", t.Width)
	case KindFloat:
		if t.Width == WidthAny {
			return "float"
		}
		return fmt.Sprintf("f%d", t.Width)
	case KindParam:
		return opts.str(in.ParamInfoOf(t).Name)
	case KindRef:
		mut := ""
		if t.Mutable {
			mut = "mut "
		}
		return "&" + in.renderRegionPrefix(t.Region, opts) + mut + in.Render(t.Elem, opts)
	case KindRawPtr:
		if t.Mutable {
			return "*mut " + in.Render(t.Elem, opts)
		}
		return "*const " + in.Render(t.Elem, opts)
	case KindSlice:
		return "[" + in.Render(t.Elem, opts) + "]"
	case KindTuple:
		elems := in.TypeList(TypeListID(t.Payload))
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = in.Render(e, opts)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFnDef:
		info := in.FnInfoOf(t)
		params := in.TypeList(info.Params)
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = in.Render(p, opts)
		}
		return fmt.Sprintf("fn %s(%s) -> %s", opts.decl(info.Decl),
			strings.Join(parts, ", "), in.Render(info.Ret, opts))
	case KindAdt:
		info := in.AdtInfoOf(t)
		return opts.decl(info.Decl) + in.renderSubsts(info.Substs, opts)
	case KindProjection:
		info := in.ProjectionInfoOf(t)
		self := "_"
		if substs := in.SubstsOf(info.Trait.Substs); substs != nil && substs.SelfType().IsValid() {
			self = in.Render(substs.SelfType(), opts)
		}
		return fmt.Sprintf("<%s as %s>::%s", self, opts.decl(info.Trait.Decl), opts.str(info.AssocName))
	case KindTraitObject:
		info := in.ObjectInfoOf(t)
		return "dyn " + opts.decl(info.Trait.Decl) + in.renderSubsts(info.Trait.Substs, opts)
	default:
		return t.Kind.String()
	}
}

// RenderRegion produces a human-readable lifetime.
func (in *Interner) RenderRegion(id RegionID, opts RenderOpts) string {
	r, ok := in.RegionOf(id)
	if !ok {
		return "'_"
	}
	switch r.Kind {
	case RegionStatic:
		return "'static"
	case RegionEarlyBound:
		return opts.str(r.Name)
	default:
		return "'_"
	}
}

func (in *Interner) renderRegionPrefix(id RegionID, opts RenderOpts) string {
	if !id.IsValid() {
		return ""
	}
	return in.RenderRegion(id, opts) + " "
}

// renderSubsts prints the non-self type arguments, skipping empty lists.
func (in *Interner) renderSubsts(id SubstsID, opts RenderOpts) string {
	substs := in.SubstsOf(id)
	if substs == nil {
		return ""
	}
	var parts []string
	for _, r := range substs.Regions.Get(SpaceType) {
		parts = append(parts, in.RenderRegion(r, opts))
	}
	for _, t := range substs.Types.Get(SpaceType) {
		parts = append(parts, in.Render(t, opts))
	}
	if len(parts) == 0 {
		return ""
	}
	return "<" + strings.Join(parts, ", ") + ">"
}
