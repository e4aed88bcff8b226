package design

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// LoadDir loads every CUE file in dir into a new Library.
func LoadDir(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("design directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Decode(v)
}

// LoadSource loads a design description from CUE source text.
func LoadSource(filename, src string) (*Library, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Decode(v)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ParseExpr parses a single expression written in CUE or JSON, e.g.
// {"op": "+", "l": 1, "r": 2}.
func ParseExpr(src string) (Expr, error) {
	v := cuecontext.New().CompileString(src, cue.Filename("<expr>"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return parseExpr(v, "expr")
}

// Decode reads entities, architectures and packages from v.
func Decode(v cue.Value) (*Library, error) {
	lib := NewLibrary()

	sections := []struct {
		path   string
		decode func(label string, v cue.Value) (Unit, error)
	}{
		{"entity", decodeEntity},
		{"architecture", decodeArchitecture},
		{"packages", decodePackage},
	}
	for _, sec := range sections {
		sv := v.LookupPath(cue.ParsePath(sec.path))
		if !sv.Exists() {
			continue
		}
		iter, err := sv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			u, err := sec.decode(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := lib.Add(u); err != nil {
				return nil, err
			}
		}
	}
	return lib, nil
}

func decodeEntity(label string, v cue.Value) (Unit, error) {
	lib, err := optString(v, "library")
	if err != nil {
		return nil, err
	}
	name, err := optString(v, "name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = label
	}

	e := &Entity{ID: ir.EntityID(lib, name), Loc: location(v.Pos())}
	err = eachListItem(v, "generics", func(gv cue.Value) error {
		g, err := decodeGeneric(gv)
		if err != nil {
			return err
		}
		e.Generics = append(e.Generics, g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachListItem(v, "ports", func(pv cue.Value) error {
		p, err := decodePort(pv)
		if err != nil {
			return err
		}
		e.Ports = append(e.Ports, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func decodeGeneric(v cue.Value) (GenericDecl, error) {
	name, err := reqString(v, "name")
	if err != nil {
		return GenericDecl{}, err
	}
	t, err := decodeTypeRef(v)
	if err != nil {
		return GenericDecl{}, err
	}
	g := GenericDecl{Name: ir.NormalizeIdent(name), Type: t, Loc: location(v.Pos())}
	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		if g.Default, err = parseExpr(dv, "default"); err != nil {
			return GenericDecl{}, err
		}
	}
	return g, nil
}

func decodePort(v cue.Value) (PortDecl, error) {
	name, err := reqString(v, "name")
	if err != nil {
		return PortDecl{}, err
	}
	dir, err := optString(v, "dir")
	if err != nil {
		return PortDecl{}, err
	}
	if dir == "" {
		dir = string(ig.ModeIn)
	}
	mode := ig.PortMode(strings.ToLower(dir))
	if !mode.Valid() {
		return PortDecl{}, loadErrorf("dir", v.Pos(), "unknown port direction %q", dir)
	}
	t, err := decodeTypeRef(v)
	if err != nil {
		return PortDecl{}, err
	}
	return PortDecl{Name: ir.NormalizeIdent(name), Mode: mode, Type: t, Loc: location(v.Pos())}, nil
}

// decodeTypeRef reads the "type" and optional "width" fields of v.
func decodeTypeRef(v cue.Value) (TypeRef, error) {
	name, err := reqString(v, "type")
	if err != nil {
		return TypeRef{}, err
	}
	base, ok := value.Predefined(strings.ToUpper(strings.TrimSpace(name)))
	if !ok {
		return TypeRef{}, loadErrorf("type", v.LookupPath(cue.ParsePath("type")).Pos(), "unknown type %q", name)
	}
	t := TypeRef{Base: base}
	if wv := v.LookupPath(cue.ParsePath("width")); wv.Exists() {
		if base.Cat != value.CatArray {
			return TypeRef{}, loadErrorf("width", wv.Pos(), "width given for scalar type %s", base)
		}
		if t.Width, err = parseExpr(wv, "width"); err != nil {
			return TypeRef{}, err
		}
	}
	return t, nil
}

func decodeSignals(v cue.Value) ([]SignalDecl, error) {
	var out []SignalDecl
	err := eachListItem(v, "signals", func(sv cue.Value) error {
		name, err := reqString(sv, "name")
		if err != nil {
			return err
		}
		t, err := decodeTypeRef(sv)
		if err != nil {
			return err
		}
		out = append(out, SignalDecl{Name: ir.NormalizeIdent(name), Type: t, Loc: location(sv.Pos())})
		return nil
	})
	return out, err
}

func decodeArchitecture(label string, v cue.Value) (Unit, error) {
	lib, err := optString(v, "library")
	if err != nil {
		return nil, err
	}
	ent, err := reqString(v, "entity")
	if err != nil {
		return nil, err
	}
	name, err := optString(v, "name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = label
	}

	a := &Architecture{ID: ir.ArchitectureID(lib, ent, name), Loc: location(v.Pos())}
	if a.Signals, err = decodeSignals(v); err != nil {
		return nil, err
	}
	if a.Statements, err = decodeStatements(v, "statements"); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeStatements(v cue.Value, field string) ([]Statement, error) {
	var out []Statement
	err := eachListItem(v, field, func(sv cue.Value) error {
		st, err := decodeStatement(sv)
		if err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

func decodeStatement(v cue.Value) (Statement, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if !iter.Next() {
		return nil, loadErrorf("statement", v.Pos(), "empty statement")
	}
	kind, body := iter.Label(), iter.Value()
	if iter.Next() {
		return nil, loadErrorf("statement", v.Pos(), "statement has more than one kind (%s, %s)", kind, iter.Label())
	}

	label, err := reqString(body, "label")
	if err != nil {
		return nil, err
	}
	label = ir.NormalizeIdent(label)
	loc := location(body.Pos())

	switch kind {
	case "instance":
		return decodeInstance(label, body, loc)

	case "process":
		p := &ProcessStmt{Label: label, Loc: loc}
		if p.Sensitivity, err = stringList(body, "sensitivity"); err != nil {
			return nil, err
		}
		if p.Reads, err = stringList(body, "reads"); err != nil {
			return nil, err
		}
		if p.Writes, err = stringList(body, "writes"); err != nil {
			return nil, err
		}
		return p, nil

	case "for_generate":
		g := &ForGenerate{Label: label, Loc: loc}
		varName, err := reqString(body, "var")
		if err != nil {
			return nil, err
		}
		g.Var = ir.NormalizeIdent(varName)
		if g.From, err = reqExpr(body, "from"); err != nil {
			return nil, err
		}
		if g.To, err = reqExpr(body, "to"); err != nil {
			return nil, err
		}
		if g.Signals, err = decodeSignals(body); err != nil {
			return nil, err
		}
		if g.Body, err = decodeStatements(body, "body"); err != nil {
			return nil, err
		}
		return g, nil

	case "if_generate":
		g := &IfGenerate{Label: label, Loc: loc}
		if g.Cond, err = reqExpr(body, "cond"); err != nil {
			return nil, err
		}
		if g.Signals, err = decodeSignals(body); err != nil {
			return nil, err
		}
		if g.Body, err = decodeStatements(body, "body"); err != nil {
			return nil, err
		}
		return g, nil

	default:
		return nil, loadErrorf("statement", v.Pos(), "unknown statement kind %q", kind)
	}
}

func decodeInstance(label string, v cue.Value, loc ir.Location) (Statement, error) {
	ref, err := reqString(v, "entity")
	if err != nil {
		return nil, err
	}
	unit, err := ir.ParseUnitRef(ref)
	if err != nil {
		return nil, loadErrorf("entity", v.Pos(), "%v", err)
	}
	inst := &InstanceStmt{Label: label, Unit: unit, Loc: loc}

	if gv := v.LookupPath(cue.ParsePath("generics")); gv.Exists() {
		iter, err := gv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			e, err := parseExpr(iter.Value(), "generics."+iter.Label())
			if err != nil {
				return nil, err
			}
			inst.Generics = append(inst.Generics, GenericAssoc{Formal: ir.NormalizeIdent(iter.Label()), Actual: e})
		}
	}

	if pv := v.LookupPath(cue.ParsePath("ports")); pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			actual, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			inst.Ports = append(inst.Ports, ig.Association{
				Formal: ir.NormalizeIdent(iter.Label()),
				Actual: ir.NormalizeIdent(actual),
			})
		}
	}
	return inst, nil
}

func decodePackage(label string, v cue.Value) (Unit, error) {
	lib, err := optString(v, "library")
	if err != nil {
		return nil, err
	}
	p := &Package{ID: ir.PackageID(lib, label), Loc: location(v.Pos())}

	err = eachListItem(v, "functions", func(fv cue.Value) error {
		name, err := reqString(fv, "name")
		if err != nil {
			return err
		}
		f := &Function{Name: ir.NormalizeIdent(name), Loc: location(fv.Pos())}
		err = eachListItem(fv, "params", func(pv cue.Value) error {
			pname, err := reqString(pv, "name")
			if err != nil {
				return err
			}
			t, err := decodeTypeRef(pv)
			if err != nil {
				return err
			}
			f.Params = append(f.Params, ParamDecl{Name: ir.NormalizeIdent(pname), Type: t})
			return nil
		})
		if err != nil {
			return err
		}
		if rv := fv.LookupPath(cue.ParsePath("result")); rv.Exists() {
			rname, err := rv.String()
			if err != nil {
				return formatCUEError(err)
			}
			base, ok := value.Predefined(strings.ToUpper(rname))
			if !ok {
				return loadErrorf("result", rv.Pos(), "unknown type %q", rname)
			}
			f.Result = TypeRef{Base: base}
		}
		if f.Body, err = reqExpr(fv, "body"); err != nil {
			return err
		}
		p.Functions = append(p.Functions, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// parseExpr converts a CUE value into an expression:
//
//	8, 1.5, true        literals
//	"'1'"               character literal
//	"WIDTH"             reference
//	{op, l, r}          binary operator
//	{op, x}             unary operator
//	{call, args}        function call
//	{bits: "1010"}      std_logic_vector literal, MSB first
//	{time: 5, unit}     TIME literal
func parseExpr(v cue.Value, field string) (Expr, error) {
	loc := location(v.Pos())

	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int(nil)
		if err != nil {
			return nil, formatCUEError(err)
		}
		iv, err := value.NewInteger(value.TypeInteger, n, loc)
		if err != nil {
			return nil, err
		}
		return &Lit{Value: iv, Loc: loc}, nil

	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		d, err := value.ParseDecimal(strconv.FormatFloat(f, 'g', -1, 64))
		if err != nil {
			return nil, loadErrorf(field, v.Pos(), "%v", err)
		}
		rv, err := value.NewReal(value.TypeReal, d, loc)
		if err != nil {
			return nil, err
		}
		return &Lit{Value: rv, Loc: loc}, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		lit := "FALSE"
		if b {
			lit = "TRUE"
		}
		return &Lit{Value: value.TypeBoolean.FindLiteral(lit), Loc: loc}, nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return parseAtom(s, v, field)

	case cue.StructKind:
		return parseCompound(v, field)

	default:
		return nil, loadErrorf(field, v.Pos(), "unsupported expression of kind %v", v.Kind())
	}
}

func parseAtom(s string, v cue.Value, field string) (Expr, error) {
	loc := location(v.Pos())
	if r := []rune(s); len(r) == 3 && r[0] == '\'' && r[2] == '\'' {
		t := value.TypeCharacter
		if strings.ContainsRune("UX01ZWLH-", r[1]) {
			t = value.TypeStdLogic
		}
		c := t.FindChar(r[1])
		if c == nil {
			return nil, loadErrorf(field, v.Pos(), "invalid character literal %s", s)
		}
		return &Lit{Value: c, Loc: loc}, nil
	}
	if !isIdentifier(s) {
		return nil, loadErrorf(field, v.Pos(), "invalid identifier %q", s)
	}
	return &Ref{Name: ir.NormalizeIdent(s), Loc: loc}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func parseCompound(v cue.Value, field string) (Expr, error) {
	loc := location(v.Pos())

	if cv := v.LookupPath(cue.ParsePath("call")); cv.Exists() {
		name, err := cv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c := &Call{Func: name, Loc: loc}
		err = eachListItem(v, "args", func(av cue.Value) error {
			a, err := parseExpr(av, field+".args")
			if err != nil {
				return err
			}
			c.Args = append(c.Args, a)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	if bv := v.LookupPath(cue.ParsePath("bits")); bv.Exists() {
		bits, err := bv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		vec, err := value.LogicVector(value.TypeStdLogicVector, strings.ToUpper(bits), loc)
		if err != nil {
			return nil, loadErrorf(field, bv.Pos(), "%v", err)
		}
		return &Lit{Value: vec, Loc: loc}, nil
	}

	if tv := v.LookupPath(cue.ParsePath("time")); tv.Exists() {
		n, err := tv.Int(nil)
		if err != nil {
			return nil, formatCUEError(err)
		}
		unitName, err := reqString(v, "unit")
		if err != nil {
			return nil, err
		}
		u, ok := value.TypeTime.FindUnit(unitName)
		if !ok {
			return nil, loadErrorf(field, v.Pos(), "unknown time unit %q", unitName)
		}
		n.Mul(n, big.NewInt(u.Factor))
		tval, err := value.NewInteger(value.TypeTime, n, loc)
		if err != nil {
			return nil, err
		}
		return &Lit{Value: tval, Loc: loc}, nil
	}

	sym, err := reqString(v, "op")
	if err != nil {
		return nil, err
	}
	sym = strings.ToLower(strings.TrimSpace(sym))

	if xv := v.LookupPath(cue.ParsePath("x")); xv.Exists() {
		op, ok := value.ParseUnaryOp(sym)
		if !ok {
			return nil, loadErrorf(field, v.Pos(), "unknown unary operator %q", sym)
		}
		x, err := parseExpr(xv, field+".x")
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x, Loc: loc}, nil
	}

	op, ok := value.ParseBinaryOp(sym)
	if !ok {
		return nil, loadErrorf(field, v.Pos(), "unknown binary operator %q", sym)
	}
	l, err := reqExpr(v, "l")
	if err != nil {
		return nil, err
	}
	r, err := reqExpr(v, "r")
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, L: l, R: r, Loc: loc}, nil
}

func reqExpr(v cue.Value, field string) (Expr, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, loadErrorf(field, v.Pos(), "%s is required", field)
	}
	return parseExpr(fv, field)
}

func reqString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", loadErrorf(field, v.Pos(), "%s is required", field)
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	var out []string
	err := eachListItem(v, field, func(iv cue.Value) error {
		s, err := iv.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, ir.NormalizeIdent(s))
		return nil
	})
	return out, err
}

// eachListItem calls fn for every element of the optional list field.
func eachListItem(v cue.Value, field string, fn func(cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}
