// Package text provides the text module: Unicode normalization and
// language-aware case mapping and collation.
package text

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/kestrel-lang/kestrel/object"
)

var forms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

func tagArg(args []object.Value, i int) (language.Tag, error) {
	if i >= len(args) {
		return language.Und, nil
	}
	tag, err := language.Parse(args[i].AsString().String())
	if err != nil {
		return language.Und, object.ValueErrorf("Unknown language %q", args[i].AsString().String())
	}
	return tag, nil
}

func caser(name string, mapper func(language.Tag) cases.Caser) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, MaxArity: 2,
		ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			tag, err := tagArg(args, 1)
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(mapper(tag).String(args[0].AsString().String())), nil
		}}
}

var Normalize = &object.CFunction{Name: "normalize", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		name := "NFC"
		if len(args) > 1 {
			name = args[1].AsString().String()
		}
		form, ok := forms[name]
		if !ok {
			return object.Nil(), object.ValueErrorf("Unknown normalization form %q", name)
		}
		return rt.Heap().Str(form.String(args[0].AsString().String())), nil
	}}

var Fold = &object.CFunction{Name: "fold", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return rt.Heap().Str(cases.Fold().String(args[0].AsString().String())), nil
	}}

// Narrow maps fullwidth and wide characters to their narrow forms.
var Narrow = &object.CFunction{Name: "narrow", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return rt.Heap().Str(width.Narrow.String(args[0].AsString().String())), nil
	}}

// Sort returns the strings of a list ordered by the collation rules of a
// language.
var Sort = &object.CFunction{Name: "sort", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.ListOrFrozenListArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		tag, err := tagArg(args, 1)
		if err != nil {
			return object.Nil(), err
		}
		var strs []string
		err = rt.Iterate(args[0], func(item object.Value) error {
			if !item.IsString() {
				return object.TypeErrorf("text.sort() requires a list of strings, but found %s in the list", object.TypeName(item))
			}
			strs = append(strs, item.AsString().String())
			return nil
		})
		if err != nil {
			return object.Nil(), err
		}
		collate.New(tag).SortStrings(strs)
		items := make([]object.Value, len(strs))
		for i, s := range strs {
			items[i] = rt.Heap().Str(s)
		}
		return object.ObjValue(rt.Heap().NewList(items)), nil
	}}

// Compare orders two strings by the collation rules of a language.
var Compare = &object.CFunction{Name: "compare", Arity: 2, MaxArity: 3,
	ArgTypes: []object.TypePattern{object.StringArg, object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		tag, err := tagArg(args, 2)
		if err != nil {
			return object.Nil(), err
		}
		c := collate.New(tag)
		return object.Number(float64(c.CompareString(args[0].AsString().String(), args[1].AsString().String()))), nil
	}}

func functions() []*object.CFunction {
	return []*object.CFunction{
		Normalize, Fold, Narrow, Sort, Compare,
		caser("upper", func(t language.Tag) cases.Caser { return cases.Upper(t) }),
		caser("lower", func(t language.Tag) cases.Caser { return cases.Lower(t) }),
		caser("title", func(t language.Tag) cases.Caser { return cases.Title(t) }),
	}
}

// Module populates the text module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, functions()...)
	return nil
}
