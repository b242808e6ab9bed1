package kestrel

import (
	"context"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kestrel-lang/kestrel/builtins"
	modMath "github.com/kestrel-lang/kestrel/modules/math"
	"github.com/kestrel-lang/kestrel/object"
)

// Version is the current kestrel version.
const Version = "0.4.0"

// DocsOption configures documentation retrieval.
type DocsOption func(*docsOptions)

type docsOptions struct {
	category string
	topic    string
	all      bool
}

// DocsCategory selects one category: "builtins", "types", "modules" or
// "syntax".
func DocsCategory(cat string) DocsOption {
	return func(o *docsOptions) {
		o.category = cat
	}
}

// DocsTopic selects one builtin, type, module or module member, for
// example "sorted", "List", "json" or "math.sqrt".
func DocsTopic(topic string) DocsOption {
	return func(o *docsOptions) {
		o.topic = topic
	}
}

// DocsAll selects the complete documentation.
func DocsAll() DocsOption {
	return func(o *docsOptions) {
		o.all = true
	}
}

// Documentation is structured documentation ready to be rendered.
type Documentation struct {
	data any
}

// JSON returns the documentation as indented JSON.
func (d *Documentation) JSON() string {
	b, _ := json.MarshalIndent(d.data, "", "  ")
	return string(b)
}

// Data returns the raw documentation data.
func (d *Documentation) Data() any {
	return d.data
}

type docsInfo struct {
	Version        string `json:"version"`
	Description    string `json:"description"`
	ExecutionModel string `json:"execution_model"`
}

type docsTypeInfo struct {
	Name    string   `json:"name"`
	Doc     string   `json:"doc"`
	Methods []string `json:"methods,omitempty"`
}

type docsModuleInfo struct {
	Name    string              `json:"name"`
	Doc     string              `json:"doc"`
	Members []string            `json:"members"`
	Funcs   []builtins.FuncSpec `json:"functions,omitempty"`
}

type docsSyntaxItem struct {
	Syntax string `json:"syntax"`
	Notes  string `json:"notes"`
}

type docsFull struct {
	Kestrel  docsInfo            `json:"kestrel"`
	Builtins []builtins.FuncSpec `json:"builtins"`
	Types    []docsTypeInfo      `json:"types"`
	Modules  []docsModuleInfo    `json:"modules"`
	Syntax   []docsSyntaxItem    `json:"syntax"`
}

var info = docsInfo{
	Version:        Version,
	Description:    "Embeddable dynamic language with classes, closures and exceptions",
	ExecutionModel: "source -> single-pass compiler -> bytecode -> stack vm",
}

// Docs returns structured documentation about the language, its builtins
// and the default modules. Without options it returns an overview.
func Docs(opts ...DocsOption) *Documentation {
	o := &docsOptions{}
	for _, opt := range opts {
		opt(o)
	}
	switch {
	case o.all:
		return &Documentation{data: docsFull{
			Kestrel:  info,
			Builtins: builtins.Docs(),
			Types:    typeDocs(),
			Modules:  moduleDocs(),
			Syntax:   syntaxDocs,
		}}
	case o.category != "":
		return &Documentation{data: categoryDocs(o.category)}
	case o.topic != "":
		return &Documentation{data: topicDocs(o.topic)}
	}
	return &Documentation{data: map[string]any{
		"kestrel":  info,
		"builtins": len(builtins.Docs()),
		"modules":  ModuleNames(),
		"categories": []string{"builtins", "types", "modules", "syntax"},
	}}
}

func categoryDocs(category string) any {
	switch category {
	case "builtins":
		return map[string]any{"category": category, "functions": builtins.Docs()}
	case "types":
		return map[string]any{"category": category, "types": typeDocs()}
	case "modules":
		return map[string]any{"category": category, "modules": moduleDocs()}
	case "syntax":
		return map[string]any{"category": category, "items": syntaxDocs}
	}
	return map[string]any{"error": "unknown category: " + category}
}

func topicDocs(topic string) any {
	for _, fn := range builtins.Docs() {
		if fn.Name == topic {
			return map[string]any{"type": "builtin", "function": fn}
		}
	}
	for _, t := range typeDocs() {
		if t.Name == topic {
			return map[string]any{"type": "type", "info": t}
		}
	}
	module, member, _ := strings.Cut(topic, ".")
	for _, m := range moduleDocs() {
		if m.Name != module {
			continue
		}
		if member == "" {
			return map[string]any{"type": "module", "info": m}
		}
		for _, fn := range m.Funcs {
			if fn.Name == member {
				return map[string]any{"type": "function", "module": module, "function": fn}
			}
		}
		for _, name := range m.Members {
			if name == member {
				return map[string]any{"type": "member", "module": module, "name": name}
			}
		}
	}
	return map[string]any{"error": "unknown topic: " + topic}
}

var typeSummaries = map[string]string{
	"Nil":        "The absent value",
	"Bool":       "true or false",
	"Number":     "64-bit floating point number",
	"String":     "Immutable, interned text",
	"Function":   "Closure or native function",
	"List":       "Mutable ordered sequence",
	"FrozenList": "Immutable, hashable list written final[...]",
	"Dict":       "Mutable mapping that remembers insertion order",
	"FrozenDict": "Immutable, hashable dict written final{...}",
	"Buffer":     "Mutable byte array",
	"Class":      "The type of classes",
}

// typeDocs lists the builtin classes with the methods a live VM gives
// them.
func typeDocs() []docsTypeInfo {
	machine, err := NewVM(WithoutDefaultModules())
	if err != nil {
		return nil
	}
	defer machine.Close()
	names := make([]string, 0, len(typeSummaries))
	for name := range typeSummaries {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]docsTypeInfo, 0, len(names))
	for _, name := range names {
		t := docsTypeInfo{Name: name, Doc: typeSummaries[name]}
		if v, err := machine.machine.Get(name); err == nil {
			if class, ok := object.As[*object.Class](v); ok {
				t.Methods = mapKeys(&class.Methods)
			}
		}
		out = append(out, t)
	}
	return out
}

var moduleSummaries = map[string]string{
	"bcrypt":   "Password hashing",
	"bmon":     "Compact binary serialization of values",
	"cbor":     "CBOR encoding in canonical form",
	"filepath": "Path manipulation in the host's format",
	"fmt":      "printf-style formatting",
	"jmespath": "JMESPath queries over lists and dicts",
	"json":     "JSON encoding and decoding",
	"math":     modMath.ModuleDoc(),
	"os":       "Environment, arguments and files",
	"rand":     "Pseudo-random numbers and sampling",
	"regexp":   "Regular expressions",
	"strings":  "Text helpers",
	"text":     "Unicode normalization, collation and case mapping",
	"time":     "Clocks, sleeping and timestamps",
	"uuid":     "UUID generation and parsing",
	"yaml":     "YAML encoding and decoding",
}

// moduleDocs imports every default module into a scratch VM to list its
// members.
func moduleDocs() []docsModuleInfo {
	machine, err := NewVM()
	if err != nil {
		return nil
	}
	defer machine.Close()
	var out []docsModuleInfo
	for _, name := range ModuleNames() {
		m := docsModuleInfo{Name: name, Doc: moduleSummaries[name]}
		if module, err := machine.machine.Import(context.Background(), name); err == nil {
			m.Members = mapKeys(&module.Fields)
		}
		if name == "math" {
			m.Funcs = modMath.Docs()
		}
		out = append(out, m)
	}
	return out
}

func mapKeys(m *object.Map) []string {
	var names []string
	m.Each(func(k, _ object.Value) bool {
		if k.IsString() && !strings.HasPrefix(k.AsString().String(), "__") {
			names = append(names, k.AsString().String())
		}
		return true
	})
	sort.Strings(names)
	return names
}

var syntaxDocs = []docsSyntaxItem{
	{Syntax: "var x = 1", Notes: "Declare a variable"},
	{Syntax: "def add(a, b):", Notes: "Define a function; the body is an indented block"},
	{Syntax: "def(x): x * 2", Notes: "Anonymous function"},
	{Syntax: "class Point(Base):", Notes: "Define a class; __init__ runs on construction"},
	{Syntax: "this.x, super.method()", Notes: "Receiver and superclass access inside methods"},
	{Syntax: "[1, 2], {\"k\": v}", Notes: "List and dict displays"},
	{Syntax: "final[1, 2], final{\"k\": v}", Notes: "Frozen list and frozen dict displays"},
	{Syntax: "x[i], x[a:b]", Notes: "Indexing and slicing"},
	{Syntax: "if c: ... elif d: ... else: ...", Notes: "Conditionals"},
	{Syntax: "while c:", Notes: "Loop while c is truthy"},
	{Syntax: "for item in items:", Notes: "Iterate anything with __iter__"},
	{Syntax: "try: ... except as e: ...", Notes: "Catch errors raised in the try block"},
	{Syntax: "raise value", Notes: "Raise an error"},
	{Syntax: "assert cond, message", Notes: "Raise when cond is falsey"},
	{Syntax: "import json, from os import getenv as env", Notes: "Import modules and members"},
	{Syntax: "del x[i]", Notes: "Remove an item"},
	{Syntax: "and, or, not, in, is", Notes: "Logical, membership and identity operators"},
}
