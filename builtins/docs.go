package builtins

// FuncSpec documents a builtin function.
type FuncSpec struct {
	Name    string
	Doc     string
	Args    []string
	Returns string
	Example string
}

// Docs returns documentation for all builtin functions.
func Docs() []FuncSpec {
	return builtinDocs
}

var builtinDocs = []FuncSpec{
	{
		Name:    "abs",
		Doc:     "Return the absolute value of a number",
		Args:    []string{"n"},
		Returns: "number",
		Example: "abs(-3)",
	},
	{
		Name:    "all",
		Doc:     "Return true if all items are truthy",
		Args:    []string{"items"},
		Returns: "bool",
		Example: "all([true, 1, \"yes\"])",
	},
	{
		Name:    "any",
		Doc:     "Return true if any item is truthy",
		Args:    []string{"items"},
		Returns: "bool",
		Example: "any([false, 0, \"yes\"])",
	},
	{
		Name:    "bin",
		Doc:     "Format a number in binary with a 0b prefix",
		Args:    []string{"n"},
		Returns: "string",
		Example: "bin(5)",
	},
	{
		Name:    "chr",
		Doc:     "Return the one-character string for a code point",
		Args:    []string{"code"},
		Returns: "string",
		Example: "chr(65)",
	},
	{
		Name:    "clock",
		Doc:     "Return the seconds elapsed since the process started",
		Returns: "number",
		Example: "clock()",
	},
	{
		Name:    "exit",
		Doc:     "End the program with a status code",
		Args:    []string{"code?"},
		Returns: "nil",
		Example: "exit(1)",
	},
	{
		Name:    "float",
		Doc:     "Convert a value to a number",
		Args:    []string{"value"},
		Returns: "number",
		Example: "float(\"1.5\")",
	},
	{
		Name:    "freeze",
		Doc:     "Return a frozen copy of a list or dict",
		Args:    []string{"value"},
		Returns: "FrozenList|FrozenDict",
		Example: "freeze([1, 2])",
	},
	{
		Name:    "getattr",
		Doc:     "Read a field of an instance or module",
		Args:    []string{"obj", "name", "default?"},
		Returns: "any",
		Example: "getattr(point, \"x\", 0)",
	},
	{
		Name:    "hex",
		Doc:     "Format a number in uppercase hexadecimal with a 0x prefix",
		Args:    []string{"n"},
		Returns: "string",
		Example: "hex(255)",
	},
	{
		Name:    "int",
		Doc:     "Truncate a number or parse a string in the given base",
		Args:    []string{"value", "base?"},
		Returns: "number",
		Example: "int(\"ff\", 16)",
	},
	{
		Name:    "isClose",
		Doc:     "Report whether two numbers are within a relative or absolute tolerance",
		Args:    []string{"a", "b", "relTol?", "absTol?"},
		Returns: "bool",
		Example: "isClose(0.1 + 0.2, 0.3)",
	},
	{
		Name:    "isinstance",
		Doc:     "Report whether a value is an instance of a class or one of a list of classes",
		Args:    []string{"value", "class"},
		Returns: "bool",
		Example: "isinstance(1, Number)",
	},
	{
		Name:    "len",
		Doc:     "Return the length of a container or string",
		Args:    []string{"value"},
		Returns: "number",
		Example: "len([1, 2, 3])",
	},
	{
		Name:    "max",
		Doc:     "Return the largest argument, or the largest item of one iterable",
		Args:    []string{"items..."},
		Returns: "any",
		Example: "max(3, 1, 2)",
	},
	{
		Name:    "min",
		Doc:     "Return the smallest argument, or the smallest item of one iterable",
		Args:    []string{"items..."},
		Returns: "any",
		Example: "min([3, 1, 2])",
	},
	{
		Name:    "ord",
		Doc:     "Return the code point of a one-character string",
		Args:    []string{"s"},
		Returns: "number",
		Example: "ord(\"A\")",
	},
	{
		Name:    "print",
		Doc:     "Write the string form of a value and a newline to stdout",
		Args:    []string{"value"},
		Returns: "nil",
		Example: "print(\"hello\")",
	},
	{
		Name:    "range",
		Doc:     "Return an iterable arithmetic progression",
		Args:    []string{"start?", "stop", "step?"},
		Returns: "Range",
		Example: "range(0, 10, 2)",
	},
	{
		Name:    "repr",
		Doc:     "Return the source-like representation of a value",
		Args:    []string{"value"},
		Returns: "string",
		Example: "repr(\"hi\")",
	},
	{
		Name:    "round",
		Doc:     "Round half away from zero, optionally to a number of decimals",
		Args:    []string{"n", "digits?"},
		Returns: "number",
		Example: "round(2.675, 2)",
	},
	{
		Name:    "Set",
		Doc:     "Build a dict whose keys are the items of an iterable",
		Args:    []string{"items?"},
		Returns: "Dict",
		Example: "Set([1, 2, 2])",
	},
	{
		Name:    "setattr",
		Doc:     "Assign a field of an instance",
		Args:    []string{"obj", "name", "value"},
		Returns: "any",
		Example: "setattr(point, \"x\", 1)",
	},
	{
		Name:    "sorted",
		Doc:     "Return a new sorted list, optionally ordered by a key function",
		Args:    []string{"items", "key?"},
		Returns: "List",
		Example: "sorted([3, 1, 2])",
	},
	{
		Name:    "str",
		Doc:     "Convert a value to a string",
		Args:    []string{"value"},
		Returns: "string",
		Example: "str(42)",
	},
	{
		Name:    "sum",
		Doc:     "Add up the numbers of an iterable",
		Args:    []string{"items"},
		Returns: "number",
		Example: "sum([1, 2, 3])",
	},
	{
		Name:    "type",
		Doc:     "Return the class of a value",
		Args:    []string{"value"},
		Returns: "Class",
		Example: "type([])",
	},
}
