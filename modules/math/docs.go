package math

import "github.com/kestrel-lang/kestrel/builtins"

// Docs returns documentation for the math module.
func Docs() []builtins.FuncSpec {
	return mathDocs
}

// ModuleDoc returns the module-level documentation.
func ModuleDoc() string {
	return "Mathematical functions and constants"
}

var mathDocs = []builtins.FuncSpec{
	// Constants
	{Name: "pi", Doc: "Pi (3.14159...)", Returns: "number"},
	{Name: "e", Doc: "Euler's number (2.718...)", Returns: "number"},
	{Name: "tau", Doc: "Tau (2*pi)", Returns: "number"},
	{Name: "inf", Doc: "Positive infinity", Returns: "number"},
	{Name: "nan", Doc: "Not a number", Returns: "number"},
	// Basic math
	{Name: "abs", Doc: "Absolute value", Args: []string{"x"}, Returns: "number"},
	{Name: "sign", Doc: "Sign of x (-1, 0, or 1)", Args: []string{"x"}, Returns: "number"},
	{Name: "floor", Doc: "Floor (round down)", Args: []string{"x"}, Returns: "number"},
	{Name: "ceil", Doc: "Ceiling (round up)", Args: []string{"x"}, Returns: "number"},
	{Name: "trunc", Doc: "Truncate toward zero", Args: []string{"x"}, Returns: "number"},
	{Name: "mod", Doc: "Floating-point remainder of x/y", Args: []string{"x", "y"}, Returns: "number"},
	// Powers and logarithms
	{Name: "sqrt", Doc: "Square root", Args: []string{"x"}, Returns: "number"},
	{Name: "pow", Doc: "x raised to the power y", Args: []string{"x", "y"}, Returns: "number"},
	{Name: "exp", Doc: "e raised to the power x", Args: []string{"x"}, Returns: "number"},
	{Name: "log", Doc: "Natural logarithm, or logarithm in the given base", Args: []string{"x", "base?"}, Returns: "number"},
	{Name: "log2", Doc: "Base-2 logarithm", Args: []string{"x"}, Returns: "number"},
	{Name: "log10", Doc: "Base-10 logarithm", Args: []string{"x"}, Returns: "number"},
	{Name: "hypot", Doc: "Length of the hypotenuse sqrt(x*x + y*y)", Args: []string{"x", "y"}, Returns: "number"},
	// Trigonometry
	{Name: "sin", Doc: "Sine (radians)", Args: []string{"x"}, Returns: "number"},
	{Name: "cos", Doc: "Cosine (radians)", Args: []string{"x"}, Returns: "number"},
	{Name: "tan", Doc: "Tangent (radians)", Args: []string{"x"}, Returns: "number"},
	{Name: "asin", Doc: "Arc sine", Args: []string{"x"}, Returns: "number"},
	{Name: "acos", Doc: "Arc cosine", Args: []string{"x"}, Returns: "number"},
	{Name: "atan", Doc: "Arc tangent", Args: []string{"x"}, Returns: "number"},
	{Name: "atan2", Doc: "Arc tangent of y/x using the signs of both", Args: []string{"y", "x"}, Returns: "number"},
	// Predicates
	{Name: "isinf", Doc: "Check if x is infinite", Args: []string{"x"}, Returns: "bool"},
	{Name: "isnan", Doc: "Check if x is not a number", Args: []string{"x"}, Returns: "bool"},
}
