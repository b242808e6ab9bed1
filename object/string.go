package object

import (
	"unicode/utf8"
)

// String is an immutable interned string. Two Strings with the same
// contents on one Heap are the same pointer, so equality is identity.
type String struct {
	marked     bool
	chars      string
	hash       uint32
	codePoints int
	runes      []rune // built on first code point access of non-ASCII text
}

// String returns the Go string contents.
func (s *String) String() string {
	if s == nil {
		return ""
	}
	return s.chars
}

// Hash returns the precomputed FNV-1a hash of the bytes.
func (s *String) Hash() uint32 { return s.hash }

// ByteLen returns the length in bytes.
func (s *String) ByteLen() int { return len(s.chars) }

// Len returns the length in code points.
func (s *String) Len() int { return s.codePoints }

// IsASCII reports whether every code point is a single byte.
func (s *String) IsASCII() bool { return s.codePoints == len(s.chars) }

// RuneAt returns the code point at index i.
func (s *String) RuneAt(i int) rune {
	if s.IsASCII() {
		return rune(s.chars[i])
	}
	return s.utf32()[i]
}

// Substring returns the code points in [start, end).
func (s *String) Substring(start, end int) string {
	if s.IsASCII() {
		return s.chars[start:end]
	}
	return string(s.utf32()[start:end])
}

func (s *String) utf32() []rune {
	if s.runes == nil {
		s.runes = []rune(s.chars)
	}
	return s.runes
}

func (s *String) accountedSize() int {
	return 48 + len(s.chars)
}

const (
	fnvOffset = 2166136261
	fnvPrime  = 16777619
)

func hashString(s string) uint32 {
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

func newString(chars string) *String {
	return &String{
		chars:      chars,
		hash:       hashString(chars),
		codePoints: utf8.RuneCountInString(chars),
	}
}
