// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package printf

import "fmt"

// dataTypes maps a length modifier + conversion to the type of the argument
// it consumes. See https://en.cppreference.com/w/c/io/fprintf.
//
// The '%n' family writes through a pointer and is not accepted.
var dataTypes = map[string]string{
	"*": "as_width_or_precision",

	"s":  "as_char_ptr",
	"ls": "as_wchar_ptr",

	"td": "as_ptrdiff_t", "ti": "as_ptrdiff_t",
	"zd": "as_ssizet", "zi": "as_ssizet",
	"jd": "as_intmax_t", "ji": "as_intmax_t",
	"lld": "as_longlong", "lli": "as_longlong",
	"ld": "as_long", "li": "as_long",
	"c": "as_int", "d": "as_int", "i": "as_int",
	"hd": "as_short", "hi": "as_short",
	"hhd": "as_schar", "hhi": "as_schar",

	"to": "as_uptrdiff_t", "tx": "as_uptrdiff_t", "tX": "as_uptrdiff_t", "tu": "as_uptrdiff_t",
	"zo": "as_size_t", "zx": "as_size_t", "zX": "as_size_t", "zu": "as_size_t",
	"jo": "as_uintmax_t", "jx": "as_uintmax_t", "jX": "as_uintmax_t", "ju": "as_uintmax_t",
	"llo": "as_ulonglong", "llx": "as_ulonglong", "llX": "as_ulonglong", "llu": "as_ulonglong",
	"lo": "as_ulong", "lx": "as_ulong", "lX": "as_ulong", "lu": "as_ulong",
	"o": "as_uint", "x": "as_uint", "X": "as_uint", "u": "as_uint",
	"ho": "as_ushort", "hx": "as_ushort", "hX": "as_ushort", "hu": "as_ushort",
	"hho": "as_uchar", "hhx": "as_uchar", "hhX": "as_uchar", "hhu": "as_uchar",

	"f": "as_double", "F": "as_double", "e": "as_double", "E": "as_double",
	"g": "as_double", "G": "as_double", "a": "as_double", "A": "as_double",
	"lf": "as_double", "lF": "as_double", "le": "as_double", "lE": "as_double",
	"lg": "as_double", "lG": "as_double", "la": "as_double", "lA": "as_double",
	"Lf": "as_ldouble", "LF": "as_ldouble", "Le": "as_ldouble", "LE": "as_ldouble",
	"Lg": "as_ldouble", "LG": "as_ldouble", "La": "as_ldouble", "LA": "as_ldouble",

	"p": "as_void_ptr",
}

// DataType returns the argument type consumed by the given specifier, which
// is the length modifier and conversion without the leading '%'.
func DataType(specifier string) (string, bool) {
	dt, ok := dataTypes[specifier]
	return dt, ok
}

// Valid reports whether the specifier is accepted in translated strings.
func Valid(specifier string) bool {
	_, ok := dataTypes[specifier]
	return ok
}

// SameDataType reports whether both specifiers consume the same argument
// type. Unknown specifiers are an error.
func SameDataType(a, b string) (bool, error) {
	dtA, ok := DataType(a)
	if !ok {
		return false, fmt.Errorf("'%s' is not a valid C printf format specifier", a)
	}
	dtB, ok := DataType(b)
	if !ok {
		return false, fmt.Errorf("'%s' is not a valid C printf format specifier", b)
	}
	return dtA == dtB, nil
}

// Compatible reports whether a string using the new specifier can be passed
// the arguments that were meant for the old one.
//
// TODO: accept widening within a family (char -> int -> long ->
// long long, double -> long double) once the firmware's va_arg handling is
// audited for it.
func Compatible(old, new string) bool {
	same, err := SameDataType(old, new)
	return err == nil && same
}

// CompatibleLists reports whether two specifier lists have the same length
// and pairwise compatible entries.
func CompatibleLists(old, new []string) bool {
	if len(old) != len(new) {
		return false
	}
	for i := range old {
		if !Compatible(old[i], new[i]) {
			return false
		}
	}
	return true
}
