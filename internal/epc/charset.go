package epc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedCharacterSet is matched by UnsupportedCharacterSetError.
var ErrUnsupportedCharacterSet = errors.New("unsupported character set")

// CharacterSet is the EPC069-12 character set identifier. Only UTF8 is
// implemented; the others are recognised so they can be reported.
type CharacterSet int

const (
	UTF8       CharacterSet = 1
	ISO8859_1  CharacterSet = 2
	ISO8859_2  CharacterSet = 3
	ISO8859_4  CharacterSet = 4
	ISO8859_5  CharacterSet = 5
	ISO8859_7  CharacterSet = 6
	ISO8859_10 CharacterSet = 7
	ISO8859_15 CharacterSet = 8
)

var characterSetNames = map[CharacterSet]string{
	UTF8:       "UTF-8",
	ISO8859_1:  "ISO-8859-1",
	ISO8859_2:  "ISO-8859-2",
	ISO8859_4:  "ISO-8859-4",
	ISO8859_5:  "ISO-8859-5",
	ISO8859_7:  "ISO-8859-7",
	ISO8859_10: "ISO-8859-10",
	ISO8859_15: "ISO-8859-15",
}

func (c CharacterSet) String() string {
	if name, ok := characterSetNames[c]; ok {
		return name
	}
	return "CharacterSet(" + strconv.Itoa(int(c)) + ")"
}

// Code returns the single-digit identifier written on line 3 of the payload.
func (c CharacterSet) Code() string {
	return strconv.Itoa(int(c))
}

// Known reports whether c is one of the eight identifiers defined by EPC069-12.
func (c CharacterSet) Known() bool {
	_, ok := characterSetNames[c]
	return ok
}

// Supported reports whether payloads can be produced in c.
func (c CharacterSet) Supported() bool {
	return c == UTF8
}

// ParseCharacterSet accepts either the numeric code ("1") or the name
// ("UTF-8", case-insensitive).
func ParseCharacterSet(s string) (CharacterSet, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		c := CharacterSet(n)
		if !c.Known() {
			return 0, fmt.Errorf("unknown character set code %d", n)
		}
		return c, nil
	}
	for c, name := range characterSetNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown character set %q", s)
}

// UnsupportedCharacterSetError is returned by Serialize for any character set
// other than UTF8.
type UnsupportedCharacterSetError struct {
	CharacterSet CharacterSet
}

func (e *UnsupportedCharacterSetError) Error() string {
	return fmt.Sprintf("character set %s is not supported, only %s is", e.CharacterSet, UTF8)
}

func (e *UnsupportedCharacterSetError) Unwrap() error {
	return ErrUnsupportedCharacterSet
}
