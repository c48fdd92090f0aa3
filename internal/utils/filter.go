package utils

import (
	"unicode"
	"unicode/utf8"
)

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsSpecialChars reports runes that can never be part of a word
// (anything but letters, digits, combining marks and apostrophes).
func ContainsSpecialChars(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && r != '\'' && r != '’' {
			return true
		}
	}
	return false
}

// IsRepetitive checks for one rune repeated three or more times, like "aaa".
func IsRepetitive(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// IsValidInput checks if a partial word is worth completing.
// Returns false for numbers only, special characters or repetitive input.
func IsValidInput(s string) bool {
	if s == "" {
		return false
	}
	return !IsOnlyNumbers(s) && !ContainsSpecialChars(s) && !IsRepetitive(s)
}
