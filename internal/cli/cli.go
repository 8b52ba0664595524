// Package cli holds argument helpers shared by the command line programs.
package cli

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/hupe1980/kmeansbench"
)

// MalformedIntPrefix prefixes the message printed for a bad integer argument.
const MalformedIntPrefix = "malformed integer param: "

// ParseInt parses a base-10 integer argument. Leading and trailing
// characters that are not part of the number are rejected, so "10x" and
// " 10" fail with an *kmeansbench.ArgumentError.
func ParseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err == nil {
		return v, nil
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return 0, kmeansbench.NewArgumentError(name, s, "out of range", err)
	}

	// Distinguish "12abc" from "abc" for a more useful message.
	digits := strings.TrimLeft(s, "+-")
	end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) })
	if end > 0 {
		return 0, kmeansbench.NewArgumentError(name, s, "trailing characters after integer", err)
	}
	return 0, kmeansbench.NewArgumentError(name, s, "not an integer", err)
}

// NormalizeDir returns dir with exactly one trailing path separator.
func NormalizeDir(dir string) string {
	if dir == "" {
		return dir
	}
	trimmed := strings.TrimRight(dir, `/\`)
	if trimmed == "" {
		return string(os.PathSeparator)
	}
	return trimmed + string(os.PathSeparator)
}

// SplitList splits a comma separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
