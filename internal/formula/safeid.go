// Package formula compiles formula text into a reusable vectorized evaluator
// plus the exact list of metric ids it depends on. Expressions are parsed
// with the HCL native syntax; metric ids containing characters the grammar
// rejects (hyphens being the common case) pass through a reversible safing
// rewrite first.
package formula

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// IDCache is the bidirectional safe↔original identifier map for one model
// instance. It is consulted, not rebuilt, on every compilation, so a metric
// keeps the same safe alias for the model's lifetime. Never share a cache
// across models.
type IDCache struct {
	mu         sync.RWMutex
	toSafe     map[string]string
	toOriginal map[string]string
}

// NewIDCache returns an empty cache.
func NewIDCache() *IDCache {
	return &IDCache{
		toSafe:     make(map[string]string),
		toOriginal: make(map[string]string),
	}
}

// Safe returns the grammar-legal alias for an identifier, minting and caching
// one on first sight.
func (c *IDCache) Safe(original string) string {
	c.mu.RLock()
	safe, ok := c.toSafe[original]
	c.mu.RUnlock()
	if ok {
		return safe
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if safe, ok := c.toSafe[original]; ok {
		return safe
	}

	base := sanitize(original)
	safe = base
	// Two distinct originals may sanitize to the same alias; suffix until free.
	for i := 2; ; i++ {
		mapped, taken := c.toOriginal[safe]
		if !taken || mapped == original {
			break
		}
		safe = base + "_" + strconv.Itoa(i)
	}
	c.toSafe[original] = safe
	c.toOriginal[safe] = original
	return safe
}

// Original resolves a safe alias back to the identifier it was minted for.
// Identifiers that never needed safing resolve to themselves.
func (c *IDCache) Original(safe string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if original, ok := c.toOriginal[safe]; ok {
		return original
	}
	return safe
}

// Rewrite replaces every identifier in the source that the expression grammar
// would reject with its safe alias. A maximal identifier run containing a
// hyphen is treated as one identifier; subtraction therefore requires
// surrounding whitespace (e.g. "a - b", never "a-b").
func (c *IDCache) Rewrite(src string) string {
	var out strings.Builder
	out.Grow(len(src))

	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i], peek(runes, i+1)) {
				i++
			}
			token := string(runes[start:i])
			if strings.ContainsRune(token, '-') {
				out.WriteString(c.Safe(token))
			} else {
				out.WriteString(token)
			}
		case unicode.IsDigit(r):
			// Skip over a number literal so exponents like 2e-3 are not
			// mistaken for hyphenated identifiers.
			for i < len(runes) && isNumberPart(runes, i) {
				out.WriteRune(runes[i])
				i++
			}
		default:
			out.WriteRune(r)
			i++
		}
	}
	return out.String()
}

func sanitize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i, r := range id {
		if unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isIdentPart accepts a rune as part of an identifier run. A hyphen counts
// only when the next rune continues the identifier, so "a-b" is one token
// while "a-" and "a- b" terminate at the hyphen.
func isIdentPart(r, next rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return true
	}
	if r == '-' {
		return unicode.IsLetter(next) || unicode.IsDigit(next) || next == '_'
	}
	return false
}

func isNumberPart(runes []rune, i int) bool {
	r := runes[i]
	if unicode.IsDigit(r) || r == '.' {
		return true
	}
	if r == 'e' || r == 'E' {
		next := peek(runes, i+1)
		return unicode.IsDigit(next) || next == '+' || next == '-'
	}
	if r == '+' || r == '-' {
		prev := runes[i-1]
		return (prev == 'e' || prev == 'E') && unicode.IsDigit(peek(runes, i+1))
	}
	return false
}

func peek(runes []rune, i int) rune {
	if i >= len(runes) {
		return 0
	}
	return runes[i]
}
