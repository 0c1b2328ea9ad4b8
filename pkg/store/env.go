package store

import (
	"os"
	"strings"
	"unicode"
)

// Env resolves constant overrides from environment variables. An option
// stored as "general_site_title" is overridden by PREFIX_GENERAL_SITE_TITLE.
type Env struct {
	Prefix string
	lookup func(string) (string, bool)
}

func NewEnv(prefix string) *Env {
	return &Env{Prefix: prefix, lookup: os.LookupEnv}
}

// Variable returns the environment variable consulted for name.
func (e *Env) Variable(name string) string {
	var b strings.Builder
	if e.Prefix != "" {
		b.WriteString(strings.ToUpper(strings.TrimSuffix(e.Prefix, "_")))
		b.WriteByte('_')
	}
	underscore := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func (e *Env) Lookup(name string) (string, bool) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return lookup(e.Variable(name))
}
