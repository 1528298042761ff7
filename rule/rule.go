// Package rule implements the ordered passthrough/prefix/suffix rule
// engine that strips non-cryptographic material from a plaintext before
// it reaches the cipher, and splices it back on the way out.
//
// This follows the Ubiq Security structured-encryption convention for
// format rules: implicit-passthrough-rule insertion, priority-sort
// then apply-in-order semantics, and format-template reconstruction on
// the way back.
package rule

import (
	"fmt"
	"sort"

	"github.com/vdparikh/ffs/ffserr"
)

// Type enumerates the rule kinds the engine understands.
type Type string

const (
	Passthrough Type = "passthrough"
	Prefix      Type = "prefix"
	Suffix      Type = "suffix"
)

// Rule is one ordered step of the format-stripping pipeline. Value
// holds the passthrough character set for Passthrough rules, or a
// decimal character count for Prefix/Suffix rules.
type Rule struct {
	Type     Type
	Value    string
	Priority int
}

// step records the per-invocation state a rule produced while
// stripping a plaintext, so Unapply can reverse it without touching the
// immutable Rule definitions themselves. This lets the same []Rule
// slice be shared, read-only, across concurrent Apply calls.
type step struct {
	rule     Rule
	template string // Passthrough only: placeholder-marked format template
	buffer   string // Prefix/Suffix only: the characters split off
}

// Engine is an ordered, immutable set of rules bound to one dataset.
// Built once at Context construction; Apply/Unapply never mutate it.
type Engine struct {
	rules []Rule // ascending priority order, implicit passthrough prepended if absent
}

// New builds an Engine from a dataset's configured rules and its legacy
// passthrough string. If rules contains no passthrough entry, one is
// prepended at priority 1 using passthrough, so a dataset configured
// with only a passthrough string still gets a working implicit rule.
func New(rules []Rule, passthrough string) *Engine {
	out := make([]Rule, len(rules))
	copy(out, rules)

	hasPassthrough := false
	for _, r := range out {
		if r.Type == Passthrough {
			hasPassthrough = true
			break
		}
	}
	if !hasPassthrough {
		out = append([]Rule{{Type: Passthrough, Value: passthrough, Priority: 1}}, out...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return &Engine{rules: out}
}

// Apply strips format material from plaintext in ascending priority
// order and returns the remaining "core" string along with the applied
// state needed to reverse the process. placeholder is the character
// used to mark non-passthrough positions in the format template. The
// caller passes the output alphabet's digit-0 symbol.
func (e *Engine) Apply(plaintext string, placeholder rune) (core string, steps []step, err error) {
	working := plaintext
	out := make([]step, 0, len(e.rules))

	for _, r := range e.rules {
		switch r.Type {
		case Passthrough:
			var template []rune
			var rest []rune
			for _, c := range working {
				if containsRune(r.Value, c) {
					template = append(template, c)
				} else {
					template = append(template, placeholder)
					rest = append(rest, c)
				}
			}
			working = string(rest)
			out = append(out, step{rule: r, template: string(template)})

		case Prefix:
			n, perr := parseCount(r.Value)
			if perr != nil {
				return "", nil, perr
			}
			runes := []rune(working)
			if n > len(runes) {
				n = len(runes)
			}
			out = append(out, step{rule: r, buffer: string(runes[:n])})
			working = string(runes[n:])

		case Suffix:
			n, perr := parseCount(r.Value)
			if perr != nil {
				return "", nil, perr
			}
			runes := []rune(working)
			if n > len(runes) {
				n = len(runes)
			}
			split := len(runes) - n
			out = append(out, step{rule: r, buffer: string(runes[split:])})
			working = string(runes[:split])

		default:
			return "", nil, fmt.Errorf("rule: unsupported rule type %q: %w", r.Type, ffserr.ErrMalformedInput)
		}
	}

	return working, out, nil
}

// Unapply reverses Apply in descending priority order, reassembling the
// original string around a (possibly re-encrypted) core.
func (e *Engine) Unapply(core string, steps []step) (string, error) {
	working := core
	for i := len(steps) - 1; i >= 0; i-- {
		a := steps[i]
		switch a.rule.Type {
		case Passthrough:
			var out []rune
			remaining := []rune(working)
			for _, c := range a.template {
				if !containsRune(a.rule.Value, c) {
					if len(remaining) == 0 {
						return "", fmt.Errorf("rule: %w: ran out of core characters", ffserr.ErrFormatMismatch)
					}
					out = append(out, remaining[0])
					remaining = remaining[1:]
				} else {
					out = append(out, c)
				}
			}
			if len(remaining) > 0 {
				return "", fmt.Errorf("rule: %w: %d leftover core character(s)", ffserr.ErrFormatMismatch, len(remaining))
			}
			working = string(out)

		case Prefix:
			working = a.buffer + working

		case Suffix:
			working = working + a.buffer

		default:
			return "", fmt.Errorf("rule: unsupported rule type %q: %w", a.rule.Type, ffserr.ErrMalformedInput)
		}
	}
	return working, nil
}

// Applied is the exported alias callers (package ffs) hold onto between
// Apply and Unapply; kept as an opaque slice type so the internal
// per-rule bookkeeping fields above can change without breaking callers.
type Applied = []step

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func parseCount(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("rule: empty prefix/suffix count: %w", ffserr.ErrMalformedInput)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("rule: invalid prefix/suffix count %q: %w", s, ffserr.ErrMalformedInput)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
