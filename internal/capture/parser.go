// Package capture turns a raw capture string into a structured task
// draft by extracting inline tokens in a single left-to-right scan.
// Parsing is pure: the same text and reference clock always produce the
// same draft.
package capture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cptapp/cpt/internal/domain"
)

// Draft is a parsed capture before the synchronizer assigns identity.
type Draft struct {
	Title        string
	Notes        string
	Status       domain.TaskStatus
	Project      string
	Contexts     []string
	Tags         []string
	Priority     domain.Priority
	Energy       domain.EnergyLevel
	TimeEstimate int
	Due          *time.Time
	Defer        *time.Time
	WaitingOn    string
	WaitingSince *time.Time
}

// ParseError reports capture input the parser rejected: empty text
// always, or a malformed recognized token under strict mode.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return "capture: " + e.Reason
	}
	return fmt.Sprintf("capture: token %q: %s", e.Token, e.Reason)
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock replaces the reference clock used for relative dates.
func WithClock(clock domain.Clock) Option {
	return func(p *Parser) { p.clock = clock }
}

// Strict makes malformed recognized tokens (bad date expression, unknown
// priority, and so on) fail the whole capture instead of degrading to
// literal title text.
func Strict() Option {
	return func(p *Parser) { p.strict = true }
}

// Parser extracts inline tokens from capture text.
type Parser struct {
	clock  domain.Clock
	strict bool
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{clock: domain.SystemClock{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse is a convenience for a one-shot parse with the given options.
func Parse(text string, opts ...Option) (Draft, error) {
	return NewParser(opts...).Parse(text)
}

// trailingPunct matches punctuation glued to the end of a token, e.g.
// "@phone," — the token is matched bare and the punctuation re-attached
// to the preceding title word.
var trailingPunct = regexp.MustCompile(`[[:punct:]]+$`)

// Parse scans text once and builds the draft. Recognized tokens are
// removed from the title; surrounding whitespace collapses.
func (p *Parser) Parse(text string) (Draft, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Draft{}, &ParseError{Reason: "capture text is empty"}
	}

	draft := Draft{Status: domain.StatusInbox}
	var titleWords []string

	for _, word := range strings.Fields(raw) {
		token, trailing := splitTrailingPunct(word)

		consumed, err := p.consumeToken(&draft, token)
		if err != nil {
			if p.strict {
				return Draft{}, err
			}
			// Lenient: the unresolvable token stays in the title.
			titleWords = append(titleWords, word)
			continue
		}
		if !consumed {
			titleWords = append(titleWords, word)
			continue
		}
		if trailing != "" {
			appendTrailing(&titleWords, trailing)
		}
	}

	if draft.WaitingOn != "" && draft.Status == domain.StatusInbox {
		draft.Status = domain.StatusWaiting
	}

	draft.Title = strings.Join(titleWords, " ")
	if draft.Title == "" {
		draft.Title = raw
	}

	return draft, nil
}

// consumeToken applies one recognized token to the draft. It reports
// false for plain title words, and an error for recognized-but-malformed
// tokens (the caller decides between strict failure and degradation).
func (p *Parser) consumeToken(draft *Draft, token string) (bool, error) {
	switch {
	case len(token) > 1 && strings.HasPrefix(token, "@"):
		draft.Contexts = addLabel(draft.Contexts, token[1:])
		return true, nil

	case len(token) > 1 && strings.HasPrefix(token, "+"):
		draft.Project = cleanLabel(token[1:])
		return true, nil

	case len(token) > 1 && strings.HasPrefix(token, "#"):
		draft.Tags = addLabel(draft.Tags, token[1:])
		return true, nil
	}

	prefix, spec, ok := strings.Cut(token, ":")
	if !ok || spec == "" {
		return false, nil
	}

	switch prefix {
	case "tag":
		draft.Tags = addLabel(draft.Tags, spec)
		return true, nil

	case "due":
		due, err := p.parseDateSpec(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.Due = &due
		return true, nil

	case "defer":
		deferUntil, err := p.parseDateSpec(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.Defer = &deferUntil
		return true, nil

	case "priority", "p":
		priority, err := domain.ParsePriority(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.Priority = priority
		return true, nil

	case "e", "energy":
		energy, err := domain.ParseEnergy(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.Energy = energy
		return true, nil

	case "t":
		minutes, err := parseMinutes(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.TimeEstimate = minutes
		return true, nil

	case "wait":
		draft.WaitingOn = cleanLabel(spec)
		return true, nil

	case "since":
		since, err := p.parseDateSpec(spec)
		if err != nil {
			return false, &ParseError{Token: token, Reason: err.Error()}
		}
		draft.WaitingSince = &since
		return true, nil
	}

	return false, nil
}

// addLabel appends value to the set unless an entry already matches it
// case-insensitively. Original casing is preserved for display.
func addLabel(set []string, value string) []string {
	value = cleanLabel(value)
	if value == "" {
		return set
	}
	for _, existing := range set {
		if strings.EqualFold(existing, value) {
			return set
		}
	}
	return append(set, value)
}

func cleanLabel(value string) string {
	return strings.TrimSpace(strings.Trim(value, ",;."))
}

// parseMinutes resolves a time estimate: "30", "45m", or "2h".
func parseMinutes(spec string) (int, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	mult := 1
	switch {
	case strings.HasSuffix(spec, "m"):
		spec = strings.TrimSuffix(spec, "m")
	case strings.HasSuffix(spec, "h"):
		spec = strings.TrimSuffix(spec, "h")
		mult = 60
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid time estimate %q", spec)
	}
	return n * mult, nil
}

func splitTrailingPunct(word string) (token, trailing string) {
	loc := trailingPunct.FindStringIndex(word)
	if loc == nil {
		return word, ""
	}
	return word[:loc[0]], word[loc[0]:]
}

// appendTrailing reattaches stripped punctuation to the previous title
// word so "call Sam, @phone" keeps its comma.
func appendTrailing(words *[]string, trailing string) {
	if len(*words) == 0 {
		*words = append(*words, trailing)
		return
	}
	(*words)[len(*words)-1] += trailing
}
