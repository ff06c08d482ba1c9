// Package dateparse turns phrases like "tmrw 5pm" into timestamps.
package dateparse

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var ErrNoDate = errors.New("no date found in text")

// shorthands are expanded before parsing, matched as whole words.
var shorthands = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)\b(tmrw|tmr|tmw|tom)\b`), "tomorrow"},
	{regexp.MustCompile(`(?i)\btonite\b`), "tonight"},
	{regexp.MustCompile(`(?i)\bnxt\b`), "next"},
	{regexp.MustCompile(`(?i)\beod\b`), "today at 5pm"},
	{regexp.MustCompile(`(?i)\beow\b`), "friday at 5pm"},
	{regexp.MustCompile(`(?i)\bmidday\b`), "12pm"},
}

type Result struct {
	Time time.Time `json:"time"`
	// Text is the fragment of the normalized input that produced Time.
	Text string `json:"text"`
	// Normalized is the input after shorthand expansion.
	Normalized string `json:"normalized"`
}

type Parser struct {
	w *when.Parser
}

func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse finds the first date expression in text, relative to base.
func (p *Parser) Parse(text string, base time.Time) (*Result, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, ErrNoDate
	}

	r, err := p.w.Parse(normalized, base)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNoDate
	}

	return &Result{Time: r.Time, Text: r.Text, Normalized: normalized}, nil
}

// Normalize expands shorthands and collapses whitespace.
func Normalize(text string) string {
	out := strings.Join(strings.Fields(text), " ")
	for _, s := range shorthands {
		out = s.pattern.ReplaceAllString(out, s.replace)
	}
	return out
}
