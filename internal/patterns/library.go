// Package patterns provides the precompiled keyword and regex tables shared
// by scoring and extraction. A Library is immutable once loaded and safe for
// concurrent use.
package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultTables []byte

var (
	upiRe = regexp.MustCompile(`(?i)[a-z0-9._-]+@[a-z]+`)
	// A mobile number with a +91 or bare 91 country code, or any free-standing
	// 10-digit run.
	phoneRe = regexp.MustCompile(`\+91[-\s]?[6-9]\d{9}\b|\b91[-\s]?[6-9]\d{9}\b|\b\d{10}\b`)
	// A free-standing 9-18 digit run, or 4-4-4-(0..6) groups with optional separators.
	accountRe = regexp.MustCompile(`\b\d{9,18}\b|\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{0,6}\b`)
	// http(s):// or www. up to whitespace, quotes or brackets.
	urlRe = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+|www\\.[^\\s<>\"{}|\\\\^`\\[\\]]+")
)

// ErrEmptyList is returned when an override file sets a keyword list to empty.
var ErrEmptyList = errors.New("keyword list must not be empty")

// Tactic maps a human-readable tactic label to its trigger keywords.
type Tactic struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Library holds the keyword tables and compiled patterns.
type Library struct {
	urgency           []string
	threat            []string
	request           []string
	sensitive         []string
	financial         []string
	impersonation     []string
	paymentAction     []string
	legitimateDomains []string
	tactics           []Tactic
	suspicious        []string
}

// tables is the YAML shape. Pointers distinguish an omitted list from an
// explicitly empty one in override files.
type tables struct {
	Urgency           *[]string `yaml:"urgency"`
	Threat            *[]string `yaml:"threat"`
	Request           *[]string `yaml:"request"`
	Sensitive         *[]string `yaml:"sensitive"`
	Financial         *[]string `yaml:"financial"`
	Impersonation     *[]string `yaml:"impersonation"`
	PaymentAction     *[]string `yaml:"payment_action"`
	LegitimateDomains *[]string `yaml:"legitimate_domains"`
	Tactics           *[]Tactic `yaml:"tactics"`
}

// Default returns the library built from the embedded tables.
func Default() *Library {
	lib, err := build(defaultTables, nil)
	if err != nil {
		panic("patterns: invalid embedded tables: " + err.Error())
	}
	return lib
}

// Load builds a library from the embedded tables, overlaid with the lists
// named in the YAML file at path. An empty path yields the defaults.
func Load(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}
	lib, err := build(defaultTables, data)
	if err != nil {
		return nil, fmt.Errorf("load patterns %s: %w", path, err)
	}
	return lib, nil
}

func build(base, override []byte) (*Library, error) {
	var t tables
	if err := yaml.Unmarshal(base, &t); err != nil {
		return nil, fmt.Errorf("parse default tables: %w", err)
	}
	if override != nil {
		var o tables
		if err := yaml.Unmarshal(override, &o); err != nil {
			return nil, fmt.Errorf("parse override: %w", err)
		}
		overlay(&t, &o)
	}

	lib := &Library{}
	lists := []struct {
		name string
		src  *[]string
		dst  *[]string
	}{
		{"urgency", t.Urgency, &lib.urgency},
		{"threat", t.Threat, &lib.threat},
		{"request", t.Request, &lib.request},
		{"sensitive", t.Sensitive, &lib.sensitive},
		{"financial", t.Financial, &lib.financial},
		{"impersonation", t.Impersonation, &lib.impersonation},
		{"payment_action", t.PaymentAction, &lib.paymentAction},
		{"legitimate_domains", t.LegitimateDomains, &lib.legitimateDomains},
	}
	for _, l := range lists {
		if l.src == nil {
			return nil, fmt.Errorf("%s: %w", l.name, ErrEmptyList)
		}
		*l.dst = normalize(*l.src)
		if len(*l.dst) == 0 {
			return nil, fmt.Errorf("%s: %w", l.name, ErrEmptyList)
		}
	}

	if t.Tactics != nil {
		for _, tac := range *t.Tactics {
			kws := normalize(tac.Keywords)
			if strings.TrimSpace(tac.Label) == "" || len(kws) == 0 {
				return nil, fmt.Errorf("tactic %q: label and keywords are required", tac.Label)
			}
			lib.tactics = append(lib.tactics, Tactic{Label: strings.TrimSpace(tac.Label), Keywords: kws})
		}
	}

	lib.suspicious = normalize(concat(lib.urgency, lib.threat, lib.sensitive))
	return lib, nil
}

func overlay(dst, src *tables) {
	if src.Urgency != nil {
		dst.Urgency = src.Urgency
	}
	if src.Threat != nil {
		dst.Threat = src.Threat
	}
	if src.Request != nil {
		dst.Request = src.Request
	}
	if src.Sensitive != nil {
		dst.Sensitive = src.Sensitive
	}
	if src.Financial != nil {
		dst.Financial = src.Financial
	}
	if src.Impersonation != nil {
		dst.Impersonation = src.Impersonation
	}
	if src.PaymentAction != nil {
		dst.PaymentAction = src.PaymentAction
	}
	if src.LegitimateDomains != nil {
		dst.LegitimateDomains = src.LegitimateDomains
	}
	if src.Tactics != nil {
		dst.Tactics = src.Tactics
	}
}

// normalize lowercases, trims and dedups, keeping the first occurrence.
func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
