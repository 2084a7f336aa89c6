package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeadlinePattern is one named entry in the fixed deadline table. Each
// pattern carries the procedural basis it derives from and the standard
// and escalation day counts used to resolve due dates.
type DeadlinePattern struct {
	Name           string `yaml:"name"`
	Pattern        string `yaml:"pattern"`
	LegalBasis     string `yaml:"legal_basis"`
	StandardDays   int    `yaml:"standard_days"`
	EscalationDays int    `yaml:"escalation_days"`

	re *regexp.Regexp
}

// ActorClass is one entry in the sender classification table. Markers are
// matched as substrings against the sender domain; the first class with a
// matching marker wins.
type ActorClass struct {
	Class   string   `yaml:"class"`
	Boost   int      `yaml:"boost"`
	Markers []string `yaml:"markers"`
}

// Tables holds the full pattern configuration for the rule engine. Built
// once at startup and treated as immutable afterwards; rules are pure so
// no synchronization is needed.
type Tables struct {
	Deadlines []DeadlinePattern `yaml:"deadline_patterns"`
	Actors    []ActorClass      `yaml:"actor_classes"`
}

// DefaultTables returns the compiled-in reference tables.
func DefaultTables() *Tables {
	t := &Tables{
		Deadlines: []DeadlinePattern{
			{
				Name:           "oqtf",
				Pattern:        `(?i)\bOQTF\b|obligation\s+de\s+quitter\s+le\s+territoire`,
				LegalBasis:     "CESEDA L. 611-1",
				StandardDays:   30,
				EscalationDays: 3,
			},
			{
				Name:           "recourse",
				Pattern:        `(?i)\brecours\b|\brecourse\b|\bappeal\b`,
				LegalBasis:     "CJA R. 421-1",
				StandardDays:   60,
				EscalationDays: 7,
			},
			{
				Name:           "formal_notice",
				Pattern:        `(?i)mise\s+en\s+demeure|formal\s+notice`,
				LegalBasis:     "Code civil art. 1344",
				StandardDays:   15,
				EscalationDays: 5,
			},
			{
				Name:           "hearing_summons",
				Pattern:        `(?i)\baudience\b|\bconvocation\b|\bhearing\b`,
				LegalBasis:     "CJA R. 711-2",
				StandardDays:   15,
				EscalationDays: 3,
			},
			{
				Name:           "response_deadline",
				Pattern:        `(?i)sous\s+\d+\s+jours|d[ée]lai\s+de\s+r[ée]ponse|within\s+\d+\s+days`,
				LegalBasis:     "",
				StandardDays:   10,
				EscalationDays: 3,
			},
		},
		Actors: []ActorClass{
			{
				Class:   "institution",
				Boost:   2,
				Markers: []string{".gouv.fr", "prefecture", "interieur", "ofpra", "cnda", "tribunal", "justice"},
			},
			{
				Class:   "legal_counsel",
				Boost:   1,
				Markers: []string{"avocat", "cabinet", "barreau", "law", "legal"},
			},
			{
				Class:   "third_party",
				Boost:   -1,
				Markers: []string{"noreply", "no-reply", "newsletter", "marketing"},
			},
		},
	}
	if err := t.Compile(); err != nil {
		// Default patterns are fixed at build time; a compile failure here
		// is a programming error.
		panic(err)
	}
	return t
}

// LoadTables reads pattern tables from a YAML file. Unknown keys are
// rejected so a typoed table never silently disables a rule.
func LoadTables(path string) (*Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pattern tables: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var t Tables
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decoding pattern tables %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern tables %s: %w", path, err)
	}
	if err := t.Compile(); err != nil {
		return nil, fmt.Errorf("compiling pattern tables %s: %w", path, err)
	}
	return &t, nil
}

// Validate checks if the tables have valid values
func (t *Tables) Validate() error {
	seen := make(map[string]bool)
	for i, p := range t.Deadlines {
		if p.Name == "" {
			return fmt.Errorf("deadline pattern %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate deadline pattern name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Pattern == "" {
			return fmt.Errorf("deadline pattern %q has no pattern", p.Name)
		}
		if p.StandardDays <= 0 {
			return fmt.Errorf("deadline pattern %q: standard_days must be positive (got %d)", p.Name, p.StandardDays)
		}
		if p.EscalationDays <= 0 || p.EscalationDays > p.StandardDays {
			return fmt.Errorf("deadline pattern %q: escalation_days must be in [1,%d] (got %d)",
				p.Name, p.StandardDays, p.EscalationDays)
		}
	}
	for i, a := range t.Actors {
		if a.Class == "" {
			return fmt.Errorf("actor class %d has no class name", i)
		}
		if len(a.Markers) == 0 {
			return fmt.Errorf("actor class %q has no markers", a.Class)
		}
	}
	return nil
}

// Compile builds the regexes for every deadline pattern.
func (t *Tables) Compile() error {
	for i := range t.Deadlines {
		re, err := regexp.Compile(t.Deadlines[i].Pattern)
		if err != nil {
			return fmt.Errorf("deadline pattern %q: %w", t.Deadlines[i].Name, err)
		}
		t.Deadlines[i].re = re
	}
	return nil
}

// DeadlineMatch is one deadline pattern that matched a unit's content.
type DeadlineMatch struct {
	Name           string `json:"name"`
	LegalBasis     string `json:"legal_basis,omitempty"`
	StandardDays   int    `json:"standard_days"`
	EscalationDays int    `json:"escalation_days"`
}

// ScanDeadlines matches content against every deadline pattern and
// returns the distinct matches in table order.
func (t *Tables) ScanDeadlines(content string) []DeadlineMatch {
	var matches []DeadlineMatch
	for i := range t.Deadlines {
		p := &t.Deadlines[i]
		if p.re.MatchString(content) {
			matches = append(matches, DeadlineMatch{
				Name:           p.Name,
				LegalBasis:     p.LegalBasis,
				StandardDays:   p.StandardDays,
				EscalationDays: p.EscalationDays,
			})
		}
	}
	return matches
}

// ClassifyActor classifies a sender domain against the actor table.
// The first class with a matching marker wins; an empty domain or no
// match falls through to the zero-boost client default.
func (t *Tables) ClassifyActor(domain string) (class string, boost int) {
	domain = strings.ToLower(domain)
	if domain == "" {
		return "client", 0
	}
	for _, a := range t.Actors {
		for _, marker := range a.Markers {
			if strings.Contains(domain, marker) {
				return a.Class, a.Boost
			}
		}
	}
	return "client", 0
}
