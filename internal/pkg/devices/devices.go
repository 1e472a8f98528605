// Package devices classifies raw device-type strings into the three dashboard
// categories. Classification is rule-driven: an embedded YAML database of PCRE
// patterns, checked in order. Strings no rule matches classify as Unknown and
// are excluded from device breakdowns rather than miscounted.
package devices

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Canonical device categories
const (
	Desktop = "desktop"
	Mobile  = "mobile"
	Tablet  = "tablet"
	Unknown = ""
)

//go:embed rules/categories.yml
var ruleFiles embed.FS

// CategoryRule maps a PCRE pattern to a canonical category
type CategoryRule struct {
	Category string `yaml:"category"`
	Regex    string `yaml:"regex"`
}

type ruleDatabase struct {
	Categories []CategoryRule `yaml:"categories"`
}

type classifier struct {
	rules    []CategoryRule
	compiled []*pcre.Regexp
}

var (
	instance *classifier
	once     sync.Once
	loadErr  error
)

func getClassifier() (*classifier, error) {
	once.Do(func() {
		instance, loadErr = newClassifier()
	})
	return instance, loadErr
}

func newClassifier() (*classifier, error) {
	data, err := ruleFiles.ReadFile("rules/categories.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to read device rule database: %w", err)
	}

	var db ruleDatabase
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse device rule database: %w", err)
	}

	c := &classifier{rules: db.Categories}
	for _, rule := range db.Categories {
		re, err := pcre.Compile(rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile device rule %q: %w", rule.Regex, err)
		}
		c.compiled = append(c.compiled, re)
	}
	return c, nil
}

func (c *classifier) classify(deviceType string) string {
	normalized := strings.ToLower(strings.TrimSpace(deviceType))
	if normalized == "" {
		return Unknown
	}

	// Exact canonical names short-circuit the rule scan
	switch normalized {
	case Desktop, Mobile, Tablet:
		return normalized
	}

	for i, re := range c.compiled {
		if re.MatchString(normalized) {
			return c.rules[i].Category
		}
	}
	return Unknown
}

// Classify maps a raw device-type string to desktop, mobile or tablet.
// Unrecognized or empty input returns Unknown.
func Classify(deviceType string) string {
	c, err := getClassifier()
	if err != nil {
		// A broken embedded database is a build defect; treat everything
		// as unclassifiable rather than guessing.
		return Unknown
	}
	return c.classify(deviceType)
}
