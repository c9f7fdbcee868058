package analyzer

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed semantics.yaml
var semanticsYAML []byte

type semanticFamily struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type semanticsTable struct {
	Categories    []semanticFamily    `yaml:"categories"`
	Abbreviations map[string][]string `yaml:"abbreviations"`
}

var semantics = mustLoadSemantics()

func mustLoadSemantics() semanticsTable {
	var t semanticsTable
	if err := yaml.Unmarshal(semanticsYAML, &t); err != nil {
		panic(fmt.Sprintf("analyzer: bad semantics table: %v", err))
	}
	return t
}

// categorize assigns the first keyword family with a hit across the field
// name and its sample values. Fields matching no family fall back to the
// descriptive catch-all.
func categorize(fieldName string, samples []string) string {
	parts := []string{strings.ToLower(fieldName)}
	for _, s := range samples {
		if !IsEmptyValue(s) {
			parts = append(parts, strings.ToLower(s))
		}
	}
	joined := strings.Join(parts, " ")

	for _, fam := range semantics.Categories {
		for _, kw := range fam.Keywords {
			if strings.Contains(joined, kw) {
				return fam.Name
			}
		}
	}
	return "descriptive"
}
