package config

import (
	"fmt"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/emdoc/internal/metadata"
)

// MetadataRules returns the required and informational metadata keys. The
// YAML rules file takes precedence over REQUIRED_METADATA and INFO_METADATA.
func (c Config) MetadataRules() (metadata.Rules, error) {
	if c.MetadataRulesFile == "" {
		return metadata.Rules{Required: c.RequiredMetadata, Informational: c.InfoMetadata}, nil
	}
	return LoadRules(c.MetadataRulesFile)
}

// LoadRules reads a metadata rules file:
//
//	required: [title, description]
//	informational: [crumbs]
func LoadRules(path string) (metadata.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Rules{}, fmt.Errorf("read metadata rules: %w", err)
	}
	var rules metadata.Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return metadata.Rules{}, fmt.Errorf("parse metadata rules %s: %w", path, err)
	}
	return rules, nil
}

// Language parses DOC_LANGUAGE, falling back to English.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.DocLanguage)
	if err != nil {
		return language.English
	}
	return tag
}
