// Package prefs keeps display preferences that live outside the ledger.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Lang string

const (
	LangEN Lang = "en"
	LangID Lang = "id"
)

// Prefs is the on-disk preference file.
type Prefs struct {
	Theme Theme `yaml:"theme"`
	Lang  Lang  `yaml:"lang"`
}

func Default() *Prefs {
	return &Prefs{Theme: ThemeLight, Lang: LangEN}
}

// Validate rejects unknown themes and languages.
func (p *Prefs) Validate() error {
	var errs []error
	if p.Theme != ThemeLight && p.Theme != ThemeDark {
		errs = append(errs, fmt.Errorf("theme must be light or dark, got %q", p.Theme))
	}
	if p.Lang != LangEN && p.Lang != LangID {
		errs = append(errs, fmt.Errorf("lang must be en or id, got %q", p.Lang))
	}
	return errors.Join(errs...)
}

// Tag is the language tag used for number formatting.
func (p *Prefs) Tag() language.Tag {
	if p.Lang == LangID {
		return language.Indonesian
	}
	return language.English
}

// Load reads the preference file. A missing file yields Default; empty
// fields fall back to the defaults.
func Load(path string) (*Prefs, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing prefs: %w", err)
	}
	if p.Theme == "" {
		p.Theme = ThemeLight
	}
	if p.Lang == "" {
		p.Lang = LangEN
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prefs %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path, creating the directory if needed.
func Save(path string, p *Prefs) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating prefs directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}
