package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Templates maps a document class to its reminder-message template. Templates
// use {COLUMN} placeholders resolved against the extracted record, e.g.
// {NASABAH} and {UANG_PINJAMAN}.
type Templates map[string]string

// Fields declares, per document class, which columns the parsing stage must
// carry into the extracted output.
type Fields map[string][]string

// LoadTemplates reads templates.json from the config directory.
func LoadTemplates(configDir string) (Templates, error) {
	var t Templates
	if err := loadJSON(filepath.Join(configDir, "templates.json"), &t); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveTemplates writes templates.json back, for the dashboard's template
// editor.
func SaveTemplates(configDir string, t Templates) error {
	return saveJSON(filepath.Join(configDir, "templates.json"), t)
}

// LoadFields reads struktur_fields.json from the config directory.
func LoadFields(configDir string) (Fields, error) {
	var f Fields
	if err := loadJSON(filepath.Join(configDir, "struktur_fields.json"), &f); err != nil {
		return nil, err
	}
	return f, nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file not found: %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
