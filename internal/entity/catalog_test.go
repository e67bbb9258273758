package entity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFilesYieldEmptyCategories(t *testing.T) {
	dir := t.TempDir()
	c := Load(dir, DefaultBoosts)

	if len(c.Persons.KnownPersons) != 0 {
		t.Errorf("expected empty persons, got %v", c.Persons.KnownPersons)
	}
	if len(c.Organizations.values) != 0 {
		t.Errorf("expected empty organizations, got %v", c.Organizations.values)
	}
	if c.Extract("anything") != nil {
		t.Errorf("expected no extraction against empty catalogue")
	}
}

func TestLoad_ValidPersonsFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"known_persons": ["B Ravi"],
		"name_formats": [{"pattern": "^prof\\.?\\s+", "replacement": ""}],
		"transliterations": {}
	}`
	if err := os.WriteFile(filepath.Join(dir, "persons.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Load(dir, DefaultBoosts)
	if !c.IsKnownPerson("B Ravi") {
		t.Error("expected B Ravi to be a known person")
	}
}

func TestLoad_BoostTable(t *testing.T) {
	dir := t.TempDir()
	c := Load(dir, DefaultBoosts)
	if c.BoostTable["PERSON"] != DefaultBoosts.Person {
		t.Errorf("BoostTable[PERSON] = %v, want %v", c.BoostTable["PERSON"], DefaultBoosts.Person)
	}
}
