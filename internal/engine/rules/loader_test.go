package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadReplacesCategoryTable(t *testing.T) {
	path := writeRules(t, `
categories:
  - category: medical
    keywords: ["門診", "住院費"]
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := r.CategoryFor("原告支出門診費用"); got != damages.CategoryMedical {
		t.Errorf("CategoryFor = %q, want medical", got)
	}
	// The default medical keywords are gone.
	if got := r.CategoryFor("原告支出復健費用"); got != damages.CategoryOther {
		t.Errorf("CategoryFor = %q, want other", got)
	}
	// The fallback vocabulary is rebuilt from the new table.
	if !r.HasDamageKeyword("住院費") {
		t.Error("HasDamageKeyword(住院費) = false, want true")
	}
}

func TestLoadKeepsDefaultsForAbsentSections(t *testing.T) {
	path := writeRules(t, `
extra_damage_keywords: ["殯葬"]
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := r.CategoryFor("醫療費用"); got != damages.CategoryMedical {
		t.Errorf("CategoryFor = %q, want medical", got)
	}
	if !r.IsSharedCategory(damages.CategoryCare) {
		t.Error("IsSharedCategory(care) = false, want true")
	}
	if !r.HasDamageKeyword("殯葬") {
		t.Error("HasDamageKeyword(殯葬) = false, want true")
	}
}

func TestLoadOverridesSharedCategories(t *testing.T) {
	path := writeRules(t, `
shared_categories: ["medical"]
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.IsSharedCategory(damages.CategoryMedical) {
		t.Error("IsSharedCategory(medical) = false, want true")
	}
	if r.IsSharedCategory(damages.CategoryCare) {
		t.Error("IsSharedCategory(care) = true, want false")
	}
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := writeRules(t, `
categories:
  - category: punitive
    keywords: ["懲罰"]
`)
	_, err := Load(path)
	if !errors.IsCode(err, errors.ErrCodeRulesInvalid) {
		t.Fatalf("Load error = %v, want ENG rules-invalid code", err)
	}
}

func TestLoadRejectsEmptyKeywords(t *testing.T) {
	path := writeRules(t, `
categories:
  - category: medical
    keywords: []
`)
	_, err := Load(path)
	if !errors.IsCode(err, errors.ErrCodeRulesInvalid) {
		t.Fatalf("Load error = %v, want ENG rules-invalid code", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeRules(t, "categories: [unclosed")
	if _, err := Load(path); !errors.IsCode(err, errors.ErrCodeRulesInvalid) {
		t.Fatalf("Load error = %v, want ENG rules-invalid code", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !errors.IsCode(err, errors.ErrCodeRulesInvalid) {
		t.Fatalf("Load error = %v, want ENG rules-invalid code", err)
	}
}
