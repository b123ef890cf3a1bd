package rules

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// rulesFile is the on-disk override format. Each present section replaces
// the corresponding default table wholesale; absent sections keep the
// defaults. Regex-based tables (basis patterns, the stated-total pattern)
// are not overridable from file.
type rulesFile struct {
	Categories []struct {
		Category string   `yaml:"category"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
	BasisIndicators     []string `yaml:"basis_indicators"`
	ClaimVerbs          []string `yaml:"claim_verbs"`
	TotalKeywords       []string `yaml:"total_keywords"`
	SharedCategories    []string `yaml:"shared_categories"`
	ExtraDamageKeywords []string `yaml:"extra_damage_keywords"`
}

var knownCategories = map[string]damages.Category{
	string(damages.CategoryMedical):        damages.CategoryMedical,
	string(damages.CategoryTransportation): damages.CategoryTransportation,
	string(damages.CategoryCare):           damages.CategoryCare,
	string(damages.CategoryLostWork):       damages.CategoryLostWork,
	string(damages.CategoryMentalDistress): damages.CategoryMentalDistress,
	string(damages.CategoryVehicleDamage):  damages.CategoryVehicleDamage,
	string(damages.CategoryOther):          damages.CategoryOther,
}

// Load reads a YAML rule override file and applies it on top of Default().
// Tuning keyword tables against a new document corpus must not require a
// rebuild, so keyword semantics live in a file while pattern semantics stay
// in code.
func Load(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRulesInvalid, "failed to read rules file")
	}

	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRulesInvalid, "failed to parse rules file")
	}

	r := Default()

	if len(file.Categories) > 0 {
		categories := make([]CategoryKeywords, 0, len(file.Categories))
		for _, c := range file.Categories {
			cat, ok := knownCategories[c.Category]
			if !ok {
				return nil, errors.Newf(errors.ErrCodeRulesInvalid, "unknown category %q", c.Category)
			}
			if len(c.Keywords) == 0 {
				return nil, errors.Newf(errors.ErrCodeRulesInvalid, "category %q has no keywords", c.Category)
			}
			categories = append(categories, CategoryKeywords{Category: cat, Keywords: c.Keywords})
		}
		r.Categories = categories
		r.DamageKeywords = nil
	}

	if len(file.BasisIndicators) > 0 {
		r.BasisIndicators = file.BasisIndicators
	}
	if len(file.ClaimVerbs) > 0 {
		r.ClaimVerbs = file.ClaimVerbs
	}
	if len(file.TotalKeywords) > 0 {
		r.TotalKeywords = file.TotalKeywords
	}
	if len(file.SharedCategories) > 0 {
		shared := make([]damages.Category, 0, len(file.SharedCategories))
		for _, name := range file.SharedCategories {
			cat, ok := knownCategories[name]
			if !ok {
				return nil, errors.Newf(errors.ErrCodeRulesInvalid, "unknown shared category %q", name)
			}
			shared = append(shared, cat)
		}
		r.SharedCategories = shared
	}

	rebuildDamageKeywords(r, file.ExtraDamageKeywords)
	return r, nil
}

// rebuildDamageKeywords recomputes the fallback vocabulary from the (possibly
// replaced) category tables plus any file-supplied extras.
func rebuildDamageKeywords(r *Rules, extras []string) {
	seen := make(map[string]bool, len(r.DamageKeywords))
	for _, k := range r.DamageKeywords {
		seen[k] = true
	}
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			r.DamageKeywords = append(r.DamageKeywords, k)
		}
	}
	for _, c := range r.Categories {
		for _, k := range c.Keywords {
			add(k)
		}
	}
	for _, k := range []string{"費用", "支出", "花費", "損失", "慰撫金"} {
		add(k)
	}
	for _, k := range extras {
		add(k)
	}
}
