// Package repositories holds the statute graph access layer. The graph has
// two node labels: DamageCategory and Statute, joined by GROUNDED_ON edges.
package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	driver "github.com/caselens/claimsift/internal/infrastructure/database/neo4j"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Statute is one Civil Code article grounding a damage category.
type Statute struct {
	Code    string `json:"code"`
	Article string `json:"article"`
	Title   string `json:"title"`
}

// Citation renders the statute the way briefs cite it.
func (s Statute) Citation() string {
	return s.Code + "第" + s.Article + "條"
}

// StatuteRepository resolves which articles ground each damage category.
type StatuteRepository interface {
	// StatutesFor returns the articles grounding a category, most specific
	// first. An unknown category yields the general tort article only.
	StatutesFor(ctx context.Context, category damages.Category) ([]Statute, error)
	// EnsureGraph seeds the category and statute nodes. Idempotent.
	EnsureGraph(ctx context.Context) error
}

type statuteRepo struct {
	driver driver.DriverInterface
	logger logging.Logger
}

// NewStatuteRepository builds the repository on a connected driver.
func NewStatuteRepository(d driver.DriverInterface, logger logging.Logger) StatuteRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &statuteRepo{driver: d, logger: logger}
}

const statutesForQuery = `
MATCH (c:DamageCategory {name: $category})-[:GROUNDED_ON]->(s:Statute)
RETURN s.code AS code, s.article AS article, s.title AS title
ORDER BY s.article`

func (r *statuteRepo) StatutesFor(ctx context.Context, category damages.Category) ([]Statute, error) {
	result, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, statutesForQuery, map[string]any{"category": string(category)})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, res, recordToStatute)
	})
	if err != nil {
		return nil, err
	}

	statutes := result.([]Statute)
	if len(statutes) == 0 {
		// Every tort claim rests on the general provision.
		return []Statute{generalTort}, nil
	}
	return statutes, nil
}

func recordToStatute(rec *neo4j.Record) (Statute, error) {
	var s Statute
	var ok bool
	if s.Code, ok = rec.Values[0].(string); !ok {
		return s, errors.New(errors.ErrCodeGraphQueryFailed, "statute record missing code")
	}
	if s.Article, ok = rec.Values[1].(string); !ok {
		return s, errors.New(errors.ErrCodeGraphQueryFailed, "statute record missing article")
	}
	s.Title, _ = rec.Values[2].(string)
	return s, nil
}

var generalTort = Statute{Code: "民法", Article: "184", Title: "侵權行為之損害賠償責任"}

// statuteSeed is the full statute node set.
var statuteSeed = []Statute{
	generalTort,
	{Code: "民法", Article: "191-2", Title: "動力車輛駕駛人之賠償責任"},
	{Code: "民法", Article: "193", Title: "侵害身體健康之財產上損害賠償"},
	{Code: "民法", Article: "195", Title: "非財產上之損害賠償"},
}

// categorySeed maps each damage category to the articles grounding it.
// Bodily-injury expense heads rest on §193, solatium on §195, and property
// damage from traffic accidents on §191-2; §184 grounds everything.
var categorySeed = map[damages.Category][]string{
	damages.CategoryMedical:        {"184", "193"},
	damages.CategoryTransportation: {"184", "193"},
	damages.CategoryCare:           {"184", "193"},
	damages.CategoryLostWork:       {"184", "193"},
	damages.CategoryMentalDistress: {"184", "195"},
	damages.CategoryVehicleDamage:  {"184", "191-2"},
	damages.CategoryOther:          {"184"},
}

const mergeStatuteQuery = `
MERGE (s:Statute {code: $code, article: $article})
SET s.title = $title`

const mergeGroundingQuery = `
MERGE (c:DamageCategory {name: $category})
WITH c
MATCH (s:Statute {code: '民法', article: $article})
MERGE (c)-[:GROUNDED_ON]->(s)`

func (r *statuteRepo) EnsureGraph(ctx context.Context) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		for _, s := range statuteSeed {
			if _, err := tx.Run(ctx, mergeStatuteQuery, map[string]any{
				"code": s.Code, "article": s.Article, "title": s.Title,
			}); err != nil {
				return nil, err
			}
		}
		for category, articles := range categorySeed {
			for _, article := range articles {
				if _, err := tx.Run(ctx, mergeGroundingQuery, map[string]any{
					"category": string(category), "article": article,
				}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("statute graph seeded",
		logging.Int("statutes", len(statuteSeed)),
		logging.Int("categories", len(categorySeed)))
	return nil
}
