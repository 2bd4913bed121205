package quest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
)

// Template is a read-only quest blueprint. Templates are catalog
// content loaded once at startup and never mutated afterwards.
type Template struct {
	TemplateID     string  `json:"template_id"`
	QuestType      string  `json:"quest_type"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	RewardType     string  `json:"reward_type"`
	RewardSpec     string  `json:"reward_spec"`
	ProgressTarget int     `json:"progress_target"`
	Icon           string  `json:"icon"`
	ExpiresInHours int     `json:"expires_in_hours"` // 0 = never expires
	CooldownMin    int     `json:"cooldown_minutes"` // 0 = no cooldown
	MaxPerDay      int     `json:"max_per_day"`      // 0 = uncapped
	Category       string  `json:"category"`
	RarityWeight   float64 `json:"rarity_weight"`
}

// Catalog holds the immutable template set. Safe for concurrent reads;
// it is never mutated after construction.
type Catalog struct {
	templates   []*Template
	byID        map[string]*Template
	totalWeight float64
}

var ErrEmptyCatalog = errors.New("quest: catalog is empty")

// NewCatalog builds a catalog from the given templates.
// Templates with a non-positive rarity weight or target are rejected.
func NewCatalog(templates []*Template) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if t.TemplateID == "" || t.QuestType == "" {
			return nil, fmt.Errorf("quest: template missing id or type: %+v", t)
		}
		if t.ProgressTarget < 1 {
			return nil, fmt.Errorf("quest: template %s: progress_target must be >= 1", t.TemplateID)
		}
		if t.RarityWeight <= 0 {
			return nil, fmt.Errorf("quest: template %s: rarity_weight must be positive", t.TemplateID)
		}
		if _, dup := c.byID[t.TemplateID]; dup {
			return nil, fmt.Errorf("quest: duplicate template id %s", t.TemplateID)
		}
		c.templates = append(c.templates, t)
		c.byID[t.TemplateID] = t
		c.totalWeight += t.RarityWeight
	}
	return c, nil
}

// LoadCatalog reads a template list from a JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quest: read catalog: %w", err)
	}
	var templates []*Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("quest: parse catalog: %w", err)
	}
	return NewCatalog(templates)
}

// LookupByID returns the template with the given id, or nil.
func (c *Catalog) LookupByID(templateID string) *Template {
	return c.byID[templateID]
}

// RandomByRarity draws one template with probability proportional to
// its rarity weight (cumulative-weight draw over [0, totalWeight)).
func (c *Catalog) RandomByRarity() (*Template, error) {
	if len(c.templates) == 0 {
		return nil, ErrEmptyCatalog
	}
	r := rand.Float64() * c.totalWeight
	for _, t := range c.templates {
		r -= t.RarityWeight
		if r < 0 {
			return t, nil
		}
	}
	// Float rounding can leave r at exactly 0 after the last subtraction.
	return c.templates[len(c.templates)-1], nil
}

// ByCategory returns all templates in the given category.
func (c *Catalog) ByCategory(category string) []*Template {
	var out []*Template
	for _, t := range c.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of templates in the catalog.
func (c *Catalog) Len() int { return len(c.templates) }
