package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Plan is a purchasable promotion package.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TargetType   string `json:"target_type"`
	DurationDays int    `json:"duration_days"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

type PlansFile struct {
	Plans []Plan `json:"plans"`
}

type Catalog struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

func New() *Catalog {
	return &Catalog{
		plans: make(map[string]*Plan),
	}
}

func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read promotion plans: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file PlansFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse promotion plans: %w", err)
	}

	c := New()
	for i := range file.Plans {
		if err := c.Register(&file.Plans[i]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) Register(p *Plan) error {
	switch {
	case p.ID == "":
		return errors.New("plan id is required")
	case p.TargetType != "ad" && p.TargetType != "company":
		return fmt.Errorf("plan %s: target_type must be ad or company", p.ID)
	case p.DurationDays <= 0:
		return fmt.Errorf("plan %s: duration_days must be positive", p.ID)
	case p.AmountCents <= 0:
		return fmt.Errorf("plan %s: amount_cents must be positive", p.ID)
	}
	if p.Currency == "" {
		p.Currency = "eur"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[p.ID] = p
	return nil
}

func (c *Catalog) Get(id string) *Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plans[id]
}

func (c *Catalog) Exists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.plans[id]
	return ok
}

// All returns plans ordered by target type, then price.
func (c *Catalog) All() []*Plan {
	c.mu.RLock()
	result := make([]*Plan, 0, len(c.plans))
	for _, p := range c.plans {
		result = append(result, p)
	}
	c.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].TargetType != result[j].TargetType {
			return result[i].TargetType < result[j].TargetType
		}
		return result[i].AmountCents < result[j].AmountCents
	})
	return result
}
