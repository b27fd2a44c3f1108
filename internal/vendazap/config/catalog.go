package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona describes who the bot presents itself as. Static for the process
// lifetime.
type Persona struct {
	// Name is the first name the bot signs with.
	Name string `yaml:"name"`
	// Brand is the shop or brand the bot sells for.
	Brand string `yaml:"brand"`
	// City anchors the persona geographically ("atendo aqui de São Paulo").
	City string `yaml:"city"`
	// NeverRevealAutomation, when true, adds a hard prompt rule forbidding
	// the model from disclosing that the attendant is automated.
	NeverRevealAutomation bool `yaml:"never_reveal_automation"`
}

// Delivery is the promised delivery window in business days.
type Delivery struct {
	MinDays int `yaml:"min_days"`
	MaxDays int `yaml:"max_days"`
}

// Tier is one purchasable quantity option.
type Tier struct {
	CheckoutURL string `yaml:"checkout_url"`
}

// Product is one catalog entry. Static for the process lifetime.
type Product struct {
	Name          string          `yaml:"name"`
	Synonyms      []string        `yaml:"synonyms"`
	Benefits      []string        `yaml:"benefits"`
	Differentials []string        `yaml:"differentials"`
	Delivery      Delivery        `yaml:"delivery"`
	Tiers         map[string]Tier `yaml:"tiers"`
	DefaultTier   string          `yaml:"default_tier"`
}

// DefaultCheckoutURL returns the checkout link of the default tier, or any
// tier when the default is unset/unknown, or "" when the product has no
// tiers at all.
func (p Product) DefaultCheckoutURL() string {
	if t, ok := p.Tiers[p.DefaultTier]; ok && t.CheckoutURL != "" {
		return t.CheckoutURL
	}
	for _, t := range p.Tiers {
		if t.CheckoutURL != "" {
			return t.CheckoutURL
		}
	}
	return ""
}

// Catalog is the external declarative document: a persona block plus one or
// more products keyed by slug.
type Catalog struct {
	DefaultProduct string             `yaml:"default_product"`
	Persona        *Persona           `yaml:"persona"`
	Products       map[string]Product `yaml:"products"`
}

// LoadCatalog reads and validates the YAML catalog at path. It is the
// canonical entry point for loading catalog documents; callers treat any
// error as "fall back to built-in defaults".
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog read: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog YAML document and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks a Catalog for structural correctness. It returns the first
// validation error encountered, or nil if the catalog is valid.
func (c *Catalog) Validate() error {
	if len(c.Products) == 0 {
		return fmt.Errorf("catalog: products must not be empty")
	}

	if c.DefaultProduct != "" {
		if _, ok := c.Products[c.DefaultProduct]; !ok {
			return fmt.Errorf("catalog: default_product %q is not a product key", c.DefaultProduct)
		}
	}

	for key, p := range c.Products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("catalog: products[%s]: name must not be empty", key)
		}
		if p.Delivery.MinDays < 0 || p.Delivery.MaxDays < p.Delivery.MinDays {
			return fmt.Errorf("catalog: products[%s]: invalid delivery window %d–%d",
				key, p.Delivery.MinDays, p.Delivery.MaxDays)
		}
		if p.DefaultTier != "" {
			if _, ok := p.Tiers[p.DefaultTier]; !ok {
				return fmt.Errorf("catalog: products[%s]: default_tier %q is not a tier key", key, p.DefaultTier)
			}
		}
		for tier, t := range p.Tiers {
			if strings.TrimSpace(t.CheckoutURL) == "" {
				return fmt.Errorf("catalog: products[%s]: tiers[%s]: checkout_url must not be empty", key, tier)
			}
		}
	}

	if c.Persona != nil && strings.TrimSpace(c.Persona.Name) == "" {
		return fmt.Errorf("catalog: persona.name must not be empty when a persona block is present")
	}

	return nil
}

// DefaultPersona returns the built-in persona used when no catalog is
// configured or the document is unusable.
func DefaultPersona() Persona {
	return Persona{
		Name:                  "Camila",
		Brand:                 "Espaço Bella Hair",
		City:                  "São Paulo",
		NeverRevealAutomation: true,
	}
}

// DefaultProduct returns the built-in minimal product. It keeps the bot
// functional when the catalog document is absent or malformed.
func DefaultProduct() Product {
	return Product{
		Name: "Progressiva Vegetal Bella Liss",
		Synonyms: []string{
			"progressiva",
			"progressiva vegetal",
			"alisamento",
			"escova progressiva",
		},
		Benefits: []string{
			"alisa e hidrata sem formol",
			"resultado desde a primeira aplicação",
			"brilho de salão em casa",
		},
		Differentials: []string{
			"não arde e não tem cheiro forte",
			"rende até 3 aplicações",
		},
		Delivery: Delivery{MinDays: 1, MaxDays: 3},
		Tiers: map[string]Tier{
			"1": {CheckoutURL: "https://pagamento.bellaliss.com.br/progressiva/1-unidade"},
			"2": {CheckoutURL: "https://pagamento.bellaliss.com.br/progressiva/2-unidades"},
			"3": {CheckoutURL: "https://pagamento.bellaliss.com.br/progressiva/3-unidades"},
		},
		DefaultTier: "1",
	}
}
