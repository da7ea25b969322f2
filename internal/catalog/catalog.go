// Package catalog describes the instruments the bot knows how to render.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Section string

const (
	SectionFiat   Section = "fiat"
	SectionGold   Section = "gold"
	SectionCrypto Section = "crypto"

	// DefaultMarker is used for symbols missing from the catalog.
	DefaultMarker = "•"
)

//go:embed symbols.yaml
var embedded []byte

type Instrument struct {
	Symbol      string            `yaml:"symbol"`
	Aliases     []string          `yaml:"aliases"`
	Section     Section           `yaml:"section"`
	Marker      string            `yaml:"marker"`
	Names       map[string]string `yaml:"names"`
	USDQuoted   bool              `yaml:"usd_quoted"`
	Dual        bool              `yaml:"dual"`
	CoinGeckoID string            `yaml:"coingecko_id"`
}

// Name falls back to English, then to the symbol itself.
func (i Instrument) Name(lang string) string {
	if name := i.Names[lang]; name != "" {
		return name
	}
	if name := i.Names["en"]; name != "" {
		return name
	}
	return i.Symbol
}

type Catalog struct {
	instruments map[string]Instrument
	aliases     map[string]string
	order       []string
}

// Load parses a YAML list of instruments.
func Load(data []byte) (*Catalog, error) {
	var list []Instrument
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		instruments: make(map[string]Instrument, len(list)),
		aliases:     make(map[string]string),
	}
	for _, inst := range list {
		inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
		if inst.Symbol == "" {
			return nil, fmt.Errorf("catalog entry without symbol")
		}
		if _, dup := c.instruments[inst.Symbol]; dup {
			return nil, fmt.Errorf("duplicate catalog symbol %s", inst.Symbol)
		}
		switch inst.Section {
		case SectionFiat, SectionGold, SectionCrypto:
		default:
			return nil, fmt.Errorf("symbol %s has unknown section %q", inst.Symbol, inst.Section)
		}
		if inst.Marker == "" {
			inst.Marker = DefaultMarker
		}
		for _, alias := range inst.Aliases {
			key := strings.ToUpper(strings.TrimSpace(alias))
			if owner, taken := c.aliases[key]; taken && owner != inst.Symbol {
				return nil, fmt.Errorf("alias %s used by %s and %s", key, owner, inst.Symbol)
			}
			c.aliases[key] = inst.Symbol
		}
		c.instruments[inst.Symbol] = inst
		c.order = append(c.order, inst.Symbol)
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Load(embedded)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(symbol string) (Instrument, bool) {
	inst, ok := c.instruments[strings.ToUpper(symbol)]
	return inst, ok
}

// Instrument never fails: unknown symbols get the default marker and
// their own symbol as name.
func (c *Catalog) Instrument(symbol string) Instrument {
	if inst, ok := c.Lookup(symbol); ok {
		return inst
	}
	return Instrument{Symbol: strings.ToUpper(symbol), Marker: DefaultMarker}
}

// Resolve maps a currency vendor slug to its canonical symbol.
// Unknown slugs are returned uppercased.
func (c *Catalog) Resolve(slug string) string {
	key := strings.ToUpper(strings.TrimSpace(slug))
	if symbol, ok := c.aliases[key]; ok {
		return symbol
	}
	return key
}

func (c *Catalog) USDQuoted(symbol string) bool {
	inst, ok := c.Lookup(symbol)
	return ok && inst.USDQuoted
}

// Symbols lists a section in catalog order.
func (c *Catalog) Symbols(section Section) []string {
	var out []string
	for _, symbol := range c.order {
		if c.instruments[symbol].Section == section {
			out = append(out, symbol)
		}
	}
	return out
}

// CoinGeckoIDs maps the given symbols to CoinGecko coin ids, skipping
// symbols without one.
func (c *Catalog) CoinGeckoIDs(symbols []string) map[string]string {
	ids := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		if inst, ok := c.Lookup(symbol); ok && inst.CoinGeckoID != "" {
			ids[inst.Symbol] = inst.CoinGeckoID
		}
	}
	return ids
}
