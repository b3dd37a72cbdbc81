package stock

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
)

// catalogueFile is the on-disk layout of a catalogue
//
//	stocks:
//	  - symbol: GIN
//	    type: preferred
//	    last_dividend: 8
//	    fixed_dividend: 0.02
//	    par_value: 100
type catalogueFile struct {
	Stocks []catalogueEntry `yaml:"stocks"`
}

type catalogueEntry struct {
	Symbol        string  `yaml:"symbol"`
	Type          string  `yaml:"type"`
	LastDividend  int     `yaml:"last_dividend"`
	FixedDividend float64 `yaml:"fixed_dividend"`
	ParValue      int     `yaml:"par_value"`
}

// LoadCatalogue reads a YAML catalogue file.
// Unknown fields are rejected so a typo cannot silently drop a value.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	return ParseCatalogue(data)
}

// ParseCatalogue decodes YAML catalogue data
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var file catalogueFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	specs := make([]Spec, 0, len(file.Stocks))
	for i, entry := range file.Stocks {
		kind, err := contracts.ParseStockKind(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("stocks[%d] %q: %w", i, entry.Symbol, err)
		}

		specs = append(specs, Spec{
			Symbol:        entry.Symbol,
			Kind:          kind,
			LastDividend:  entry.LastDividend,
			FixedDividend: entry.FixedDividend,
			ParValue:      entry.ParValue,
		})
	}

	for i, spec := range specs {
		if _, err := New(spec); err != nil {
			return nil, fmt.Errorf("stocks[%d] %q: %w", i, spec.Symbol, err)
		}
	}

	return FromSpecs(specs)
}
