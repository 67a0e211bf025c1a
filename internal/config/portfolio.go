package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/fracarlesi/piano-excel-sub003/internal/product"
)

// PortfolioFile is the on-disk layout of a portfolio:
//
//	products:
//	  - id: sme_loans
//	    division: corporate
//	    volumes: [100, 120, 150]
type PortfolioFile struct {
	Products []product.Input `mapstructure:"products" yaml:"products" json:"products"`
}

// LoadPortfolio reads the product inputs from a YAML or JSON file. The
// inputs are returned as written; product.ResolveAll applies defaults and
// validation.
func LoadPortfolio(path string) ([]product.Input, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading portfolio %s: %w", path, err)
	}
	var pf PortfolioFile
	if err := v.Unmarshal(&pf); err != nil {
		return nil, fmt.Errorf("error decoding portfolio %s: %w", path, err)
	}
	if len(pf.Products) == 0 {
		return nil, fmt.Errorf("portfolio %s: no products", path)
	}
	return pf.Products, nil
}
