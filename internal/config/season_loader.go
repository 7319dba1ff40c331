package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

type StatPrior struct {
	Mean float64 `yaml:"mean"`
	Var  float64 `yaml:"var"`
}

type SeasonPriors struct {
	Stats map[string]StatPrior `yaml:"stats"`
}

// SeasonsFile is the on-disk shape of SEASONS_CONFIG_PATH:
//
//	seasons:
//	  2017:
//	    stats:
//	      score: {mean: 55, var: 1000}
type SeasonsFile struct {
	Seasons map[int]SeasonPriors `yaml:"seasons"`
}

func LoadSeasonPriors(path string) (SeasonsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeasonsFile{}, fmt.Errorf("read season priors: %w", err)
	}

	var sf SeasonsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return SeasonsFile{}, fmt.Errorf("parse season priors: %w", err)
	}

	if err := sf.Validate(rules.Default()); err != nil {
		return SeasonsFile{}, err
	}
	return sf, nil
}

// Validate rejects unknown seasons, unknown statistics and negative
// variances; a bad file is a config defect, not something to run with.
func (sf SeasonsFile) Validate(table rules.Table) error {
	for year, sp := range sf.Seasons {
		season, ok := table.Lookup(year)
		if !ok {
			return fmt.Errorf("season priors: unsupported season %d", year)
		}
		for name, p := range sp.Stats {
			if !hasStat(season, name) {
				return fmt.Errorf("season priors: season %d has no statistic %q", year, name)
			}
			if p.Var < 0 {
				return fmt.Errorf("season priors: %d/%s variance %v is negative", year, name, p.Var)
			}
		}
	}
	return nil
}

// Overrides converts the file into the rules table's override shape.
func (sf SeasonsFile) Overrides() map[int]map[string]rules.Prior {
	out := make(map[int]map[string]rules.Prior, len(sf.Seasons))
	for year, sp := range sf.Seasons {
		m := make(map[string]rules.Prior, len(sp.Stats))
		for name, p := range sp.Stats {
			m[name] = rules.Prior{Mean: p.Mean, Var: p.Var}
		}
		out[year] = m
	}
	return out
}

// Table loads path (if set) and applies it to the built-in season table.
func Table(path string) (rules.Table, error) {
	if path == "" {
		return rules.Default(), nil
	}
	sf, err := LoadSeasonPriors(path)
	if err != nil {
		return rules.Table{}, err
	}
	return rules.Default().WithPriors(sf.Overrides()), nil
}

func hasStat(s rules.Season, name string) bool {
	for _, st := range s.Stats {
		if st.Name == name {
			return true
		}
	}
	return false
}
