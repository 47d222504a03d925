package memory

import (
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// Seed is the catalog and stand layout loaded into a fresh store.
type Seed struct {
	Events    []domain.Event   `json:"eventos"`
	Companies []domain.Company `json:"empresas"`
	Stands    []domain.Stand   `json:"stands"`
}

// LoadSeed reads a YAML seed file. Field names follow the JSON API.
func LoadSeed(path string) (*Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}

	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return nil, fmt.Errorf("encode seed %s: %w", path, err)
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}

	return &seed, nil
}

func (s *Store) Apply(seed *Seed) {
	for _, e := range seed.Events {
		s.AddEvent(e)
	}

	for _, c := range seed.Companies {
		s.AddCompany(c)
	}

	for _, st := range seed.Stands {
		s.AddStand(st)
	}
}
