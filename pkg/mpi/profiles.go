package mpi

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WeightProfile is a named set of per-field weights plus the two score
// thresholds that partition candidates into tiers. Scores and thresholds are
// on a 0-100 scale.
type WeightProfile struct {
	Name               string             `yaml:"name" json:"name"`
	Weights            map[string]float64 `yaml:"weights" json:"weights"`
	ConfidentThreshold float64            `yaml:"confidentThreshold" json:"confidentThreshold"`
	PossibleThreshold  float64            `yaml:"possibleThreshold" json:"possibleThreshold"`
}

func (p WeightProfile) validate() error {
	if p.ConfidentThreshold <= p.PossibleThreshold {
		return fmt.Errorf("profile %s: confident threshold %.1f must exceed possible threshold %.1f",
			p.Name, p.ConfidentThreshold, p.PossibleThreshold)
	}
	for field, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("profile %s: negative weight %.2f for field %s", p.Name, w, field)
		}
	}
	return nil
}

// Registry resolves weight profiles by name. Profiles are validated once at
// load time; Get never returns an invalid profile.
type Registry struct {
	profiles map[string]WeightProfile
}

const (
	ProfileDefault = "default"
	ProfileScanned = "scanned"
	ProfileMinimal = "minimal"
)

// DefaultRegistry carries the built-in profiles. The scanned profile trusts
// documento heavily: machine-read ID scans are reliable on the document
// number and noisy on free-text name fields. The minimal profile relaxes the
// cutoffs for suggest mode.
func DefaultRegistry() *Registry {
	registry := &Registry{profiles: map[string]WeightProfile{}}
	for _, p := range []WeightProfile{
		{
			Name: ProfileDefault,
			Weights: map[string]float64{
				"documento":       0.3,
				"nombre":          0.2,
				"apellido":        0.2,
				"fechaNacimiento": 0.2,
				"sexo":            0.1,
			},
			ConfidentThreshold: 95,
			PossibleThreshold:  80,
		},
		{
			Name: ProfileScanned,
			Weights: map[string]float64{
				"documento":       0.5,
				"nombre":          0.1,
				"apellido":        0.1,
				"fechaNacimiento": 0.2,
				"sexo":            0.1,
			},
			ConfidentThreshold: 95,
			PossibleThreshold:  80,
		},
		{
			Name: ProfileMinimal,
			Weights: map[string]float64{
				"documento":       0.4,
				"nombre":          0.2,
				"apellido":        0.2,
				"fechaNacimiento": 0.1,
				"sexo":            0.1,
			},
			ConfidentThreshold: 90,
			PossibleThreshold:  60,
		},
	} {
		registry.profiles[p.Name] = p
	}
	return registry
}

// LoadRegistry returns the built-in registry overlaid with profiles from the
// YAML file at path, when one is given. File profiles replace built-ins with
// the same name and are rejected if invalid.
func LoadRegistry(path string) (*Registry, error) {
	registry := DefaultRegistry()
	if path == "" {
		return registry, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var file struct {
		Profiles []WeightProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, err
	}

	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile without a name in %s", path)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		registry.profiles[p.Name] = p
	}
	return registry, nil
}

// Get resolves a profile by name.
func (r *Registry) Get(name string) (WeightProfile, error) {
	profile, ok := r.profiles[name]
	if !ok {
		return WeightProfile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return profile, nil
}
