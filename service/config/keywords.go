package config

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Keywords maps each alert category to the label substrings that select it.
type Keywords struct {
	Fire  []string `yaml:"fire"`
	Smoke []string `yaml:"smoke"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Fire:  []string{"fire", "fogo", "flame", "chama"},
		Smoke: []string{"smoke", "fumaca", "fog", "smoke_cloud", "neblina"},
	}
}

// LoadKeywords reads a keyword table from a YAML file. A missing file yields
// the defaults; an empty list in the file keeps the default for that category.
func LoadKeywords(path string) (Keywords, error) {
	def := DefaultKeywords()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return def, nil
	}
	if err != nil {
		return def, xerrors.Errorf("reading keywords %s: %w", path, err)
	}

	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return def, xerrors.Errorf("parsing keywords %s: %w", path, err)
	}

	if len(kw.Fire) == 0 {
		kw.Fire = def.Fire
	}
	if len(kw.Smoke) == 0 {
		kw.Smoke = def.Smoke
	}
	return kw, nil
}
