package app

import (
	"github.com/BurntSushi/toml"

	"git.tatikoma.dev/corpix/strand/errors"
)

type Config interface {
	FromFile(path string) error
}

// LoadToml decodes the TOML file at path into v. Concrete configs
// implement FromFile with it.
func LoadToml(path string, v any) error {
	_, err := toml.DecodeFile(path, v)
	return errors.Wrapf(err, "failed to load toml config from %q", path)
}
