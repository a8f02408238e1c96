package filter

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// LoadRules reads block options from a YAML file such as:
//
//	top: true
//	colorful: false
//	keywords:
//	  - "^233+$"
func LoadRules(path string) (Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrap(err, "read block rules")
	}
	var opts Options
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "parse block rules %s", path)
	}
	return opts, nil
}
