package physics

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// mappingFile is the on-disk shape of a class mapping:
//
//	classes:
//	  1: A1
//	  2: Ac
//	  3: Ah
//	  4: Af
type mappingFile struct {
	Classes map[int]string `yaml:"classes"`
}

// LoadMapping reads a label-to-class table from a YAML file.
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, errors.Wrapf(err, "failed to read class mapping %s", path)
	}

	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Mapping{}, errors.Wrapf(err, "failed to parse class mapping %s", path)
	}
	if len(file.Classes) == 0 {
		return Mapping{}, errors.Errorf("class mapping %s defines no classes", path)
	}

	classes := make(map[int]ClassKey, len(file.Classes))
	for label, name := range file.Classes {
		ck, ok := ClassByName(name)
		if !ok {
			return Mapping{}, errors.Errorf("class mapping %s: label %d refers to unknown class %q", path, label, name)
		}
		classes[label] = ck
	}
	return NewMapping(classes), nil
}
