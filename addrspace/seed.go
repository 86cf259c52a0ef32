package addrspace

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

// NodeSpec declares one node of a seed. A spec without type and value
// only creates the branch path.
type NodeSpec struct {
	Quality     *uint16  `yaml:"quality,omitempty"`
	EULow       *float64 `yaml:"eu_low,omitempty" validate:"required_with=EUHigh"`
	EUHigh      *float64 `yaml:"eu_high,omitempty" validate:"required_with=EULow"`
	Path        string   `yaml:"path" validate:"required"`
	Type        string   `yaml:"type,omitempty" validate:"omitempty,vartype"`
	Value       string   `yaml:"value,omitempty"`
	Access      string   `yaml:"access,omitempty" validate:"omitempty,oneof=r w rw none"`
	Description string   `yaml:"description,omitempty"`
}

// Seed is the YAML form of an address space.
type Seed struct {
	Separator string     `yaml:"separator,omitempty" validate:"omitempty,max=4"`
	Nodes     []NodeSpec `yaml:"nodes" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the "vartype" tag, which accepts the names
// understood by com.VTByName, to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("vartype", func(fl validator.FieldLevel) bool {
		vt, err := com.VTByName(fl.Field().String())
		return err == nil && com.Supported(vt)
	})
}

// ParseSeed decodes and validates a YAML seed.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode address space seed")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read address space seed")
	}
	return ParseSeed(data)
}

// Validate checks the seed's struct tags.
func (s *Seed) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "invalid address space seed")
	}
	return nil
}

// FromSeed builds a space from a seed.
func FromSeed(seed *Seed, opts ...Option) (*Space, error) {
	if seed.Separator != "" {
		opts = append([]Option{WithSeparator(seed.Separator)}, opts...)
	}
	s := New(opts...)
	if err := s.Apply(seed.Nodes); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply creates or updates the nodes in specs. Existing nodes keep
// their identity, so items bound to them see the new values.
func (s *Space) Apply(specs []NodeSpec) error {
	for _, spec := range specs {
		if err := s.apply(spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Space) apply(spec NodeSpec) error {
	n, err := s.Ensure(spec.Path)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return errors.InvalidArgument(errors.PhaseConfig, []string{"path"}, "seed node path is empty")
	}

	if spec.Type != "" || spec.Value != "" {
		vt := com.VT_BSTR
		if spec.Type != "" {
			if vt, err = com.VTByName(spec.Type); err != nil {
				return err
			}
		}
		v, err := com.ParseVariant(vt, spec.Value)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, spec.Path)
		}
		quality := da.QualityGood
		if spec.Quality != nil {
			quality = *spec.Quality
		}
		if err := n.SetCanonicalType(vt); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, spec.Path)
		}
		n.Update(v, quality, s.now())
	}

	switch spec.Access {
	case "r":
		n.SetAccessRights(da.AccessReadable)
	case "w":
		n.SetAccessRights(da.AccessWriteable)
	case "rw":
		n.SetAccessRights(da.AccessReadable | da.AccessWriteable)
	case "none":
		n.SetAccessRights(0)
	}
	if spec.Description != "" {
		n.SetDescription(spec.Description)
	}
	if spec.EULow != nil && spec.EUHigh != nil {
		if err := n.SetEURange(*spec.EULow, *spec.EUHigh); err != nil {
			return err
		}
	}
	return nil
}
