package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/mailbox"
	"github.com/wippyai/opc-classic/server"
)

// Config is the configuration of an opcda host.
type Config struct {
	Server       Server       `yaml:"server"`
	AddressSpace AddressSpace `yaml:"address_space"`
	Mailbox      Mailbox      `yaml:"mailbox"`
	Client       Client       `yaml:"client"`
	Log          Log          `yaml:"log"`
	Telemetry    Telemetry    `yaml:"telemetry"`
}

// Server configures the in-memory server class.
type Server struct {
	// CLSID is the class id in any form com.ParseGUID accepts. Empty
	// selects a random one at registration.
	CLSID           string   `yaml:"clsid,omitempty" validate:"omitempty,guid"`
	ProgID          string   `yaml:"prog_id,omitempty" validate:"omitempty,max=39"`
	VendorInfo      string   `yaml:"vendor_info,omitempty"`
	MajorVersion    uint16   `yaml:"major_version"`
	MinorVersion    uint16   `yaml:"minor_version"`
	BuildNumber     uint16   `yaml:"build_number"`
	Locales         []uint32 `yaml:"locales,omitempty" validate:"omitempty,dive,gt=0"`
	MinUpdateRate   uint32   `yaml:"min_update_rate"`
	MinSamplingRate uint32   `yaml:"min_sampling_rate"`
}

// AddressSpace selects the nodes the server exposes. Nodes from the seed
// file are applied first, then the inline nodes.
type AddressSpace struct {
	Seed      string               `yaml:"seed,omitempty"`
	Separator string               `yaml:"separator,omitempty" validate:"omitempty,max=4"`
	Nodes     []addrspace.NodeSpec `yaml:"nodes,omitempty" validate:"dive"`
}

// Mailbox configures the workers behind the async client.
type Mailbox struct {
	Capacity int           `yaml:"capacity" validate:"gte=1"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Client selects the DA versions the client negotiates and lists.
type Client struct {
	Versions []string `yaml:"versions" validate:"min=1,dive,daversion"`
	Required []string `yaml:"required,omitempty" validate:"dive,daversion"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	Enabled bool   `yaml:"enabled"`
	Traces  string `yaml:"traces" validate:"oneof=stdout none"`
	Metrics string `yaml:"metrics" validate:"oneof=stdout none"`
	// Interval is how often metrics are exported.
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("guid", func(fl validator.FieldLevel) bool {
		_, err := com.ParseGUID(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("daversion", func(fl validator.FieldLevel) bool {
		_, err := opc.ParseVersion(fl.Field().String())
		return err == nil
	}))
	must(addrspace.RegisterValidations(v))
	return v
}

// Default returns a valid configuration with an empty address space.
func Default() *Config {
	return &Config{
		Server: Server{
			ProgID:       server.DefaultProgID,
			VendorInfo:   server.DefaultVendorInfo,
			MajorVersion: 3,
		},
		Mailbox: Mailbox{Capacity: mailbox.DefaultCapacity},
		Client:  Client{Versions: []string{"DA1.0", "DA2.0", "DA3.0"}},
		Log:     Log{Level: "info"},
		Telemetry: Telemetry{
			Traces:   "stdout",
			Metrics:  "stdout",
			Interval: 30 * time.Second,
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read config")
	}
	return Parse(data)
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "invalid config")
	}
	return nil
}

// Options converts the server section. clock may be nil.
func (s Server) Options(clock func() time.Time) (server.Options, error) {
	o := server.Options{
		ProgID:          s.ProgID,
		VendorInfo:      s.VendorInfo,
		MajorVersion:    s.MajorVersion,
		MinorVersion:    s.MinorVersion,
		BuildNumber:     s.BuildNumber,
		Locales:         s.Locales,
		MinUpdateRate:   s.MinUpdateRate,
		MinSamplingRate: s.MinSamplingRate,
		Clock:           clock,
	}
	if s.CLSID != "" {
		g, err := com.ParseGUID(s.CLSID)
		if err != nil {
			return server.Options{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "server.clsid")
		}
		o.CLSID = g
	}
	return o, nil
}

// Build creates the address space the section describes.
func (a AddressSpace) Build(opts ...addrspace.Option) (*addrspace.Space, error) {
	sep := a.Separator
	var specs []addrspace.NodeSpec
	if a.Seed != "" {
		seed, err := addrspace.LoadSeed(a.Seed)
		if err != nil {
			return nil, err
		}
		if sep == "" {
			sep = seed.Separator
		}
		specs = append(specs, seed.Nodes...)
	}
	specs = append(specs, a.Nodes...)
	return addrspace.FromSeed(&addrspace.Seed{Separator: sep, Nodes: specs}, opts...)
}

// Reseed applies the section's nodes to an existing space. Bound items
// keep their identity and observe the new values.
func (a AddressSpace) Reseed(space *addrspace.Space) error {
	if a.Seed != "" {
		seed, err := addrspace.LoadSeed(a.Seed)
		if err != nil {
			return err
		}
		if err := space.Apply(seed.Nodes); err != nil {
			return err
		}
	}
	return space.Apply(a.Nodes)
}

// Options converts the mailbox section.
func (m Mailbox) Options() []mailbox.Option {
	opts := []mailbox.Option{mailbox.WithCapacity(m.Capacity)}
	if m.Timeout > 0 {
		opts = append(opts, mailbox.WithTimeout(m.Timeout))
	}
	return opts
}

// VersionSets returns the available and required version sets.
func (c Client) VersionSets() (available, required opc.VersionSet, err error) {
	parse := func(names []string) (opc.VersionSet, error) {
		var s opc.VersionSet
		for _, n := range names {
			v, err := opc.ParseVersion(n)
			if err != nil {
				return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "client versions")
			}
			s |= opc.NewVersionSet(v)
		}
		return s, nil
	}
	if available, err = parse(c.Versions); err != nil {
		return 0, 0, err
	}
	if required, err = parse(c.Required); err != nil {
		return 0, 0, err
	}
	return available, required, nil
}

// Build creates the logger the section describes.
func (l Log) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "log.level")
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
