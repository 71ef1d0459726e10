package flags

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fileFlag is the on-disk shape of one flag definition.
type fileFlag struct {
	Key               string   `koanf:"key"`
	Enabled           bool     `koanf:"enabled"`
	RolloutPercentage *int     `koanf:"rollout_percentage"`
	AllowedTenants    []string `koanf:"allowed_tenants"`
	AllowedUsers      []string `koanf:"allowed_users"`
	AllowedRoles      []string `koanf:"allowed_roles"`
	Environment       string   `koanf:"environment"`
	ExpiresAt         string   `koanf:"expires_at"` // RFC 3339
}

// LoadFile reads flag definitions from a YAML file:
//
//	flags:
//	  - key: new-canvassing-ui
//	    enabled: true
//	    rollout_percentage: 50
//	    allowed_roles: [admin, organizer]
//	    environment: production
//	    expires_at: 2027-01-01T00:00:00Z
//
// An omitted rollout_percentage means 100 (full rollout).
func LoadFile(path string) ([]Definition, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("flags.LoadFile %q: %w", path, err)
	}

	var raw []fileFlag
	if err := k.Unmarshal("flags", &raw); err != nil {
		return nil, fmt.Errorf("flags.LoadFile %q: %w", path, err)
	}

	defs := make([]Definition, 0, len(raw))
	for _, f := range raw {
		if f.Key == "" {
			return nil, fmt.Errorf("flags.LoadFile %q: flag with empty key", path)
		}

		d := Definition{
			Key:               f.Key,
			Enabled:           f.Enabled,
			RolloutPercentage: 100,
			AllowedTenants:    f.AllowedTenants,
			AllowedUsers:      f.AllowedUsers,
			AllowedRoles:      f.AllowedRoles,
			Environment:       f.Environment,
		}

		if f.RolloutPercentage != nil {
			p := *f.RolloutPercentage
			if p < 0 || p > 100 {
				return nil, fmt.Errorf("flags.LoadFile %q: flag %s: rollout_percentage %d out of range", path, f.Key, p)
			}
			d.RolloutPercentage = p
		}

		if f.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339, f.ExpiresAt)
			if err != nil {
				return nil, fmt.Errorf("flags.LoadFile %q: flag %s: expires_at: %w", path, f.Key, err)
			}
			d.ExpiresAt = &t
		}

		defs = append(defs, d)
	}

	return defs, nil
}
