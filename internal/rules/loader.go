// Package rules loads replenishment rule profiles from YAML or JSON files.
//
// A file holds either a single profile at its root or several named profiles
// under a "profiles" key, with "default_profile" naming the one used when the
// caller does not pick one. Keys are case-insensitive.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ErrProfileNotFound is returned when the requested profile is not in the file.
var ErrProfileNotFound = errors.New("rule profile not found")

const (
	profilesKey       = "profiles"
	defaultProfileKey = "default_profile"
)

// Load reads the rules file at path and returns the validated profile. An
// empty path yields the built-in default profile.
func Load(path, profile string) (*replenishment.RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		rs := replenishment.DefaultRuleSet()
		if profile != "" && !strings.EqualFold(profile, rs.Name) {
			return nil, fmt.Errorf("%w: %q (no rules file configured)", ErrProfileNotFound, profile)
		}
		log.Debug().Str("profile", rs.Name).Msg("Using built-in rule profile")
		return rs, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", replenishment.ErrInvalidRules, path, err)
	}

	rs, err := decode(v, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info().Str("file", path).Str("profile", rs.Name).Str("kind", string(rs.Profile)).Msg("Loaded rule profile")
	return rs, nil
}

// Profiles lists the profile names declared in the rules file, sorted.
func Profiles(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !v.IsSet(profilesKey) {
		name := v.GetString("name")
		if name == "" {
			name = "default"
		}
		return []string{name}, nil
	}

	names := make([]string, 0)
	for name := range v.GetStringMap(profilesKey) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func decode(v *viper.Viper, profile string) (*replenishment.RuleSet, error) {
	sub := v
	name := strings.ToLower(strings.TrimSpace(profile))

	if v.IsSet(profilesKey) {
		if name == "" {
			name = strings.ToLower(v.GetString(defaultProfileKey))
		}
		if name == "" {
			return nil, fmt.Errorf("%w: no profile selected and %s is not set", replenishment.ErrInvalidRules, defaultProfileKey)
		}
		sub = v.Sub(profilesKey + "." + name)
		if sub == nil {
			return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
		}
	}

	var rs replenishment.RuleSet
	if err := sub.Unmarshal(&rs); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", replenishment.ErrInvalidRules, err)
	}
	if rs.Name == "" {
		rs.Name = name
	}
	if rs.Name == "" {
		rs.Name = "default"
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}
