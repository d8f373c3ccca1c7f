package permission

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vendora-inc/vendora/internal/domain/access"
	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	"github.com/vendora-inc/vendora/internal/domain/identity"
)

type routePolicy struct {
	Key                 string   `yaml:"key"`
	RequireActivePeriod bool     `yaml:"require_active_period"`
	MinimumTier         string   `yaml:"minimum_tier"`
	Roles               []string `yaml:"roles"`
}

type featurePolicy struct {
	Key  string `yaml:"key"`
	Tier string `yaml:"tier"`
}

type policyFile struct {
	Routes   []routePolicy   `yaml:"routes"`
	Features []featurePolicy `yaml:"features"`
}

// RouteRole is one allowed (route, role) pair.
type RouteRole struct {
	Route string
	Role  identity.OrgRole
}

// Catalog holds the route and feature requirements declared in the access policy file.
type Catalog struct {
	routes   map[string]access.RouteRequirement
	features map[string]entitlement.Tier
	grants   []RouteRole
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access policy %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse access policy: %w", err)
	}

	c := &Catalog{
		routes:   make(map[string]access.RouteRequirement, len(file.Routes)),
		features: make(map[string]entitlement.Tier, len(file.Features)),
	}

	for _, rp := range file.Routes {
		key := strings.TrimSpace(rp.Key)
		if key == "" {
			return nil, fmt.Errorf("route policy without key")
		}
		if _, dup := c.routes[key]; dup {
			return nil, fmt.Errorf("duplicate route policy %q", key)
		}

		req := access.RouteRequirement{
			Route:               key,
			RequireActivePeriod: rp.RequireActivePeriod,
			RequireRole:         len(rp.Roles) > 0,
		}
		if rp.MinimumTier != "" {
			tier, err := entitlement.ParseTier(rp.MinimumTier)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", key, err)
			}
			req.MinimumTier = tier
		}
		for _, raw := range rp.Roles {
			role, err := identity.ParseOrgRole(raw)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", key, err)
			}
			c.grants = append(c.grants, RouteRole{Route: key, Role: role})
		}
		c.routes[key] = req
	}

	for _, fp := range file.Features {
		key := strings.TrimSpace(fp.Key)
		if key == "" {
			return nil, fmt.Errorf("feature policy without key")
		}
		if _, dup := c.features[key]; dup {
			return nil, fmt.Errorf("duplicate feature policy %q", key)
		}
		tier, err := entitlement.ParseTier(fp.Tier)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", key, err)
		}
		c.features[key] = tier
	}

	return c, nil
}

// Route returns the requirement for a route key.
func (c *Catalog) Route(key string) (access.RouteRequirement, bool) {
	req, ok := c.routes[key]
	return req, ok
}

// Feature returns the tier a feature key needs.
func (c *Catalog) Feature(key string) (entitlement.Tier, bool) {
	tier, ok := c.features[key]
	return tier, ok
}

// Grants lists the declared (route, role) pairs.
func (c *Catalog) Grants() []RouteRole {
	out := make([]RouteRole, len(c.grants))
	copy(out, c.grants)
	return out
}

func (c *Catalog) RouteKeys() []string {
	keys := make([]string, 0, len(c.routes))
	for k := range c.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
