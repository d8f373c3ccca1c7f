package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/vendora-inc/vendora/internal/domain/access"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const routeRoleModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

var _ access.RoleAuthorizer = (*RoleAuthorizer)(nil)

// RoleAuthorizer answers route role checks from casbin policies of the form
// p, <role>, <route>.
type RoleAuthorizer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

// NewRoleAuthorizer keeps the catalog grants in memory only.
func NewRoleAuthorizer(catalog *Catalog, log logger.Interface) (*RoleAuthorizer, error) {
	m, err := model.NewModelFromString(routeRoleModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	return newRoleAuthorizer(enforcer, catalog, log)
}

// NewPersistentRoleAuthorizer stores policies in the casbin_rule table so
// grants added at runtime survive restarts. Catalog grants are seeded when missing.
func NewPersistentRoleAuthorizer(db *gorm.DB, catalog *Catalog, log logger.Interface) (*RoleAuthorizer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}
	m, err := model.NewModelFromString(routeRoleModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return newRoleAuthorizer(enforcer, catalog, log)
}

func newRoleAuthorizer(enforcer *casbin.Enforcer, catalog *Catalog, log logger.Interface) (*RoleAuthorizer, error) {
	a := &RoleAuthorizer{
		enforcer: enforcer,
		logger:   log.Named("permission.roles"),
	}
	if catalog == nil {
		return a, nil
	}

	var rules [][]string
	for _, g := range catalog.Grants() {
		has, err := enforcer.HasPolicy(g.Role.String(), g.Route)
		if err != nil {
			return nil, fmt.Errorf("failed to check policy: %w", err)
		}
		if !has {
			rules = append(rules, []string{g.Role.String(), g.Route})
		}
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to seed route policies: %w", err)
		}
		a.logger.Infow("seeded route role policies", "count", len(rules))
	}
	return a, nil
}

// RoleAllowed reports whether role may enter route. Enforcement errors deny.
func (a *RoleAuthorizer) RoleAllowed(route string, role identity.OrgRole) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	allowed, err := a.enforcer.Enforce(role.String(), route)
	if err != nil {
		a.logger.Errorw("role check failed", "error", err, "route", route, "role", role)
		return false
	}
	return allowed
}

func (a *RoleAuthorizer) Grant(route string, role identity.OrgRole) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.enforcer.AddPolicy(role.String(), route); err != nil {
		a.logger.Errorw("failed to add policy", "error", err, "route", route, "role", role)
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}

func (a *RoleAuthorizer) Revoke(route string, role identity.OrgRole) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.enforcer.RemovePolicy(role.String(), route); err != nil {
		a.logger.Errorw("failed to remove policy", "error", err, "route", route, "role", role)
		return fmt.Errorf("failed to remove policy: %w", err)
	}
	return nil
}

// RolesFor lists the roles allowed on route.
func (a *RoleAuthorizer) RolesFor(route string) ([]identity.OrgRole, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rules, err := a.enforcer.GetFilteredPolicy(1, route)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	roles := make([]identity.OrgRole, 0, len(rules))
	for _, rule := range rules {
		roles = append(roles, identity.OrgRole(rule[0]))
	}
	return roles, nil
}
