package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const testPolicy = `
routes:
  - key: dashboard
    require_active_period: true
  - key: kitchen-display
    require_active_period: true
    roles: [owner, kitchen]
  - key: reports
    require_active_period: true
    minimum_tier: pro
    roles: [owner]
  - key: settings
features:
  - key: advanced-reports
    tier: pro
  - key: loyalty
    tier: start
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(testPolicy))
	require.NoError(t, err)

	dash, ok := c.Route("dashboard")
	require.True(t, ok)
	assert.True(t, dash.RequireActivePeriod)
	assert.False(t, dash.RequireRole)
	assert.True(t, dash.RequiresSubscription())

	reports, ok := c.Route("reports")
	require.True(t, ok)
	assert.Equal(t, entitlement.TierPro, reports.MinimumTier)
	assert.True(t, reports.RequireRole)

	settings, _ := c.Route("settings")
	assert.False(t, settings.RequiresSubscription())

	_, ok = c.Route("missing")
	assert.False(t, ok)

	tier, ok := c.Feature("advanced-reports")
	require.True(t, ok)
	assert.Equal(t, entitlement.TierPro, tier)

	assert.Len(t, c.Grants(), 3)
	assert.Equal(t, []string{"dashboard", "kitchen-display", "reports", "settings"}, c.RouteKeys())
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		policy string
	}{
		{"unknown role", "routes:\n  - key: a\n    roles: [chef]\n"},
		{"unknown tier", "routes:\n  - key: a\n    minimum_tier: gold\n"},
		{"duplicate route", "routes:\n  - key: a\n  - key: a\n"},
		{"missing key", "routes:\n  - require_active_period: true\n"},
		{"feature without tier", "features:\n  - key: x\n"},
		{"malformed yaml", "routes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.policy))
			assert.Error(t, err)
		})
	}
}

func TestRoleAuthorizer_InMemory(t *testing.T) {
	c, err := ParseCatalog([]byte(testPolicy))
	require.NoError(t, err)

	a, err := NewRoleAuthorizer(c, logger.Nop())
	require.NoError(t, err)

	assert.True(t, a.RoleAllowed("kitchen-display", identity.RoleKitchen))
	assert.True(t, a.RoleAllowed("kitchen-display", identity.RoleOwner))
	assert.False(t, a.RoleAllowed("kitchen-display", identity.RoleWaiter))
	assert.False(t, a.RoleAllowed("reports", identity.RoleKitchen))

	require.NoError(t, a.Grant("kitchen-display", identity.RoleWaiter))
	assert.True(t, a.RoleAllowed("kitchen-display", identity.RoleWaiter))

	require.NoError(t, a.Revoke("kitchen-display", identity.RoleWaiter))
	assert.False(t, a.RoleAllowed("kitchen-display", identity.RoleWaiter))

	roles, err := a.RolesFor("kitchen-display")
	require.NoError(t, err)
	assert.ElementsMatch(t, []identity.OrgRole{identity.RoleOwner, identity.RoleKitchen}, roles)
}

func TestRoleAuthorizer_Persistent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_test=permission"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	c, err := ParseCatalog([]byte(testPolicy))
	require.NoError(t, err)

	first, err := NewPersistentRoleAuthorizer(db, c, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Grant("reports", identity.RoleCashier))

	// A second authorizer over the same table sees the runtime grant and does not duplicate seeds.
	second, err := NewPersistentRoleAuthorizer(db, c, logger.Nop())
	require.NoError(t, err)
	assert.True(t, second.RoleAllowed("reports", identity.RoleCashier))
	assert.True(t, second.RoleAllowed("kitchen-display", identity.RoleKitchen))

	var count int64
	require.NoError(t, db.Table("casbin_rule").Count(&count).Error)
	assert.Equal(t, int64(4), count)
}
