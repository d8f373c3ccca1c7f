// Package seed provisions local accounts for trying out access gating.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/organization"
	"github.com/vendora-inc/vendora/internal/infrastructure/auth"
	"github.com/vendora-inc/vendora/internal/infrastructure/config"
	"github.com/vendora-inc/vendora/internal/infrastructure/database"
	"github.com/vendora-inc/vendora/internal/infrastructure/repository"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

var (
	configPath string
	email      string
	orgName    string
	role       string
	superAdmin bool
	tokenTTL   time.Duration
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed local data",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Directory containing config.yaml (default: ./configs)")
	cmd.AddCommand(newTrialCommand())
	return cmd
}

func newTrialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Create a user on a fresh trial and print a bearer token",
		Long: `Create an organization, a membership and a trial subscriber record for a new
user, then print a signed bearer token for that user.`,
		RunE: runTrial,
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the new user (required)")
	cmd.Flags().StringVar(&orgName, "org", "Demo Restaurant", "Organization name")
	cmd.Flags().StringVar(&role, "role", string(identity.RoleOwner), "Role inside the organization")
	cmd.Flags().BoolVar(&superAdmin, "super-admin", false, "Mark the token as super-admin")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runTrial(cmd *cobra.Command, args []string) error {
	var searchPaths []string
	if configPath != "" {
		searchPaths = append(searchPaths, configPath)
	}
	cfg, err := config.Load("", searchPaths...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	orgRole, err := identity.ParseOrgRole(role)
	if err != nil {
		return err
	}

	if err := database.Init(&cfg.Database, log.Named("database")); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db := database.Get()
	subscribers := repository.NewSubscriberRepository(db, log)
	memberships := repository.NewMembershipRepository(db, log)

	userID := uuid.NewString()
	now := time.Now().UTC()
	org := &organization.Organization{
		ID:          uuid.NewString(),
		Slug:        slugify(orgName),
		Name:        orgName,
		OwnerUserID: userID,
		CreatedAt:   now,
	}
	if err := memberships.SaveOrganization(ctx, org); err != nil {
		return err
	}
	membership, err := organization.NewMembership(org.ID, userID, orgRole)
	if err != nil {
		return err
	}
	if err := memberships.SaveMembership(ctx, membership); err != nil {
		return err
	}
	if err := subscribers.CreateTrial(ctx, userID, email, now); err != nil {
		return err
	}

	token, err := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer).Issue(auth.TokenSubject{
		UserID:     userID,
		Email:      email,
		OrgID:      org.ID,
		SuperAdmin: superAdmin,
	}, tokenTTL)
	if err != nil {
		return err
	}

	fmt.Printf("user_id: %s\norg_id:  %s\nrole:    %s\ntoken:   %s\n", userID, org.ID, orgRole, token)
	return nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-") + "-" + uuid.NewString()[:8]
}
