// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	contactsfeature "github.com/dalemusser/ledgerhub/internal/app/features/contacts"
	groupsfeature "github.com/dalemusser/ledgerhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/ledgerhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/ledgerhub/internal/app/features/login"
	profilefeature "github.com/dalemusser/ledgerhub/internal/app/features/profile"
	workspacesfeature "github.com/dalemusser/ledgerhub/internal/app/features/workspaces"
	contactstore "github.com/dalemusser/ledgerhub/internal/app/store/contacts"
	invitestore "github.com/dalemusser/ledgerhub/internal/app/store/invites"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	workspacestore "github.com/dalemusser/ledgerhub/internal/app/store/workspaces"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/registry"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. The Mongo deps may be nil here;
// the stores and the registry handle that by serving local-only mode.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Remote stores are only constructed when the database connected.
	var (
		profilesRemote   *profilestore.Store
		workspacesRemote *workspacestore.Store
		invitesRemote    *invitestore.Store
		contactsRemote   *contactstore.Store
	)
	if deps.MongoDatabase != nil {
		profilesRemote = profilestore.New(deps.MongoDatabase)
		workspacesRemote = workspacestore.New(deps.MongoDatabase)
		invitesRemote = invitestore.New(deps.MongoDatabase)
		contactsRemote = contactstore.New(deps.MongoDatabase)
	}

	profiles := profilestore.NewResolver(profilesRemote, deps.Local, logger)
	contacts := contactstore.NewRepository(contactsRemote, deps.Local, logger)
	reg := registry.New(workspacesRemote, invitesRemote, profiles, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the identity into context when a
	// session cookie is present.
	r.Use(auth.LoadIdentity)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication (guest login, Google OAuth, logout)
	loginHandler := loginfeature.NewHandler(
		appCfg.GoogleClientID, appCfg.GoogleClientSecret,
		appCfg.BaseURL, appCfg.SessionKey, logger)
	r.Mount("/", loginfeature.Routes(loginHandler))

	// Everything below needs a signed-in identity (guest included).
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity)

		profileHandler := profilefeature.NewHandler(profiles, logger)
		r.Mount("/profile", profilefeature.Routes(profileHandler))

		groupsHandler := groupsfeature.NewHandler(profiles, reg, logger)
		r.Mount("/groups", groupsfeature.Routes(groupsHandler))

		workspacesHandler := workspacesfeature.NewHandler(profiles, reg, logger)
		r.Mount("/workspaces", workspacesfeature.Routes(workspacesHandler))

		contactsHandler := contactsfeature.NewHandler(profiles, contacts, logger)
		r.Mount("/contacts", contactsfeature.Routes(contactsHandler))
	})

	return r, nil
}
