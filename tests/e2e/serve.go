package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/oauth2"

	"github.com/tasaciones/crm-backend/internal/handlers"
	"github.com/tasaciones/crm-backend/internal/handlers/middleware"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/repository"
	"github.com/tasaciones/crm-backend/internal/repository/mongodb"
	"github.com/tasaciones/crm-backend/internal/service/calendarauth"
	"github.com/tasaciones/crm-backend/internal/service/gcalendar"
	"github.com/tasaciones/crm-backend/internal/service/gdrive"
	"github.com/tasaciones/crm-backend/internal/service/googleoauth"
	"github.com/tasaciones/crm-backend/internal/service/property"
	"github.com/tasaciones/crm-backend/internal/service/tokenbroker"
)

type Services struct {
	AuthService *calendarauth.Service
	Broker      *tokenbroker.Broker
	Storage     repository.Storage
}

// Serve runs the full production wiring over the given mongo database,
// with only the Google token endpoint faked at tokenURL. Each caller gets
// its own http server.
func Serve(db *mongo.Database, tokenURL string, t *testing.T, fn func(srvURL string, s Services)) {
	// Initialize repositories
	storage := mongodb.NewStorage(db)

	// Initialize services with the oauth client pointed at the stub
	oauthClient, err := googleoauth.NewClient(googleoauth.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}, nil)
	require.NoError(t, err, "oauth client should be created without errors")

	as, err := calendarauth.NewService(calendarauth.Config{}, oauthClient, storage.Credentials(), nil)
	require.NoError(t, err, "auth service starting error")

	broker, err := tokenbroker.New(storage.Credentials(), as, nil)
	require.NoError(t, err, "broker starting error")

	adapter, err := gcalendar.NewAdapter(broker, nil)
	require.NoError(t, err, "calendar adapter starting error")

	ps, err := property.NewService(storage.Properties())
	require.NoError(t, err, "property service starting error")

	l := logger.NewNoOpLogger()

	// Complete all together as router
	router := handlers.NewRouter(
		handlers.NewCalendarAuth(as, l),
		handlers.NewCalendarEvents(adapter, l),
		handlers.NewDriveUpload(gdrive.UnconfiguredUploader{}, l),
		handlers.NewProperty(ps, l),
		middleware.CORS,
	)

	srv := httptest.NewServer(router)
	defer srv.Close()

	fn(srv.URL, Services{
		AuthService: as,
		Broker:      broker,
		Storage:     storage,
	})
}
