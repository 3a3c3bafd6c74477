package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasaciones/crm-backend/internal/db"
	"github.com/tasaciones/crm-backend/internal/handlers"
	"github.com/tasaciones/crm-backend/internal/handlers/middleware"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/repository/mongodb"
	"github.com/tasaciones/crm-backend/internal/service/calendarauth"
	"github.com/tasaciones/crm-backend/internal/service/gcalendar"
	"github.com/tasaciones/crm-backend/internal/service/gdrive"
	"github.com/tasaciones/crm-backend/internal/service/googleoauth"
	"github.com/tasaciones/crm-backend/internal/service/property"
	"github.com/tasaciones/crm-backend/internal/service/tokenbroker"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the document database
	client, err := db.Connect(ctx, c.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := mongodb.NewStorage(client.Database(c.MongoDatabase))

	// Initialize services.
	// The server boots without Google credentials: the affected routes
	// answer with a configuration error instead of failing startup.
	authConfig := calendarauth.Config{RevokeOnSignOut: c.RevokeOnSignOut}

	var authService *calendarauth.Service
	oauthClient, oauthErr := googleoauth.NewClient(googleoauth.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
	}, l)
	switch oauthErr {
	case nil:
		authService, err = calendarauth.NewService(authConfig, oauthClient, storage.Credentials(), l)
	default:
		l.Warn("Google OAuth client not configured", "error", oauthErr.Error())
		authService, err = calendarauth.NewService(authConfig, googleoauth.Unconfigured{}, storage.Credentials(), l)
	}
	if err != nil {
		return nil, fmt.Errorf("error while creating calendar auth service. Err: %w", err)
	}

	broker, err := tokenbroker.New(storage.Credentials(), authService, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating token broker. Err: %w", err)
	}

	calendarAdapter, err := gcalendar.NewAdapter(broker, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating calendar adapter. Err: %w", err)
	}

	propertyService, err := property.NewService(storage.Properties())
	if err != nil {
		return nil, fmt.Errorf("error while creating property service. Err: %w", err)
	}

	// Initialize handlers
	calendarAuthHandler := handlers.NewCalendarAuth(authService, l)
	calendarEventsHandler := handlers.NewCalendarEvents(calendarAdapter, l)
	propertyHandler := handlers.NewProperty(propertyService, l)

	var driveUploadHandler *handlers.DriveUploadHandler
	uploader, uploaderErr := gdrive.NewUploader(gdrive.Config{
		ServiceAccountEmail: c.DriveServiceAccountEmail,
		PrivateKey:          c.DrivePrivateKey,
		FolderID:            c.DriveFolderID,
	}, l)
	switch uploaderErr {
	case nil:
		driveUploadHandler = handlers.NewDriveUpload(uploader, l)
	default:
		l.Warn("Drive uploader not configured", "error", uploaderErr.Error())
		driveUploadHandler = handlers.NewDriveUpload(gdrive.UnconfiguredUploader{}, l)
	}

	mux := handlers.NewRouter(
		calendarAuthHandler,
		calendarEventsHandler,
		driveUploadHandler,
		propertyHandler,
		middleware.CORS,
		middleware.Identity(c.SecretKey),
		middleware.LoggerMiddleware(l),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
