package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/opsportal/backend-go/internal/config"
	appHTTP "github.com/opsportal/backend-go/internal/handler/http"
	"github.com/opsportal/backend-go/internal/pkg/clock"
	"github.com/opsportal/backend-go/internal/pkg/cron"
	"github.com/opsportal/backend-go/internal/pkg/database"
	"github.com/opsportal/backend-go/internal/pkg/geofence"
	"github.com/opsportal/backend-go/internal/pkg/jwt"
	"github.com/opsportal/backend-go/internal/pkg/oauth"
	"github.com/opsportal/backend-go/internal/pkg/sse"
	"github.com/opsportal/backend-go/internal/pkg/storage"
	"github.com/opsportal/backend-go/internal/repository/postgresql"
	attendanceService "github.com/opsportal/backend-go/internal/service/attendance"
	serviceAuth "github.com/opsportal/backend-go/internal/service/auth"
	"github.com/opsportal/backend-go/internal/service/directory"
	"github.com/opsportal/backend-go/internal/service/file"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	userRepo := postgresql.NewUserRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	tenantRepo := postgresql.NewTenantRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration)
	GoogleService := oauth.NewGoogleService(cfg.OAuth2Google.ClientID, cfg.OAuth2Google.ClientSecret, cfg.OAuth2Google.RedirectURL, cfg.OAuth2Google.Scopes)

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(
			cfg.Storage.BasePath,
			cfg.Storage.BaseURL,
		)
		if err != nil {
			log.Fatal("Failed to initialize local storage:", err)
		}
	default:
		log.Fatal("Unsupported storage type: ", cfg.Storage.Type)
	}

	fileService := file.NewFileService(fileStorage)

	// Live engine state: synchronized clock, geofence readings, in-progress
	// check-in/out flows and the SSE fan-out feeding the check-in view.
	hub := sse.NewHub()

	clockSync := clock.NewSynchronizer(cfg.ClockSync.ProbeURL, cfg.ClockSync.ResyncEvery)
	clockSync.OnTick(func(now time.Time, synced bool) {
		hub.Broadcast(sse.Event{
			Event: "clock_tick",
			Data: map[string]interface{}{
				"now":    now.Format(time.RFC3339),
				"synced": synced,
			},
		})
	})

	monitor := geofence.NewMonitor(cfg.Engine.GeofenceTTL)
	monitor.OnReading(func(userID string, r geofence.Reading) {
		hub.Publish(userID, sse.Event{Event: "location_reading", Data: r})
	})

	flows := attendanceService.NewFlowStore(cfg.Engine.FlowTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go clockSync.Run(ctx)

	scheduler := cron.NewScheduler()
	scheduler.AddJob("expire-abandoned-flows", time.Minute, flows.Sweep)
	scheduler.AddJob("evict-stale-geofence-entries", time.Minute, monitor.Sweep)
	scheduler.Start()
	defer scheduler.Stop()

	authService := serviceAuth.NewAuthService(userRepo, JWTService, GoogleService)
	directoryService := directory.NewDirectoryService(shiftRepo, tenantRepo)
	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo,
		shiftRepo,
		tenantRepo,
		fileService,
		clockSync,
		monitor,
		flows,
	)

	authHandler := appHTTP.NewAuthHandler(JWTService, authService, cfg.App.FrontendURL)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	directoryHandler := appHTTP.NewDirectoryHandler(directoryService, directoryService)
	eventsHandler := appHTTP.NewEventsHandler(JWTService, hub)

	router := appHTTP.NewRouter(
		JWTService,
		authHandler,
		attendanceHandler,
		directoryHandler,
		eventsHandler,
		appHTTP.RouterConfig{
			FrontendURL: cfg.App.FrontendURL,
			UploadsDir:  cfg.Storage.BasePath,
			Env:         cfg.App.Env,
		},
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
