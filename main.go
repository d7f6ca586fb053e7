package main

import (
	"context"
	"embed"

	"streamview/internal/config"
	"streamview/internal/db"
	"streamview/internal/platform"
	"streamview/internal/player"
	"streamview/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v3/pkg/application"
)

//go:embed all:frontend/dist
var assets embed.FS

func init() {
	application.RegisterEvent[player.State](player.EventStateChanged)
	application.RegisterEvent[player.Event](player.EventBuffering)
	application.RegisterEvent[player.Event](player.EventError)
	application.RegisterEvent[player.Event](player.EventEndReached)
}

func main() {
	runtimeConfig, err := config.LoadRuntime()
	if err != nil {
		logrus.Fatal(err)
	}

	paths, err := config.ResolvePaths("streamview")
	if err != nil {
		logrus.Fatal(err)
	}

	logCloser, err := runtimeConfig.ConfigureLogging(paths)
	if err != nil {
		logrus.Fatal(err)
	}
	defer logCloser.Close()

	sqliteDB, err := db.Bootstrap(paths.DBPath)
	if err != nil {
		logrus.Fatal(err)
	}
	defer sqliteDB.Close()

	settingsRepo := store.NewSettingsRepository(sqliteDB)
	historyRepo := store.NewHistoryRepository(sqliteDB)

	session := player.NewSession(player.DefaultEngineFactory)
	defer session.Shutdown()

	if settings, err := settingsRepo.Load(context.Background()); err != nil {
		logrus.WithError(err).Warn("Using default playback settings")
	} else {
		session.SetBackgroundPolicy(backgroundPolicyFromSettings(settings))
	}

	if err := session.Initialize(runtimeConfig.BootOptions); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err,
		}).Error("Playback engine unavailable")
	}

	playerService := NewPlayerService(session, settingsRepo, historyRepo)
	settingsService := NewSettingsService(settingsRepo, session)
	historyService := NewHistoryService(historyRepo)
	bootstrapService := NewBootstrapService(session, settingsRepo, historyRepo, runtimeConfig.DefaultURL)

	app := application.New(application.Options{
		Name:        "StreamView",
		Description: "Network stream and media file viewer",
		Services: []application.Service{
			application.NewService(playerService),
			application.NewService(settingsService),
			application.NewService(historyService),
			application.NewService(bootstrapService),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(assets),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
	})

	playerService.SetFilePicker(videoFilePicker(app))

	platformService := platform.NewService(app, session)
	session.SetEmitter(func(eventName string, payload any) {
		app.Event.Emit(eventName, payload)
		if state, ok := payload.(player.State); ok {
			platformService.HandlePlayerState(state)
		}
	})

	go pumpSessionEvents(session, func(eventName string, payload any) {
		app.Event.Emit(eventName, payload)
	})

	window := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title: "StreamView",
		Mac: application.MacWindow{
			InvisibleTitleBarHeight: 50,
			Backdrop:                application.MacBackdropTranslucent,
			TitleBar:                application.MacTitleBarHiddenInset,
		},
		BackgroundColour: application.NewRGB(0, 0, 0),
		URL:              "/",
	})
	bindWindowLifecycle(window, session)

	if err := platformService.Start(); err != nil {
		logrus.WithError(err).Warn("Platform media controls disabled")
	}
	defer platformService.Stop()

	if runtimeConfig.DefaultURL != "" {
		if _, err := playerService.PlayURL(runtimeConfig.DefaultURL, nil); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err,
			}).Warn("Default url did not load")
		}
	}

	err = app.Run()
	if err != nil {
		logrus.Fatal(err)
	}
}

// pumpSessionEvents forwards engine events until the session shuts down.
func pumpSessionEvents(session *player.Session, emit player.Emitter) {
	for event := range session.Events() {
		emit(event.Name(), event)
	}
}
