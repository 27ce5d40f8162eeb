package server

import (
	"errors"
	"fmt"
	"log"
	"pharmacist/internal/assistant"
	"pharmacist/internal/auth"
	"pharmacist/internal/config"
	"pharmacist/internal/database"
	"pharmacist/internal/handlers"
	"pharmacist/internal/reports"
	"pharmacist/internal/services"
)

// App holds every service built from the configuration
type App struct {
	Config        *config.Config
	Medications   *services.MedicationService
	Reminders     *services.ReminderService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Pharmacies    services.PharmacyFinder
	Reports       *reports.Reporter
	Worker        *services.ReminderWorker
}

// NewApp builds the services on top of the already initialized database.
// Integrations without credentials are disabled with a warning instead of failing startup.
func NewApp(cfg *config.Config) (*App, error) {
	if database.GetDB() == nil {
		return nil, errors.New("database is not initialized")
	}

	auth.Configure(cfg.Auth)
	if err := auth.InitOAuth(cfg.Google); err != nil {
		log.Printf("Warning: Google sign-in disabled: %v", err)
	}

	var push services.PushSender
	if p, err := services.NewPushService(cfg.Push); err == nil {
		push = p
	} else {
		log.Printf("Warning: web push disabled: %v", err)
	}

	var mailer services.DoseMailer
	if m, err := services.NewEmailService(cfg); err == nil {
		mailer = m
	} else {
		log.Printf("Warning: dose e-mails disabled: %v", err)
	}

	var images services.ImageUploader
	if i, err := services.NewImageService(cfg.Cloudinary); err == nil {
		images = i
	} else {
		log.Printf("Warning: chat image upload disabled: %v", err)
	}

	provider, err := assistant.NewProvider(cfg.Assistant)
	if err != nil {
		log.Printf("Warning: assistant disabled: %v", err)
	}

	var pharmacies services.PharmacyFinder
	if m, err := services.NewMapsService(cfg.Maps.APIKey); err == nil {
		pharmacies = m
	} else {
		log.Printf("Warning: pharmacy search disabled: %v", err)
	}

	reporter, err := reports.FromGorm(database.GetDB())
	if err != nil {
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	reminders := services.NewReminderService(cfg)
	notifications := services.NewNotificationService(push, mailer)

	return &App{
		Config:        cfg,
		Medications:   services.NewMedicationService(),
		Reminders:     reminders,
		Chat:          services.NewChatService(cfg, provider, images),
		Notifications: notifications,
		Pharmacies:    pharmacies,
		Reports:       reporter,
		Worker:        services.NewReminderWorker(cfg, reminders, notifications),
	}, nil
}

// Dependencies exposes the services to the HTTP handlers
func (a *App) Dependencies() handlers.Dependencies {
	return handlers.Dependencies{
		Config:        a.Config,
		Medications:   a.Medications,
		Reminders:     a.Reminders,
		Chat:          a.Chat,
		Notifications: a.Notifications,
		Pharmacies:    a.Pharmacies,
		Reports:       a.Reports,
	}
}
