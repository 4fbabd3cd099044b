package main

import (
	"context"
	"log"
	"os"

	"github.com/techagentng/achat/config"
	"github.com/techagentng/achat/db"
	"github.com/techagentng/achat/mailingservices"
	"github.com/techagentng/achat/server"
	"github.com/techagentng/achat/services"
	"go.uber.org/zap"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	os.Setenv("GOOGLE_CLOUD_PROJECT", conf.FirebaseProjectID)

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("error initializing logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()

	clients, err := db.GetClients(ctx, conf)
	if err != nil {
		logger.Fatalf("error initializing Firebase clients: %v", err)
	}
	defer clients.Firestore.Close()

	mailgunClient := &mailingservices.Mailgun{}
	mailgunClient.Init(conf)

	chatRepo := db.NewChatRepo(logger, clients.Firestore)

	identity, err := services.NewIdentityService(ctx, logger, clients.Auth, mailgunClient, conf)
	if err != nil {
		logger.Fatalf("error initializing identity service: %v", err)
	}

	attachments, err := services.NewAttachmentService(logger, conf)
	if err != nil {
		logger.Fatalf("error initializing attachment service: %v", err)
	}

	timeline := services.NewTimelineService(logger, chatRepo)
	account := services.NewAccountService(logger, chatRepo, identity)
	composer := services.NewComposerService(logger, chatRepo, attachments, timeline, account)
	presence := services.NewPresenceService(logger, chatRepo, conf.TypingIdle(), func(uid string) string {
		author := timeline.ResolveAuthor(uid)
		return author.DisplayName()
	})
	authService := services.NewAuthService(logger, identity, chatRepo, conf)

	s := &server.Server{
		Config:            conf,
		Logger:            logger,
		Mail:              mailgunClient,
		AuthService:       authService,
		Identity:          identity,
		ChatRepository:    chatRepo,
		TimelineService:   timeline,
		ComposerService:   composer,
		PresenceService:   presence,
		AccountService:    account,
		AttachmentService: attachments,
	}
	s.Start()
}
