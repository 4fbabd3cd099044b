package db

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"github.com/pkg/errors"
	"github.com/techagentng/achat/config"
	"google.golang.org/api/option"
)

// Clients bundles the firebase-backed clients the rest of the app depends on.
type Clients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
}

// GetClients initializes the firebase app from the service account file and
// opens the firestore and auth clients.
func GetClients(ctx context.Context, conf *config.Config) (*Clients, error) {
	opt := option.WithCredentialsFile(conf.GoogleApplicationCredentials)
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.FirebaseProjectID}, opt)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting firestore client")
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting auth client")
	}

	return &Clients{
		App:       app,
		Firestore: fs,
		Auth:      authClient,
	}, nil
}
