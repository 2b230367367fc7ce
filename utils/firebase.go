package utils

import (
	"context"
	"fmt"

	"folio/config"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseApp is initialized lazily by the components that need it.
var FirebaseApp *firebase.App

// FirebaseInit initializes the Firebase app from the configured service account.
func FirebaseInit(ctx context.Context) (*firebase.App, error) {
	if FirebaseApp != nil {
		return FirebaseApp, nil
	}
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentials; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	var fbConfig *firebase.Config
	if bucket := config.AppConfig.FirebaseBucket; bucket != "" {
		fbConfig = &firebase.Config{StorageBucket: bucket}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	FirebaseApp = app
	return app, nil
}

// FirestoreClient returns a Firestore client for the live section store.
func FirestoreClient(ctx context.Context) (*firestore.Client, error) {
	app, err := FirebaseInit(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
	}
	return client, nil
}

// FirebaseAuthClient returns the client used to verify Firebase ID tokens.
func FirebaseAuthClient(ctx context.Context) (*auth.Client, error) {
	app, err := FirebaseInit(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Auth client: %w", err)
	}
	return client, nil
}

// StorageClient returns a Cloud Storage client authenticated like the Firebase app.
func StorageClient(ctx context.Context) (*gcs.Client, error) {
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentials; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}
