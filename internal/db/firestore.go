package db

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentshare-backend-go/internal/config"
)

// ErrNotFound is returned by every repository when a document does not exist.
var ErrNotFound = errors.New("document not found")

var (
	// firebaseApp is the initialized Admin SDK app; storage clients are built from it.
	firebaseApp *firebase.App
	// fsClient is the global Firestore client instance.
	fsClient *firestore.Client
	// fbAuthClient is the global Firebase Auth client instance.
	fbAuthClient *auth.Client
	// fcmClient is the global Firebase Cloud Messaging client instance.
	fcmClient *messaging.Client
)

// InitFirebase initializes the Firebase Admin SDK and the Firestore, Auth and Messaging clients.
// Credentials come from a file path, a base64 service account JSON, or ADC, in that order.
func InitFirebase(ctx context.Context, appConfig *config.Config) error {
	if appConfig == nil {
		return fmt.Errorf("InitFirebase: appConfig cannot be nil")
	}

	var opts []option.ClientOption
	switch {
	case appConfig.GoogleApplicationCredentials != "":
		log.Printf("Initializing Firebase with credentials file: %s", appConfig.GoogleApplicationCredentials)
		if _, err := os.Stat(appConfig.GoogleApplicationCredentials); os.IsNotExist(err) {
			log.Printf("Warning: credentials file does not exist: %s", appConfig.GoogleApplicationCredentials)
		}
		opts = append(opts, option.WithCredentialsFile(appConfig.GoogleApplicationCredentials))
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		log.Println("Initializing Firebase with Base64 encoded service account JSON.")
		decodedJSON, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decodedJSON))
	default:
		log.Println("Initializing Firebase using Application Default Credentials (ADC).")
	}

	firebaseAppConfig := &firebase.Config{
		ProjectID:     appConfig.FirebaseProjectID,
		StorageBucket: appConfig.FirebaseStorageBucket,
	}

	app, err := firebase.NewApp(ctx, firebaseAppConfig, opts...)
	if err != nil {
		return fmt.Errorf("firebase.NewApp: %w", err)
	}
	firebaseApp = app

	client, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("app.Firestore: %w", err)
	}
	fsClient = client

	authCl, err := app.Auth(ctx)
	if err != nil {
		fsClient.Close()
		return fmt.Errorf("app.Auth: %w", err)
	}
	fbAuthClient = authCl

	msgCl, err := app.Messaging(ctx)
	if err != nil {
		fsClient.Close()
		return fmt.Errorf("app.Messaging: %w", err)
	}
	fcmClient = msgCl

	log.Println("Firebase Admin SDK initialized (Firestore, Auth, Messaging).")
	return nil
}

// GetFirebaseApp returns the initialized Admin SDK app.
func GetFirebaseApp() *firebase.App {
	return firebaseApp
}

// GetFirestoreClient returns the global Firestore client.
// Callers should check if the client is nil, implying InitFirebase hasn't been called or failed.
func GetFirestoreClient() *firestore.Client {
	if fsClient == nil {
		log.Println("Warning: GetFirestoreClient called before InitFirebase or InitFirebase failed.")
	}
	return fsClient
}

// GetFirebaseAuthClient returns the global Firebase Auth client.
func GetFirebaseAuthClient() *auth.Client {
	if fbAuthClient == nil {
		log.Println("Warning: GetFirebaseAuthClient called before InitFirebase or InitFirebase failed.")
	}
	return fbAuthClient
}

// GetMessagingClient returns the global FCM client.
func GetMessagingClient() *messaging.Client {
	return fcmClient
}

// wrapGetErr converts a Firestore NotFound into ErrNotFound with context.
func wrapGetErr(err error, kind, id string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s with ID '%s' not found: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s with ID '%s': %w", kind, id, err)
}
