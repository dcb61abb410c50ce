// README: Firebase Admin SDK initialisation for the Realtime Database.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// DefaultDatabaseURL derives the RTDB URL of a project's default instance
// in the Southeast Asia region.
func DefaultDatabaseURL(projectID string) string {
	return fmt.Sprintf("https://%s-default-rtdb.asia-southeast1.firebasedatabase.app", projectID)
}

// NewFirebaseDatabase creates an RTDB client. If credentialsFile is
// non-empty it is used as the service-account JSON path; otherwise
// application-default credentials are used. An empty databaseURL falls back
// to DefaultDatabaseURL(projectID).
func NewFirebaseDatabase(ctx context.Context, projectID, credentialsFile, databaseURL string) (*db.Client, error) {
	if databaseURL == "" {
		databaseURL = DefaultDatabaseURL(projectID)
	}
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID, DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Database: %w", err)
	}
	return client, nil
}
