// Package gworkspace adapts Google Calendar and Google Sheets to the
// reconcile store interfaces.
package gworkspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/warp/leave-sync/generic"
)

// Credentials locate the service account and the user it acts as.
type Credentials struct {
	ServiceAccountFile string
	// ImpersonateUser is the Workspace user the service account acts as
	// (domain-wide delegation). Empty means the service account itself.
	ImpersonateUser string
}

// Scopes requested for both services.
var Scopes = []string{calendar.CalendarScope, sheets.SpreadsheetsScope}

// NewClientOptions builds API client options from a service-account key.
func NewClientOptions(ctx context.Context, creds Credentials) ([]option.ClientOption, error) {
	if creds.ServiceAccountFile == "" {
		return nil, errors.New("service account file not configured")
	}
	key, err := os.ReadFile(creds.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(key, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	conf.Subject = creds.ImpersonateUser
	return []option.ClientOption{option.WithTokenSource(conf.TokenSource(ctx))}, nil
}

// storeError converts an API error into the store error contract: an
// error-status answer becomes a *generic.RejectedError, everything else is
// returned unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &generic.RejectedError{StatusCode: gerr.Code, Message: gerr.Message}
	}
	return err
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusGone || gerr.Code == http.StatusNotFound
	}
	return false
}
