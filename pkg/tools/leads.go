package tools

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Lead is one prospective-customer record captured during a call.
type Lead struct {
	Name    string
	Company string
	Phone   string
}

// LeadSink persists a captured Lead somewhere durable.
type LeadSink interface {
	Append(ctx context.Context, lead Lead) error
}

type googleSheetsLeadSink struct {
	svc     *sheetsapi.Service
	sheetID string
	loc     *time.Location
}

// NewGoogleSheetsLeadSink authenticates a service account scoped to
// Sheets and appends one row per lead, mirroring the source system's
// "append a timestamped row" lead-capture convention.
func NewGoogleSheetsLeadSink(ctx context.Context, credentialsJSON, sheetID string, loc *time.Location) (LeadSink, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("building sheets service: %w", err)
	}
	return &googleSheetsLeadSink{svc: svc, sheetID: sheetID, loc: loc}, nil
}

func (g *googleSheetsLeadSink) Append(ctx context.Context, lead Lead) error {
	row := []interface{}{
		time.Now().In(g.loc).Format("2006-01-02 15:04:05"),
		lead.Name,
		lead.Company,
		lead.Phone,
		"new",
	}
	_, err := g.svc.Spreadsheets.Values.Append(g.sheetID, "A1", &sheetsapi.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending lead row: %w", err)
	}
	return nil
}
