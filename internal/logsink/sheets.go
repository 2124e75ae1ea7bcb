package logsink

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const sheetsAppendTimeout = 15 * time.Second

// SheetsSink appends one row per entry to a Google spreadsheet using a
// service-account credential. Row ordering within a session is preserved
// because each Append issues a single values.append call; the spreadsheet
// service serializes concurrent appends.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsSink authenticates against the Sheets API with the service
// account key file at credentialsPath. A bad or unreadable credential fails
// here, before any participant interaction, never mid-turn.
func NewSheetsSink(ctx context.Context, credentialsPath, spreadsheetID, writeRange string) (*SheetsSink, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to init sheets service: %w", err)
	}
	if writeRange == "" {
		writeRange = "Sheet1"
	}
	return &SheetsSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}, nil
}

func (s *SheetsSink) Append(entry Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), sheetsAppendTimeout)
	defer cancel()

	vr := &sheets.ValueRange{Values: [][]interface{}{entryRow(entry)}}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append failed: %w", err)
	}
	return nil
}

// entryRow fixes the column order of the study spreadsheet.
func entryRow(e Entry) []interface{} {
	return []interface{}{
		e.Timestamp.Format(time.RFC3339),
		e.ParticipantID,
		e.TurnCount,
		e.AttachmentKind.String(),
		e.PromptText,
		e.ResponseText,
		e.PromptLength,
		e.ResponseLength,
		e.DurationMS,
	}
}
