package ridelog

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"hershield/internal/models"
)

// SheetsSink appends ride rows to a Google Sheets spreadsheet.
// Columns: id, from, to, vehicleNumber, phoneNumber, timestamp, status.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsSink, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	if sheetName == "" {
		sheetName = "Rides"
	}

	return &SheetsSink{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *SheetsSink) Append(ctx context.Context, ride *models.RideSession) error {
	row := &sheets.ValueRange{
		Values: [][]interface{}{{
			ride.ID.Hex(),
			ride.FromAddress,
			ride.Destination,
			ride.VehicleNumber,
			ride.ContactPhone,
			ride.StartedAt.Format(time.RFC3339),
			string(ride.Status),
		}},
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheetName+"!A:G", row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append ride row: %w", err)
	}

	return nil
}

func (s *SheetsSink) UpdateStatus(ctx context.Context, rideID string, status models.RideStatus) error {
	resp, err := s.service.Spreadsheets.Values.
		Get(s.spreadsheetID, s.sheetName+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read ride ids: %w", err)
	}

	rowIndex := -1
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == rideID {
			rowIndex = i + 1 // sheets are 1-based
			break
		}
	}
	if rowIndex < 0 {
		return fmt.Errorf("ride %s not found in sheet", rideID)
	}

	update := &sheets.ValueRange{
		Values: [][]interface{}{{string(status)}},
	}
	_, err = s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!G%d", s.sheetName, rowIndex), update).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update ride status: %w", err)
	}

	return nil
}
