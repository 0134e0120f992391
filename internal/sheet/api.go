package sheet

import (
	"context"
	"fmt"
	"strings"

	"auction_display/internal/record"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// APIClient reads a sheet through the authenticated Sheets API, for
// deployments where the auction sheet is not published to the web.
type APIClient struct {
	service *sheets.Service
}

func NewAPIClient(ctx context.Context, credentialsFile string) (*APIClient, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &APIClient{service: service}, nil
}

// ReadRecords reads all rows of the linked document and maps them onto the
// header row, mirroring the CSV contract: short rows pad with "".
func (c *APIClient) ReadRecords(ctx context.Context, link Link) ([]record.Record, error) {
	resp, err := c.service.Spreadsheets.Values.Get(link.DocID, "A1:Z1000").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) < 2 {
		return nil, fmt.Errorf("sheet has no data rows")
	}

	headers := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprintf("%v", cell))
	}

	var rows []record.Record
	for _, raw := range resp.Values[1:] {
		row := make(record.Record, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(raw) && raw[i] != nil {
				row[h] = strings.TrimSpace(fmt.Sprintf("%v", raw[i]))
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
