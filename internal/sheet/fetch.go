package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auction_display/internal/record"
	"auction_display/internal/retry"

	"github.com/rs/zerolog/log"
)

// Fetcher retrieves sheet rows. Primary path is the public CSV export; when
// that errors or serves an interstitial page it falls back to the gviz
// tabular-query endpoint under a bounded wait. An optional authenticated
// API client, when configured, is preferred over both (it can read private
// sheets).
type Fetcher struct {
	client        *http.Client
	api           *APIClient
	fallbackRetry retry.Config

	// endpoint derivation, swappable in tests
	csvURL  func(Link) string
	gvizURL func(Link) string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		fallbackRetry: retry.Config{
			MaxRetries: 0,
			BaseDelay:  time.Second,
			MaxDelay:   time.Second,
			Timeout:    10 * time.Second,
		},
		csvURL:  Link.CSVURL,
		gvizURL: Link.GVizURL,
	}
}

// WithAPIClient attaches an authenticated Sheets API client.
func (f *Fetcher) WithAPIClient(api *APIClient) *Fetcher {
	f.api = api
	return f
}

// FetchRows retrieves the sheet's rows as records. It returns ErrUnreachable
// only after every retrieval path has failed.
func (f *Fetcher) FetchRows(ctx context.Context, link Link) ([]record.Record, error) {
	if f.api != nil {
		rows, err := f.api.ReadRecords(ctx, link)
		if err == nil {
			log.Debug().Int("rows", len(rows)).Msg("Fetched rows via Sheets API")
			return rows, nil
		}
		log.Warn().Err(err).Msg("Sheets API read failed, trying CSV export")
	}

	rows, csvErr := f.fetchCSV(ctx, link)
	if csvErr == nil {
		log.Debug().Int("rows", len(rows)).Msg("Fetched rows via CSV export")
		return rows, nil
	}
	log.Warn().Err(csvErr).Msg("CSV export failed, trying gviz fallback")

	rows, gvizErr := retry.WithRetry(ctx, f.fallbackRetry, func(ctx context.Context) ([]record.Record, error) {
		return f.fetchGViz(ctx, link)
	})
	if gvizErr == nil {
		log.Debug().Int("rows", len(rows)).Msg("Fetched rows via gviz fallback")
		return rows, nil
	}

	return nil, fmt.Errorf("%w: csv: %v; gviz: %v", ErrUnreachable, csvErr, gvizErr)
}

func (f *Fetcher) fetchCSV(ctx context.Context, link Link) ([]record.Record, error) {
	payload, err := f.get(ctx, f.csvURL(link))
	if err != nil {
		return nil, err
	}

	if LooksLikeMarkup(payload) {
		return nil, fmt.Errorf("payload is markup, not delimited text")
	}
	if len(strings.Split(strings.TrimSpace(payload), "\n")) < 2 {
		return nil, fmt.Errorf("payload has no data rows")
	}

	return ParseCSV(payload), nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return string(body), nil
}

// gviz response shapes. The endpoint wraps JSON in a script call:
// /*O_o*/ google.visualization.Query.setResponse({...});
type gvizCell struct {
	V interface{} `json:"v"`
}

type gvizResponse struct {
	Table struct {
		Cols []struct {
			Label string `json:"label"`
		} `json:"cols"`
		Rows []struct {
			C []*gvizCell `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

func (f *Fetcher) fetchGViz(ctx context.Context, link Link) ([]record.Record, error) {
	payload, err := f.get(ctx, f.gvizURL(link))
	if err != nil {
		return nil, err
	}

	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in gviz response")
	}

	var parsed gvizResponse
	if err := json.Unmarshal([]byte(payload[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gviz response: %w", err)
	}

	headers := make([]string, len(parsed.Table.Cols))
	labelled := false
	for i, col := range parsed.Table.Cols {
		headers[i] = strings.TrimSpace(col.Label)
		if headers[i] != "" {
			labelled = true
		}
	}

	dataRows := parsed.Table.Rows

	// Sheets without a declared header row leave the column labels empty and
	// surface the headers as the first data row instead.
	if !labelled && len(dataRows) > 0 {
		for i := range headers {
			headers[i] = cellString(dataRows[0].C, i)
		}
		dataRows = dataRows[1:]
	}

	var rows []record.Record
	for _, raw := range dataRows {
		row := make(record.Record, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			row[h] = cellString(raw.C, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellString(cells []*gvizCell, i int) string {
	if i >= len(cells) || cells[i] == nil || cells[i].V == nil {
		return ""
	}
	switch v := cells[i].V.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
