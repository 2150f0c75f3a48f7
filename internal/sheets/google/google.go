package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"sheetcharts/internal/tabular"
)

// ErrNoCredentials is returned when no service account credentials are configured.
var ErrNoCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// ErrInvalidSpreadsheet is returned for a reference that is neither a spreadsheet URL nor an ID.
var ErrInvalidSpreadsheet = errors.New("invalid spreadsheet reference")

// Client reads the first sheet of a Google spreadsheet as a table.
type Client struct {
	svc *gsheet.Service
}

// Credentials holds the service account settings from config.
type Credentials struct {
	JSON string
	File string
}

// New creates a read-only Sheets client authenticated as a service account.
func New(ctx context.Context, creds Credentials) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a credentials file.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, ErrNoCredentials
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for tests that point the
// service at a local endpoint.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// newWithEndpoint builds a client against a custom endpoint without auth.
func newWithEndpoint(ctx context.Context, endpoint string) (*Client, error) {
	svc, err := gsheet.NewService(ctx,
		goption.WithHTTPClient(newHTTPClientWithPooling()),
		goption.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

var spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
var spreadsheetID = regexp.MustCompile(`^[a-zA-Z0-9-_]{10,}$`)

// ParseSpreadsheetID accepts a spreadsheet URL or a bare ID.
func ParseSpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := spreadsheetURL.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if spreadsheetID.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpreadsheet, ref)
}

// ReadTable reads the first sheet of the spreadsheet with unformatted values
// and returns it as a table together with the spreadsheet title.
func (c *Client) ReadTable(ctx context.Context, ref string) (*tabular.Table, string, error) {
	if c.svc == nil {
		return nil, "", errors.New("sheets service not initialized")
	}
	id, err := ParseSpreadsheetID(ref)
	if err != nil {
		return nil, "", err
	}

	meta, err := c.svc.Spreadsheets.Get(id).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", fmt.Errorf("get spreadsheet %s: %w", id, err)
	}

	var names []string
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			names = append(names, s.Properties.Title)
		}
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("%w: spreadsheet has no sheets", tabular.ErrDecode)
	}
	title := id
	if meta.Properties != nil && meta.Properties.Title != "" {
		title = meta.Properties.Title
	}

	resp, err := c.svc.Spreadsheets.Values.Get(id, quoteSheet(names[0])).
		ValueRenderOption("UNFORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", fmt.Errorf("read values of %q: %w", names[0], err)
	}

	table, err := tabular.FromGrid(parseValues(resp.Values), names)
	if err != nil {
		return nil, "", err
	}

	slog.InfoContext(ctx, "Spreadsheet read",
		"spreadsheet_id", id,
		"sheet", names[0],
		"rows", len(table.Rows),
		"columns", len(table.Headers))

	return table, title, nil
}

// quoteSheet wraps a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
