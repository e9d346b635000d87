package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"blogpilot/internal/config"
	"blogpilot/internal/post"
)

// SheetHeaders is the exact header row the posts worksheet must carry, in
// column order A through I.
var SheetHeaders = []string{
	"name", "slug", "excerpt_page", "excerpt_featured",
	"reading_time", "body_html", "image_url", "draft", "created_at",
}

// SheetsPublisher upserts post rows into a Google Sheets worksheet keyed by
// slug: an existing row for the slug is overwritten, otherwise a row is
// appended.
type SheetsPublisher struct {
	svc              *sheets.Service
	spreadsheetID    string
	worksheet        string
	publishedURLBase string
	logger           *zap.Logger
}

// NewSheetsPublisher creates a publisher authenticated with the configured
// service-account credentials file, or application default credentials when
// no file is set.
func NewSheetsPublisher(ctx context.Context, cfg config.SheetsConfig, publishedURLBase string, logger *zap.Logger) (*SheetsPublisher, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return NewSheetsPublisherWithService(svc, cfg.SpreadsheetID, cfg.Worksheet, publishedURLBase, logger), nil
}

// NewSheetsPublisherWithService wraps an existing sheets service.
func NewSheetsPublisherWithService(svc *sheets.Service, spreadsheetID, worksheet, publishedURLBase string, logger *zap.Logger) *SheetsPublisher {
	return &SheetsPublisher{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		worksheet:        worksheet,
		publishedURLBase: publishedURLBase,
		logger:           logger,
	}
}

// Name implements Publisher.
func (s *SheetsPublisher) Name() string { return "sheets" }

// Publish writes the post as one worksheet row. The header row is validated
// on every call so a drifted sheet fails loudly instead of writing
// misaligned columns.
func (s *SheetsPublisher) Publish(ctx context.Context, p *post.Post) (post.PublishResult, error) {
	readRange := fmt.Sprintf("%s!A1:I", s.worksheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return post.PublishResult{}, sheetsError(err)
	}
	if len(resp.Values) == 0 {
		return post.PublishResult{}, fmt.Errorf("worksheet %q has no header row (expected %s)",
			s.worksheet, strings.Join(SheetHeaders, ", "))
	}

	if err := validateHeader(s.worksheet, resp.Values[0]); err != nil {
		return post.PublishResult{}, err
	}

	row := rowValues(p)
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}

	// Sheet rows are 1-based and the header occupies row 1.
	if rowNum := findSlugRow(resp.Values, p.Slug); rowNum > 0 {
		updateRange := fmt.Sprintf("%s!A%d:I%d", s.worksheet, rowNum, rowNum)
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, updateRange, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return post.PublishResult{}, sheetsError(err)
		}
		s.logger.Info("updated existing sheet row",
			zap.String("slug", p.Slug), zap.Int("row", rowNum))
	} else {
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.worksheet+"!A1", vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return post.PublishResult{}, sheetsError(err)
		}
		s.logger.Info("appended new sheet row", zap.String("slug", p.Slug))
	}

	return post.PublishResult{
		RemoteID:  p.Slug,
		RemoteURL: s.publishedURLBase + p.Slug,
	}, nil
}

func validateHeader(worksheet string, header []interface{}) error {
	found := make([]string, 0, len(header))
	for _, cell := range header {
		found = append(found, strings.TrimSpace(fmt.Sprint(cell)))
	}

	if len(found) != len(SheetHeaders) {
		return headerMismatch(worksheet, found)
	}
	for i, want := range SheetHeaders {
		if found[i] != want {
			return headerMismatch(worksheet, found)
		}
	}
	return nil
}

func headerMismatch(worksheet string, found []string) error {
	return fmt.Errorf("worksheet %q header mismatch: expected [%s], found [%s]",
		worksheet, strings.Join(SheetHeaders, ", "), strings.Join(found, ", "))
}

// findSlugRow returns the 1-based sheet row holding the slug, or 0.
func findSlugRow(values [][]interface{}, slug string) int {
	for i, row := range values[1:] {
		if len(row) > 1 && fmt.Sprint(row[1]) == slug {
			return i + 2
		}
	}
	return 0
}

// rowValues lays a post out in the worksheet's column order.
func rowValues(p *post.Post) []interface{} {
	return []interface{}{
		p.Title,
		p.Slug,
		p.ExcerptPage,
		p.ExcerptFeatured,
		p.ReadingTime,
		p.BodyHTML,
		p.ImageURL,
		strings.ToUpper(strconv.FormatBool(p.Draft)),
		p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// sheetsError translates a Google API error into an APIError carrying the
// remote status and body.
func sheetsError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &APIError{Service: "sheets", Status: gerr.Code, Body: body}
	}
	return fmt.Errorf("sheets request failed: %w", err)
}
