package publish

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"go.uber.org/zap"

	"blogpilot/internal/config"
	"blogpilot/internal/post"
)

// ImageRef is the image reference shape Webflow expects in item field data.
type ImageRef struct {
	FileID string `json:"fileId"`
	Alt    string `json:"alt"`
	URL    string `json:"url"`
}

// ItemFieldData maps the blog collection's field slugs.
type ItemFieldData struct {
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	PostBody        string    `json:"post-body"`
	ExcerptPage     string    `json:"post-excerpt-post-page"`
	ExcerptFeatured string    `json:"post-excerpt-post-featured"`
	ReadingTime     int       `json:"post-reading-time-minutes"`
	Category        string    `json:"post-category,omitempty"`
	Author          string    `json:"post-author,omitempty"`
	Featured        bool      `json:"post-featured"`
	MainImage       *ImageRef `json:"post-main-image,omitempty"`
	Thumbnail       *ImageRef `json:"post-main-image-thumbnail,omitempty"`
}

// Item is one CMS item as returned by the Webflow list endpoint.
type Item struct {
	ID        string        `json:"id"`
	Slug      string        `json:"slug"`
	IsDraft   bool          `json:"isDraft"`
	CreatedOn string        `json:"createdOn"`
	FieldData ItemFieldData `json:"fieldData"`
}

type createItemRequest struct {
	IsArchived bool          `json:"isArchived"`
	IsDraft    bool          `json:"isDraft"`
	FieldData  ItemFieldData `json:"fieldData"`
}

// WebflowPublisher creates CMS items in a Webflow collection and uploads
// image assets to the site.
type WebflowPublisher struct {
	apiKey           string
	siteID           string
	collectionID     string
	categoryID       string
	authorID         string
	baseURL          string
	publishedURLBase string
	featured         bool
	httpClient       *http.Client
	logger           *zap.Logger
}

// NewWebflowPublisher creates a publisher from the Webflow configuration.
func NewWebflowPublisher(cfg config.WebflowConfig, timeoutClient *http.Client, logger *zap.Logger) *WebflowPublisher {
	return &WebflowPublisher{
		apiKey:           cfg.APIKey,
		siteID:           cfg.SiteID,
		collectionID:     cfg.CollectionID,
		categoryID:       cfg.CategoryID,
		authorID:         cfg.AuthorID,
		baseURL:          cfg.BaseURL,
		publishedURLBase: cfg.PublishedURLBase,
		featured:         cfg.Featured,
		httpClient:       timeoutClient,
		logger:           logger,
	}
}

// Name implements Publisher.
func (w *WebflowPublisher) Name() string { return "webflow" }

// Publish creates one CMS item for the post. Image fields are omitted when
// the post carries no uploaded asset.
func (w *WebflowPublisher) Publish(ctx context.Context, p *post.Post) (post.PublishResult, error) {
	payload := createItemRequest{
		IsArchived: false,
		IsDraft:    p.Draft,
		FieldData: ItemFieldData{
			Name:            p.Title,
			Slug:            p.Slug,
			PostBody:        p.BodyHTML,
			ExcerptPage:     p.ExcerptPage,
			ExcerptFeatured: p.ExcerptFeatured,
			ReadingTime:     p.ReadingTime,
			Category:        w.categoryID,
			Author:          w.authorID,
			Featured:        w.featured,
		},
	}
	if p.ImageID != "" && p.ImageURL != "" {
		payload.FieldData.MainImage = &ImageRef{FileID: p.ImageID, Alt: p.Title, URL: p.ImageURL}
		payload.FieldData.Thumbnail = &ImageRef{FileID: p.ImageID, Alt: p.Title + " Thumbnail", URL: p.ImageURL}
	}

	body, status, err := w.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/items", w.baseURL, w.collectionID), payload)
	if err != nil {
		return post.PublishResult{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return post.PublishResult{}, &APIError{Service: "webflow", Status: status, Body: string(body)}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return post.PublishResult{}, fmt.Errorf("failed to parse create-item response: %w", err)
	}
	if created.ID == "" {
		return post.PublishResult{}, fmt.Errorf("webflow returned success but no item ID")
	}

	w.logger.Info("webflow item created",
		zap.String("item_id", created.ID), zap.String("slug", p.Slug))

	return post.PublishResult{
		RemoteID:  created.ID,
		RemoteURL: w.publishedURLBase + p.Slug,
	}, nil
}

// UploadAsset pushes image bytes into Webflow's asset store using the
// two-step flow: register the file name and MD5 hash, then POST the bytes to
// the returned upload URL. Returns the asset ID and hosted URL.
func (w *WebflowPublisher) UploadAsset(ctx context.Context, filename string, data []byte) (string, string, error) {
	sum := md5.Sum(data)
	reg := struct {
		FileName string `json:"fileName"`
		FileHash string `json:"fileHash"`
	}{FileName: filename, FileHash: hex.EncodeToString(sum[:])}

	body, status, err := w.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/sites/%s/assets", w.baseURL, w.siteID), reg)
	if err != nil {
		return "", "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", "", &APIError{Service: "webflow", Status: status, Body: string(body)}
	}

	var meta struct {
		ID            string            `json:"id"`
		HostedURL     string            `json:"hostedUrl"`
		UploadURL     string            `json:"uploadUrl"`
		UploadDetails map[string]string `json:"uploadDetails"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", "", fmt.Errorf("failed to parse asset registration response: %w", err)
	}
	if meta.UploadURL == "" || len(meta.UploadDetails) == 0 {
		return "", "", fmt.Errorf("asset registration response missing upload URL or details")
	}

	if err := w.uploadToBucket(ctx, meta.UploadURL, meta.UploadDetails, filename, data); err != nil {
		return "", "", err
	}

	w.logger.Debug("webflow asset uploaded",
		zap.String("asset_id", meta.ID), zap.String("file", filename))
	return meta.ID, meta.HostedURL, nil
}

// uploadToBucket performs the second step of the asset flow: a multipart POST
// to the storage URL with every field from uploadDetails plus the file part.
func (w *WebflowPublisher) uploadToBucket(ctx context.Context, uploadURL string, details map[string]string, filename string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range details {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write upload field: %w", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if ct := details["content-type"]; ct != "" {
		header.Set("Content-Type", ct)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("asset upload request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	// The bucket reports the status it was told to use via
	// success_action_status; fall back to any 2xx.
	if expected, err := strconv.Atoi(details["success_action_status"]); err == nil {
		if resp.StatusCode != expected {
			return &APIError{Service: "asset storage", Status: resp.StatusCode, Body: string(respBody)}
		}
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Service: "asset storage", Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// ListItems fetches every item in the collection, following pagination
// cursors until exhausted.
func (w *WebflowPublisher) ListItems(ctx context.Context) ([]Item, error) {
	var all []Item
	cursor := ""

	for {
		url := fmt.Sprintf("%s/collections/%s/items", w.baseURL, w.collectionID)
		if cursor != "" {
			url += "?cursor=" + cursor
		}

		body, status, err := w.doJSON(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, &APIError{Service: "webflow", Status: status, Body: string(body)}
		}

		var page struct {
			Items      []Item `json:"items"`
			NextCursor string `json:"nextCursor"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse item list: %w", err)
		}

		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// doJSON issues an authenticated request with an optional JSON payload and
// returns the raw response body and status.
func (w *WebflowPublisher) doJSON(ctx context.Context, method, url string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("webflow request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
