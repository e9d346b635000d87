package imaging

import (
	"context"

	"blogpilot/internal/post"
)

// AssetUploader is the slice of the Webflow client the CMS placer needs.
type AssetUploader interface {
	UploadAsset(ctx context.Context, filename string, data []byte) (assetID, hostedURL string, err error)
}

// WebflowPlacer stores images in the Webflow asset library so created items
// can reference them by file ID.
type WebflowPlacer struct {
	assets AssetUploader
}

// NewWebflowPlacer wraps an asset uploader.
func NewWebflowPlacer(assets AssetUploader) *WebflowPlacer {
	return &WebflowPlacer{assets: assets}
}

// Place implements Placer.
func (w *WebflowPlacer) Place(ctx context.Context, slug string, png []byte) (string, string, error) {
	assetID, hostedURL, err := w.assets.UploadAsset(ctx, post.ImageFilename(slug), png)
	if err != nil {
		return "", "", err
	}
	return hostedURL, assetID, nil
}

// ObjectUploader is the slice of the S3 uploader the spreadsheet placer
// needs.
type ObjectUploader interface {
	UploadPNG(ctx context.Context, data []byte) (string, error)
}

// S3Placer stores images as public S3 objects for the spreadsheet pipeline.
type S3Placer struct {
	store ObjectUploader
}

// NewS3Placer wraps an object uploader.
func NewS3Placer(store ObjectUploader) *S3Placer {
	return &S3Placer{store: store}
}

// Place implements Placer. S3 has no asset ID, so the second value is empty.
func (s *S3Placer) Place(ctx context.Context, slug string, png []byte) (string, string, error) {
	url, err := s.store.UploadPNG(ctx, png)
	if err != nil {
		return "", "", err
	}
	return url, "", nil
}
