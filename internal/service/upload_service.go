package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"earthhome/internal/featureflags"
	"earthhome/internal/imaging"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/observability"
	"earthhome/internal/storage"

	"github.com/google/uuid"
)

// Content types accepted by the document route.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDoc  = "application/msword"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// UploadRule bounds one upload route.
type UploadRule struct {
	Route       string
	Root        string
	MaxFiles    int
	MaxFileSize int64
	Thumbnails  bool
	detect      func(name, declared string, content []byte) (string, bool)
}

var (
	PropertyImagesRule = UploadRule{
		Route:       "property-images",
		Root:        PropertyImagesRoot,
		MaxFiles:    10,
		MaxFileSize: 5 * 10 * 1024 * 1024,
		Thumbnails:  true,
		detect:      detectImage,
	}
	PropertyDocumentsRule = UploadRule{
		Route:       "property-documents",
		Root:        PropertyDocumentsRoot,
		MaxFiles:    5,
		MaxFileSize: 10 * 1024 * 1024,
		detect:      detectDocument,
	}
)

// UploadFile is one file of a multipart request.
type UploadFile struct {
	Name         string
	DeclaredType string
	Content      []byte
}

// UploadedFile describes a stored object.
type UploadedFile struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

type UploadService struct {
	store storage.ObjectStore
	flags *featureflags.Manager
	newID func() string
}

func NewUploadService(store storage.ObjectStore, flags *featureflags.Manager) *UploadService {
	return &UploadService{store: store, flags: flags, newID: uuid.NewString}
}

// Upload validates every file against rule before storing any of them under
// <root>/<title-folder>/<uuid>-<file-slug>.
func (s *UploadService) Upload(ctx context.Context, actor *models.User, rule UploadRule, propertyTitle string, files []UploadFile) ([]UploadedFile, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be logged in to upload files")
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("No files provided")
	}
	if len(files) > rule.MaxFiles {
		observability.UploadedFiles.WithLabelValues(rule.Route, "rejected").Add(float64(len(files)))
		return nil, models.NewValidationError(fmt.Sprintf("Too many files. Maximum is %d", rule.MaxFiles))
	}

	types := make([]string, len(files))
	for i, f := range files {
		if int64(len(f.Content)) > rule.MaxFileSize {
			observability.UploadedFiles.WithLabelValues(rule.Route, "rejected").Inc()
			return nil, models.NewValidationError(fmt.Sprintf("File %s exceeds the maximum size of %dMB", f.Name, rule.MaxFileSize/(1024*1024)))
		}
		if len(f.Content) == 0 {
			observability.UploadedFiles.WithLabelValues(rule.Route, "rejected").Inc()
			return nil, models.NewValidationError(fmt.Sprintf("File %s is empty", f.Name))
		}
		contentType, ok := rule.detect(f.Name, f.DeclaredType, f.Content)
		if !ok {
			observability.UploadedFiles.WithLabelValues(rule.Route, "rejected").Inc()
			return nil, models.NewValidationError(fmt.Sprintf("File %s has an unsupported type", f.Name))
		}
		types[i] = contentType
	}

	folder := TitleFolder(propertyTitle)
	thumbnails := rule.Thumbnails && s.flags.Enabled(featureflags.ImageThumbnails, actor.ID)

	out := make([]UploadedFile, 0, len(files))
	for i, f := range files {
		key := fmt.Sprintf("%s/%s/%s-%s", rule.Root, folder, s.newID(), FileSlug(f.Name))
		if err := s.store.Put(ctx, key, f.Content, types[i]); err != nil {
			observability.UploadedFiles.WithLabelValues(rule.Route, "failed").Inc()
			return nil, models.NewInternalError(fmt.Errorf("store %s: %w", key, err))
		}
		observability.UploadedFiles.WithLabelValues(rule.Route, "accepted").Inc()
		observability.UploadedBytes.WithLabelValues(rule.Route).Add(float64(len(f.Content)))

		uploaded := UploadedFile{
			Key:         key,
			URL:         s.store.URL(key),
			Name:        f.Name,
			Size:        int64(len(f.Content)),
			ContentType: types[i],
		}
		if thumbnails {
			uploaded.ThumbnailURL = s.storeThumbnail(ctx, key, f.Content)
		}
		out = append(out, uploaded)
	}
	return out, nil
}

// storeThumbnail returns the thumbnail URL, or "" when one could not be made.
func (s *UploadService) storeThumbnail(ctx context.Context, key string, content []byte) string {
	thumb, err := imaging.Thumbnail(content, imaging.ThumbnailMaxEdge)
	if err != nil {
		if !errors.Is(err, imaging.ErrUnsupportedImage) {
			middleware.Logger.WarnContext(ctx, "thumbnail generation failed", "key", key, "error", err)
		}
		return ""
	}
	thumbKey := imaging.ThumbnailKey(key)
	if err := s.store.Put(ctx, thumbKey, thumb, "image/webp"); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to store thumbnail", "key", thumbKey, "error", err)
		return ""
	}
	return s.store.URL(thumbKey)
}

func sniff(content []byte) string {
	contentType, _, _ := strings.Cut(http.DetectContentType(content), ";")
	return contentType
}

func detectImage(_, _ string, content []byte) (string, bool) {
	contentType := sniff(content)
	return contentType, strings.HasPrefix(contentType, "image/")
}

// detectDocument trusts the PDF signature. Word files carry generic container
// signatures, so for those the declared type and extension must agree.
func detectDocument(name, declared string, content []byte) (string, bool) {
	sniffed := sniff(content)
	if sniffed == ContentTypePDF {
		return ContentTypePDF, true
	}
	declared, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(declared)), ";")
	ext := strings.ToLower(path.Ext(name))
	switch {
	case sniffed == "application/zip" && ext == ".docx" && (declared == ContentTypeDocx || declared == ""):
		return ContentTypeDocx, true
	case sniffed == "application/octet-stream" && ext == ".doc" && (declared == ContentTypeDoc || declared == ""):
		return ContentTypeDoc, true
	}
	return sniffed, false
}
