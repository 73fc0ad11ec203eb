package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"elib/internal/util"
	"elib/pkg/domain"
)

const (
	imageFolder       = "book-covers"
	rawDocumentFolder = "book-pdfs"
	defaultRawExt     = ".pdf"

	defaultTimeout = 30 * time.Second
)

// ErrUploadFailed is returned when the object store rejects an upload.
var ErrUploadFailed = errors.New("upload failed")

// Transferrer moves staged files into object storage.
type Transferrer struct {
	objects ObjectStore
	timeout time.Duration
}

// NewTransferrer builds a Transferrer. A non-positive timeout uses 30s.
func NewTransferrer(objects ObjectStore, timeout time.Duration) *Transferrer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Transferrer{objects: objects, timeout: timeout}
}

// Transfer uploads localPath under the category folder and always removes the
// staged file afterwards. Removal failures are logged, never returned.
func (t *Transferrer) Transfer(ctx context.Context, localPath, displayName string, category domain.AssetCategory, mimeType string) (asset domain.RemoteAsset, err error) {
	logger := util.LoggerFromContext(ctx)
	defer func() {
		if rmErr := RemoveStaged(localPath); rmErr != nil {
			logger.Warn("staged_file_remove_failed", "path", localPath, "err", rmErr)
		}
	}()

	key, err := objectKey(category, displayName)
	if err != nil {
		return domain.RemoteAsset{}, err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return domain.RemoteAsset{}, fmt.Errorf("%w: open staged file: %v", ErrUploadFailed, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return domain.RemoteAsset{}, fmt.Errorf("%w: stat staged file: %v", ErrUploadFailed, err)
	}

	// Remote calls finish even if the client goes away.
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	opts := PutOptions{ContentType: contentTypeFor(category, mimeType), Filename: displayName}
	if err := t.objects.Put(putCtx, key, f, info.Size(), opts); err != nil {
		return domain.RemoteAsset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return domain.RemoteAsset{URL: t.objects.PublicURL(key), RemoteID: key}, nil
}

// Remove deletes a remote asset with the bounded timeout.
func (t *Transferrer) Remove(ctx context.Context, remoteID string) error {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return nil
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	return t.objects.Delete(delCtx, remoteID)
}

// RemoteIDFromURL derives the object key from the last two URL path segments.
// Images drop the file extension, raw documents keep it.
func RemoteIDFromURL(rawURL string, category domain.AssetCategory) string {
	rawURL = strings.TrimSpace(rawURL)
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	parts := strings.Split(strings.TrimRight(rawURL, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	folder, name := parts[len(parts)-2], parts[len(parts)-1]
	if folder == "" || name == "" {
		return ""
	}
	if category == domain.CategoryImage {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	return folder + "/" + name
}

// ResolveRemoteID prefers the stored id and falls back to URL derivation.
func ResolveRemoteID(remoteID, rawURL string, category domain.AssetCategory) string {
	if remoteID = strings.TrimSpace(remoteID); remoteID != "" {
		return remoteID
	}
	if rawURL == "" {
		return ""
	}
	return RemoteIDFromURL(rawURL, category)
}

func objectKey(category domain.AssetCategory, displayName string) (string, error) {
	id := util.NewID()
	switch category {
	case domain.CategoryImage:
		return imageFolder + "/" + id, nil
	case domain.CategoryRawDocument:
		ext := strings.ToLower(filepath.Ext(displayName))
		if ext == "" || strings.ContainsAny(ext, "/\\ ") {
			ext = defaultRawExt
		}
		return rawDocumentFolder + "/" + id + ext, nil
	default:
		return "", fmt.Errorf("unknown asset category %q", category)
	}
}

// contentTypeFor derives the stored image format from the MIME subtype.
// Without a subtype the original content type is kept.
func contentTypeFor(category domain.AssetCategory, mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if category != domain.CategoryImage {
		if mimeType == "" {
			return "application/octet-stream"
		}
		return mimeType
	}
	_, subtype, ok := strings.Cut(mimeType, "/")
	if !ok || strings.TrimSpace(subtype) == "" {
		return mimeType
	}
	return "image/" + strings.ToLower(strings.TrimSpace(subtype))
}
