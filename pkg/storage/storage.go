package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/storage/gcs"
	"github.com/angelmondragon/hatchery-backend/pkg/storage/s3"
)

// sniffLen matches the default mimetype read limit.
const sniffLen = 3072

// ObjectStore is the bucket-level write surface shared by the gcs and s3 clients.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// File is one uploaded multipart part.
type File struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Uploader stores an attachment and describes where it landed. Remove takes
// the StorageID of a previous upload.
type Uploader interface {
	Upload(ctx context.Context, file File) (dbtypes.Attachment, error)
	Remove(ctx context.Context, storageID string) error
}

type BucketUploader struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewBucketUploader(store ObjectStore, prefix string) *BucketUploader {
	return &BucketUploader{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		newID:  uuid.New,
	}
}

func (u *BucketUploader) Upload(ctx context.Context, file File) (dbtypes.Attachment, error) {
	if file.Body == nil {
		return dbtypes.Attachment{}, pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return dbtypes.Attachment{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	header = header[:n]

	contentType := DetectContentType(header, file.ContentType)
	uploadedAt := u.now().UTC()
	key := ObjectKey(u.prefix, file.Filename, u.newID(), uploadedAt)

	body := io.MultiReader(bytes.NewReader(header), file.Body)
	url, err := u.store.Put(ctx, key, contentType, body)
	if err != nil {
		return dbtypes.Attachment{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to upload file")
	}

	return dbtypes.Attachment{
		URL:        url,
		StorageID:  key,
		Filename:   file.Filename,
		MediaKind:  enums.MediaKindFromMIME(contentType),
		UploadedAt: uploadedAt,
	}, nil
}

func (u *BucketUploader) Remove(ctx context.Context, storageID string) error {
	if strings.TrimSpace(storageID) == "" {
		return nil
	}
	if err := u.store.Delete(ctx, storageID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to remove file")
	}
	return nil
}

// DetectContentType sniffs the payload and falls back to the declared type
// when detection only yields the generic binary type.
func DetectContentType(header []byte, declared string) string {
	detected := mimetype.Detect(header)
	if detected.Is("application/octet-stream") && strings.TrimSpace(declared) != "" {
		return strings.TrimSpace(declared)
	}
	return detected.String()
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey lays objects out as <prefix>/<yyyy>/<mm>/<uuid>-<name>.
func ObjectKey(prefix, filename string, id uuid.UUID, at time.Time) string {
	name := unsafeFilenameChars.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		at.Format("2006"),
		at.Format("01"),
		fmt.Sprintf("%s-%s", id, name),
	)
}

// Disabled rejects every upload; it backs STORAGE_DRIVER=none.
type Disabled struct{}

func (Disabled) Upload(context.Context, File) (dbtypes.Attachment, error) {
	return dbtypes.Attachment{}, pkgerrors.New(pkgerrors.CodeDependency, "file uploads are not configured")
}

func (Disabled) Remove(context.Context, string) error { return nil }

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Open builds the uploader for the configured driver. The returned closer is
// never nil.
func Open(ctx context.Context, cfg config.StorageConfig, gcp config.GCPConfig, logg *logger.Logger) (Uploader, io.Closer, error) {
	var (
		store ObjectStore
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.StorageDriverGCS:
		store, err = gcs.NewClient(ctx, cfg, gcp, logg)
	case config.StorageDriverS3:
		store, err = s3.NewClient(ctx, cfg, logg)
	default:
		return Disabled{}, noopCloser{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return NewBucketUploader(store, cfg.Prefix), store, nil
}
