package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// Sentinel errors for object store operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object exceeds maximum allowed size")
	ErrBadObjectKey   = errors.New("object key is invalid")
)

// MaxObjectSize caps uploads at 10 MB, enough for a phone camera photo.
const MaxObjectSize = 10 * 1024 * 1024

// objectBuckets is the closed set of buckets the API accepts.
var objectBuckets = map[string]bool{
	"profiles":      true,
	"water-sources": true,
}

// ObjectStore persists binary objects as rows and resolves public URLs.
type ObjectStore struct {
	db      *gorm.DB
	logger  *slog.Logger
	baseURL string
	metrics *metrics.GatewayMetrics // optional
}

// NewObjectStore creates an object store. baseURL is the externally
// reachable gateway address used to build public URLs.
func NewObjectStore(db *gorm.DB, logger *slog.Logger, baseURL string, m *metrics.GatewayMetrics) (*ObjectStore, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if baseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	return &ObjectStore{
		db:      db,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: m,
	}, nil
}

// Put stores data under bucket/key, overwriting any existing object at the
// same key, and returns the stored object's metadata.
func (o *ObjectStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) (*StoredObject, error) {
	if err := validateObjectPath(bucket, key); err != nil {
		o.uploadResult(bucket, "error")
		return nil, err
	}
	if len(data) > MaxObjectSize {
		o.uploadResult(bucket, "error")
		return nil, ErrObjectTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := &StoredObject{
		ID:          uuid.NewString(),
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}

	// Upsert on (bucket, key): repeated uploads replace the object
	// instead of accumulating.
	err := o.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bucket"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"content_type": contentType,
			"size":         int64(len(data)),
			"data":         data,
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(obj).Error
	if err != nil {
		o.uploadResult(bucket, "error")
		return nil, fmt.Errorf("failed to store object %s/%s: %w", bucket, key, err)
	}

	o.uploadResult(bucket, "success")
	if o.metrics != nil {
		o.metrics.ObjectBytesStored.Add(float64(len(data)))
	}

	o.logger.Info("object stored", "bucket", bucket, "key", key, "size", len(data))
	return obj, nil
}

// Get fetches the object stored at bucket/key.
func (o *ObjectStore) Get(ctx context.Context, bucket, key string) (*StoredObject, error) {
	if err := validateObjectPath(bucket, key); err != nil {
		return nil, err
	}

	var obj StoredObject
	err := o.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", bucket, key).
		Take(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load object %s/%s: %w", bucket, key, err)
	}
	return &obj, nil
}

// PublicURL resolves the externally reachable URL for bucket/key. The URL is
// deterministic and does not require the object to exist yet.
func (o *ObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/%s/%s", o.baseURL, bucket, key)
}

func (o *ObjectStore) uploadResult(bucket, status string) {
	if o.metrics != nil {
		o.metrics.ObjectUploadsTotal.WithLabelValues(bucket, status).Inc()
	}
}

// validateObjectPath rejects unknown buckets and traversal-shaped keys.
func validateObjectPath(bucket, key string) error {
	if !objectBuckets[bucket] {
		return fmt.Errorf("%w: unknown bucket %q", ErrBadObjectKey, bucket)
	}
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrBadObjectKey, key)
	}
	return nil
}
