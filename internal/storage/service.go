// Package storage is the tenant-scoped object storage service. Every
// key lives under a tenant prefix, and every read-side operation
// validates ownership twice: once against the key prefix and once
// against the church id stamped into the object's metadata at upload
// time. A failure of either check is a denial, never a fallback.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

var (
	// ErrPermissionDenied means the object does not belong to the
	// caller's tenant, or the tenant may not use storage at all.
	ErrPermissionDenied = errors.New("storage: permission denied")
	// ErrTooLarge means the upload exceeds the configured size limit.
	ErrTooLarge = errors.New("storage: file too large")
	// ErrNotFound means the object does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrBackend wraps unexpected object store failures.
	ErrBackend = errors.New("storage: backend error")
)

// Object metadata key carrying the owning tenant. S3 lowercases
// metadata keys, so the constant is already lowercase.
const metadataChurchID = "church-id"

// objectAPI is the slice of the S3 client the service uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the slice of the S3 presign client the service uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Service provides tenant-scoped access to the photo bucket.
type Service struct {
	objects   objectAPI
	presigner presignAPI
	cfg       *config.StorageConfig
}

// New creates a storage service backed by S3. A custom endpoint (minio,
// localstack) switches the client to path-style addressing.
func New(ctx context.Context, cfg *config.StorageConfig) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Service{
		objects:   client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
	}, nil
}

// NewWithClients creates a storage service with explicit clients.
func NewWithClients(objects objectAPI, presigner presignAPI, cfg *config.StorageConfig) *Service {
	return &Service{objects: objects, presigner: presigner, cfg: cfg}
}

// MaxUploadSize returns the configured upload limit in bytes.
func (s *Service) MaxUploadSize() int64 { return s.cfg.MaxUploadSize }

// DerivePath builds the canonical key for a new object:
//
//	tenants/{church_id}/{category}/{uuid}_{filename}
//
// The filename is reduced to its base name and cleaned of anything that
// could escape the prefix. The tenant segment comes from the caller's
// resolved tenant, never from client input.
func DerivePath(tenantID, category, filename string) string {
	return fmt.Sprintf("tenants/%s/%s/%s_%s",
		tenantID, sanitizeSegment(category), uuid.New().String(), sanitizeFilename(filename))
}

func tenantPrefix(tenantID string) string {
	return "tenants/" + tenantID + "/"
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, s)
	if s == "" {
		return "uploads"
	}
	return s
}

// Upload stores a new object under the tenant's prefix and returns its
// key. The size limit is enforced before anything is written; inactive
// tenants cannot upload at all. The owning church id is stamped into
// the object metadata for the read-side ownership check.
func (s *Service) Upload(ctx context.Context, tenant *model.Tenant, category, filename, contentType string, size int64, body io.Reader) (string, error) {
	defer prometheus.TrackStorageOperation("upload")(time.Now())

	if tenant == nil || !tenant.Active {
		prometheus.RecordStorageOperation("upload", "denied")
		return "", fmt.Errorf("%w: tenant inactive", ErrPermissionDenied)
	}
	if size > s.cfg.MaxUploadSize {
		prometheus.RecordStorageOperation("upload", "too_large")
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, size, s.cfg.MaxUploadSize)
	}

	key := DerivePath(tenant.ID, category, filename)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.cfg.Bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ContentLength:        aws.Int64(size),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			metadataChurchID: tenant.ID,
		},
	})
	if err != nil {
		prometheus.RecordStorageOperation("upload", "error")
		return "", fmt.Errorf("%w: put object: %v", ErrBackend, err)
	}

	prometheus.RecordStorageOperation("upload", "ok")
	logger.FromContext(ctx).Info("object uploaded",
		zap.String("church_id", tenant.ID),
		zap.String("key", key),
		zap.Int64("size", size))
	return key, nil
}

// SignedURL produces a time-limited download URL after verifying the
// object belongs to the tenant. The requested lifetime is clamped into
// the configured window regardless of what the caller asked for.
func (s *Service) SignedURL(ctx context.Context, tenant *model.Tenant, key string, ttl time.Duration) (string, time.Duration, error) {
	defer prometheus.TrackStorageOperation("sign")(time.Now())

	if tenant == nil || !tenant.Active {
		prometheus.RecordStorageOperation("sign", "denied")
		return "", 0, fmt.Errorf("%w: tenant inactive", ErrPermissionDenied)
	}
	if err := s.verifyOwnership(ctx, tenant, key); err != nil {
		prometheus.RecordStorageOperation("sign", "denied")
		return "", 0, err
	}

	ttl = s.clampTTL(ttl)

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		prometheus.RecordStorageOperation("sign", "error")
		return "", 0, fmt.Errorf("%w: presign: %v", ErrBackend, err)
	}

	prometheus.RecordStorageOperation("sign", "ok")
	return req.URL, ttl, nil
}

// Delete removes an object after verifying ownership. Deleting an
// object that is already gone succeeds; the caller's intent is the
// absence of the object, not the removal itself.
func (s *Service) Delete(ctx context.Context, tenant *model.Tenant, key string) error {
	defer prometheus.TrackStorageOperation("delete")(time.Now())

	err := s.verifyOwnership(ctx, tenant, key)
	if errors.Is(err, ErrNotFound) {
		prometheus.RecordStorageOperation("delete", "ok")
		return nil
	}
	if err != nil {
		prometheus.RecordStorageOperation("delete", "denied")
		return err
	}

	if _, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		prometheus.RecordStorageOperation("delete", "error")
		return fmt.Errorf("%w: delete object: %v", ErrBackend, err)
	}

	prometheus.RecordStorageOperation("delete", "ok")
	return nil
}

// Stat returns metadata for an object the tenant owns.
func (s *Service) Stat(ctx context.Context, tenant *model.Tenant, key string) (*ObjectInfo, error) {
	defer prometheus.TrackStorageOperation("head")(time.Now())

	head, err := s.headOwned(ctx, tenant, key)
	if err != nil {
		return nil, err
	}
	info := &ObjectInfo{Key: key}
	if head.ContentLength != nil {
		info.Size = *head.ContentLength
	}
	if head.ContentType != nil {
		info.ContentType = *head.ContentType
	}
	return info, nil
}

// verifyOwnership runs the dual ownership check: the key must sit under
// the tenant's prefix AND the object metadata must name the same
// church. A prefix failure never reaches the backend.
func (s *Service) verifyOwnership(ctx context.Context, tenant *model.Tenant, key string) error {
	_, err := s.headOwned(ctx, tenant, key)
	return err
}

func (s *Service) headOwned(ctx context.Context, tenant *model.Tenant, key string) (*s3.HeadObjectOutput, error) {
	if tenant == nil {
		return nil, ErrPermissionDenied
	}
	if !strings.HasPrefix(key, tenantPrefix(tenant.ID)) {
		s.denyOwnership(ctx, tenant.ID, key, "key outside tenant prefix")
		return nil, ErrPermissionDenied
	}

	head, err := s.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: head object: %v", ErrBackend, err)
	}

	if owner := head.Metadata[metadataChurchID]; owner != tenant.ID {
		s.denyOwnership(ctx, tenant.ID, key, "metadata owner mismatch")
		return nil, ErrPermissionDenied
	}
	return head, nil
}

func (s *Service) denyOwnership(ctx context.Context, tenantID, key, reason string) {
	logger.FromContext(ctx).Warn("storage ownership check failed",
		logger.SecurityEvent("storage_ownership_violation"),
		zap.String("church_id", tenantID),
		zap.String("key", key),
		zap.String("reason", reason))
	prometheus.RecordSecurityEvent("storage_ownership_violation")
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl < s.cfg.SignedURLMin {
		return s.cfg.SignedURLMin
	}
	if ttl > s.cfg.SignedURLMax {
		return s.cfg.SignedURLMax
	}
	return ttl
}
