package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/config"
)

const (
	ownerTenant = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	otherTenant = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

type storedObject struct {
	metadata    map[string]string
	contentType string
	size        int64
}

// fakeObjectStore records calls and serves objects from a map.
type fakeObjectStore struct {
	objects map[string]storedObject
	puts    int
	deletes int
	heads   int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]storedObject{}}
}

func (f *fakeObjectStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	var size int64
	if in.ContentLength != nil {
		size = *in.ContentLength
	}
	var contentType string
	if in.ContentType != nil {
		contentType = *in.ContentType
	}
	f.objects[*in.Key] = storedObject{
		metadata:    in.Metadata,
		contentType: contentType,
		size:        size,
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	obj, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NotFound{}
	}
	size := obj.size
	contentType := obj.contentType
	return &s3.HeadObjectOutput{
		Metadata:      obj.metadata,
		ContentLength: &size,
		ContentType:   &contentType,
	}, nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes++
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	lastExpires time.Duration
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := &s3.PresignOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	f.lastExpires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://example.com/signed/" + *in.Key}, nil
}

func newTestService() (*Service, *fakeObjectStore, *fakePresigner) {
	store := newFakeObjectStore()
	presigner := &fakePresigner{}
	svc := NewWithClients(store, presigner, &config.StorageConfig{
		Bucket:        "test-bucket",
		MaxUploadSize: 1024,
		SignedURLMin:  5 * time.Minute,
		SignedURLMax:  10 * time.Minute,
	})
	return svc, store, presigner
}

func activeTenant() *model.Tenant {
	return &model.Tenant{ID: ownerTenant, Name: "Grace Chapel", Active: true}
}

func TestUploadStampsOwnership(t *testing.T) {
	svc, store, _ := newTestService()

	key, err := svc.Upload(context.Background(), activeTenant(),
		"photos", "sunday.jpg", "image/jpeg", 100, bytes.NewReader(make([]byte, 100)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "tenants/"+ownerTenant+"/photos/"))
	obj, ok := store.objects[key]
	require.True(t, ok)
	assert.Equal(t, ownerTenant, obj.metadata[metadataChurchID])
}

func TestUploadRejectsOversizedBeforeWrite(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.Upload(context.Background(), activeTenant(),
		"photos", "huge.jpg", "image/jpeg", 4096, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, store.puts, "nothing may reach the backend")
}

func TestUploadRejectsInactiveTenant(t *testing.T) {
	svc, store, _ := newTestService()
	tenant := activeTenant()
	tenant.Active = false

	_, err := svc.Upload(context.Background(), tenant,
		"photos", "a.jpg", "image/jpeg", 10, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, store.puts)
}

func TestSignedURLClampsTTL(t *testing.T) {
	svc, _, presigner := newTestService()
	tenant := activeTenant()

	key, err := svc.Upload(context.Background(), tenant,
		"photos", "a.jpg", "image/jpeg", 10, bytes.NewReader(make([]byte, 10)))
	require.NoError(t, err)

	_, granted, err := svc.SignedURL(context.Background(), tenant, key, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, granted)
	assert.Equal(t, 5*time.Minute, presigner.lastExpires)

	_, granted, err = svc.SignedURL(context.Background(), tenant, key, 10*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, granted)

	_, granted, err = svc.SignedURL(context.Background(), tenant, key, 7*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Minute, granted)
}

func TestSignedURLDeniesInactiveTenant(t *testing.T) {
	svc, _, _ := newTestService()
	tenant := activeTenant()

	key, err := svc.Upload(context.Background(), tenant,
		"photos", "a.jpg", "image/jpeg", 10, bytes.NewReader(make([]byte, 10)))
	require.NoError(t, err)

	tenant.Active = false
	_, _, err = svc.SignedURL(context.Background(), tenant, key, 5*time.Minute)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSignedURLDeniesForeignPrefix(t *testing.T) {
	svc, store, _ := newTestService()

	foreignKey := "tenants/" + otherTenant + "/photos/abc_file.jpg"
	store.objects[foreignKey] = storedObject{metadata: map[string]string{metadataChurchID: otherTenant}}

	_, _, err := svc.SignedURL(context.Background(), activeTenant(), foreignKey, 5*time.Minute)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, store.heads, "prefix failures never reach the backend")
}

func TestSignedURLDeniesMetadataMismatch(t *testing.T) {
	svc, store, _ := newTestService()

	// Key under the caller's prefix, but the object metadata names a
	// different owner. Both checks must agree.
	key := "tenants/" + ownerTenant + "/photos/abc_file.jpg"
	store.objects[key] = storedObject{metadata: map[string]string{metadataChurchID: otherTenant}}

	_, _, err := svc.SignedURL(context.Background(), activeTenant(), key, 5*time.Minute)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService()
	tenant := activeTenant()

	key, err := svc.Upload(context.Background(), tenant,
		"photos", "a.jpg", "image/jpeg", 10, bytes.NewReader(make([]byte, 10)))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tenant, key))
	assert.NotContains(t, store.objects, key)

	// Second delete of an absent object still succeeds.
	require.NoError(t, svc.Delete(context.Background(), tenant, key))
}

func TestDeleteDeniesForeignObject(t *testing.T) {
	svc, store, _ := newTestService()

	key := "tenants/" + ownerTenant + "/photos/abc_file.jpg"
	store.objects[key] = storedObject{metadata: map[string]string{metadataChurchID: otherTenant}}

	err := svc.Delete(context.Background(), activeTenant(), key)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, store.deletes)
}

func TestStat(t *testing.T) {
	svc, _, _ := newTestService()
	tenant := activeTenant()

	key, err := svc.Upload(context.Background(), tenant,
		"photos", "a.jpg", "image/jpeg", 10, bytes.NewReader(make([]byte, 10)))
	require.NoError(t, err)

	info, err := svc.Stat(context.Background(), tenant, key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)
}

func TestDerivePathSanitizesFilename(t *testing.T) {
	key := DerivePath(ownerTenant, "photos", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(key, "tenants/"+ownerTenant+"/photos/"))
	assert.NotContains(t, key, "..")

	key = DerivePath(ownerTenant, "photos", "my photo (1).jpg")
	assert.NotContains(t, key, " ")
	assert.NotContains(t, key, "(")

	key = DerivePath(ownerTenant, "", "")
	assert.Contains(t, key, "/uploads/")
	assert.True(t, strings.HasSuffix(key, "_file"))
}
