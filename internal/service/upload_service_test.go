package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/session"
)

type storageStub struct {
	uploaded  bytes.Buffer
	deleted   []string
	uploadErr error
	deleteErr error
	uploads   int
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads++
	s.uploaded.Reset()
	_, err := s.uploaded.ReadFrom(reader)
	if err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

func (s *storageStub) Delete(ctx context.Context, url string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, url)
	return nil
}

type uploadRepoStub struct {
	record  models.UploadRecord
	stored  []models.UploadRecord
	removed []string
}

func (u *uploadRepoStub) FindByChecksum(ctx context.Context, userID uint, checksum string) (models.UploadRecord, error) {
	for _, rec := range u.stored {
		if rec.UserID != nil && *rec.UserID == userID && rec.Checksum == checksum {
			return rec, nil
		}
	}
	return models.UploadRecord{}, gorm.ErrRecordNotFound
}

func (u *uploadRepoStub) Create(ctx context.Context, record *models.UploadRecord) error {
	u.record = *record
	u.stored = append(u.stored, *record)
	return nil
}

func (u *uploadRepoStub) DeleteByURL(ctx context.Context, url string) error {
	u.removed = append(u.removed, url)
	return nil
}

var uploader = session.User{ID: 7, Role: session.RoleStudent}

func TestUploadServiceRejectsSize(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 1, testLogger())

	file := buildFileHeader(t, "file.pdf", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Upload(context.Background(), uploader, file, false)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadServiceTypeValidation(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	file := buildFileHeader(t, "run.exe", []byte{0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00})
	_, err := svc.Upload(context.Background(), uploader, file, false)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadServiceRequiresSessionAndFile(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	_, err := svc.Upload(context.Background(), session.Anonymous, buildFileHeader(t, "a.txt", []byte("hello")), false)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Upload(context.Background(), uploader, nil, false)
	require.ErrorIs(t, err, ErrUploadMissing)
}

func TestUploadServiceSuccessReturnsFileRef(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	file := buildFileHeader(t, "Sketch Book.png", pngHeader)

	resp, err := svc.Upload(context.Background(), uploader, file, true)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/sketch-book.png", resp.URL)
	require.Equal(t, "image", repo.record.MimeType)
	require.Equal(t, uint(7), *repo.record.UserID)
	require.Len(t, resp.Checksum, 64)

	require.Equal(t, resp.URL, resp.File.URL)
	require.Equal(t, "Sketch Book.png", resp.File.Name)
	require.Equal(t, "image/png", resp.File.Type)
	require.True(t, resp.File.IsProcessDocumentation)
	require.False(t, resp.File.CreatedAt.IsZero())
}

func TestUploadServiceAcceptsPlainText(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	resp, err := svc.Upload(context.Background(), uploader, buildFileHeader(t, "notes.txt", []byte("first draft of my poem")), false)
	require.NoError(t, err)
	require.Equal(t, "text/plain", resp.MimeType)
}

func TestUploadServiceStorageFailureIsRetryable(t *testing.T) {
	svc := NewUploadService(&storageStub{uploadErr: errors.New("timeout")}, &uploadRepoStub{}, 5, testLogger())

	_, err := svc.Upload(context.Background(), uploader, buildFileHeader(t, "notes.txt", []byte("draft")), false)
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestUploadServiceRemove(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	require.NoError(t, svc.Remove(context.Background(), "https://cdn.example.com/a.png"))
	require.Equal(t, []string{"https://cdn.example.com/a.png"}, storage.deleted)
	require.Equal(t, []string{"https://cdn.example.com/a.png"}, repo.removed)

	storage.deleteErr = errors.New("cdn down")
	require.Error(t, svc.Remove(context.Background(), "https://cdn.example.com/b.png"))
	require.Len(t, repo.removed, 1)

	require.NoError(t, svc.Remove(context.Background(), "  "))
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadServiceReusesIdenticalUpload(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	first, err := svc.Upload(context.Background(), uploader, buildFileHeader(t, "one.png", pngHeader), false)
	require.NoError(t, err)

	second, err := svc.Upload(context.Background(), uploader, buildFileHeader(t, "two.png", pngHeader), true)
	require.NoError(t, err)
	require.Equal(t, 1, storage.uploads)
	require.Equal(t, first.URL, second.URL)
	require.Equal(t, "two.png", second.File.Name)
	require.True(t, second.File.IsProcessDocumentation)

	other := session.User{ID: 8, Role: session.RoleStudent}
	_, err = svc.Upload(context.Background(), other, buildFileHeader(t, "one.png", pngHeader), false)
	require.NoError(t, err)
	require.Equal(t, 2, storage.uploads)
}
