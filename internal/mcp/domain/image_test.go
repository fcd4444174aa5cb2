package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/assetsmith/assetsmith/internal/forge"
	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

type fakeImageService struct {
	lastRemove   forge.RemoveBackgroundInput
	lastDescribe forge.DescribeImageInput
	image        forge.RawImage
	description  string
	err          error
}

func (f *fakeImageService) RemoveBackground(_ context.Context, in forge.RemoveBackgroundInput) (forge.RawImage, error) {
	f.lastRemove = in
	return f.image, f.err
}

func (f *fakeImageService) DescribeImage(_ context.Context, in forge.DescribeImageInput) (string, error) {
	f.lastDescribe = in
	return f.description, f.err
}

type fakeDownloader struct {
	lastURL string
	path    string
	written int64
	err     error
}

func (f *fakeDownloader) Download(_ context.Context, url, _, _, _ string) (string, int64, error) {
	f.lastURL = url
	return f.path, f.written, f.err
}

func TestRemoveBackgroundHandlerFromLocalFile(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(imagePath, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	service := &fakeImageService{image: forge.RawImage{URI: "https://x/clean.png", ContentType: "image/png"}}
	downloader := &fakeDownloader{path: "/tmp/clean.png", written: 99}
	handler := RemoveBackgroundHandler(service, downloader, "ws-1")

	_, result, err := handler(context.Background(), nil, RemoveBackgroundInput{ImagePath: imagePath})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if result.Error != nil {
		t.Fatalf("result.Error = %+v", result.Error)
	}
	if service.lastRemove.ImageBase64 != "YWJj" {
		t.Fatalf("ImageBase64 = %q, want base64 of file content", service.lastRemove.ImageBase64)
	}
	if service.lastRemove.ImageURL != "" {
		t.Fatal("ImageURL should be cleared when a local file is given")
	}
	if downloader.lastURL != "https://x/clean.png" {
		t.Fatalf("downloaded %q", downloader.lastURL)
	}
	if result.OutputPath != "/tmp/clean.png" || result.BytesWritten != 99 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRemoveBackgroundHandlerMissingFile(t *testing.T) {
	service := &fakeImageService{}
	handler := RemoveBackgroundHandler(service, &fakeDownloader{}, "ws-1")

	_, result, err := handler(context.Background(), nil, RemoveBackgroundInput{ImagePath: "/nope/missing.png"})
	if err != nil {
		t.Fatalf("handler error = %v, failures must come back structured", err)
	}
	if result.Error == nil || result.Error.Classification != "validation" {
		t.Fatalf("result.Error = %+v, want validation classification", result.Error)
	}
}

func TestDescribeImageHandlerDefaults(t *testing.T) {
	service := &fakeImageService{description: "a mossy stone wall"}
	handler := DescribeImageHandler(service, "ws-1")

	_, result, err := handler(context.Background(), nil, DescribeImageInput{ImageURL: "https://x/wall.png"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if result.Description != "a mossy stone wall" {
		t.Fatalf("Description = %q", result.Description)
	}
	if service.lastDescribe.DetailLevel != "DETAILED" {
		t.Fatalf("DetailLevel = %q, want DETAILED default", service.lastDescribe.DetailLevel)
	}
	if service.lastDescribe.WorkspaceID != "ws-1" {
		t.Fatalf("WorkspaceID = %q", service.lastDescribe.WorkspaceID)
	}
}

func TestDescribeImageHandlerRemoteRejection(t *testing.T) {
	service := &fakeImageService{err: errors.New(errors.CodeRemoteRejected, "unsupported image format")}
	handler := DescribeImageHandler(service, "ws-1")

	_, result, err := handler(context.Background(), nil, DescribeImageInput{ImageURL: "https://x/wall.tiff"})
	if err != nil {
		t.Fatalf("handler error = %v, failures must come back structured", err)
	}
	if result.Error == nil || result.Error.Code != string(errors.CodeRemoteRejected) {
		t.Fatalf("result.Error = %+v", result.Error)
	}
}
