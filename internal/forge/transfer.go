package forge

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
	"github.com/assetsmith/assetsmith/internal/platform/timeouts"
)

// MaxUploadBytes caps the size of a local file accepted for upload.
const MaxUploadBytes = 50 << 20 // 50 MiB

// Transfer moves artifact bytes between the local filesystem and remote
// storage. Control-plane calls (upload-slot creation) go through the GraphQL
// client; the byte transfers themselves are plain HTTP against
// pre-authorized URLs.
type Transfer struct {
	client      *Client
	workspaceID string
	mediaBase   string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewTransfer builds a Transfer. httpClient may be nil; per-call deadlines
// bound the transfers either way.
func NewTransfer(client *Client, workspaceID, mediaBase string, httpClient *http.Client, logger zerolog.Logger) *Transfer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Transfer{
		client:      client,
		workspaceID: workspaceID,
		mediaBase:   strings.TrimRight(mediaBase, "/"),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Upload validates localPath, obtains an upload slot from the control plane,
// and PUTs the file bytes to it. Validation failures carry validation codes
// and never touch the network; a failed slot acquisition keeps its remote or
// transport code; a failed byte transfer is a transfer error. The three are
// distinguishable so a batch caller can tell which files never got a slot
// from which got one and failed to move.
func (t *Transfer) Upload(ctx context.Context, localPath string) (UploadedFile, error) {
	if err := validateLocalFile(localPath); err != nil {
		return UploadedFile{}, err
	}

	filename := filepath.Base(localPath)
	slot, err := t.client.CreateUploadSlot(ctx, t.workspaceID, filename)
	if err != nil {
		return UploadedFile{}, err
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return UploadedFile{}, errors.Wrap(errors.CodeValidationFileNotFound, "read "+localPath, err)
	}

	putCtx, cancel := context.WithTimeout(ctx, timeouts.Upload)
	defer cancel()

	req, err := http.NewRequestWithContext(putCtx, http.MethodPut, slot.URL, bytes.NewReader(content))
	if err != nil {
		return UploadedFile{}, errors.Wrap(errors.CodeTransferUpload, "build upload request", err)
	}
	req.ContentLength = int64(len(content))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return UploadedFile{}, errors.Wrap(errors.CodeTransferUpload, "upload "+filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return UploadedFile{}, errors.WithMetadata(errors.CodeTransferUpload,
			fmt.Sprintf("upload of %s returned status %d", filename, resp.StatusCode),
			map[string]string{"status": fmt.Sprint(resp.StatusCode)})
	}

	t.logger.Debug().Str("path", localPath).Str("file_id", slot.FileID).Msg("uploaded input file")
	return UploadedFile{
		LocalPath:    localPath,
		RemoteURL:    fmt.Sprintf("%s/workspaces/%s/files/%s/%s", t.mediaBase, t.workspaceID, slot.FileID, filename),
		RemoteFileID: slot.FileID,
	}, nil
}

// Download fetches url and persists the bytes. The response content-type
// header drives extension resolution, falling back to declaredContentType
// and then to the extension embedded in declaredName. It returns the final
// path and the number of bytes written.
func (t *Transfer) Download(ctx context.Context, url, targetPath, declaredContentType, declaredName string) (string, int64, error) {
	getCtx, cancel := context.WithTimeout(ctx, timeouts.Download)
	defer cancel()

	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, errors.Wrap(errors.CodeTransferDownload, "build download request", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, errors.Wrap(errors.CodeTransferDownload, "download artifact", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.WithMetadata(errors.CodeTransferDownload,
			fmt.Sprintf("artifact download returned status %d", resp.StatusCode),
			map[string]string{"status": fmt.Sprint(resp.StatusCode)})
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.Wrap(errors.CodeTransferDownload, "read artifact body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = declaredContentType
	}
	ext := ResolveExtension(contentType, declaredName)
	finalPath := ResolveTargetPath(targetPath, declaredName, ext)

	if dir := filepath.Dir(finalPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", 0, errors.Wrap(errors.CodeTransferDownload, "create output dir", err)
		}
	}
	if err := os.WriteFile(finalPath, content, 0o644); err != nil {
		return "", 0, errors.Wrap(errors.CodeTransferDownload, "write artifact", err)
	}

	t.logger.Debug().Str("path", finalPath).Int("bytes", len(content)).Msg("persisted artifact")
	return finalPath, int64(len(content)), nil
}

// InlineBase64 validates a local image and returns its base64 encoding for
// inline submission. The same pre-flight rules as Upload apply.
func InlineBase64(localPath string) (string, error) {
	if err := validateLocalFile(localPath); err != nil {
		return "", err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.Wrap(errors.CodeValidationFileNotFound, "read "+localPath, err)
	}
	return base64.StdEncoding.EncodeToString(content), nil
}

// validateLocalFile applies the pre-flight checks shared by every upload
// path: the file must exist, be a regular file, be non-empty, and fit the
// size cap. All checks are local; no network call is wasted on a file that
// cannot be sent.
func validateLocalFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New(errors.CodeValidationPathEmpty, "file path cannot be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.CodeValidationFileNotFound, "file not found: "+path)
		}
		return errors.Wrap(errors.CodeValidationFileNotFound, "stat "+path, err)
	}
	if !info.Mode().IsRegular() {
		return errors.New(errors.CodeValidationNotRegularFile, "path is not a regular file: "+path)
	}
	if info.Size() == 0 {
		return errors.New(errors.CodeValidationFileEmpty, "file is empty: "+path)
	}
	if info.Size() > MaxUploadBytes {
		return errors.WithMetadata(errors.CodeValidationFileTooLarge,
			fmt.Sprintf("file exceeds %d MiB: %s", MaxUploadBytes>>20, path),
			map[string]string{"size": fmt.Sprint(info.Size())})
	}
	return nil
}

// ResolveExtension picks a file extension from a content type, falling back
// to the extension embedded in the declared filename and finally to .png.
// It is a pure function of its inputs.
func ResolveExtension(contentType, filename string) string {
	mimeType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	mimeType = strings.TrimSpace(mimeType)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		switch {
		case strings.Contains(mimeType, "png"):
			return ".png"
		case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
			return ".jpg"
		case strings.Contains(mimeType, "gif"):
			return ".gif"
		case strings.Contains(mimeType, "svg"):
			return ".svg"
		case strings.Contains(mimeType, "webp"):
			return ".webp"
		default:
			return ".png"
		}
	case strings.HasPrefix(mimeType, "video/"):
		switch {
		case strings.Contains(mimeType, "mp4"):
			return ".mp4"
		case strings.Contains(mimeType, "webm"):
			return ".webm"
		case strings.Contains(mimeType, "avi"):
			return ".avi"
		default:
			return ".mp4"
		}
	case strings.HasPrefix(mimeType, "audio/"):
		switch {
		case strings.Contains(mimeType, "wav"):
			return ".wav"
		case strings.Contains(mimeType, "mp3"):
			return ".mp3"
		case strings.Contains(mimeType, "ogg"):
			return ".ogg"
		default:
			return ".wav"
		}
	case strings.HasPrefix(mimeType, "model/"), mimeType == "application/octet-stream":
		return ".glb"
	default:
		if ext := filepath.Ext(filename); ext != "" {
			return ext
		}
		return ".png"
	}
}

// ResolveTargetPath resolves where an artifact lands. A target ending in a
// path separator is a directory and receives the declared filename's stem
// plus the resolved extension; a target that already carries an extension is
// used verbatim; otherwise the resolved extension is appended.
func ResolveTargetPath(targetPath, declaredName, ext string) string {
	if targetPath == "" {
		targetPath = "." + string(os.PathSeparator)
	}
	if os.IsPathSeparator(targetPath[len(targetPath)-1]) {
		stem := strings.TrimSuffix(filepath.Base(declaredName), filepath.Ext(declaredName))
		if stem == "" || stem == "." {
			stem = "asset"
		}
		return filepath.Join(targetPath, stem+ext)
	}
	if filepath.Ext(targetPath) != "" {
		return targetPath
	}
	return targetPath + ext
}
