package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// remote is the part of Service the downloader needs.
type remote interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls ERP exports out of a Drive folder.
type Downloader struct {
	service remote
}

func NewDownloader(s *Service) *Downloader {
	return &Downloader{service: s}
}

// DownloadFolderCSV downloads all CSV and XLSX files of a folder into
// DownloadDir and returns local CSV paths. XLSX files are converted from
// their first sheet and the downloaded workbook removed.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.service.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.IsFolder() {
			continue
		}

		path, err := d.DownloadCSV(ctx, f, opts.DownloadDir)
		if err != nil {
			return nil, err
		}
		if path != "" {
			localPaths = append(localPaths, path)
		}
	}

	log.Info().
		Str("folder_id", opts.FolderID).
		Int("files", len(localPaths)).
		Msg("Downloaded ERP exports from Drive")

	return localPaths, nil
}

// FetchFolder downloads a folder's exports into dir.
func (d *Downloader) FetchFolder(ctx context.Context, folderID, dir string) ([]string, error) {
	return d.DownloadFolderCSV(ctx, DownloadOptions{FolderID: folderID, DownloadDir: dir})
}

// DownloadCSV stores one Drive file as CSV under dir. Files that are neither
// CSV nor XLSX are ignored and yield an empty path.
func (d *Downloader) DownloadCSV(ctx context.Context, f *File, dir string) (string, error) {
	name := filepath.Base(f.Name)
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		return "", nil
	}

	localPath := filepath.Join(dir, name)
	if err := d.download(ctx, f, localPath); err != nil {
		return "", err
	}
	if ext == ".csv" {
		return localPath, nil
	}

	csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
	if err := convertXLSXToCSV(localPath, csvPath); err != nil {
		return "", fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
	}
	_ = os.Remove(localPath)
	return csvPath, nil
}

func (d *Downloader) download(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	if err := d.service.DownloadFile(ctx, f.ID, out); err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return nil
}
