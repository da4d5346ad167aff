package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog"
)

// FolderFetcher downloads the exports of a remote folder as local CSV files.
type FolderFetcher interface {
	FetchFolder(ctx context.Context, folderID, dir string) ([]string, error)
}

// DriveLoader pulls the latest ERP exports from a shared folder and reads
// them like local files. Files whose name contains ProductsMarker hold the
// catalog; the newest remaining file holds the demand lines.
type DriveLoader struct {
	Fetcher        FolderFetcher
	FolderID       string
	DownloadDir    string
	ProductsMarker string
	Now            func() time.Time
	Logger         zerolog.Logger
}

func NewDriveLoader(fetcher FolderFetcher, folderID, downloadDir string, logger zerolog.Logger) *DriveLoader {
	return &DriveLoader{
		Fetcher:        fetcher,
		FolderID:       folderID,
		DownloadDir:    downloadDir,
		ProductsMarker: "product",
		Now:            time.Now,
		Logger:         logger,
	}
}

func (l *DriveLoader) Load(ctx context.Context) (*replenishment.Snapshot, error) {
	if l.FolderID == "" {
		return nil, fmt.Errorf("drive folder id is required")
	}

	paths, err := l.Fetcher.FetchFolder(ctx, l.FolderID, l.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drive folder %s: %w", l.FolderID, err)
	}

	linesPath, productsPath := pickExports(paths, l.ProductsMarker)
	if linesPath == "" {
		return nil, fmt.Errorf("drive folder %s holds no demand export", l.FolderID)
	}

	l.Logger.Info().
		Str("folder_id", l.FolderID).
		Str("lines_file", filepath.Base(linesPath)).
		Str("products_file", filepath.Base(productsPath)).
		Msg("Using drive exports")

	files := &FileLoader{
		LinesPath:    linesPath,
		ProductsPath: productsPath,
		Now:          l.Now,
		Logger:       l.Logger,
	}
	return files.Load(ctx)
}

// pickExports chooses the demand and catalog files. Names are compared
// case-insensitively and the lexically greatest name wins, so dated export
// names resolve to the newest one.
func pickExports(paths []string, productsMarker string) (lines, products string) {
	sorted := append([]string(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(filepath.Base(sorted[i])) > strings.ToLower(filepath.Base(sorted[j]))
	})

	marker := strings.ToLower(productsMarker)
	for _, p := range sorted {
		name := strings.ToLower(filepath.Base(p))
		if marker != "" && strings.Contains(name, marker) {
			if products == "" {
				products = p
			}
			continue
		}
		if lines == "" {
			lines = p
		}
	}
	return lines, products
}
