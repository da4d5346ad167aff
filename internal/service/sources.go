package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/rs/zerolog"
)

// Snapshot source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceDrive    = "drive"
)

// ErrPathNotAllowed is returned for request file paths outside the input directory.
var ErrPathNotAllowed = errors.New("file path not allowed")

// SourceRequest names the snapshot a run should compute from.
type SourceRequest struct {
	Kind         string `json:"source"`
	LinesFile    string `json:"lines_file,omitempty"`
	ProductsFile string `json:"products_file,omitempty"`
	FolderID     string `json:"folder_id,omitempty"`
	SnapshotDate string `json:"snapshot_date,omitempty"`
}

// Sources builds loaders for the snapshot sources that are configured. Nil
// collaborators disable the matching source kind.
//
// File paths named in a request are resolved against InputDir and must stay
// inside it; with no InputDir they are refused. AllowAnyPath lifts the check
// for trusted callers such as the command line. The configured LinesFile and
// ProductsFile are always accepted.
type Sources struct {
	Demand       source.DemandStore
	Catalog      source.CatalogStore
	Fetcher      source.FolderFetcher
	DownloadDir  string
	InputDir     string
	AllowAnyPath bool
	LinesFile    string
	ProductsFile string
	Logger       zerolog.Logger
}

// Loader returns the loader for a request and the source kind it resolved to.
// Without an explicit kind the database wins when configured, then local files.
func (s *Sources) Loader(req SourceRequest) (source.Loader, string, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		switch {
		case req.FolderID != "":
			kind = SourceDrive
		case req.LinesFile != "":
			kind = SourceFile
		case s.Demand != nil:
			kind = SourcePostgres
		default:
			kind = SourceFile
		}
	}

	switch kind {
	case SourceFile:
		if req.LinesFile == "" {
			if req.ProductsFile != "" {
				return nil, kind, fmt.Errorf("products_file requires lines_file")
			}
			if s.LinesFile == "" {
				return nil, kind, fmt.Errorf("no demand export configured")
			}
			return source.NewFileLoader(s.LinesFile, s.ProductsFile, s.Logger), kind, nil
		}
		lines, err := s.requestPath(req.LinesFile)
		if err != nil {
			return nil, kind, err
		}
		products := ""
		if req.ProductsFile != "" {
			if products, err = s.requestPath(req.ProductsFile); err != nil {
				return nil, kind, err
			}
		}
		return source.NewFileLoader(lines, products, s.Logger), kind, nil

	case SourcePostgres:
		if s.Demand == nil || s.Catalog == nil {
			return nil, kind, fmt.Errorf("database source is not configured")
		}
		loader := source.NewPostgresLoader(s.Demand, s.Catalog, s.Logger)
		if req.SnapshotDate != "" {
			date, err := time.Parse("2006-01-02", req.SnapshotDate)
			if err != nil {
				return nil, kind, fmt.Errorf("invalid snapshot date %q", req.SnapshotDate)
			}
			loader.Date = date
		}
		return loader, kind, nil

	case SourceDrive:
		if s.Fetcher == nil {
			return nil, kind, fmt.Errorf("drive source is not configured")
		}
		if req.FolderID == "" {
			return nil, kind, fmt.Errorf("folder_id is required for the drive source")
		}
		return source.NewDriveLoader(s.Fetcher, req.FolderID, s.DownloadDir, s.Logger), kind, nil

	default:
		return nil, kind, fmt.Errorf("unknown snapshot source %q", req.Kind)
	}
}

func (s *Sources) requestPath(p string) (string, error) {
	if s.AllowAnyPath {
		return p, nil
	}
	if s.InputDir == "" {
		return "", fmt.Errorf("%w: %q, no input directory is configured", ErrPathNotAllowed, p)
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %q must be relative to the input directory", ErrPathNotAllowed, p)
	}

	base := filepath.Clean(s.InputDir)
	full := filepath.Join(base, p)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the input directory", ErrPathNotAllowed, p)
	}
	return full, nil
}
