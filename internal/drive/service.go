package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON []byte) (*Service, error) {
	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	// Create the JWT client
	client := config.Client(ctx)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

// NewServiceFromFile reads service-account credentials from path.
func NewServiceFromFile(ctx context.Context, path string) (*Service, error) {
	if path == "" {
		return nil, fmt.Errorf("drive credentials file is not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	return NewService(ctx, data)
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// IsSpreadsheet reports whether the file is a native Google Sheet, which is
// exported as CSV.
func (f *File) IsSpreadsheet() bool {
	return f.MimeType == spreadsheetMimeType
}

// Format returns how the file's content is read.
func (f *File) Format() (ingest.Format, error) {
	if f.IsSpreadsheet() {
		return ingest.FormatCSV, nil
	}
	if format, err := ingest.DetectFormat(f.Name); err == nil {
		return format, nil
	}
	return ingest.DetectFormat(f.MimeType)
}

// Importable reports whether the file holds a CSV, XLSX or Sheets export.
func (f *File) Importable() bool {
	_, err := f.Format()
	return err == nil
}

// LocalName is the file name used when archiving a downloaded copy.
func (f *File) LocalName() string {
	name := filepath.Base(f.Name)
	if f.IsSpreadsheet() && !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return name
}

const fileFields = "id, name, mimeType, modifiedTime, size"

func fromDrive(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
	}
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}

	err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("nextPageToken, files(" + fileFields + ")").
		OrderBy("name").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, fromDrive(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	return files, nil
}

func (s *Service) GetFile(ctx context.Context, fileID string) (*File, error) {
	f, err := s.srv.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve file %s: %w", fileID, err)
	}
	return fromDrive(f), nil
}

// DownloadFile streams the file content to w. Native sheets are exported as CSV.
func (s *Service) DownloadFile(ctx context.Context, f *File, w io.Writer) error {
	var body io.ReadCloser
	if f.IsSpreadsheet() {
		resp, err := s.srv.Files.Export(f.ID, "text/csv").Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to export file: %w", err)
		}
		body = resp.Body
	} else {
		resp, err := s.srv.Files.Get(f.ID).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to download file: %w", err)
		}
		body = resp.Body
	}
	defer body.Close()

	_, err := io.Copy(w, body)
	return err
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	folders := strings.Split(path, "/")
	currentID := "root"

	for _, folder := range folders {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("%w: folder %s", ErrNotFound, folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

var _ Source = (*Service)(nil)

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}
