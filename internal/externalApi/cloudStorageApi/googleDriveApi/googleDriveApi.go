package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"

	appPropertyKey   = "app"
	appPropertyValue = "index_rebalancer"

	listPageSize = 100
)

// reportsQuery matches only files uploaded by UploadFile.
var reportsQuery = fmt.Sprintf("appProperties has { key='%s' and value='%s' } and trashed = false", appPropertyKey, appPropertyValue)

type GoogleDriveApi struct {
	srv     *drive.Service
	fileTTL time.Duration
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService", slog.String("err", err.Error()))
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, fileTTL: cfg.GoogleDrive.FileTTL}
}

// UploadFile stores a report and shares it read-only with anyone holding the link.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	fileMeta := &drive.File{
		Name:          filename,
		MimeType:      mime.TypeByExtension(filepath.Ext(filename)),
		Description:   "index rebalance report",
		AppProperties: map[string]string{appPropertyKey: appPropertyValue},
	}

	uploaded, err := a.srv.Files.Create(fileMeta).Media(reader).Context(ctx).Do()
	if err != nil {
		slog.Error("failed on uploading report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err = a.srv.Permissions.Create(uploaded.Id, perm).Context(ctx).Do(); err != nil {
		slog.Error("failed on sharing report", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploaded.Id), nil
}

// DeleteOldFiles removes uploaded reports older than the configured TTL.
// Files that were not uploaded by this service are never touched.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	var reports []*drive.File
	err := a.srv.Files.List().
		Q(reportsQuery).
		Fields("nextPageToken, files(id, name, createdTime)").
		PageSize(listPageSize).
		Pages(ctx, func(page *drive.FileList) error {
			reports = append(reports, page.Files...)
			return nil
		})
	if err != nil {
		slog.Error("failed on listing reports", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	expired := expiredFiles(reports, time.Now().Add(-a.fileTTL))

	deleted := 0
	for _, id := range expired {
		if err := a.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
			slog.Error("failed delete report", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", id), slog.String("err", err.Error()))
			continue
		}
		deleted++
	}

	slog.Info("old reports cleaned",
		slog.String("rqID", rqID),
		slog.Int("reports", len(reports)),
		slog.Int("expired", len(expired)),
		slog.Int("deleted", deleted),
	)

	return nil
}

// expiredFiles returns ids of files created before deadline. Files with an
// unparsable creation time are kept.
func expiredFiles(files []*drive.File, deadline time.Time) []string {
	var ids []string
	for _, f := range files {
		created, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			slog.Warn("report has unparsable createdTime", slog.String("fileID", f.Id), slog.String("createdTime", f.CreatedTime))
			continue
		}
		if created.Before(deadline) {
			ids = append(ids, f.Id)
		}
	}
	return ids
}
