package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
	"github.com/noah-isme/sma-space-scheduler/pkg/export"
	"github.com/noah-isme/sma-space-scheduler/pkg/storage"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Sweep(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes a rendered file and its download link.
type ExportResult struct {
	Path      string
	Token     string
	URL       string
	Format    string
	ExpiresAt time.Time
}

var sessionColumns = []export.Column{
	{Key: "date", Title: "Date", Width: 24},
	{Key: "day", Title: "Day", Width: 22},
	{Key: "start", Title: "Start", Width: 14},
	{Key: "end", Title: "End", Width: 14},
	{Key: "room", Title: "Room", Width: 30},
	{Key: "teacher", Title: "Teacher", Width: 30},
	{Key: "type", Title: "Type"},
	{Key: "title", Title: "Title"},
}

// ExportService renders the sessions of a timetable to CSV or PDF and hands
// out signed download links.
type ExportService struct {
	timetables TimetableStore
	storage    fileStorage
	signer     *storage.SignedURLSigner
	renderers  map[string]tableRenderer
	logger     *zap.Logger
	cfg        SchedulingConfig
	exportCfg  ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(timetables TimetableStore, files fileStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg SchedulingConfig, exportCfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exportCfg.ResultTTL <= 0 {
		exportCfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		timetables: timetables,
		storage:    files,
		signer:     signer,
		renderers: map[string]tableRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger:    logger,
		cfg:       cfg.withDefaults(),
		exportCfg: exportCfg,
	}
}

// ExportSessions expands a stored timetable and renders its sessions.
func (s *ExportService) ExportSessions(ctx context.Context, timetableID, format string) (*ExportResult, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Inputf("unsupported export format %q", format)
	}
	timetable, err := loadTimetable(ctx, s.timetables, timetableID)
	if err != nil {
		return nil, err
	}
	result, err := scheduler.GenerateSemesterSessions(ctx, timetable.Entries, dateIn(timetable.YearStart, s.cfg.Location), timetable.WeekCount,
		scheduler.GenerateOptions{Workers: s.cfg.GenerationWorkers})
	if err != nil {
		return nil, err
	}

	table := SessionsTable(timetable, result.Sessions)
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	name := exportFilename(timetable, renderer.Extension())
	path, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(storage.Ref{ID: timetable.ID, Path: path, ContentType: renderer.ContentType()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	prefix := strings.TrimRight(s.exportCfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("timetable exported",
		zap.String("timetable_id", timetable.ID),
		zap.String("format", format),
		zap.Int("sessions", len(result.Sessions)),
	)
	return &ExportResult{
		Path:      path,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*os.File, storage.Ref, error) {
	ref, _, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, storage.Ref{}, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, storage.Ref{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.storage.Open(ref.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.Ref{}, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, storage.Ref{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, ref, nil
}

// Cleanup removes exports older than ttl, or the configured result TTL when
// ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.exportCfg.ResultTTL
	}
	return s.storage.Sweep(ttl)
}

// SessionsTable lays out generated sessions as an export table.
func SessionsTable(timetable *models.Timetable, sessions []models.GeneratedSession) export.Table {
	rows := make([]map[string]string, 0, len(sessions))
	for _, session := range sessions {
		res := session.Reservation
		rows = append(rows, map[string]string{
			"date":    session.Date.Format(dateLayout),
			"day":     capitalize(string(models.WeekdayOf(session.Date.Weekday()))),
			"start":   models.TimeOfDayOf(res.Start).String(),
			"end":     models.TimeOfDayOf(res.End).String(),
			"room":    res.SpaceID,
			"teacher": res.TeacherID,
			"type":    string(res.SessionType),
			"title":   res.Title,
		})
	}
	return export.Table{
		Title:   fmt.Sprintf("%s v%d", timetable.Name, timetable.Version),
		Columns: sessionColumns,
		Rows:    rows,
	}
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func exportFilename(timetable *models.Timetable, ext string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("timetable_%s_v%s_%s.%s", sanitizeFilename(timetable.Name), strconv.Itoa(timetable.Version), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
