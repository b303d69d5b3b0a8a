package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
	"github.com/smartcampus/campus-booking-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportPayload is a rendered report ready to be sent as a download.
type ExportPayload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService flattens usage reports into downloadable documents.
type ExportService struct {
	csv csvRenderer
	pdf pdfRenderer
}

// NewExportService instantiates ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer) *ExportService {
	return &ExportService{csv: csv, pdf: pdf}
}

// RenderUsage renders the usage report in the requested format.
func (s *ExportService) RenderUsage(report *models.UsageReport, format models.ReportFormat) (*ExportPayload, error) {
	dataset := usageDataset(report)
	stamp := time.Now().Format("2006-01-02")

	switch format {
	case models.ReportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ExportPayload{
			Filename:    fmt.Sprintf("usage-report-%s.csv", stamp),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case models.ReportFormatPDF:
		body, err := s.pdf.Render(dataset, "Classroom Usage Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ExportPayload{
			Filename:    fmt.Sprintf("usage-report-%s.pdf", stamp),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}

// usageDataset flattens the report sections into one table. Each row tags its
// section so a single document can hold all four aggregates.
func usageDataset(report *models.UsageReport) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Section", "Key", "Detail", "Count"},
	}
	for _, sc := range report.StatusCounts {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Booking Status",
			"Key":     sc.Status.String(),
			"Detail":  "",
			"Count":   strconv.Itoa(sc.Count),
		})
	}
	for _, ru := range report.RoomUsage {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Room Usage",
			"Key":     ru.RoomNumber,
			"Detail":  ru.RoomType,
			"Count":   strconv.Itoa(ru.ApprovedBookings),
		})
	}
	for _, ph := range report.PeakHours {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Peak Hours",
			"Key":     ph.Hour + ":00",
			"Detail":  "",
			"Count":   strconv.Itoa(ph.Bookings),
		})
	}
	for _, ru := range report.Underutilized {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Underutilized",
			"Key":     ru.RoomNumber,
			"Detail":  ru.RoomType,
			"Count":   strconv.Itoa(ru.ApprovedBookings),
		})
	}
	return dataset
}
