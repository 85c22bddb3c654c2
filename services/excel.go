package services

import (
	"fmt"
	"io"
	"strings"

	"lms-module/logger"
	"lms-module/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const enrollmentSheet = "Enrollments"

var enrollmentHeaders = []interface{}{"Enrollment ID", "Student", "Email", "Course", "Amount", "Payment Ref", "Source", "Enrolled At"}

// ExportEnrollments writes the enrollments as an xlsx workbook.
func ExportEnrollments(w io.Writer, list []models.EnrollmentDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", enrollmentSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(enrollmentSheet, "A1", &enrollmentHeaders); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, e := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.ID,
			e.StudentName,
			e.StudentEmail,
			e.CourseTitle,
			e.Amount.InexactFloat64(),
			e.PaymentID,
			e.Source,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(enrollmentSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ParseCourseSheet reads courses from the first sheet of an xlsx workbook.
// Columns are matched by header name; rows without a title are skipped.
func ParseCourseSheet(r io.Reader) ([]models.Course, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	rows, err := f.GetRows(sheetList[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data in sheet")
	}

	cols := detectColumns(rows[0])
	if cols["title"] < 0 {
		return nil, fmt.Errorf("no title column found")
	}

	var courses []models.Course
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		title := extractField(row, cols["title"])
		if title == "" {
			logger.Debug("Course sheet row %d has no title, skipping", i+1)
			continue
		}

		course := models.Course{
			Title:       title,
			Description: extractField(row, cols["description"]),
			IsActive:    true,
		}
		if raw := extractField(row, cols["price"]); raw != "" {
			p, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid price %q", i+1, raw)
			}
			course.Price = decimal.NewNullDecimal(p)
		}
		if raw := strings.ToLower(extractField(row, cols["active"])); raw == "no" || raw == "false" || raw == "0" {
			course.IsActive = false
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// detectColumns finds column indices by matching header names
func detectColumns(headers []string) map[string]int {
	indices := map[string]int{
		"title":       -1,
		"description": -1,
		"price":       -1,
		"active":      -1,
	}

	for i, header := range headers {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "title", "course", "course title", "name":
			indices["title"] = i
		case "description", "summary":
			indices["description"] = i
		case "price", "fee", "amount", "price (kes)":
			indices["price"] = i
		case "active", "is_active", "published":
			indices["active"] = i
		}
	}
	return indices
}

// extractField safely extracts a field from a row
func extractField(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
