package services

import (
	"bytes"
	"testing"
	"time"

	"lms-module/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDetail() models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:        "e1",
			StudentID: "s1",
			CourseID:  "c1",
			PaymentID: "QKT1ABC",
			Amount:    decimal.NewFromInt(1500),
			Source:    models.SourceMpesa,
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		StudentName:  "Amina Otieno",
		StudentEmail: "amina@example.com",
		CourseTitle:  "Go 101",
	}
}

func TestRenderReceipt(t *testing.T) {
	d := sampleDetail()
	var buf bytes.Buffer

	require.NoError(t, RenderReceipt(&buf, &d))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderReceiptFreeEnrollment(t *testing.T) {
	d := sampleDetail()
	d.PaymentID = models.FreePaymentID
	d.Amount = decimal.Zero
	d.Source = models.SourceFree
	var buf bytes.Buffer

	require.NoError(t, RenderReceipt(&buf, &d))
	assert.NotZero(t, buf.Len())
}

func TestExportEnrollments(t *testing.T) {
	second := sampleDetail()
	second.ID = "e2"
	second.StudentName = "Brian Kip"
	var buf bytes.Buffer

	require.NoError(t, ExportEnrollments(&buf, []models.EnrollmentDetail{sampleDetail(), second}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(enrollmentSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Enrollment ID", rows[0][0])
	assert.Equal(t, "Amina Otieno", rows[1][1])
	assert.Equal(t, "e2", rows[2][0])
	assert.Equal(t, "QKT1ABC", rows[1][5])
}

func TestParseCourseSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]interface{}{
		{"Course Title", "Description", "Price", "Active"},
		{"Go 101", "Basics", "1500", "yes"},
		{"", "no title", "10", ""},
		{"Intro", "", "0", "no"},
		{"Draft", "", "", ""},
	}
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	courses, err := ParseCourseSheet(&buf)
	require.NoError(t, err)
	require.Len(t, courses, 3)

	assert.Equal(t, "Go 101", courses[0].Title)
	assert.True(t, courses[0].Price.Decimal.Equal(decimal.NewFromInt(1500)))
	assert.True(t, courses[0].IsActive)
	assert.False(t, courses[1].IsActive)
	assert.True(t, courses[1].Price.Valid)
	assert.False(t, courses[2].Price.Valid)
}

func TestParseCourseSheetWithoutTitleColumn(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue(f.GetSheetName(0), "A1", "Price"))
	require.NoError(t, f.SetCellValue(f.GetSheetName(0), "A2", "100"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseCourseSheet(&buf)
	assert.Error(t, err)
}
