package services

import (
	"fmt"
	"io"

	"lms-module/models"

	"github.com/jung-kurt/gofpdf"
)

// RenderReceipt writes a one-page PDF receipt for an enrollment.
func RenderReceipt(w io.Writer, d *models.EnrollmentDetail) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Enrollment receipt "+d.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Enrollment Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(45, 8, label)
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, value)
		pdf.Ln(8)
	}
	line("Receipt No:", d.ID)
	line("Date:", d.CreatedAt.Format("02 Jan 2006 15:04"))
	line("Student:", d.StudentName)
	line("Email:", d.StudentEmail)
	line("Course:", d.CourseTitle)

	if d.PaymentID == models.FreePaymentID {
		line("Amount:", "Free enrollment")
	} else {
		line("Amount:", "KES "+d.Amount.StringFixed(2))
		line("Payment Ref:", d.PaymentID)
	}
	line("Paid via:", d.Source)

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 8, "Thank you for learning with us.")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error generating receipt PDF: %w", err)
	}
	return nil
}
