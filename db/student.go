package db

import (
	"context"

	"lms-module/errors"
	"lms-module/models"

	"github.com/google/uuid"
)

const studentColumns = `id, purchaser_id, email, first_name, last_name, avatar_url, created_at`

func scanStudent(row rowScanner) (*models.Student, error) {
	var st models.Student
	if err := row.Scan(&st.ID, &st.PurchaserID, &st.Email, &st.FirstName, &st.LastName, &st.AvatarURL, &st.CreatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpsertStudent creates the local record for a purchaser if none exists and
// returns the stored record. An existing record is never overwritten.
func (s *Store) UpsertStudent(ctx context.Context, p models.PurchaserProfile) (*models.Student, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, purchaser_id, email, first_name, last_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (purchaser_id) DO NOTHING`,
		uuid.NewString(), p.ID, p.Email, p.FirstName, p.LastName, p.AvatarURL)
	if err != nil {
		return nil, persistenceError("error upserting student", err)
	}
	return s.GetStudentByPurchaser(ctx, p.ID)
}

// GetStudentByPurchaser returns the student for a purchaser or a NotFound error.
func (s *Store) GetStudentByPurchaser(ctx context.Context, purchaserID string) (*models.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE purchaser_id = $1`, purchaserID)
	st, err := scanStudent(row)
	if isNoRows(err) {
		return nil, errors.E(errors.NotFound, "no student for purchaser "+purchaserID)
	}
	if err != nil {
		return nil, internalError("error fetching student", err)
	}
	return st, nil
}
