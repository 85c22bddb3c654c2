package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lms-module/config"
	"lms-module/logger"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(cfg *config.Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DBConnString())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	// Test the connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Info("Connected to database %s on %s:%s", cfg.DBName, cfg.DBHost, cfg.DBPort)
	return conn, nil
}

// Migrate creates every table the service needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, conn *sql.DB) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"courses", courseTable},
		{"students", studentTable},
		{"enrollments", enrollmentTable},
		{"payment_requests", paymentRequestTable},
		{"mpesa_callbacks", callbackTable},
		{"dlq_messages", dlqTable},
	}

	// Order matters: enrollments reference students and courses
	for _, t := range tables {
		if _, err := conn.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("error creating %s table: %w", t.name, err)
		}
	}

	logger.Info("Database migrations applied (%d tables)", len(tables))
	return nil
}

const courseTable = `
CREATE TABLE IF NOT EXISTS courses (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

	CONSTRAINT courses_price_non_negative CHECK (price IS NULL OR price >= 0)
);`

const studentTable = `
CREATE TABLE IF NOT EXISTS students (
	id TEXT PRIMARY KEY,
	purchaser_id TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const enrollmentTable = `
CREATE TABLE IF NOT EXISTS enrollments (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	payment_id TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	source TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

	CONSTRAINT enrollments_student_course_payment_key
		UNIQUE (student_id, course_id, payment_id),

	CONSTRAINT fk_enrollment_student
		FOREIGN KEY (student_id)
		REFERENCES students(id)
		ON DELETE CASCADE,

	CONSTRAINT fk_enrollment_course
		FOREIGN KEY (course_id)
		REFERENCES courses(id)
		ON DELETE RESTRICT
);`

const paymentRequestTable = `
CREATE TABLE IF NOT EXISTS payment_requests (
	id TEXT PRIMARY KEY,
	merchant_request_id TEXT NOT NULL UNIQUE,
	checkout_request_id TEXT NOT NULL DEFAULT '',
	correlation TEXT NOT NULL,
	course_id TEXT NOT NULL,
	purchaser_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	receipt_number TEXT NOT NULL DEFAULT '',
	result_desc TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const callbackTable = `
CREATE TABLE IF NOT EXISTS mpesa_callbacks (
	id SERIAL PRIMARY KEY,
	checkout_request_id TEXT NOT NULL UNIQUE,
	merchant_request_id TEXT NOT NULL DEFAULT '',
	result_code INTEGER,
	payload TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'RECEIVED',
	reason TEXT NOT NULL DEFAULT '',
	delivery_count INTEGER NOT NULL DEFAULT 1,
	received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const dlqTable = `
CREATE TABLE IF NOT EXISTS dlq_messages (
	id SERIAL PRIMARY KEY,
	message_id TEXT NOT NULL UNIQUE,
	topic TEXT NOT NULL,
	key TEXT NOT NULL DEFAULT '',
	value TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 5,
	resolved BOOLEAN NOT NULL DEFAULT FALSE,
	resolved_at TIMESTAMP,
	last_retry_at TIMESTAMP,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
