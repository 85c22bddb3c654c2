package utils

// List paging defaults
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Kenyan MSISDN prefix used by M-Pesa
const KenyaDialCode = "254"
