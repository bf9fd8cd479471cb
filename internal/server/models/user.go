package models

import "time"

// User is a registered account. LoginPasswordHash is a bcrypt hash;
// MailPasswordCipher is the vault ciphertext of the mail app password.
type User struct {
	ID                 string
	Name               string
	Email              string
	LoginPasswordHash  string
	MailPasswordCipher string
	CreatedAt          time.Time
}
