// Package contact persists contact requests. The buyer's email and phone are
// encrypted before they reach storage and decrypted on the way out, so
// callers only ever handle plaintext.
package contact

import (
	"fmt"

	"supplierhub/internal/contact/models"
)

// Cipher is the field encryption used at the storage boundary.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}

// sealed holds the encrypted columns of one record.
type sealed struct {
	email string
	phone string
}

func seal(c Cipher, contact *models.ContactRequest) (sealed, error) {
	email, err := c.Encrypt(contact.Email)
	if err != nil {
		return sealed{}, fmt.Errorf("encrypt contact email: %w", err)
	}
	phone, err := c.Encrypt(contact.Phone)
	if err != nil {
		return sealed{}, fmt.Errorf("encrypt contact phone: %w", err)
	}
	return sealed{email: email, phone: phone}, nil
}

func open(c Cipher, contact *models.ContactRequest, s sealed) error {
	email, err := c.Decrypt(s.email)
	if err != nil {
		return fmt.Errorf("decrypt contact %s email: %w", contact.ID, err)
	}
	phone, err := c.Decrypt(s.phone)
	if err != nil {
		return fmt.Errorf("decrypt contact %s phone: %w", contact.ID, err)
	}
	contact.Email = email
	contact.Phone = phone
	return nil
}
