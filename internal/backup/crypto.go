package backup

import (
	"fmt"
	"os"

	"github.com/dukerupert/toolshub/internal/credential"
)

// EncryptFile encrypts srcPath to dstPath with a key derived from passphrase
// and a fresh salt.
// Output format: [16-byte salt][12-byte nonce][AES-256-GCM ciphertext]
func EncryptFile(srcPath, dstPath, passphrase string) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	salt, err := credential.GenerateSalt()
	if err != nil {
		return err
	}
	aead, err := credential.NewAEAD(credential.DeriveKey(passphrase, salt))
	if err != nil {
		return err
	}
	sealed, err := credential.Seal(aead, plaintext)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(salt)+len(sealed))
	out = append(out, salt...)
	out = append(out, sealed...)

	if err := os.WriteFile(dstPath, out, 0600); err != nil {
		return fmt.Errorf("write encrypted file: %w", err)
	}
	return nil
}

// DecryptFile decrypts srcPath to dstPath, reading the salt from the file header.
func DecryptFile(srcPath, dstPath, passphrase string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read encrypted file: %w", err)
	}
	if len(data) < credential.SaltSize {
		return fmt.Errorf("encrypted file too small")
	}

	aead, err := credential.NewAEAD(credential.DeriveKey(passphrase, data[:credential.SaltSize]))
	if err != nil {
		return err
	}
	plaintext, err := credential.Open(aead, data[credential.SaltSize:])
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write decrypted file: %w", err)
	}
	return nil
}
