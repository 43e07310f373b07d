package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptionKeySize is the size of the AES-256 key in bytes.
	EncryptionKeySize = 32
	// SaltSize is the size of the salt for key derivation.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000

	// VaultFile is the encrypted credentials file name inside the config dir.
	VaultFile = "credentials.enc"

	vaultVersion = 1
)

// ErrWrongPassword is returned when the vault cannot be decrypted.
var ErrWrongPassword = errors.New("wrong master password or corrupted vault")

// VaultCredentials is the plaintext stored in the vault.
type VaultCredentials struct {
	OpenAIKey     string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`
}

type encryptedVault struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Version    int    `json:"version"`
}

// Vault stores generator credentials encrypted with a master password.
type Vault struct {
	path string
}

// NewVault returns the vault kept in configDir.
func NewVault(configDir string) *Vault {
	return &Vault{path: filepath.Join(configDir, VaultFile)}
}

// Path returns the vault file path.
func (v *Vault) Path() string {
	return v.path
}

// Exists reports whether the vault file is present.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// Save encrypts creds and writes them with owner-only permissions.
func (v *Vault) Save(password string, creds VaultCredentials) error {
	if password == "" {
		return fmt.Errorf("master password is empty")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	nonce, ciphertext, err := encrypt(plaintext, deriveKey(password, salt))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(encryptedVault{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Version:    vaultVersion,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling vault: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(v.path), 0700); err != nil {
		return fmt.Errorf("creating vault directory: %w", err)
	}
	return os.WriteFile(v.path, data, 0600)
}

// Load decrypts the vault.
func (v *Vault) Load(password string) (VaultCredentials, error) {
	var creds VaultCredentials

	data, err := os.ReadFile(v.path)
	if err != nil {
		return creds, fmt.Errorf("reading vault: %w", err)
	}

	var enc encryptedVault
	if err := json.Unmarshal(data, &enc); err != nil {
		return creds, fmt.Errorf("parsing vault: %w", err)
	}
	if enc.Version != vaultVersion {
		return creds, fmt.Errorf("unsupported vault version %d", enc.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(enc.Salt)
	if err != nil {
		return creds, fmt.Errorf("decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return creds, fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return creds, fmt.Errorf("decoding ciphertext: %w", err)
	}

	plaintext, err := decrypt(ciphertext, deriveKey(password, salt), nonce)
	if err != nil {
		return creds, ErrWrongPassword
	}

	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds, nil
}

// deriveKey derives an encryption key from a password using PBKDF2.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, EncryptionKeySize, sha256.New)
}

// encrypt encrypts plaintext using AES-256-GCM.
func encrypt(plaintext, key []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}
