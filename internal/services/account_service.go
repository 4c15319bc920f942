package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/Doni354/HORA-APIs-sub000/internal/database/models"
	"github.com/Doni354/HORA-APIs-sub000/internal/mail"
)

var (
	// ErrAccountNotFound indicates the mail account was not found
	ErrAccountNotFound = errors.New("mail account not found")
	// ErrInvalidAccountData indicates invalid account data
	ErrInvalidAccountData = errors.New("invalid account data")
	// ErrEncryptionFailed indicates credential encryption failed
	ErrEncryptionFailed = errors.New("credential encryption failed")
	// ErrDecryptionFailed indicates credential decryption failed
	ErrDecryptionFailed = errors.New("credential decryption failed")
	// ErrEmptyCredential indicates the stored credential decrypted to nothing
	ErrEmptyCredential = errors.New("stored credential is empty")
)

// AccountService manages linked mail accounts and their encrypted
// credentials. Credentials are stored AES-256-GCM encrypted and only ever
// decrypted to open a live session.
type AccountService struct {
	db            *gorm.DB
	encryptionKey []byte // 32 bytes for AES-256
	providers     *mail.ProviderDirectory
	logService    *LogService
}

// NewAccountService creates a new AccountService instance
func NewAccountService(db *gorm.DB, encryptionKey []byte, providers *mail.ProviderDirectory) *AccountService {
	// Ensure key is 32 bytes for AES-256
	key := make([]byte, 32)
	copy(key, encryptionKey)
	return &AccountService{
		db:            db,
		encryptionKey: key,
		providers:     providers,
		logService:    NewLogService(db),
	}
}

// encryptCredential encrypts a mail credential using AES-256-GCM
func (s *AccountService) encryptCredential(credential string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(credential), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptCredential decrypts a stored mail credential using AES-256-GCM
func (s *AccountService) decryptCredential(encrypted string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// LinkAccountInput represents the input for linking a mail account
type LinkAccountInput struct {
	UserID   uint
	Email    string
	Provider string
	Password string
	AuthType string
}

// LinkAccount verifies the credential against the provider's IMAP endpoint
// and persists it encrypted. Nothing is stored unless the live login
// succeeds. Re-linking an existing (user, email) pair replaces the stored
// credential.
func (s *AccountService) LinkAccount(input LinkAccountInput) (*models.MailAccount, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrInvalidAccountData
	}

	provider, err := s.providers.Lookup(input.Provider)
	if err != nil {
		return nil, err
	}

	// Live trial login before anything touches the database
	session, err := mail.Open(provider, input.Email, input.Password)
	if err != nil {
		s.logService.LogAccountLinkFailed(input.UserID, input.Email, err)
		return nil, err
	}
	session.Close()

	encrypted, err := s.encryptCredential(input.Password)
	if err != nil {
		return nil, err
	}

	authType := input.AuthType
	if authType == "" {
		authType = models.AuthTypePassword
	}

	now := time.Now()

	var account models.MailAccount
	err = s.db.Where("user_id = ? AND email = ?", input.UserID, input.Email).First(&account).Error
	switch {
	case err == nil:
		account.Provider = provider.Name
		account.PasswordEncrypted = encrypted
		account.AuthType = authType
		account.Active = true
		account.ConnectedAt = &now
		if err := s.db.Save(&account).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.MailAccount{
			UserID:            input.UserID,
			Email:             input.Email,
			Provider:          provider.Name,
			PasswordEncrypted: encrypted,
			AuthType:          authType,
			Active:            true,
			ConnectedAt:       &now,
		}
		if err := s.db.Create(&account).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.logService.LogAccountLinked(input.UserID, account.Email, provider.Name)

	return &account, nil
}

// Get retrieves a user's linked account by email address
func (s *AccountService) Get(userID uint, email string) (*models.MailAccount, error) {
	var account models.MailAccount
	if err := s.db.Where("user_id = ? AND email = ?", userID, email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts retrieves all mail accounts linked by a user
func (s *AccountService) ListAccounts(userID uint) ([]models.MailAccount, error) {
	var accounts []models.MailAccount
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UnlinkAccount removes a linked account and its stored credential
func (s *AccountService) UnlinkAccount(userID uint, email string) error {
	result := s.db.Where("user_id = ? AND email = ?", userID, email).Delete(&models.MailAccount{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	s.logService.LogAccountUnlinked(userID, email)
	return nil
}

// Credential returns the decrypted credential of a linked account
func (s *AccountService) Credential(account *models.MailAccount) (string, error) {
	password, err := s.decryptCredential(account.PasswordEncrypted)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyCredential
	}
	return password, nil
}

// ProviderFor resolves the provider configuration of a linked account
func (s *AccountService) ProviderFor(account *models.MailAccount) (mail.ProviderConfig, error) {
	return s.providers.Lookup(account.Provider)
}

// OpenSession opens a live IMAP session for one of the user's linked
// accounts. The caller owns the session and must Close it.
func (s *AccountService) OpenSession(userID uint, email string) (*mail.Session, *models.MailAccount, error) {
	account, err := s.Get(userID, email)
	if err != nil {
		return nil, nil, err
	}

	password, err := s.Credential(account)
	if err != nil {
		return nil, nil, err
	}

	provider, err := s.providers.Lookup(account.Provider)
	if err != nil {
		return nil, nil, err
	}

	session, err := mail.Open(provider, account.Email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", mail.ErrConnectionFailed, err)
	}
	return session, account, nil
}
