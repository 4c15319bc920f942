package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: password storage safety
// Passwords are never persisted in plaintext and verification only
// succeeds with the exact password used at creation time.

func TestProperty_PasswordHashing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	db, cleanup := setupTestDB(t)
	defer cleanup()
	service := NewUserService(db)

	counter := 0
	passwordGen := gen.Identifier().SuchThat(func(s string) bool {
		return len(s) >= 6
	})

	properties.Property("password_never_stored_in_plaintext", prop.ForAll(
		func(password string) bool {
			counter++
			username := fmt.Sprintf("user_plain_%d", counter)

			created, err := service.CreateUser(username, password, "")
			if err != nil {
				return false
			}

			if created.PasswordHash == password {
				return false
			}
			return strings.HasPrefix(created.PasswordHash, "$2")
		},
		passwordGen,
	))

	properties.Property("verify_accepts_only_the_original_password", prop.ForAll(
		func(password string) bool {
			counter++
			username := fmt.Sprintf("user_verify_%d", counter)

			if _, err := service.CreateUser(username, password, ""); err != nil {
				return false
			}

			if _, err := service.VerifyPassword(username, password); err != nil {
				return false
			}

			_, err := service.VerifyPassword(username, password+"x")
			return err == ErrInvalidCredentials
		},
		passwordGen,
	))

	properties.TestingRun(t)
}

func TestCreateUserValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	service := NewUserService(db)

	t.Run("short password rejected", func(t *testing.T) {
		if _, err := service.CreateUser("shorty", "12345", ""); err != ErrPasswordTooShort {
			t.Errorf("expected ErrPasswordTooShort, got %v", err)
		}
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		if _, err := service.CreateUser("agus", "password1", "Agus"); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		if _, err := service.CreateUser("agus", "password2", ""); err != ErrUserAlreadyExists {
			t.Errorf("expected ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("unknown user lookup", func(t *testing.T) {
		if _, err := service.GetUserByUsername("nobody"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	service := NewUserService(db)

	created, err := service.CreateUser("rina", "old-secret", "Rina")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("wrong old password rejected", func(t *testing.T) {
		if err := service.ChangePassword(created.ID, "not-it", "new-secret"); err != ErrInvalidCredentials {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("short new password rejected", func(t *testing.T) {
		if err := service.ChangePassword(created.ID, "old-secret", "tiny"); err != ErrPasswordTooShort {
			t.Errorf("expected ErrPasswordTooShort, got %v", err)
		}
	})

	t.Run("change invalidates the old password", func(t *testing.T) {
		if err := service.ChangePassword(created.ID, "old-secret", "new-secret"); err != nil {
			t.Fatalf("ChangePassword failed: %v", err)
		}
		if _, err := service.VerifyPassword("rina", "old-secret"); err != ErrInvalidCredentials {
			t.Errorf("old password should no longer verify, got %v", err)
		}
		if _, err := service.VerifyPassword("rina", "new-secret"); err != nil {
			t.Errorf("new password should verify, got %v", err)
		}
	})
}

func TestResetPassword(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	service := NewUserService(db)

	created, err := service.CreateUser("tono", "forgotten1", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := service.ResetPassword(created.ID, "fresh-start"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := service.VerifyPassword("tono", "forgotten1"); err != ErrInvalidCredentials {
		t.Errorf("old password should no longer verify, got %v", err)
	}
	if _, err := service.VerifyPassword("tono", "fresh-start"); err != nil {
		t.Errorf("reset password should verify, got %v", err)
	}

	if err := service.ResetPassword(created.ID+99, "whatever-works"); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound for missing user, got %v", err)
	}
}
