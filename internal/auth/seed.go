package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed manager password.
const seedPasswordBytes = 16

// SeedManager creates the initial manager account on first boot if no users
// exist. The generated password is logged once and must be changed
// immediately. Returns the generated password (empty if seeding was skipped).
func SeedManager(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping manager seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	manager := &User{
		Username:     "manager",
		Email:        "manager@localhost",
		PasswordHash: hash,
		Role:         RoleManager,
		Active:       true,
	}

	if err := userRepo.Create(ctx, manager); err != nil {
		return "", fmt.Errorf("creating seed manager: %w", err)
	}

	logger.Warn("seed manager account created",
		"username", "manager",
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
