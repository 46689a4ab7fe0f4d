package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// seedUserFile is the on-disk shape of a seed user file (TOML)
type seedUserFile struct {
	Users []seedUser `toml:"users"`
}

type seedUser struct {
	Email           string `toml:"email"`
	Secret          string `toml:"secret"`      // Plaintext, hashed on load
	SecretHash      string `toml:"secret_hash"` // Pre-hashed, takes precedence
	Role            string `toml:"role"`
	SupervisorEmail string `toml:"supervisor_email"`
}

// LoadUsersFromFiles loads seed users from TOML files in dirPath. Existing
// users (matched by email) are never overwritten; supervisors are resolved
// by email in a second pass so file ordering does not matter.
func LoadUsersFromFiles(ctx context.Context, users interfaces.UserStorage, dirPath string, logger arbor.ILogger) error {
	if dirPath == "" {
		return nil
	}
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("dir", dirPath).Msg("Seed users directory not found, skipping")
			return nil
		}
		return fmt.Errorf("failed to read users directory: %w", err)
	}

	var pending []seedUser
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read seed user file")
			continue
		}
		var file seedUserFile
		if err := toml.Unmarshal(data, &file); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse seed user file")
			continue
		}
		pending = append(pending, file.Users...)
	}

	loaded := 0
	for _, seed := range pending {
		if seed.Email == "" || !models.Role(seed.Role).Valid() {
			logger.Warn().Str("email", seed.Email).Str("role", seed.Role).Msg("Skipping invalid seed user")
			continue
		}
		if _, err := users.GetUserByEmail(ctx, seed.Email); err == nil {
			continue // Already present
		}

		hash := seed.SecretHash
		if hash == "" {
			if seed.Secret == "" {
				logger.Warn().Str("email", seed.Email).Msg("Seed user has no secret, skipping")
				continue
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(seed.Secret), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash secret for %s: %w", seed.Email, err)
			}
			hash = string(hashed)
		}

		user := &models.User{
			ID:         common.NewUserID(),
			Email:      seed.Email,
			SecretHash: hash,
			Role:       models.Role(seed.Role),
		}
		if err := users.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("failed to save seed user %s: %w", seed.Email, err)
		}
		loaded++
	}

	// Second pass: resolve supervisor references by email
	for _, seed := range pending {
		if seed.SupervisorEmail == "" {
			continue
		}
		user, err := users.GetUserByEmail(ctx, seed.Email)
		if err != nil || user.SupervisorID != "" {
			continue
		}
		supervisor, err := users.GetUserByEmail(ctx, seed.SupervisorEmail)
		if err != nil {
			logger.Warn().Str("email", seed.Email).Str("supervisor", seed.SupervisorEmail).Msg("Supervisor not found for seed user")
			continue
		}
		user.SupervisorID = supervisor.ID
		if err := users.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("failed to link supervisor for %s: %w", seed.Email, err)
		}
	}

	if loaded > 0 {
		logger.Info().Int("count", loaded).Str("dir", dirPath).Msg("Seed users loaded")
	}
	return nil
}
