// Package bootstrap seeds the single Basic Auth operator account the
// HTTP layer authenticates against, so a fresh deployment has a
// working login without a separate provisioning step.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"mediascraper/internal/config"
	"mediascraper/internal/store"
)

// Run ensures the configured Basic Auth user exists, hashing its
// password with bcrypt. It is idempotent: if the user already exists,
// its credentials are left untouched so a later config change to
// BASIC_AUTH_PASSWORD doesn't silently invalidate a rotated password
// stored only in the database.
func Run(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if cfg == nil || st == nil {
		return nil
	}

	username := strings.TrimSpace(cfg.Auth.Username)
	if username == "" {
		return nil
	}

	_, err := st.GetUserByUsername(ctx, username)
	if err == nil {
		// Already provisioned; bootstrap never overwrites credentials.
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("bootstrap: look up user %q: %w", username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bootstrap: hash password: %w", err)
	}

	if _, err := st.CreateUser(ctx, username, string(hash)); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Another instance bootstrapped concurrently; benign.
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("bootstrap: create user %q: %w", username, err)
	}

	return nil
}
