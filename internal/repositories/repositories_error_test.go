package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
)

func TestAlbumRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordPlay", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewAlbumRepository(db)
			_, err := repo.RecordPlay(ctx, &models.Album{ID: "   "}, at(10))
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for a blank id, got %v", err)
			}

			n, err := repo.Count(ctx)
			if err != nil {
				t.Fatalf("failed to count albums: %v", err)
			}
			if n != 0 {
				t.Errorf("expected nothing written, got %d albums", n)
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewAlbumRepository(db)
			db.Close()

			if _, err := repo.RecordPlay(ctx, &models.Album{ID: "1"}, at(10)); err == nil {
				t.Fatal("expected error when the database is closed")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewAlbumRepository(db).Get(ctx, "nonexistent-id")
			if !errors.Is(err, shared.ErrAlbumNotFound) {
				t.Fatalf("expected ErrAlbumNotFound, got %v", err)
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewAlbumRepository(db)
			db.Close()

			_, err := repo.Get(ctx, "1")
			if err == nil || errors.Is(err, shared.ErrAlbumNotFound) {
				t.Fatalf("expected a query error, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewAlbumRepository(db)
			db.Close()

			if _, err := repo.List(ctx, models.OrderRecent); err == nil {
				t.Fatal("expected error when the database is closed")
			}
		})
	})

	t.Run("Touch", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewAlbumRepository(db)
			db.Close()

			if _, err := repo.Touch(ctx, "1", at(10)); err == nil {
				t.Fatal("expected error when the database is closed")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewAlbumRepository(db)
			db.Close()

			if err := repo.Delete(ctx, "1"); err == nil {
				t.Fatal("expected error when the database is closed")
			}
		})
	})
}

func TestCredentialRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		t.Run("MissingExpiration", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			err := NewCredentialRepository(db).Upsert(ctx, &models.Credential{
				UserKey:     models.DefaultUserKey,
				AccessToken: "access",
			})
			if err == nil {
				t.Fatal("expected validation error for a zero expiration")
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewCredentialRepository(db)
			db.Close()

			err := repo.Upsert(ctx, &models.Credential{
				UserKey:         models.DefaultUserKey,
				AccessToken:     "access",
				TokenExpiration: time.Now().Add(time.Hour),
			})
			if err == nil {
				t.Fatal("expected error when the database is closed")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewCredentialRepository(db)
			db.Close()

			_, err := repo.Get(ctx, models.DefaultUserKey)
			if err == nil || errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected a query error, got %v", err)
			}
		})
	})
}
