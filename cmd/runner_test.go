package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/repositories"
	"github.com/desertthunder/tidalx/internal/services"
	"github.com/desertthunder/tidalx/internal/shared"
	tu "github.com/desertthunder/tidalx/internal/testing"
	"github.com/urfave/cli/v3"
)

// fakeTidal serves canned responses for the commands.
type fakeTidal struct {
	history []models.TrackPlay
	playErr error
	played  []string
	code    string
}

func (f *fakeTidal) AuthURL(state string) string {
	return "https://login.tidal.test/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeTidal) Exchange(ctx context.Context, code string) (*models.Credential, error) {
	f.code = code
	if code != "good" {
		return nil, shared.ErrAuthFailed
	}
	return &models.Credential{
		UserKey:         "ignored",
		TidalUserID:     "4242",
		AccessToken:     "access",
		RefreshToken:    "refresh",
		TokenExpiration: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeTidal) RecentHistory(ctx context.Context, cred *models.Credential) (*models.Credential, []models.TrackPlay, error) {
	return cred, f.history, nil
}

func (f *fakeTidal) Favorites(ctx context.Context, cred *models.Credential) (*models.Credential, *services.FavoriteAlbums, error) {
	return cred, &services.FavoriteAlbums{}, nil
}

func (f *fakeTidal) AlbumDetails(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, *services.TidalAlbum, error) {
	return cred, &services.TidalAlbum{ID: services.FlexID(albumID)}, nil
}

func (f *fakeTidal) PlayAlbum(ctx context.Context, cred *models.Credential, albumID string) (*models.Credential, error) {
	f.played = append(f.played, albumID)
	return cred, f.playErr
}

type testEnv struct {
	runner *Runner
	output *bytes.Buffer
	store  *repositories.Store
	tidal  *fakeTidal
	config *shared.Config
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "tidalx.db")

	env := &testEnv{
		output: &bytes.Buffer{},
		store:  repositories.NewStore(db),
		tidal:  &fakeTidal{},
		config: config,
	}
	env.runner = NewRunner(RunnerOpts{
		Config: config,
		Store:  env.store,
		Tidal:  env.tidal,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: env.output,
	})
	return env
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{
		Name:     "tidalx",
		Flags:    rootFlags(),
		Before:   e.runner.Before,
		Commands: e.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"tidalx"}, args...))
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	err := e.store.Credentials.Upsert(context.Background(), &models.Credential{
		UserKey:         models.DefaultUserKey,
		AccessToken:     "access",
		RefreshToken:    "refresh",
		TokenExpiration: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to store credential: %v", err)
	}
}

func (e *testEnv) seed(t *testing.T, albums ...*models.Album) {
	t.Helper()
	for _, album := range albums {
		for i := 0; i < album.ListenCount; i++ {
			if _, err := e.store.Albums.RecordPlay(context.Background(), album, album.LastListened); err != nil {
				t.Fatalf("failed to seed album: %v", err)
			}
		}
	}
}

func play(trackID, albumID, title string, sec int64) models.TrackPlay {
	return models.TrackPlay{
		TrackID:    trackID,
		AlbumID:    albumID,
		AlbumTitle: title,
		Artist:     "Artist " + albumID,
		PlayedAt:   time.Unix(sec, 0).UTC(),
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			tidal := &fakeTidal{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Tidal:  tidal,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.tidal != tidal {
				t.Error("expected tidal to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("loads config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[server]\nuser_key = \"alice\"\n\n[log]\nlevel = \"warn\"\n"
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
			app := &cli.Command{Name: "tidalx", Flags: rootFlags(), Before: runner.Before, Action: func(context.Context, *cli.Command) error { return nil }}
			if err := app.Run(context.Background(), []string{"tidalx", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.userKey() != "alice" {
				t.Errorf("expected user key from file, got %s", runner.userKey())
			}
			if runner.logger.GetLevel() != log.WarnLevel {
				t.Errorf("expected warn level, got %v", runner.logger.GetLevel())
			}
		})

		t.Run("verbose enables debug", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Logger: shared.NewLogger(&bytes.Buffer{})})
			app := &cli.Command{Name: "tidalx", Flags: rootFlags(), Before: runner.Before, Action: func(context.Context, *cli.Command) error { return nil }}
			if err := app.Run(context.Background(), []string{"tidalx", "-v"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected debug level, got %v", runner.logger.GetLevel())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "auth", "sync", "albums", "play", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("tidalClient requires credentials", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Tidal.ClientID = ""
		runner := NewRunner(RunnerOpts{Config: config})

		if _, err := runner.tidalClient(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("sync", func(t *testing.T) {
		t.Run("ingests history", func(t *testing.T) {
			env := setupEnv(t)
			env.connect(t)
			env.tidal.history = []models.TrackPlay{
				play("t3", "100", "Blue", 30),
				play("t2", "200", "Green", 20),
				play("t1", "100", "Blue", 10),
			}

			if err := env.run("sync"); err != nil {
				t.Fatalf("sync failed: %v", err)
			}

			if !strings.Contains(env.output.String(), "Synced 3 tracks, 2 albums") {
				t.Errorf("expected summary, got %q", env.output.String())
			}

			album, err := env.store.Albums.Get(context.Background(), "100")
			if err != nil {
				t.Fatalf("expected album 100 to be stored: %v", err)
			}
			if album.ListenCount != 1 || !album.LastListened.Equal(time.Unix(30, 0)) {
				t.Errorf("expected first occurrence to win, got count=%d last=%v", album.ListenCount, album.LastListened)
			}
		})

		t.Run("requires a credential", func(t *testing.T) {
			env := setupEnv(t)

			err := env.run("sync")
			if !shared.IsAuthError(err) {
				t.Fatalf("expected auth error, got %v", err)
			}
			if !strings.Contains(err.Error(), "tidalx auth") {
				t.Errorf("expected hint to run auth, got %v", err)
			}
		})
	})

	t.Run("albums list", func(t *testing.T) {
		env := setupEnv(t)
		env.seed(t,
			tu.Album("1", "First", "Alpha", 3, time.Unix(100, 0)),
			tu.Album("2", "Second", "Beta", 1, time.Unix(200, 0)),
		)

		t.Run("recent as text", func(t *testing.T) {
			env.output.Reset()
			if err := env.run("albums", "list"); err != nil {
				t.Fatalf("albums list failed: %v", err)
			}

			out := env.output.String()
			first, second := strings.Index(out, "Beta - Second"), strings.Index(out, "Alpha - First")
			if first < 0 || second < 0 || first > second {
				t.Errorf("expected most recent album first, got %q", out)
			}
		})

		t.Run("by count as JSON", func(t *testing.T) {
			env.output.Reset()
			if err := env.run("albums", "list", "--sort", "count", "--json"); err != nil {
				t.Fatalf("albums list failed: %v", err)
			}

			var albums []models.Album
			if err := json.Unmarshal(env.output.Bytes(), &albums); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if len(albums) != 2 || albums[0].ID != "1" || albums[0].ListenCount != 3 {
				t.Errorf("expected album 1 first with 3 listens, got %+v", albums)
			}
		})

		t.Run("limit", func(t *testing.T) {
			env.output.Reset()
			if err := env.run("albums", "list", "--limit", "1", "--json"); err != nil {
				t.Fatalf("albums list failed: %v", err)
			}

			var albums []models.Album
			if err := json.Unmarshal(env.output.Bytes(), &albums); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if len(albums) != 1 {
				t.Errorf("expected 1 album, got %d", len(albums))
			}
		})

		t.Run("invalid sort", func(t *testing.T) {
			err := env.run("albums", "list", "--sort", "alphabetical")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("albums export", func(t *testing.T) {
		env := setupEnv(t)
		env.seed(t, tu.Album("1", "First", "Alpha", 2, time.Unix(100, 0)))

		t.Run("to file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "albums.csv")
			if err := env.run("albums", "export", "--format", "csv", "--output", path); err != nil {
				t.Fatalf("export failed: %v", err)
			}

			content := tu.MustReadFile(t, path)
			if !strings.Contains(content, "1,First,Alpha,2,") {
				t.Errorf("expected album row, got %q", content)
			}
		})

		t.Run("to stdout", func(t *testing.T) {
			env.output.Reset()
			if err := env.run("albums", "export", "-f", "markdown", "-o", "-"); err != nil {
				t.Fatalf("export failed: %v", err)
			}
			if !strings.Contains(env.output.String(), "# Recently Listened Albums") {
				t.Errorf("expected markdown on stdout, got %q", env.output.String())
			}
		})

		t.Run("unknown format", func(t *testing.T) {
			err := env.run("albums", "export", "--format", "xml")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("albums delete", func(t *testing.T) {
		env := setupEnv(t)
		env.seed(t, tu.Album("1", "First", "Alpha", 1, time.Unix(100, 0)))

		if err := env.run("albums", "delete", "1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := env.store.Albums.Get(context.Background(), "1"); !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected album to be gone, got %v", err)
		}

		if err := env.run("albums", "delete", "1"); !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound for a missing album, got %v", err)
		}
		if err := env.run("albums", "delete"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("play", func(t *testing.T) {
		t.Run("counts the listen", func(t *testing.T) {
			env := setupEnv(t)
			env.connect(t)
			env.seed(t, tu.Album("1", "First", "Alpha", 1, time.Unix(100, 0)))

			if err := env.run("play", "1"); err != nil {
				t.Fatalf("play failed: %v", err)
			}

			album, err := env.store.Albums.Get(context.Background(), "1")
			if err != nil {
				t.Fatalf("failed to get album: %v", err)
			}
			if album.ListenCount != 2 {
				t.Errorf("expected listen count 2, got %d", album.ListenCount)
			}
			if len(env.tidal.played) != 1 || env.tidal.played[0] != "1" {
				t.Errorf("expected album 1 played, got %v", env.tidal.played)
			}
		})

		t.Run("unsupported prints link", func(t *testing.T) {
			env := setupEnv(t)
			env.connect(t)
			env.tidal.playErr = fmt.Errorf("%w: status 404", shared.ErrPlaybackUnsupported)

			if err := env.run("play", "77"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "https://tidal.com/browse/album/77") {
				t.Errorf("expected album link, got %q", env.output.String())
			}
		})
	})

	t.Run("auth status", func(t *testing.T) {
		env := setupEnv(t)

		if err := env.run("auth", "status", "--json"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if strings.TrimSpace(env.output.String()) != `{"authenticated":false}` {
			t.Errorf("expected unauthenticated status, got %q", env.output.String())
		}

		env.connect(t)
		env.output.Reset()
		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Connected (default)") {
			t.Errorf("expected connected status, got %q", env.output.String())
		}
	})

	t.Run("setup", func(t *testing.T) {
		t.Run("database", func(t *testing.T) {
			env := setupEnv(t)
			if err := env.run("setup", "database"); err != nil {
				t.Fatalf("setup database failed: %v", err)
			}
			tu.AssertFileExists(t, env.config.Database.Path)
			if !strings.Contains(env.output.String(), "Version:  2 of 2") {
				t.Errorf("expected migrations applied, got %q", env.output.String())
			}
		})

		t.Run("config", func(t *testing.T) {
			env := setupEnv(t)
			path := filepath.Join(t.TempDir(), "config.toml")

			if err := env.run("--config", path, "setup", "config"); err != nil {
				t.Fatalf("setup config failed: %v", err)
			}
			tu.AssertFileExists(t, path)

			if err := env.run("--config", path, "setup", "config"); err == nil {
				t.Error("expected error when the config already exists")
			}
		})

		t.Run("env", func(t *testing.T) {
			env := setupEnv(t)
			if err := env.run("setup", "env"); err != nil {
				t.Fatalf("setup env failed: %v", err)
			}
			if !strings.Contains(env.output.String(), "TIDAL_CLIENT_ID") {
				t.Errorf("expected env variables listed, got %q", env.output.String())
			}
		})
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		uri, addr, path string
	}{
		{"http://localhost:3001/auth/callback", "localhost:3001", "/auth/callback"},
		{"http://127.0.0.1:8080", "127.0.0.1:8080", "/"},
		{"https://example.com/cb", "example.com:443", "/cb"},
		{"http://example.com/cb", "example.com:80", "/cb"},
	}

	for _, tt := range tests {
		addr, path, err := callbackAddr(tt.uri)
		if err != nil {
			t.Errorf("callbackAddr(%q) failed: %v", tt.uri, err)
			continue
		}
		if addr != tt.addr || path != tt.path {
			t.Errorf("callbackAddr(%q) = %s %s, want %s %s", tt.uri, addr, path, tt.addr, tt.path)
		}
	}

	if _, _, err := callbackAddr("/relative"); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// freeRedirectURI returns a callback URI on a port that was free a moment ago.
func freeRedirectURI(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr + "/auth/callback"
}

// stubBrowser replaces openBrowser with a function that follows the Tidal redirect back to the
// callback with the given code.
func stubBrowser(t *testing.T, redirectURI, code string) {
	t.Helper()
	original := openBrowser
	t.Cleanup(func() { openBrowser = original })

	openBrowser = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		callback := fmt.Sprintf("%s?code=%s&state=%s", redirectURI, code, url.QueryEscape(u.Query().Get("state")))
		go func() {
			resp, err := http.Get(callback)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestAuthLogin(t *testing.T) {
	t.Run("stores credential under the configured key", func(t *testing.T) {
		env := setupEnv(t)
		env.config.Server.UserKey = "alice"
		env.config.Credentials.Tidal.RedirectURI = freeRedirectURI(t)
		stubBrowser(t, env.config.Credentials.Tidal.RedirectURI, "good")

		if err := env.run("auth"); err != nil {
			t.Fatalf("auth failed: %v", err)
		}

		cred, err := env.store.Credentials.Get(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected credential for alice: %v", err)
		}
		if cred.AccessToken != "access" || cred.TidalUserID != "4242" {
			t.Errorf("unexpected credential %+v", cred)
		}
		if !strings.Contains(env.output.String(), "Connected to Tidal") {
			t.Errorf("expected success message, got %q", env.output.String())
		}
	})

	t.Run("rejected code", func(t *testing.T) {
		env := setupEnv(t)
		env.config.Credentials.Tidal.RedirectURI = freeRedirectURI(t)
		stubBrowser(t, env.config.Credentials.Tidal.RedirectURI, "bad")

		err := env.run("auth", "login")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if _, err := env.store.Credentials.Get(context.Background(), models.DefaultUserKey); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected nothing stored, got %v", err)
		}
	})

	t.Run("times out", func(t *testing.T) {
		env := setupEnv(t)
		env.config.Credentials.Tidal.RedirectURI = freeRedirectURI(t)

		original, originalTimeout := openBrowser, authTimeout
		t.Cleanup(func() { openBrowser, authTimeout = original, originalTimeout })
		openBrowser = func(string) error { return errors.New("no browser") }
		authTimeout = 50 * time.Millisecond

		err := env.run("auth")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(env.output.String(), "https://login.tidal.test/authorize") {
			t.Errorf("expected auth URL to be printed, got %q", env.output.String())
		}
	})
}
