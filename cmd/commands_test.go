package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/repositories"
	"github.com/desertthunder/loopauth/internal/services"
	"github.com/desertthunder/loopauth/internal/shared"
	tu "github.com/desertthunder/loopauth/internal/testing"
	"github.com/urfave/cli/v3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.OAuth.Port = tu.FreePort(t)
	config.OAuth.AppName = "Hazel"
	config.OAuth.Timeout = shared.Duration{Duration: 5 * time.Second}
	config.Database.Path = filepath.Join(t.TempDir(), "loopauth.db")
	return config
}

func runApp(ctx context.Context, r *Runner, args ...string) error {
	app := &cli.Command{
		Name:     "loopauth",
		Commands: r.register(),
	}
	return app.Run(ctx, append([]string{"loopauth"}, args...))
}

// postCallback delivers fullURL the way the bridge page does.
func postCallback(t *testing.T, port int, fullURL string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d/cb", port), nil)
	if err != nil {
		t.Errorf("failed to build request: %v", err)
		return
	}
	req.Header.Set("Full-Url", fullURL)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("callback request failed: %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func listFlows(t *testing.T, db *sql.DB) []*models.Flow {
	t.Helper()
	flows, err := repositories.NewFlowRepository(db).List(nil)
	if err != nil {
		t.Fatalf("failed to list flows: %v", err)
	}
	return flows
}

func TestListen(t *testing.T) {
	t.Run("prints captured URL", func(t *testing.T) {
		config := testConfig(t)
		db := openTestDB(t)
		pr, pw := io.Pipe()
		runner := NewRunner(RunnerOpts{Config: config, DB: db, Output: pw, Logger: tu.NewDiscardLogger()})

		errs := make(chan error, 1)
		go func() {
			errs <- runApp(context.Background(), runner, "listen")
			pw.Close()
		}()

		lines := bufio.NewScanner(pr)
		if !lines.Scan() {
			t.Fatalf("expected listening line, got error %v", <-errs)
		}
		want := fmt.Sprintf("Listening on http://127.0.0.1:%d/", config.OAuth.Port)
		if lines.Text() != want {
			t.Errorf("expected %q, got %q", want, lines.Text())
		}

		fullURL := "https://app.example/callback?code=abc#frag=1"
		postCallback(t, config.OAuth.Port, fullURL)

		if !lines.Scan() {
			t.Fatal("expected captured URL line")
		}
		if lines.Text() != fullURL {
			t.Errorf("expected %q, got %q", fullURL, lines.Text())
		}

		if err := <-errs; err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		flows := listFlows(t, db)
		if len(flows) != 1 {
			t.Fatalf("expected 1 recorded flow, got %d", len(flows))
		}
		if flows[0].Status() != models.StatusDelivered {
			t.Errorf("expected delivered, got %s", flows[0].Status())
		}
		if strings.Contains(flows[0].CallbackURL(), "abc") {
			t.Errorf("recorded URL should be redacted, got %q", flows[0].CallbackURL())
		}
	})

	t.Run("json output and port flag", func(t *testing.T) {
		config := testConfig(t)
		port := tu.FreePort(t)
		pr, pw := io.Pipe()
		runner := NewRunner(RunnerOpts{Config: config, DB: openTestDB(t), Output: pw, Logger: tu.NewDiscardLogger()})

		errs := make(chan error, 1)
		go func() {
			errs <- runApp(context.Background(), runner, "listen", "--json", "--port", strconv.Itoa(port))
			pw.Close()
		}()

		// JSON mode prints nothing until delivery, so wait for the bind by retrying the callback request.
		deadline := time.Now().Add(2 * time.Second)
		for {
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 100*time.Millisecond)
			if err == nil {
				fmt.Fprintf(conn, "POST /cb HTTP/1.1\r\nHost: x\r\nfull-url: https://app.example/?code=1\r\n\r\n")
				io.Copy(io.Discard, conn)
				conn.Close()
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("listener never came up: %v", err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		data, err := io.ReadAll(pr)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}

		var out listenOutput
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("failed to decode output %q: %v", data, err)
		}
		if int(out.Port) != port || out.URL != "https://app.example/?code=1" {
			t.Errorf("unexpected output %+v", out)
		}
		if err := <-errs; err != nil {
			t.Fatalf("listen failed: %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		config := testConfig(t)
		db := openTestDB(t)
		runner := NewRunner(RunnerOpts{Config: config, DB: db, Output: &bytes.Buffer{}, Logger: tu.NewDiscardLogger()})

		err := runApp(context.Background(), runner, "listen", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		flows := listFlows(t, db)
		if len(flows) != 1 || flows[0].Status() != models.StatusTimedOut {
			t.Errorf("expected one timed out flow, got %v", flows)
		}

		// spend the worker's budget so it releases the port
		addr := fmt.Sprintf("127.0.0.1:%d", config.OAuth.Port)
		tu.MustDial(t, addr).Close()
		tu.MustDial(t, addr).Close()
	})

	t.Run("port in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to occupy port: %v", err)
		}
		defer ln.Close()

		config := testConfig(t)
		config.OAuth.Port = ln.Addr().(*net.TCPAddr).Port
		db := openTestDB(t)
		runner := NewRunner(RunnerOpts{Config: config, DB: db, Output: &bytes.Buffer{}, Logger: tu.NewDiscardLogger()})

		err = runApp(context.Background(), runner, "listen")
		if !errors.Is(err, shared.ErrBindFailed) {
			t.Fatalf("expected ErrBindFailed, got %v", err)
		}
		if flows := listFlows(t, db); len(flows) != 0 {
			t.Errorf("bind failure should not record a flow, got %d", len(flows))
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: &bytes.Buffer{}, Logger: tu.NewDiscardLogger()})

		err := runApp(context.Background(), runner, "listen", "--port", "70000")
		if !errors.Is(err, shared.ErrInvalidPort) {
			t.Fatalf("expected ErrInvalidPort, got %v", err)
		}
	})

	t.Run("notifies on delivery", func(t *testing.T) {
		config := testConfig(t)
		config.Notifications.Enabled = true
		notified := make(chan string, 1)
		pr, pw := io.Pipe()
		runner := NewRunner(RunnerOpts{
			Config: config,
			DB:     openTestDB(t),
			Output: pw,
			Logger: tu.NewDiscardLogger(),
			Notify: func(payload string) error { notified <- payload; return nil },
		})

		errs := make(chan error, 1)
		go func() {
			errs <- runApp(context.Background(), runner, "listen")
			pw.Close()
		}()

		lines := bufio.NewScanner(pr)
		if !lines.Scan() {
			t.Fatalf("expected listening line, got error %v", <-errs)
		}
		postCallback(t, config.OAuth.Port, "https://app.example/?code=1")
		for lines.Scan() {
		}

		if err := <-errs; err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		select {
		case payload := <-notified:
			if payload != "https://app.example/?code=1" {
				t.Errorf("unexpected payload %q", payload)
			}
		default:
			t.Error("expected a notification")
		}
	})
}

func TestAuthorize(t *testing.T) {
	newProvider := func(t *testing.T) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("code") != "abc" || r.PostForm.Get("code_verifier") == "" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	// redirectWith returns an OpenURL func that plays the browser: it reads the state from the
	// authorization URL and posts a callback built by build.
	redirectWith := func(t *testing.T, port int, build func(state string) string) func(string) error {
		return func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			go postCallback(t, port, build(u.Query().Get("state")))
			return nil
		}
	}

	t.Run("saves token", func(t *testing.T) {
		provider := newProvider(t)
		config := testConfig(t)
		config.OAuth.ClientID = "client_123"
		config.OAuth.TokenURL = provider.URL
		db := openTestDB(t)
		tokenPath := filepath.Join(t.TempDir(), "token.json")
		output := &bytes.Buffer{}

		runner := NewRunner(RunnerOpts{
			Config: config,
			DB:     db,
			Output: output,
			Logger: tu.NewDiscardLogger(),
			OpenURL: redirectWith(t, config.OAuth.Port, func(state string) string {
				return fmt.Sprintf("http://127.0.0.1:%d/#code=abc&state=%s", config.OAuth.Port, state)
			}),
		})

		if err := runApp(context.Background(), runner, "authorize", "--token", tokenPath); err != nil {
			t.Fatalf("authorize failed: %v", err)
		}

		token, err := services.LoadToken(tokenPath)
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if token.AccessToken != "at" {
			t.Errorf("expected access token at, got %q", token.AccessToken)
		}
		if !strings.Contains(output.String(), "Signed in to Hazel") {
			t.Errorf("unexpected output: %s", output.String())
		}

		flows := listFlows(t, db)
		if len(flows) != 1 || flows[0].Status() != models.StatusDelivered {
			t.Errorf("expected one delivered flow, got %v", flows)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		provider := newProvider(t)
		config := testConfig(t)
		config.OAuth.ClientID = "client_123"
		config.OAuth.TokenURL = provider.URL
		db := openTestDB(t)
		tokenPath := filepath.Join(t.TempDir(), "token.json")

		runner := NewRunner(RunnerOpts{
			Config: config,
			DB:     db,
			Output: &bytes.Buffer{},
			Logger: tu.NewDiscardLogger(),
			OpenURL: redirectWith(t, config.OAuth.Port, func(string) string {
				return fmt.Sprintf("http://127.0.0.1:%d/?code=abc&state=forged", config.OAuth.Port)
			}),
		})

		err := runApp(context.Background(), runner, "authorize", "--token", tokenPath)
		if !errors.Is(err, shared.ErrStateMismatch) {
			t.Fatalf("expected ErrStateMismatch, got %v", err)
		}
		if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
			t.Error("token should not be written")
		}

		flows := listFlows(t, db)
		if len(flows) != 1 || flows[0].Status() != models.StatusFailed {
			t.Errorf("expected one failed flow, got %v", flows)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		config := testConfig(t)
		config.OAuth.ClientID = "client_123"
		config.OAuth.TokenURL = newProvider(t).URL

		runner := NewRunner(RunnerOpts{
			Config: config,
			DB:     openTestDB(t),
			Output: &bytes.Buffer{},
			Logger: tu.NewDiscardLogger(),
			OpenURL: redirectWith(t, config.OAuth.Port, func(state string) string {
				return fmt.Sprintf("http://127.0.0.1:%d/?error=access_denied&state=%s", config.OAuth.Port, state)
			}),
		})

		err := runApp(context.Background(), runner, "authorize", "--token", filepath.Join(t.TempDir(), "t.json"))
		if !errors.Is(err, shared.ErrProviderError) {
			t.Fatalf("expected ErrProviderError, got %v", err)
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		config := testConfig(t)
		config.OAuth.ClientID = ""
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: tu.NewDiscardLogger()})

		err := runApp(context.Background(), runner, "authorize")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Fatalf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	seed := func(t *testing.T, db *sql.DB) {
		t.Helper()
		recorder := repositories.NewFlowRecorder(db, tu.NewDiscardLogger())
		recorder.Finish(recorder.Begin(17927), models.StatusDelivered, "https://app.example/?code=abc", nil)
		recorder.Finish(recorder.Begin(17927), models.StatusExhausted, "", shared.ErrAttemptsExhausted)
	}

	tc := []struct {
		name string
		args []string
		want []string
	}{
		{"text", nil, []string{"Flows: 2", "#1  delivered", "#2  exhausted"}},
		{"csv", []string{"--csv"}, []string{"Sequence,ID,Port,Status", "code=REDACTED"}},
		{"json", []string{"--json"}, []string{`"status": "exhausted"`}},
		{"markdown", []string{"--markdown"}, []string{"# Flow History"}},
		{"status", []string{"--status", "delivered"}, []string{"Flows: 1"}},
		{"limit", []string{"--limit", "1"}, []string{"Flows: 1", "#2"}},
	}

	for _, c := range tc {
		t.Run(c.name, func(t *testing.T) {
			db := openTestDB(t)
			seed(t, db)
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: db, Output: output, Logger: tu.NewDiscardLogger()})

			if err := runApp(context.Background(), runner, append([]string{"history"}, c.args...)...); err != nil {
				t.Fatalf("history failed: %v", err)
			}

			for _, want := range c.want {
				if !strings.Contains(output.String(), want) {
					t.Errorf("expected %q in output, got:\n%s", want, output.String())
				}
			}
		})
	}

	t.Run("output file", func(t *testing.T) {
		db := openTestDB(t)
		seed(t, db)
		path := filepath.Join(t.TempDir(), "history.csv")
		runner := NewRunner(RunnerOpts{DB: db, Output: &bytes.Buffer{}, Logger: tu.NewDiscardLogger()})

		if err := runApp(context.Background(), runner, "history", "--csv", "--output", path); err != nil {
			t.Fatalf("history failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.HasPrefix(tu.MustReadFile(t, path), "Sequence,") {
			t.Error("expected CSV export")
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: tu.NewDiscardLogger()})

		if err := runApp(context.Background(), runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config should load: %v", err)
		}
		if !strings.Contains(output.String(), "http://127.0.0.1:17927/") {
			t.Errorf("expected redirect URI in output, got:\n%s", output.String())
		}

		if err := runApp(context.Background(), runner, "setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected error when config exists, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: tu.NewDiscardLogger()})

		if err := runApp(context.Background(), runner, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "1 migrations applied") {
			t.Errorf("unexpected output: %s", output.String())
		}

		if err := runApp(context.Background(), runner, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back migration 0000") {
			t.Errorf("unexpected output: %s", output.String())
		}
	})
}
