// Command oauth-init runs the browser consent flow once and stores the
// resulting token where struk's google remote looks for it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"struk/internal/cli"
	"struk/internal/config"
	applog "struk/internal/log"
	"struk/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentSession)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Add this URI to the OAuth client's authorized redirect URIs.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	redirectURL := "http://localhost:" + redirectPort + "/callback"

	sess := session.New(session.Options{
		ClientJSON:  cfg.GoogleOAuthClientJSON,
		ClientFile:  cfg.GoogleOAuthClientFile,
		TokenFile:   cfg.GoogleOAuthTokenFile,
		RedirectURL: redirectURL,
	})
	if err := sess.Init(ctx); err != nil {
		cli.Fatal(fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE: %w", err))
	}
	oauthCfg, err := sess.Config()
	if err != nil {
		cli.Fatal(err)
	}

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorContext(ctx, "Callback server failed", applog.FieldError, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL("struk", oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	select {
	case code := <-codeCh:
		if _, err := sess.Exchange(ctx, code); err != nil {
			cli.Fatal(err)
		}
		if acct, err := sess.Account(ctx); err == nil {
			fmt.Printf("Signed in as %s\n", acct.Email)
		}
		fmt.Printf("Saved token to %s\n", cfg.GoogleOAuthTokenFile)
	case <-time.After(5 * time.Minute):
		cli.Fatal(fmt.Errorf("authorization timed out"))
	case <-ctx.Done():
		cli.Fatal(fmt.Errorf("interrupted"))
	}
}
