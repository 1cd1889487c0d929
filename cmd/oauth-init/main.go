// Command oauth-init runs the interactive OAuth consent flow once and
// stores the resulting token on disk. It is only needed when the sheet
// worker authenticates with a user account instead of a service account.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

func main() {
	oauthCfg, err := loadOAuthConfig()
	if err != nil {
		log.Fatalf("oauth config: %v", err)
	}

	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	// The OAuth client must list this URI among its authorized redirects.
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	code, err := waitForConsent(oauthCfg, redirectPort)
	if err != nil {
		log.Fatalf("authorization: %v", err)
	}

	token, err := oauthCfg.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("token exchange: %v", err)
	}

	outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if outFile == "" {
		outFile = "token.json"
	}
	if err := saveToken(outFile, token); err != nil {
		log.Fatalf("save token: %v", err)
	}
	fmt.Printf("Saved token to %s\n", outFile)
}

func loadOAuthConfig() (*oauth2.Config, error) {
	var raw []byte
	switch {
	case os.Getenv("GOOGLE_OAUTH_CLIENT_JSON") != "":
		raw = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	case os.Getenv("GOOGLE_OAUTH_CLIENT_FILE") != "":
		b, err := os.ReadFile(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	return google.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
}

// waitForConsent serves the redirect endpoint locally and blocks until
// the browser flow delivers an authorization code.
func waitForConsent(cfg *oauth2.Config, port string) (string, error) {
	codeCh := make(chan string, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case code := <-codeCh:
		return code, nil
	case <-time.After(5 * time.Minute):
		return "", fmt.Errorf("authorization timed out")
	case <-interrupt:
		return "", fmt.Errorf("interrupted")
	}
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
