// Command oauth-init runs the one-time Google consent flow for the
// spreadsheet mirror and stores the token contas-worker reads at startup.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"

	"contas/internal/cli"
	"contas/internal/config"
	applog "contas/internal/log"
)

const authTimeout = 5 * time.Minute

func main() {
	logger := cli.SetupLogger(applog.ComponentSheets)
	cli.LoadEnvFile()
	cfg := config.Load()

	credential, err := clientCredential(cfg)
	if err != nil {
		logger.Error("OAuth client credential unavailable", applog.FieldError, err)
		os.Exit(1)
	}

	oauthCfg, err := google.ConfigFromJSON(credential, gsheet.SpreadsheetsScope)
	if err != nil {
		logger.Error("Failed to parse OAuth client credential", applog.FieldError, err)
		os.Exit(1)
	}

	// Local redirect target; the OAuth client must list this URI in its
	// authorized redirect URIs.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	srv := &http.Server{Addr: ":" + redirectPort}
	http.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "Autorização recusada: "+errStr, http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		fmt.Fprintln(w, "Autorização concluída. Pode fechar esta janela e voltar ao terminal.")
		codeCh <- code
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	url := oauthCfg.AuthCodeURL("contas-oauth", oauth2.AccessTypeOffline)
	fmt.Printf("Abra esta URL para autorizar o acesso à planilha:\n%s\n", url)

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(context.Background(), code)
		if err != nil {
			logger.Error("Token exchange failed", applog.FieldError, err)
			os.Exit(1)
		}
		if err := writeToken(tokenPath(cfg), tok); err != nil {
			logger.Error("Failed to store token", applog.FieldError, err)
			os.Exit(1)
		}
		fmt.Printf("Token salvo em %s. O contas-worker já pode espelhar a planilha.\n", tokenPath(cfg))
	case <-time.After(authTimeout):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-interrupt():
		logger.Warn("Authorization interrupted")
		os.Exit(1)
	}
}

// clientCredential resolves the OAuth client the same way the worker does:
// inline JSON wins over a file path.
func clientCredential(cfg *config.Config) ([]byte, error) {
	if cfg.GoogleOAuthClientJSON != "" {
		return []byte(cfg.GoogleOAuthClientJSON), nil
	}
	if cfg.GoogleOAuthClientFile != "" {
		return os.ReadFile(cfg.GoogleOAuthClientFile)
	}
	return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

func tokenPath(cfg *config.Config) string {
	if cfg.GoogleOAuthTokenFile != "" {
		return cfg.GoogleOAuthTokenFile
	}
	return "token.json"
}

func writeToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

func interrupt() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	return c
}
