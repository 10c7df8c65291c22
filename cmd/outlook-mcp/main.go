// Outlook MCP server provides Microsoft Graph mailbox access through Model
// Context Protocol.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/cache"
	"github.com/qualitymasters/outlook-mcp/internal/graph"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
	"github.com/qualitymasters/outlook-mcp/internal/tool"
)

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP SERVER listen addr")
	tokenFile := flag.String("token-file", "./data/outlook-mcp-token.json", "Path to cache the oauth token (delegated mode), empty to avoid storing")
	oauthURLParam := flag.String("oauth-url", "", "OAuth redirect URL (delegated mode)")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	persistLogs := setupLogger(enableStdio, logFile)
	defer persistLogs()

	if *envFileParam != "" {
		if err := godotenv.Load(*envFileParam); err != nil {
			panic(fmt.Errorf("godotenv.Load failed: %w", err))
		}
	}

	ln := mustListen(httpAddr)

	mux := http.NewServeMux()
	tokens, targetUser, cleanup := mustCreateTokens(mux, ln.Addr().String(), oauthURLParam, tokenFile)
	defer cleanup()

	store := cache.New()
	svc := mail.NewService(graph.NewClient(tokens), store, targetUser)
	mailT := tool.NewServer(svc)
	mcpHTTP := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return mailT }, nil)

	mux.Handle("/mcp", mcpHTTP)
	mux.HandleFunc("/cache", cacheHandler(store))

	srv := &http.Server{
		Handler: mux,
	}

	shutdown := make(chan os.Signal, 1)

	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	stopHTTP, errHTTPCh := serveHTTP(srv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(mailT)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		log.Println("Error http server", err)
	case err := <-errStdioCh:
		log.Println("Error stdio", err)
	case <-shutdown:
		log.Println("Shutdown signal received")
	}
}

// mustCreateTokens builds the token source selected by AUTH_MODE: app-only
// client credentials against a named mailbox, or the interactive delegated
// flow against the signed-in user's mailbox.
func mustCreateTokens(mux *http.ServeMux, lnAddr string, oauthURLParam, tokenFile *string) (auth.TokenSource, string, func()) {
	clientID := os.Getenv("AZURE_CLIENT_ID")
	tenantID := os.Getenv("AZURE_TENANT_ID")
	if clientID == "" || tenantID == "" {
		panic("Env variables AZURE_CLIENT_ID and AZURE_TENANT_ID must be set")
	}

	mode := os.Getenv("AUTH_MODE")
	if mode == "" {
		mode = "app"
	}

	switch mode {
	case "app":
		clientSecret := os.Getenv("AZURE_CLIENT_SECRET")
		targetUser := os.Getenv("AZURE_TARGET_USER")
		if clientSecret == "" || targetUser == "" {
			panic("Env variables AZURE_CLIENT_SECRET and AZURE_TARGET_USER must be set in app mode")
		}

		return auth.NewClientCredentials(clientID, clientSecret, tenantID), targetUser, func() {}

	case "delegated":
		oauthURL := fmt.Sprintf("http://%s/oauth", lnAddr)
		if *oauthURLParam != "" {
			oauthURL = *oauthURLParam
		}

		cfg := auth.AzureADConfig(clientID, tenantID, oauthURL)
		tok, err := auth.NewDelegated(cfg, *tokenFile)
		if err != nil {
			panic(fmt.Errorf("auth.NewDelegated failed: %w", err))
		}

		mux.Handle("/oauth", auth.NewHTTPHandler(tok))

		if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrNoToken) {
			openBrowser(oauthURL)
		}

		return tok, "", func() {
			log.Println("Persisting token if exists")
			if err := tok.Persist(); err != nil {
				log.Println(fmt.Errorf("tok.Persist failed: %w", err))
			}
		}

	default:
		panic(fmt.Sprintf("Unknown AUTH_MODE %q, expected app or delegated", mode))
	}
}

// cacheHandler exposes cache stats; DELETE drops all entries.
func cacheHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodDelete {
			cleared := store.Clear()
			_ = json.NewEncoder(w).Encode(map[string]int{"cleared_entries": cleared})
			return
		}

		_ = json.NewEncoder(w).Encode(store.Stats())
	}
}

func serveStdio(srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Println("Starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			err = fmt.Errorf("srv.Run failed: %w", err)
			errStdioCh <- err
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Println("Stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.Println("Starting http server on", ln.Addr().String())

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.ListenAndServe failed: %w", err)
			log.Println(err)
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Println(fmt.Errorf("srv.Shutdown failed: %w", err))
		}

		<-errHTTPCh
		log.Println("HTTP server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr *string) net.Listener {
	if httpAddr == nil {
		panic("-http-addr must be provided")
	}

	ln, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func setupLogger(enableStdio *bool, logFile *string) func() {
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		log.SetOutput(f)

		return func() {
			if err := f.Close(); err != nil {
				log.Println(fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	if *enableStdio {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stdout)
	}

	return func() {}
}

func openBrowser(url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Printf("Could not open browser automatically: %v; please copy and open link in the browser: %s\n", err, url)
	}
}
