// Command feedwatch tails the listing change feed and prints each event.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"earthhome/internal/notifications"

	"github.com/gorilla/websocket"
)

const maxBackoff = 30 * time.Second

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	secure := flag.Bool("tls", false, "Use wss/https")
	token := flag.String("token", "", "Session token (optional)")
	email := flag.String("email", "", "Sign in with this email when no token is given")
	password := flag.String("password", "", "Password for -email")
	rawJSON := flag.Bool("json", false, "Print raw JSON events")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *token == "" && *email != "" {
		t, err := signIn(ctx, httpBase(*host, *secure), *email, *password)
		if err != nil {
			log.Fatalf("Sign in failed: %v", err)
		}
		*token = t
		log.Printf("signed in as %s", *email)
	}

	feedURL := url.URL{Scheme: "ws", Host: *host, Path: "/ws/listings"}
	if *secure {
		feedURL.Scheme = "wss"
	}

	backoff := time.Second
	for ctx.Err() == nil {
		start := time.Now()
		err := watch(ctx, feedURL.String(), *token, *rawJSON)
		if ctx.Err() != nil {
			break
		}
		if time.Since(start) > maxBackoff {
			backoff = time.Second
		}
		log.Printf("feed disconnected: %v (retrying in %s)", err, backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	log.Println("stopped")
}

func httpBase(host string, secure bool) string {
	if secure {
		return "https://" + host
	}
	return "http://" + host
}

func signIn(ctx context.Context, base, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/auth/sign-in", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var result struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode sign-in response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, result.Message)
	}
	return result.Token, nil
}

// watch holds one feed connection open until it drops or ctx ends.
func watch(ctx context.Context, feedURL, token string, rawJSON bool) error {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, feedURL, header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("connected to %s", feedURL)

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("closed by server: %d %s", closeErr.Code, closeErr.Text)
			}
			return err
		}
		if rawJSON {
			fmt.Println(string(data))
			continue
		}
		var ev notifications.ListingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("unreadable event: %v", err)
			continue
		}
		fmt.Printf("%s  %-17s %s  %s\n", ev.At.Local().Format(time.DateTime), ev.Type, ev.PropertyID, ev.Slug)
	}
}
