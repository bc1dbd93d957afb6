package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [username] [password] [gemini-api-key]",
	Short: "Register a new user with a Gemini API key",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		register(args[0], args[1], args[2])
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [username] [password]",
	Short: "Log in and cache the access token",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		login(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
}

// tokenPath is where the bearer token is cached between invocations.
func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scale-cli-token"
	}
	return filepath.Join(home, ".scale-cli-token")
}

func register(username, password, apiKey string) {
	payload := map[string]string{
		"username": username,
		"password": password,
		"api_key":  apiKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Error creating JSON payload: %v", err)
	}

	resp, err := http.Post(serverURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("Error registering: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("Registration failed (status %d): %s", resp.StatusCode, data)
	}

	fmt.Println("User registered successfully. Now run: scale-cli login", username, "<password>")
}

func login(username, password string) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Error creating JSON payload: %v", err)
	}

	resp, err := http.Post(serverURL+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("Error logging in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("Login failed (status %d): %s", resp.StatusCode, data)
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("Error decoding response: %v", err)
	}

	if err := os.WriteFile(tokenPath(), []byte(result["token"]), 0o600); err != nil {
		log.Fatalf("Error saving token: %v", err)
	}
	fmt.Println("Logged in. Token saved to", tokenPath())
}

// loadToken reads the cached bearer token or exits with a hint.
func loadToken() string {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		log.Fatalf("Not logged in. Run: scale-cli login <username> <password>")
	}
	return string(data)
}
