package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Submit a summarization task and wait for the result",
}

var youtubeCmd = &cobra.Command{
	Use:   "youtube [url]",
	Short: "Summarize a YouTube video",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		summarizeYouTube(args[0])
	},
}

var fileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Summarize a local file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		summarizeFile(args[0])
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.AddCommand(youtubeCmd)
	summarizeCmd.AddCommand(fileCmd)
}

// httpClient allows the long wait while the gateway polls for the task
// result; the gateway returns within its own timeout plus slack.
var httpClient = &http.Client{Timeout: 150 * time.Second}

func summarizeYouTube(url string) {
	payload := map[string]string{"url": url}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Error creating JSON payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/summarize/youtube", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("Error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+loadToken())

	printSummary(req)
}

func summarizeFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error opening file: %v", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		log.Fatalf("Error preparing upload: %v", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		log.Fatalf("Error reading file: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("Error finalizing upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/summarize/file", &buf)
	if err != nil {
		log.Fatalf("Error creating request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+loadToken())

	printSummary(req)
}

func printSummary(req *http.Request) {
	fmt.Println("Waiting for the summary (this can take a while)...")

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Fatalf("Error submitting task: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Request failed (status %d): %s", resp.StatusCode, data)
	}

	var result map[string]string
	if err := json.Unmarshal(data, &result); err != nil {
		log.Fatalf("Error decoding response: %v", err)
	}

	fmt.Println()
	fmt.Println(result["summary"])
}
