package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/flotilla-io/flotilla/internal/api/http/dto"
)

// credentialFile is what gets written to disk after a successful enrollment.
// The secret appears here and nowhere else; the server keeps only its hash.
type credentialFile struct {
	ServerURL   string `json:"server_url"`
	AgentID     string `json:"agent_id"`
	AccessKeyID string `json:"access_key_id"`
	Secret      string `json:"secret"`
}

func runEnroll(args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	server := fs.String("server", "", "Server URL (e.g., http://server:8080)")
	token := fs.String("token", "", "Enrollment token")
	name := fs.String("name", "", "Agent display name (defaults to hostname)")
	out := fs.String("credentials-file", "./flotilla-agent.json", "Path to write the credential file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server == "" {
		return fmt.Errorf("--server is required")
	}
	if *token == "" {
		return fmt.Errorf("--token is required")
	}

	displayName := *name
	if displayName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to resolve hostname, pass --name: %w", err)
		}
		displayName = hostname
	}

	reqBody, err := json.Marshal(dto.AgentEnrollRequest{
		Token:        *token,
		DisplayName:  displayName,
		AgentVersion: AppVersion,
		Os:           runtime.GOOS,
		Arch:         runtime.GOARCH,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := *server + "/agents/enroll"
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("enrollment failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var enrollResp dto.AgentEnrollResponse
	if err := json.Unmarshal(body, &enrollResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	creds := credentialFile{
		ServerURL:   *server,
		AgentID:     enrollResp.AgentID,
		AccessKeyID: enrollResp.AccessKeyID,
		Secret:      enrollResp.Secret,
	}
	credsJSON, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(*out, credsJSON, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	fmt.Println("Enrollment successful!")
	fmt.Printf("  Agent ID:       %s\n", enrollResp.AgentID)
	fmt.Printf("  Access Key ID:  %s\n", enrollResp.AccessKeyID)
	fmt.Printf("  Credentials:    %s\n", *out)
	fmt.Println()
	fmt.Println("Keep the credential file safe: the secret cannot be retrieved again.")

	return nil
}
