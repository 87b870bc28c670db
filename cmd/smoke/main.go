// Command smoke runs one conversation against a running server and checks
// every RPC answers.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/agenthands/notalone/internal/auth"
)

func main() {
	baseURL := envOr("SMOKE_BASE_URL", "http://localhost:8080")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET must be set to mint a test token")
		os.Exit(1)
	}

	jwt, err := auth.NewJWTService(secret, os.Getenv("JWT_ISSUER"), nil, time.Hour)
	if err != nil {
		fmt.Printf("Error creating token service: %v\n", err)
		os.Exit(1)
	}
	userID := fmt.Sprintf("smoke-user-%d", time.Now().Unix())
	token, err := jwt.GenerateToken(userID)
	if err != nil {
		fmt.Printf("Error minting token: %v\n", err)
		os.Exit(1)
	}

	c := &client{baseURL: baseURL, token: token, http: &http.Client{Timeout: 2 * time.Minute}}

	fmt.Println("Starting smoke test as", userID)

	step("1. Health", func() error {
		resp, err := c.http.Get(baseURL + "/health")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})

	step("2. Suggestions", func() error {
		_, err := c.call("getSuggestions", nil)
		return err
	})

	var chatID string
	step("3. Opening message", func() error {
		result, err := c.call("sendMessage", map[string]any{"message": ""})
		if err != nil {
			return err
		}
		chatID, _ = result["chatId"].(string)
		fmt.Printf("   assistant: %v\n", result["message"])
		if chatID == "" {
			return fmt.Errorf("no chatId returned")
		}
		return nil
	})

	step("4. Conversation turn", func() error {
		result, err := c.call("sendMessage", map[string]any{
			"chatId":  chatID,
			"message": "My sister Anna and I had a fight about our mum's birthday. My best friend Joe thinks I should call her.",
		})
		if err != nil {
			return err
		}
		fmt.Printf("   assistant: %v\n", result["message"])
		if graph, ok := result["graphData"].(map[string]any); ok {
			nodes, _ := graph["nodes"].([]any)
			links, _ := graph["links"].([]any)
			fmt.Printf("   graph: %d nodes, %d links\n", len(nodes), len(links))
		}
		return nil
	})

	step("5. Chat history", func() error {
		result, err := c.call("getChatHistory", map[string]any{"userId": userID})
		if err != nil {
			return err
		}
		chats, _ := result["chatHistories"].([]any)
		if len(chats) != 1 {
			return fmt.Errorf("expected 1 chat, got %d", len(chats))
		}
		return nil
	})

	step("6. Profile graph and circles", func() error {
		if _, err := c.call("getProfileGraph", map[string]any{"userId": userID}); err != nil {
			return err
		}
		_, err := c.call("getRelationshipCircles", map[string]any{"userId": userID})
		return err
	})

	step("7. Delete chat", func() error {
		_, err := c.call("deleteChatHistory", map[string]any{"userId": userID, "chatId": chatID})
		return err
	})

	fmt.Println("Smoke test passed")
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// call invokes an RPC and returns its result object.
func (c *client) call(op string, data any) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/rpc/"+op, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var envelope struct {
		Result map[string]any `json:"result"`
		Error  map[string]any `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, raw)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%v: %v", envelope.Error["status"], envelope.Error["message"])
	}
	return envelope.Result, nil
}

func step(name string, fn func() error) {
	fmt.Println(name + "...")
	if err := fn(); err != nil {
		fmt.Printf("FAILED: %s: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Println("PASSED:", name)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
