// Package main provides a simple terminal client for the chat server.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// Client talks to the REST API and follows one conversation stream.
type Client struct {
	baseURL        string
	http           *http.Client
	conn           *websocket.Conn
	conversationID int64
	done           chan struct{}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		done:    make(chan struct{}),
	}
}

// Close closes the stream connection, if any.
func (c *Client) Close() error {
	close(c.done)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errBody.Message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListConversations prints the stored conversations.
func (c *Client) ListConversations() error {
	var convs []domain.Conversation
	if err := c.do(http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
	}
	for _, conv := range convs {
		fmt.Printf("  #%d  %s  (%s)\n", conv.ID, conv.Title, conv.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// Open switches to an existing conversation and prints its history.
func (c *Client) Open(id int64) error {
	var msgs []domain.Message
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/conversations/%d/messages", id), nil, &msgs); err != nil {
		return err
	}
	for _, m := range msgs {
		printMessage(&m)
	}
	return c.follow(id)
}

// Send posts content to the current conversation, starting one first if
// needed.
func (c *Client) Send(content string) error {
	if c.conversationID == 0 {
		var resp domain.StartChatResponse
		if err := c.do(http.MethodPost, "/api/chat", map[string]string{"content": content}, &resp); err != nil {
			return err
		}
		fmt.Printf("Started conversation #%d: %s\n", resp.Conversation.ID, resp.Conversation.Title)
		return c.follow(resp.Conversation.ID)
	}

	body := map[string]interface{}{
		"content":        content,
		"sender":         domain.SenderUser,
		"conversationId": c.conversationID,
	}
	return c.do(http.MethodPost, "/api/messages", body, nil)
}

// follow replaces the current stream with one for conversation id.
func (c *Client) follow(id int64) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("/api/conversations/%d/stream", id)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	c.conversationID = id
	go c.readEvents(conn)
	return nil
}

// readEvents prints AI replies and deletion notices from the stream.
func (c *Client) readEvents(conn *websocket.Conn) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !strings.Contains(err.Error(), "use of closed network connection") {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var event domain.ConversationEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch event.Type {
		case domain.EventTypeMessageCreated:
			if event.Message != nil && event.Message.Sender == domain.SenderAI {
				printMessage(event.Message)
				fmt.Print("> ")
			}
		case domain.EventTypeConversationDeleted:
			fmt.Printf("\nConversation #%d was deleted.\n> ", event.ConversationID)
		}
	}
}

func printMessage(m *domain.Message) {
	who := "you"
	if m.Sender == domain.SenderAI {
		who = "ai"
	}
	fmt.Printf("\n[%s] %s\n", who, m.Content)
}

func main() {
	addr := flag.String("addr", "http://localhost:5000", "Chat server address")
	conversation := flag.Int64("conversation", 0, "Conversation ID to resume (0 starts a new one)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	client := NewClient(*addr)
	defer client.Close()

	if *conversation > 0 {
		if err := client.Open(*conversation); err != nil {
			log.Fatalf("Failed to open conversation: %v", err)
		}
	}

	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /list, /open <id>, /new, /quit")
	fmt.Println()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted")
		_ = client.Close()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/quit":
			fmt.Println("Bye!")
			return
		case input == "/list":
			if err := client.ListConversations(); err != nil {
				log.Printf("List error: %v", err)
			}
		case input == "/new":
			if client.conn != nil {
				_ = client.conn.Close()
				client.conn = nil
			}
			client.conversationID = 0
			fmt.Println("Your next message starts a new conversation.")
		case strings.HasPrefix(input, "/open "):
			var id int64
			if _, err := fmt.Sscan(strings.TrimPrefix(input, "/open "), &id); err != nil || id <= 0 {
				fmt.Println("Usage: /open <id>")
				continue
			}
			if err := client.Open(id); err != nil {
				log.Printf("Open error: %v", err)
			}
		default:
			if err := client.Send(input); err != nil {
				log.Printf("Send error: %v", err)
			}
		}
	}
}
