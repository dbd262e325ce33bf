package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yegors/skywatch/pkg/logger"
)

// Message types for the evaluation stream
const (
	MessageTypeAnomalyAlert    = "anomaly_alert"    // Flight matched one or more rules
	MessageTypeReportCompleted = "report_completed" // Evaluation finished (matched or not)
	MessageTypeFlightFiltered  = "flight_filtered"  // Flight excluded by the gateway filter
	MessageTypePathPromoted    = "path_promoted"    // Emerging path became a learned path
	MessageTypeFilterUpdate    = "filter_update"    // Client sends filter preferences
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// MessageHandler defines the interface for handling incoming WebSocket messages
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// ClientFilters represents the active filters for a WebSocket client.
// Severities maps severity name to enabled; an empty map means all.
type ClientFilters struct {
	MatchedOnly bool            `json:"matched_only"`
	Severities  map[string]bool `json:"severities"`
}

// Client represents a WebSocket client
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	filters   *ClientFilters
}

// Server represents a WebSocket server
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *Message
	upgrader       websocket.Upgrader
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler
}

// NewServer creates a new WebSocket server
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: logger.Named("web-socket"),
	}
}

// SetMessageHandler sets the message handler for incoming WebSocket messages
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// Run starts the WebSocket server
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				// Mark client as closed first to prevent new messages
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				// Then close the channel
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				client.mu.Lock()
				if client.closed {
					clientsToRemove = append(clientsToRemove, client)
					client.mu.Unlock()
					continue
				}
				client.mu.Unlock()

				if !client.matchesFilters(message) {
					continue
				}

				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Channel is full, mark for removal
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			// Clean up failed clients
			if len(clientsToRemove) > 0 {
				s.mu.Lock()
				for _, client := range clientsToRemove {
					if _, ok := s.clients[client]; ok {
						delete(s.clients, client)
						client.mu.Lock()
						if !client.closed {
							client.closed = true
							close(client.send)
						}
						client.mu.Unlock()
					}
				}
				s.mu.Unlock()
			}
		}
	}
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Handling new WebSocket connection request",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan *Message, 256),
		server:    s,
		closeChan: make(chan struct{}),
	}

	s.register <- client

	go client.readPump()
	go client.writePump()
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(message *Message) {
	s.logger.Debug("Broadcasting message to all clients",
		logger.String("message_type", message.Type))
	s.broadcast <- message
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()

		c.server.unregister <- c
		c.conn.Close()
	}()

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			break
		}

		var message struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			logger.String("type", message.Type),
			logger.String("client", c.conn.RemoteAddr().String()))

		if message.Type == MessageTypeFilterUpdate {
			c.applyFilterUpdate(message.Data)
			continue
		}

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Error("Failed to handle WebSocket message",
					logger.Error(err),
					logger.String("type", message.Type))
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.mu.Unlock()
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", logger.Error(err))
				c.mu.Unlock()
				continue
			}

			c.server.logger.Debug("Sending message to client",
				logger.String("message_type", message.Type),
				logger.String("message_length", fmt.Sprintf("%d bytes", len(data))))

			w.Write(data)

			if err := w.Close(); err != nil {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		// Channel is full, drop message
		return false
	}
}

// UpdateFilters updates the client's active filters
func (c *Client) UpdateFilters(filters *ClientFilters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = filters
}

// applyFilterUpdate parses a filter_update payload and installs it.
func (c *Client) applyFilterUpdate(data map[string]any) {
	filters := &ClientFilters{Severities: make(map[string]bool)}
	if v, ok := data["matched_only"].(bool); ok {
		filters.MatchedOnly = v
	}
	if raw, ok := data["severities"].(map[string]any); ok {
		for name, enabled := range raw {
			if b, ok := enabled.(bool); ok {
				filters.Severities[name] = b
			}
		}
	}
	c.UpdateFilters(filters)
	c.server.logger.Debug("Client filters updated",
		logger.Bool("matched_only", filters.MatchedOnly),
		logger.Int("severity_filters", len(filters.Severities)))
}

// matchesFilters reports whether the message passes this client's filters.
// Non-report messages always pass.
func (c *Client) matchesFilters(message *Message) bool {
	c.mu.Lock()
	filters := c.filters
	c.mu.Unlock()
	if filters == nil {
		return true
	}

	switch message.Type {
	case MessageTypeAnomalyAlert, MessageTypeReportCompleted, MessageTypeFlightFiltered:
	default:
		return true
	}

	if filters.MatchedOnly {
		if matched, ok := message.Data["matched_rules"].(int); ok && matched == 0 {
			return false
		}
		if message.Type == MessageTypeFlightFiltered {
			return false
		}
	}

	if len(filters.Severities) > 0 {
		if severity, ok := message.Data["max_severity"].(string); ok && severity != "" {
			if enabled, exists := filters.Severities[severity]; exists && !enabled {
				return false
			}
		}
	}
	return true
}
