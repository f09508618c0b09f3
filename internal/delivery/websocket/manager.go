package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Manager управляет WebSocket-соединениями мастера. Каждый клиент привязан
// к одной сессии и получает обновления статусов её задач генерации.
// Реализует taskmanager.Notifier.
type Manager struct {
	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	outbound   chan Message
	mu         sync.RWMutex
}

// Client представляет одно WebSocket-соединение.
type Client struct {
	ID        uuid.UUID
	SessionID string
	Conn      *websocket.Conn
	Manager   *Manager
	Send      chan []byte
}

// Message представляет исходящее сообщение.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`

	// target ограничивает доставку одной сессией; пустое значение
	// означает широковещательную рассылку.
	target string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене следует настроить проверку на разрешенные источники
	},
}

// NewManager создает новый менеджер соединений.
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan Message),
	}
}

// Start запускает цикл менеджера в отдельной горутине.
func (m *Manager) Start() {
	go m.run()
}

// run обрабатывает регистрацию клиентов и рассылку сообщений.
func (m *Manager) run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()
			log.Debug().Str("clientID", client.ID.String()).Str("sessionID", client.SessionID).Msg("WebSocket-клиент подключен")

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client.ID]; ok {
				close(client.Send)
				delete(m.clients, client.ID)
				log.Debug().Str("clientID", client.ID.String()).Msg("WebSocket-клиент отключен")
			}
			m.mu.Unlock()

		case message := <-m.outbound:
			data, err := json.Marshal(message)
			if err != nil {
				log.Error().Err(err).Msg("Ошибка маршалинга WebSocket-сообщения")
				continue
			}

			m.mu.Lock()
			for _, client := range m.clients {
				if message.target != "" && client.SessionID != message.target {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// Клиент не успевает читать, соединение сбрасывается.
					close(client.Send)
					delete(m.clients, client.ID)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Handler обрабатывает новые WebSocket-соединения. Сессия передается
// параметром запроса: /ws?session=<uuid>.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session parameter", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Ошибка апгрейда WebSocket-соединения")
			return
		}

		client := &Client{
			ID:        uuid.New(),
			SessionID: sessionID,
			Conn:      conn,
			Manager:   m,
			Send:      make(chan []byte, 256),
		}

		m.register <- client

		go client.readPump()
		go client.writePump()
	})
}

// SendToSession отправляет сообщение всем клиентам указанной сессии.
func (m *Manager) SendToSession(sessionID, messageType string, payload interface{}) {
	m.outbound <- Message{
		Type:    messageType,
		Payload: payload,
		target:  sessionID,
	}
}

// Broadcast отправляет сообщение всем подключенным клиентам.
func (m *Manager) Broadcast(messageType string, payload interface{}) {
	m.outbound <- Message{
		Type:    messageType,
		Payload: payload,
	}
}

// readPump вычитывает входящий поток. Клиентских команд нет: канал
// односторонний, чтение нужно только для обработки ping/pong и закрытия.
func (c *Client) readPump() {
	defer func() {
		c.Manager.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("clientID", c.ID.String()).Msg("Ошибка чтения WebSocket")
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту и поддерживает соединение пингами.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Дописываем накопившиеся сообщения в тот же фрейм.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
