package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/format-smormat/backend/internal/intake"
	"github.com/format-smormat/backend/internal/records"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypeUploadInit     = "upload:init"
	MsgTypeUploadChunk    = "upload:chunk"
	MsgTypeUploadComplete = "upload:complete"
	MsgTypePing           = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSnapshot  = "snapshot"
	MsgTypeRecord    = "record"
	MsgTypeRemoved   = "removed"
	MsgTypeCleared   = "cleared"
	MsgTypeAck       = "ack"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// maxUploadChunks caps the chunk count announced by upload:init.
const maxUploadChunks = 4096

const (
	// DefaultMaxUploadSize applies when no upload size is configured.
	DefaultMaxUploadSize int64 = 16 << 20

	// wsEnvelopeOverhead is read-limit headroom for the JSON around a chunk.
	wsEnvelopeOverhead = 64 << 10
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// WSMessage is the envelope of every websocket message
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// UploadInitPayload starts a chunked upload
type UploadInitPayload struct {
	FileName    string `json:"fileName"`
	MediaType   string `json:"mediaType,omitempty"`
	TotalChunks int    `json:"totalChunks"`
	TotalSize   int64  `json:"totalSize"`
	Encoding    string `json:"encoding,omitempty"` // "gzip", "none"
}

// UploadChunkPayload carries one base64 chunk
type UploadChunkPayload struct {
	UploadID   string `json:"uploadId"`
	ChunkIndex int    `json:"chunkIndex"`
	Data       string `json:"data"`
}

// UploadCompletePayload submits an assembled upload
type UploadCompletePayload struct {
	UploadID string `json:"uploadId"`
}

// WSProgressResponse reports chunk progress
type WSProgressResponse struct {
	UploadID string  `json:"uploadId"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// WSErrorResponse reports a failed request
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// uploadSession tracks an in-progress upload on one connection
type uploadSession struct {
	FileName  string
	MediaType string
	Encoding  string
	Chunks    [][]byte
	Received  map[int]bool
	Size      int64
}

// WebSocketHandler pushes record changes to clients and accepts chunked uploads
type WebSocketHandler struct {
	store    RecordStore
	intake   Intake
	maxSize  int64
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. maxUploadSize bounds
// both the assembled upload and its decompressed form; zero or less means
// DefaultMaxUploadSize.
func NewWebSocketHandler(store RecordStore, in Intake, maxUploadSize int64, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &WebSocketHandler{
		store:   store,
		intake:  in,
		maxSize: maxUploadSize,
		logger:  logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// wsConn serialises writes from the event forwarder and the read loop.
type wsConn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (c *wsConn) send(msgType, id string, payload interface{}) {
	msg := WSMessage{Type: msgType, ID: id, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		msg.Payload = mustJSON(payload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		c.logger.Debug("failed to send message", zap.String("type", msgType), zap.Error(err))
	}
}

func (c *wsConn) sendError(id, message, code string) {
	c.send(MsgTypeError, id, WSErrorResponse{Message: message, Code: code})
}

// HandleWebSocket upgrades the connection, sends the current list and then
// one message per store event until the client goes away.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	// A single chunk may carry the whole upload, base64 encoded.
	ws.SetReadLimit(int64(base64.StdEncoding.EncodedLen(int(wsh.maxSize))) + wsEnvelopeOverhead)

	conn := &wsConn{ws: ws, logger: wsh.logger}
	wsh.logger.Debug("client connected", zap.String("remote", c.RealIP()))

	events, cancel := wsh.store.Subscribe()
	defer cancel()

	conn.send(MsgTypeConnected, "", nil)
	conn.send(MsgTypeSnapshot, "", newRecordViews(wsh.store.List()))

	done := make(chan struct{})
	defer close(done)
	go wsh.forward(conn, events, done)

	uploads := make(map[string]*uploadSession)
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Debug("connection error", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(MsgTypePong, "", nil)
		case MsgTypeUploadInit:
			wsh.handleUploadInit(conn, uploads, msg)
		case MsgTypeUploadChunk:
			wsh.handleUploadChunk(conn, uploads, msg)
		case MsgTypeUploadComplete:
			wsh.handleUploadComplete(conn, uploads, msg)
		default:
			conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	wsh.logger.Debug("client disconnected")
	return nil
}

func (wsh *WebSocketHandler) forward(conn *wsConn, events <-chan records.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case records.EventUpsert:
				if ev.Record != nil {
					conn.send(MsgTypeRecord, ev.ID, NewRecordView(*ev.Record))
				}
			case records.EventRemove:
				conn.send(MsgTypeRemoved, ev.ID, nil)
			case records.EventCleared:
				conn.send(MsgTypeCleared, "", nil)
			}
		}
	}
}

func (wsh *WebSocketHandler) handleUploadInit(conn *wsConn, uploads map[string]*uploadSession, msg WSMessage) {
	var payload UploadInitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid init payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.FileName == "" {
		conn.sendError(msg.ID, "fileName is required", "INVALID_PAYLOAD")
		return
	}
	if payload.TotalChunks <= 0 || payload.TotalChunks > maxUploadChunks {
		conn.sendError(msg.ID, fmt.Sprintf("totalChunks must be between 1 and %d", maxUploadChunks), "INVALID_PAYLOAD")
		return
	}
	if payload.TotalSize > wsh.maxSize {
		conn.sendError(msg.ID, fmt.Sprintf("totalSize exceeds limit of %d bytes", wsh.maxSize), "INVALID_PAYLOAD")
		return
	}
	if !intake.Accepts(payload.FileName, payload.MediaType) {
		conn.sendError(msg.ID, intake.UnsupportedMessage, "UNSUPPORTED_FILE_TYPE")
		return
	}

	uploadID := uuid.New().String()
	uploads[uploadID] = &uploadSession{
		FileName:  payload.FileName,
		MediaType: payload.MediaType,
		Encoding:  payload.Encoding,
		Chunks:    make([][]byte, payload.TotalChunks),
		Received:  make(map[int]bool),
	}

	conn.send(MsgTypeAck, uploadID, nil)
}

func (wsh *WebSocketHandler) handleUploadChunk(conn *wsConn, uploads map[string]*uploadSession, msg WSMessage) {
	var payload UploadChunkPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid chunk payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	session, exists := uploads[payload.UploadID]
	if !exists {
		conn.sendError(payload.UploadID, "Upload session not found: "+payload.UploadID, "SESSION_NOT_FOUND")
		return
	}
	if payload.ChunkIndex < 0 || payload.ChunkIndex >= len(session.Chunks) {
		conn.sendError(payload.UploadID, fmt.Sprintf("chunkIndex %d out of range", payload.ChunkIndex), "INVALID_PAYLOAD")
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		conn.sendError(payload.UploadID, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	size := session.Size - int64(len(session.Chunks[payload.ChunkIndex])) + int64(len(chunk))
	if size > wsh.maxSize {
		delete(uploads, payload.UploadID)
		conn.sendError(payload.UploadID, fmt.Sprintf("Upload exceeds limit of %d bytes", wsh.maxSize), "INVALID_DATA")
		return
	}

	session.Size = size
	session.Chunks[payload.ChunkIndex] = chunk
	session.Received[payload.ChunkIndex] = true

	received := len(session.Received)
	conn.send(MsgTypeProgress, payload.UploadID, WSProgressResponse{
		UploadID: payload.UploadID,
		Progress: float64(received) / float64(len(session.Chunks)) * 100,
		Message:  fmt.Sprintf("Received chunk %d/%d", received, len(session.Chunks)),
	})
}

func (wsh *WebSocketHandler) handleUploadComplete(conn *wsConn, uploads map[string]*uploadSession, msg WSMessage) {
	var payload UploadCompletePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid complete payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	session, exists := uploads[payload.UploadID]
	if !exists {
		conn.sendError(payload.UploadID, "Upload session not found: "+payload.UploadID, "SESSION_NOT_FOUND")
		return
	}
	if len(session.Received) != len(session.Chunks) {
		conn.sendError(payload.UploadID, fmt.Sprintf("Missing chunks: got %d, expected %d",
			len(session.Received), len(session.Chunks)), "INCOMPLETE_UPLOAD")
		return
	}
	delete(uploads, payload.UploadID)

	data := bytes.Join(session.Chunks, nil)
	if session.Encoding == "gzip" {
		decompressed, err := decompressGzip(data, wsh.maxSize)
		if errors.Is(err, errUploadTooLarge) {
			conn.sendError(payload.UploadID, fmt.Sprintf("Decompressed upload exceeds limit of %d bytes", wsh.maxSize), "INVALID_DATA")
			return
		}
		if err != nil {
			conn.sendError(payload.UploadID, "Invalid gzip data: "+err.Error(), "INVALID_DATA")
			return
		}
		data = decompressed
	}

	batch, err := wsh.intake.Submit([]intake.File{intake.BytesFile(session.FileName, session.MediaType, data)})
	if err != nil {
		if errors.Is(err, intake.ErrUnsupportedFileType) {
			conn.sendError(payload.UploadID, intake.UnsupportedMessage, "UNSUPPORTED_FILE_TYPE")
			return
		}
		conn.sendError(payload.UploadID, "Failed to start conversion: "+err.Error(), "SUBMIT_ERROR")
		return
	}

	conn.send(MsgTypeComplete, payload.UploadID, convertResponse{
		Records:  newRecordViews(batch.Records),
		Rejected: batch.Rejected,
	})
	wsh.logger.Info("websocket upload submitted",
		zap.String("file", session.FileName),
		zap.Int("bytes", len(data)))
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// decompressGzip inflates data, failing with errUploadTooLarge once the
// output passes limit bytes.
func decompressGzip(data []byte, limit int64) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, errUploadTooLarge
	}
	return out, nil
}
