package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/knowlegather/dominivoice/audio"
	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/messages"
)

// AudioPlayer streams raw 24kHz PCM to the default output via sox.
type AudioPlayer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	closed bool
}

func NewAudioPlayer() *AudioPlayer {
	cmd := exec.Command("sox",
		"-t", "raw",
		"-r", "24000",
		"-b", "16",
		"-c", "1",
		"-e", "signed-integer",
		"-",
		"-d",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Println("sox stdin error:", err)
		return nil
	}

	if err := cmd.Start(); err != nil {
		log.Println("sox start error:", err)
		return nil
	}

	return &AudioPlayer{cmd: cmd, stdin: stdin}
}

func (p *AudioPlayer) Play(audioData []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.stdin == nil {
		return
	}
	p.stdin.Write(audioData)
}

func (p *AudioPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Wait()
	}
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	audioFile := flag.String("file", "examples/user.pcm", "Audio file to send (PCM or WAV, 16kHz mono)")
	personaID := flag.String("persona", "", "Persona ID (defaults to the first listed persona)")
	text := flag.String("text", "", "Send a typed message instead of streaming audio")
	flag.Parse()

	if *personaID == "" {
		id, err := firstPersona(*serverURL)
		if err != nil {
			log.Fatalf("Failed to list personas: %v", err)
		}
		*personaID = id
	}

	log.Printf("Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected, persona %s", *personaID)

	player := NewAudioPlayer()
	if player == nil {
		log.Fatal("Failed to create audio player (is sox installed?)")
	}
	defer player.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			var msg struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := sonic.Unmarshal(message, &msg); err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch msg.Type {
			case messages.TypeAudioOut:
				var payload messages.AudioOutPayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				audioBytes, err := audio.DecodeBase64(payload.Data)
				if err == nil {
					player.Play(audioBytes)
				}

			case messages.TypeMessage:
				var payload messages.MessagePayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				if payload.Message != nil {
					fmt.Printf("[%s] %s\n", payload.Message.Role, payload.Message.Text)
				}

			case messages.TypeState:
				log.Printf("State: %s", strings.TrimSpace(string(msg.Payload)))

			case messages.TypeStatus:
				var payload messages.StatusPayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				log.Printf("Status: %s %s", payload.Status, payload.Message)

			case messages.TypeError:
				log.Printf("Error: %s", string(msg.Payload))
			}
		}
	}()

	send := func(msgType string, payload any) error {
		data, err := sonic.Marshal(map[string]any{"type": msgType, "payload": payload})
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	// Wait for the connected status before issuing commands.
	time.Sleep(500 * time.Millisecond)

	if *text != "" {
		if err := send(messages.TypeSend, messages.SendPayload{Text: *text, PersonaID: *personaID}); err != nil {
			log.Fatalf("Send error: %v", err)
		}
	} else {
		if err := send(messages.TypeStart, messages.StartPayload{PersonaID: *personaID, AutoListen: true}); err != nil {
			log.Fatalf("Start error: %v", err)
		}

		audioData, err := loadAudioFile(*audioFile)
		if err != nil {
			log.Fatalf("Failed to load audio: %v", err)
		}

		log.Printf("Streaming %s (%d bytes)", *audioFile, len(audioData))

		chunkSize := 3200 // 100ms at 16kHz
		for i := 0; i < len(audioData); i += chunkSize {
			end := i + chunkSize
			if end > len(audioData) {
				end = len(audioData)
			}
			payload := messages.AudioPayload{Data: audio.EncodeBase64(audioData[i:end])}
			if err := send(messages.TypeAudioIn, payload); err != nil {
				log.Printf("Send error: %v", err)
				break
			}
			time.Sleep(100 * time.Millisecond)
		}

		log.Println("Audio sent, waiting for response...")
	}

	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("Interrupted, closing...")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-time.After(60 * time.Second):
		log.Println("Timeout waiting for response")
	}
}

// firstPersona asks the server's persona listing for a default ID.
func firstPersona(wsURL string) (string, error) {
	httpURL := strings.Replace(wsURL, "ws://", "http://", 1)
	httpURL = strings.Replace(httpURL, "wss://", "https://", 1)
	httpURL = strings.TrimSuffix(httpURL, "/ws") + "/personas"

	resp, err := http.Get(httpURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var personas []*conversation.Persona
	if err := sonic.Unmarshal(body, &personas); err != nil {
		return "", err
	}
	if len(personas) == 0 {
		return "", fmt.Errorf("no personas available")
	}
	return personas[0].ID, nil
}

// loadAudioFile loads a PCM or WAV file and returns raw PCM bytes.
func loadAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) > 44 && string(data[0:4]) == "RIFF" {
		log.Println("Detected WAV file, skipping header")
		return data[44:], nil
	}

	log.Println("Detected raw PCM file")
	return data, nil
}
