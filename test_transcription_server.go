package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type TranscriptionResponse struct {
	Text string `json:"text"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	// Get form fields
	model := r.FormValue("model")
	language := r.FormValue("language")
	prompt := r.FormValue("prompt")
	responseFormat := r.FormValue("response_format")
	temperature := r.FormValue("temperature")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read file content to get size
	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	// Log comprehensive request information
	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  📊 Request Info:")
	log.Printf("    Model: %s", model)
	log.Printf("    Language: %s", language)
	log.Printf("    Prompt: %s", prompt)
	log.Printf("    Response Format: %s", responseFormat)
	log.Printf("    Temperature: %s", temperature)
	log.Printf("    Authorization: %s", r.Header.Get("Authorization"))
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  🎧 Audio Info:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Content-Type: %s", header.Header.Get("Content-Type"))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	// Create fake transcription response
	response := TranscriptionResponse{
		Text: "Це тестова транскрипція аудіо фрагменту з українською мовою",
	}

	// Send JSON response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func main() {
	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)

	port := ":9000"
	log.Printf("🚀 Test Transcription Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/v1/audio/transcriptions", port)
	log.Println("💡 Update your config to use: http://localhost:9000/v1/audio/transcriptions")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
