package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Fake ASR and diarization backend for local pipeline development. Run with
// `go run test_transcription_server.go` and point transcription.endpoint at
// http://localhost:9090.

type asrChunk struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type diarizationSpan struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	if err := r.ParseMultipartForm(200 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return nil, false
	}

	log.Printf("🎤 %s request: id=%s file=%s size=%d bytes language=%s",
		r.URL.Path, r.FormValue("request_id"), header.Filename, len(audioData), r.FormValue("language"))

	return audioData, true
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := readUpload(w, r); !ok {
		return
	}

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := struct {
		Chunks []asrChunk `json:"chunks"`
	}{
		Chunks: []asrChunk{
			{Text: "hello this is a test", Start: 0.0, End: 2.1},
			{Text: "of the transcription pipeline", Start: 2.3, End: 4.0},
			{Text: "thanks for calling", Start: 5.5, End: 7.0},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
	log.Printf("✅ transcription response sent (%d chunks)", len(response.Chunks))
}

func diarizeHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := readUpload(w, r); !ok {
		return
	}

	time.Sleep(150 * time.Millisecond)

	response := struct {
		Spans []diarizationSpan `json:"spans"`
	}{
		Spans: []diarizationSpan{
			{Speaker: "SPEAKER_00", Start: 0.0, End: 4.2},
			{Speaker: "SPEAKER_01", Start: 5.3, End: 7.5},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
	log.Printf("✅ diarization response sent (%d spans)", len(response.Spans))
}

func modelsHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("🧠 model lifecycle call: %s", r.URL.Path)
	w.WriteHeader(http.StatusOK)
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)
	http.HandleFunc("/diarize", diarizeHandler)
	http.HandleFunc("/models/load", modelsHandler)
	http.HandleFunc("/models/unload", modelsHandler)

	port := ":9090"
	log.Printf("🚀 Test transcription server starting on port %s", port)
	log.Printf("💡 Point transcription.endpoint at http://localhost%s", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
