package main

import (
	"fmt"
	"log"
	"net/http"
	"time"
)

// Stand-in for the generation API. Run it on port 9000 and set
// ANTHROPIC_BASE_URL=http://localhost:9000/v1 to exercise the proxy's
// streaming path without a real credential.
func main() {
	http.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")

		chunks := []string{
			"event: message_start\ndata: {\"type\":\"message_start\"}\n\n",
			"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello \"}}\n\n",
			"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"from the fake upstream.\"}}\n\n",
			"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
		}
		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			flusher.Flush()
			time.Sleep(200 * time.Millisecond)
		}

		log.Printf("Streamed fake completion: %s %s", r.Method, r.URL.Path)
	})

	log.Println("Fake generation upstream starting on port 9000")
	http.ListenAndServe(":9000", nil)
}
