package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gigabite-pro/kickrax-sub000/models"
)

// WriteEvent writes one server-sent-event frame: the kind line, the
// JSON payload line, and a blank separator. If the writer can flush
// (an http.ResponseWriter mid-stream), it is flushed so consumers see
// each result as it lands.
func WriteEvent(w io.Writer, ev models.StreamEvent) error {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// StreamTo drains the event channel into w, one frame per event, until
// the producer closes it.
func StreamTo(w io.Writer, events <-chan models.StreamEvent) error {
	for ev := range events {
		if err := WriteEvent(w, ev); err != nil {
			return err
		}
	}
	return nil
}
