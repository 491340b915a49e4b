package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Journal writes newline-delimited JSON events to an io.Writer.
type Journal struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	encoder   *json.Encoder
	autoFlush bool
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewJournal flushes after every event when flushInterval is zero, otherwise on a ticker.
func NewJournal(w io.Writer, flushInterval time.Duration) *Journal {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	j := &Journal{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		stop:      make(chan struct{}),
	}
	if flushInterval > 0 {
		go j.periodicFlush(flushInterval)
	}
	return j
}

func (j *Journal) Write(event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.encoder.Encode(event); err != nil {
		return err
	}
	if j.autoFlush {
		return j.writer.Flush()
	}
	return nil
}

func (j *Journal) Close(context.Context) error {
	j.stopOnce.Do(func() { close(j.stop) })
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Flush()
}

func (j *Journal) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.mu.Lock()
			j.writer.Flush()
			j.mu.Unlock()
		}
	}
}

// ReadJournal decodes every event from a journal stream.
func ReadJournal(r io.Reader) ([]Event, error) {
	var events []Event
	dec := json.NewDecoder(r)
	for {
		var e Event
		if err := dec.Decode(&e); err == io.EOF {
			return events, nil
		} else if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}

// Replay feeds journaled events into a sink, e.g. to rebuild a Memory after restart.
func Replay(r io.Reader, sink Sink) error {
	events, err := ReadJournal(r)
	for _, e := range events {
		if werr := sink.Write(e); werr != nil {
			return werr
		}
	}
	return err
}
