package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/client"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
	"github.com/zucenko/snakes/report"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}
	cfg, err := client.ConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err != nil {
		log.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, log.GetLevel())
	} else {
		log.SetLevel(level)
	}

	mem := recorder.NewMemory()
	sinks := []recorder.NamedSink{{Name: "memory", Sink: mem}}
	if cfg.JournalPath != "" {
		restoreJournal(cfg.JournalPath, mem, time.Now())
		file, err := os.OpenFile(cfg.JournalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		defer file.Close()
		sinks = append(sinks, recorder.NamedSink{Name: "journal", Sink: recorder.NewJournal(file, time.Second)})
	}
	queue := recorder.NewQueue(recorder.QueueConfig{BufferSize: cfg.RecorderBuffer}, sinks...)

	world := model.NewWorld()
	session := client.NewSession(world, queue, cfg.Dialer())

	var reportServer *report.Server
	if cfg.ReportAddr != "" {
		reportServer = report.NewServer(mem, world, report.Options{Addr: cfg.ReportAddr})
		reportServer.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.DialTimeout)
	err = session.Connect(ctx, cfg.Host, cfg.Port, cfg.Name)
	cancel()
	if err != nil {
		log.Errorf("connect %s:%d: %v", cfg.Host, cfg.Port, err)
	} else {
		go render(session, cfg.RenderInterval)

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-signals:
			log.Infof("received %v, disconnecting", sig)
			session.Disconnect()
		case <-session.Done():
		}
		if err := session.Wait(); err != nil {
			log.Errorf("session: %v", err)
		}
	}

	shutdown, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if reportServer != nil {
		if err := reportServer.Stop(shutdown); err != nil {
			log.Warnf("report shutdown: %v", err)
		}
	}
	if err := queue.Close(shutdown); err != nil {
		log.Warnf("recorder shutdown: %v", err)
	}
	stats := queue.Stats()
	log.Infof("recorded %d events, dropped %d", stats.EventsTotal, stats.DroppedTotal)
}

// restoreJournal loads an earlier journal into mem. Games and players the previous run never
// closed are ended at now.
func restoreJournal(path string, mem *recorder.Memory, now time.Time) {
	old, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("journal replay: %v", err)
		}
		return
	}
	defer old.Close()
	if err := recorder.Replay(old, mem); err != nil {
		log.Warnf("journal replay: %v", err)
	}
	if ended := mem.CloseOpen(now); ended > 0 {
		log.Infof("journal replay: closed %d unfinished games", ended)
	}
}

// render stands in for a drawing loop: it reads a snapshot every interval.
func render(session *client.Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-session.Done():
			return
		case <-ticker.C:
			log.WithFields(summary(session.World().Snapshot(), session.PlayerID())).Info("world")
		}
	}
}

func summary(snap model.Snapshot, self int) log.Fields {
	fields := log.Fields{
		"size":     snap.Size,
		"walls":    len(snap.Walls),
		"snakes":   len(snap.Snakes),
		"powerups": len(snap.Powerups),
	}
	if me, ok := snap.Snakes[self]; ok {
		fields["score"] = me.Score
		if head, ok := me.Head(); ok {
			fields["head"] = head
		}
	}
	if len(snap.Snakes) > 0 {
		board := make([]model.Snake, 0, len(snap.Snakes))
		for _, sn := range snap.Snakes {
			board = append(board, sn)
		}
		sort.Slice(board, func(i, j int) bool {
			if board[i].HighestScoreSeen != board[j].HighestScoreSeen {
				return board[i].HighestScoreSeen > board[j].HighestScoreSeen
			}
			return board[i].ID < board[j].ID
		})
		fields["leader"] = board[0].Name
	}
	return fields
}
