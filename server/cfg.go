package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/model"
)

// Script is a captured arena feed: the size line, the wall phase and the frames that follow.
// In the file frames are separated by blank lines.
type Script struct {
	Size          int
	Walls         []string
	Frames        [][]string
	FirstPlayerID int
}

func LoadScriptFile(path string) (*Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	script, err := LoadScript(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded script %s: size %d, %d walls, %d frames", path, script.Size, len(script.Walls), len(script.Frames))
	return script, nil
}

func LoadScript(reader io.Reader) (*Script, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanLines)

	script := &Script{}
	sizeRead := false
	var frame []string
	maxSnake := 0
	row := 0

	for scanner.Scan() {
		row++
		s := strings.TrimSpace(scanner.Text())
		if !sizeRead {
			if s == "" {
				continue
			}
			size, err := model.DecodeScalar(s)
			if err != nil || size <= 0 {
				return nil, fmt.Errorf("line %d: bad arena size %q", row, s)
			}
			script.Size = size
			sizeRead = true
			continue
		}
		if s == "" {
			if len(frame) > 0 {
				script.Frames = append(script.Frames, frame)
				frame = nil
			}
			continue
		}
		rec, err := model.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row, err)
		}
		// walls count as the wall phase only before the first frame starts
		if rec.Kind == model.RK_WALL && len(script.Frames) == 0 && len(frame) == 0 {
			script.Walls = append(script.Walls, s)
			continue
		}
		if rec.Kind == model.RK_SNAKE && rec.Snake.ID > maxSnake {
			maxSnake = rec.Snake.ID
		}
		frame = append(frame, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sizeRead {
		return nil, errors.New("missing arena size")
	}
	if len(frame) > 0 {
		script.Frames = append(script.Frames, frame)
	}
	script.FirstPlayerID = maxSnake + 1
	return script, nil
}

// DefaultScript is a walled square arena where powerups appear one by one and are then eaten.
func DefaultScript() *Script {
	const size = 30
	const last = size - 1
	script := &Script{Size: size, FirstPlayerID: 1}

	corners := []model.Point2D{{X: 0, Y: 0}, {X: last, Y: 0}, {X: last, Y: last}, {X: 0, Y: last}}
	for i := range corners {
		script.Walls = append(script.Walls, mustEncode(model.Wall{ID: i, P1: corners[i], P2: corners[(i+1)%len(corners)]}))
	}
	for i := 0; i < 4; i++ {
		p := model.Powerup{ID: i, Loc: model.Point2D{X: 5 + 5*i, Y: 5 + 4*i}}
		script.Frames = append(script.Frames, []string{mustEncode(p)})
	}
	for i := 0; i < 4; i++ {
		p := model.Powerup{ID: i, Loc: model.Point2D{X: 5 + 5*i, Y: 5 + 4*i}, Died: true}
		script.Frames = append(script.Frames, []string{mustEncode(p)})
	}
	return script
}

func mustEncode(record interface{}) string {
	line, err := model.Encode(record)
	if err != nil {
		panic(err)
	}
	return line
}
